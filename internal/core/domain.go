package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	CategoryDesign      Category = "design"
	CategoryDevelopment Category = "development"
	CategoryOperation   Category = "operation"

	SettlePending   SettleStatus = "pending"
	SettleCompleted SettleStatus = "completed"

	UnitHour DurationUnit = "hour"
	UnitDay  DurationUnit = "day"

	// Conventional ledger entry kinds. Kind is stored as free text so
	// historical entries with other labels keep loading.
	KindMeal      = "meal"
	KindOther     = "other"
	KindRecurring = "recurring"
	KindBirthday  = "birthday"

	// HoursPerDay converts a day-unit duration into hours.
	HoursPerDay = 8

	// MaxHours bounds a task's normalized hours. The bound applies after
	// unit conversion, so day-unit durations hit it well before 999.
	MaxHours Hours = 999 * 100

	// MaxRateWon is the upper bound for an hourly rate.
	MaxRateWon int64 = 1_000_000
)

type (
	Category     string
	SettleStatus string
	DurationUnit string

	Date struct {
		time.Time
	}

	// Money is an amount in integer Korean won. There is no minor unit;
	// all arithmetic stays in int64.
	Money struct {
		Won int64
	}

	// Hours is a duration in hundredths of an hour, so two-decimal
	// precision survives integer arithmetic.
	Hours int64

	// Duration is the operator-entered magnitude plus unit. It is kept on
	// the task so edits can re-open the original input.
	Duration struct {
		Value float64
		Unit  DurationUnit
	}

	Task struct {
		ID          int64
		Title       string
		Description string
		ClientID    int64
		ClientName  string // joined from clients for display, not stored on tasks
		Category    Category
		Managers    []string
		Duration    Duration
		Hours       Hours // derived from Duration
		Rate        Money
		Price       Money // derived, always Hours x Rate truncated
		TaskDate    Date
		Status      SettleStatus
		CreatedAt   time.Time
	}

	Client struct {
		ID          int64
		Name        string
		Description string
		Contact     string
		CreatedAt   time.Time
	}

	// UserAmount is one participant's signed contribution on a ledger
	// entry. Negative means the participant owes, positive means the
	// participant is due back.
	UserAmount struct {
		User   string
		Amount Money
	}

	LedgerEntry struct {
		ID        int64
		Date      Date
		Kind      string
		Title     string
		Payer     string // empty when no one fronted the money
		Amounts   []UserAmount
		CreatedAt time.Time
	}

	// RecurringTemplate is a ledger entry pattern materialized once per
	// month by the recurring worker.
	RecurringTemplate struct {
		ID         int64
		Kind       string
		Title      string
		Payer      string
		Amounts    []UserAmount
		DayOfMonth int
		Active     bool
		LastRun    time.Time
		CreatedAt  time.Time
	}

	BirthdaySetting struct {
		ID     int64
		User   string
		Month  int
		Day    int
		Amount Money // total gift pool
	}

	// Settings is the single global row of default hourly rates.
	Settings struct {
		DesignRate      Money
		DevelopmentRate Money
		OperationRate   Money
	}
)

var (
	ErrInvalidDuration = errors.New("invalid duration")
	ErrInvalidRate     = errors.New("invalid rate")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrMissingField    = errors.New("required field missing")
	ErrInvalidCategory = errors.New("invalid category")
	ErrInvalidStatus   = errors.New("invalid settlement status")
	ErrNoParticipants  = errors.New("no participants selected")
	ErrNoContributors  = errors.New("cannot compute per-contributor share with zero contributors")
	ErrUnbalanced      = errors.New("amounts must net to zero when a payer is set")
	ErrClientInUse     = errors.New("client has tasks and cannot be deleted")
	ErrNotFound        = errors.New("not found")
)

// daysInMonth is the maximum day count per month (Feb allows 29 so leap-day
// birthdays stay representable).
var daysInMonth = [13]int{0, 31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

func (c Category) Validate() error {
	switch c {
	case CategoryDesign, CategoryDevelopment, CategoryOperation:
		return nil
	}
	return ErrInvalidCategory
}

func (s SettleStatus) Validate() error {
	switch s {
	case SettlePending, SettleCompleted:
		return nil
	}
	return ErrInvalidStatus
}

// Float returns the hour value for display purposes. Calculations should
// stay on the integer representation.
func (h Hours) Float() float64 {
	return float64(h) / 100.0
}

func (d Duration) Validate() error {
	if d.Unit != UnitHour && d.Unit != UnitDay {
		return ErrInvalidDuration
	}
	if d.Value <= 0 || d.Value > 999 {
		return ErrInvalidDuration
	}
	return nil
}

func (m Money) Validate() error {
	if m.Won <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// NormalizeManagers trims names and drops empties, preserving order. The
// explicit list replaces the legacy comma-separated manager field.
func NormalizeManagers(managers []string) []string {
	out := make([]string, 0, len(managers))
	for _, m := range managers {
		m = strings.TrimSpace(m)
		if m == "" {
			continue
		}
		out = append(out, m)
	}
	return out
}

// ParseManagers splits a legacy comma-separated manager string into a
// normalized list.
func ParseManagers(s string) []string {
	return NormalizeManagers(strings.Split(s, ","))
}

func (t Task) Validate() error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return ErrMissingField
	}
	if n := utf8.RuneCountInString(title); n < 2 || n > 200 {
		return errors.New("title must be 2-200 characters")
	}
	if utf8.RuneCountInString(t.Description) > 1000 {
		return errors.New("description too long (max 1000 characters)")
	}
	if t.ClientID <= 0 {
		return ErrMissingField
	}
	if err := t.Category.Validate(); err != nil {
		return err
	}
	if err := t.Duration.Validate(); err != nil {
		return err
	}
	if t.Rate.Won <= 0 || t.Rate.Won > MaxRateWon {
		return ErrInvalidRate
	}
	if err := t.TaskDate.Validate(); err != nil {
		return fmt.Errorf("task date: %w", err)
	}
	if err := t.Status.Validate(); err != nil {
		return err
	}
	return nil
}

func (c Client) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrMissingField
	}
	if utf8.RuneCountInString(c.Name) > 200 {
		return errors.New("name too long (max 200 characters)")
	}
	return nil
}

// Total returns the net sum of all user amounts on the entry.
func (e LedgerEntry) Total() Money {
	var sum int64
	for _, ua := range e.Amounts {
		sum += ua.Amount.Won
	}
	return Money{Won: sum}
}

func (e LedgerEntry) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return fmt.Errorf("entry date: %w", err)
	}
	if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(e.Kind) == "" {
		return ErrMissingField
	}
	if len(e.Amounts) == 0 {
		return ErrNoParticipants
	}
	if e.Payer != "" {
		if !hasUser(e.Amounts, e.Payer) {
			return fmt.Errorf("payer %q has no amount on the entry", e.Payer)
		}
		if e.Total().Won != 0 {
			return ErrUnbalanced
		}
	}
	return nil
}

func (rt RecurringTemplate) Validate() error {
	if strings.TrimSpace(rt.Title) == "" || strings.TrimSpace(rt.Kind) == "" {
		return ErrMissingField
	}
	if len(rt.Amounts) == 0 {
		return ErrNoParticipants
	}
	if rt.DayOfMonth < 1 || rt.DayOfMonth > 31 {
		return errors.New("day of month must be 1-31")
	}
	if rt.Payer != "" && !hasUser(rt.Amounts, rt.Payer) {
		return fmt.Errorf("payer %q has no amount on the template", rt.Payer)
	}
	return nil
}

func (b BirthdaySetting) Validate() error {
	if strings.TrimSpace(b.User) == "" {
		return ErrMissingField
	}
	if b.Month < 1 || b.Month > 12 {
		return errors.New("birth month must be 1-12")
	}
	if b.Day < 1 || b.Day > daysInMonth[b.Month] {
		return fmt.Errorf("birth day %d is out of range for month %d", b.Day, b.Month)
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	return nil
}

// RateFor returns the default hourly rate for a task category.
func (s Settings) RateFor(c Category) Money {
	switch c {
	case CategoryDesign:
		return s.DesignRate
	case CategoryDevelopment:
		return s.DevelopmentRate
	case CategoryOperation:
		return s.OperationRate
	}
	return Money{}
}

func hasUser(amounts []UserAmount, user string) bool {
	for _, ua := range amounts {
		if ua.User == user {
			return true
		}
	}
	return false
}
