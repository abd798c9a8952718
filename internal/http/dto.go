package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"dops/internal/core"
	"dops/internal/storage"
)

const dateLayout = "2006-01-02"

var errBadBody = errors.New("invalid request body")

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	return nil
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func parseDate(s string) (core.Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return core.Date{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", s)
	}
	return core.Date{Time: t}, nil
}

type taskPayload struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	ClientID      int64    `json:"client_id"`
	Category      string   `json:"category"`
	Managers      []string `json:"managers"`
	DurationValue float64  `json:"duration_value"`
	DurationUnit  string   `json:"duration_unit"`
	RateWon       int64    `json:"rate_won"`
	TaskDate      string   `json:"task_date"`
	Status        string   `json:"status"`
}

func (p taskPayload) toTask(id int64) (core.Task, error) {
	date, err := parseDate(p.TaskDate)
	if err != nil {
		return core.Task{}, err
	}
	return core.Task{
		ID:          id,
		Title:       p.Title,
		Description: p.Description,
		ClientID:    p.ClientID,
		Category:    core.Category(p.Category),
		Managers:    p.Managers,
		Duration: core.Duration{
			Value: p.DurationValue,
			Unit:  core.DurationUnit(p.DurationUnit),
		},
		Rate:     core.Money{Won: p.RateWon},
		TaskDate: date,
		Status:   core.SettleStatus(p.Status),
	}, nil
}

type taskResponse struct {
	ID            int64    `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	ClientID      int64    `json:"client_id"`
	ClientName    string   `json:"client_name,omitempty"`
	Category      string   `json:"category"`
	Managers      []string `json:"managers"`
	DurationValue float64  `json:"duration_value"`
	DurationUnit  string   `json:"duration_unit"`
	Hours         float64  `json:"hours"`
	RateWon       int64    `json:"rate_won"`
	PriceWon      int64    `json:"price_won"`
	TaskDate      string   `json:"task_date"`
	Status        string   `json:"status"`
	CreatedAt     string   `json:"created_at,omitempty"`
}

func toTaskResponse(t core.Task) taskResponse {
	resp := taskResponse{
		ID:            t.ID,
		Title:         t.Title,
		Description:   t.Description,
		ClientID:      t.ClientID,
		ClientName:    t.ClientName,
		Category:      string(t.Category),
		Managers:      t.Managers,
		DurationValue: t.Duration.Value,
		DurationUnit:  string(t.Duration.Unit),
		Hours:         t.Hours.Float(),
		RateWon:       t.Rate.Won,
		PriceWon:      t.Price.Won,
		TaskDate:      t.TaskDate.Format(dateLayout),
		Status:        string(t.Status),
	}
	if !t.CreatedAt.IsZero() {
		resp.CreatedAt = t.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

type clientPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Contact     string `json:"contact"`
}

type clientResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Contact     string `json:"contact,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func toClientResponse(c core.Client) clientResponse {
	resp := clientResponse{
		ID:          c.ID,
		Name:        c.Name,
		Description: c.Description,
		Contact:     c.Contact,
	}
	if !c.CreatedAt.IsZero() {
		resp.CreatedAt = c.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

type amountPayload struct {
	User      string `json:"user"`
	AmountWon int64  `json:"amount_won"`
}

func toAmounts(payloads []amountPayload) []core.UserAmount {
	amounts := make([]core.UserAmount, 0, len(payloads))
	for _, p := range payloads {
		amounts = append(amounts, core.UserAmount{User: p.User, Amount: core.Money{Won: p.AmountWon}})
	}
	return amounts
}

func fromAmounts(amounts []core.UserAmount) []amountPayload {
	payloads := make([]amountPayload, 0, len(amounts))
	for _, ua := range amounts {
		payloads = append(payloads, amountPayload{User: ua.User, AmountWon: ua.Amount.Won})
	}
	return payloads
}

type entryPayload struct {
	Date    string          `json:"date"`
	Kind    string          `json:"kind"`
	Title   string          `json:"title"`
	Payer   string          `json:"payer"`
	Amounts []amountPayload `json:"amounts"`
}

func (p entryPayload) toEntry(id int64) (core.LedgerEntry, error) {
	date, err := parseDate(p.Date)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	return core.LedgerEntry{
		ID:      id,
		Date:    date,
		Kind:    p.Kind,
		Title:   p.Title,
		Payer:   p.Payer,
		Amounts: toAmounts(p.Amounts),
	}, nil
}

type entryResponse struct {
	ID        int64           `json:"id"`
	Date      string          `json:"date"`
	Kind      string          `json:"kind"`
	Title     string          `json:"title"`
	Payer     string          `json:"payer,omitempty"`
	Amounts   []amountPayload `json:"amounts"`
	TotalWon  int64           `json:"total_won"`
	CreatedAt string          `json:"created_at,omitempty"`
}

func toEntryResponse(e core.LedgerEntry) entryResponse {
	resp := entryResponse{
		ID:       e.ID,
		Date:     e.Date.Format(dateLayout),
		Kind:     e.Kind,
		Title:    e.Title,
		Payer:    e.Payer,
		Amounts:  fromAmounts(e.Amounts),
		TotalWon: e.Total().Won,
	}
	if !e.CreatedAt.IsZero() {
		resp.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return resp
}

type dutchPayPayload struct {
	Date         string   `json:"date"`
	Kind         string   `json:"kind"`
	Title        string   `json:"title"`
	TotalWon     int64    `json:"total_won"`
	Participants []string `json:"participants"`
	Payer        string   `json:"payer"`
}

type templatePayload struct {
	Kind       string          `json:"kind"`
	Title      string          `json:"title"`
	Payer      string          `json:"payer"`
	Amounts    []amountPayload `json:"amounts"`
	DayOfMonth int             `json:"day_of_month"`
}

func (p templatePayload) toTemplate(id int64) core.RecurringTemplate {
	return core.RecurringTemplate{
		ID:         id,
		Kind:       p.Kind,
		Title:      p.Title,
		Payer:      p.Payer,
		Amounts:    toAmounts(p.Amounts),
		DayOfMonth: p.DayOfMonth,
		Active:     true,
	}
}

type templateResponse struct {
	ID         int64           `json:"id"`
	Kind       string          `json:"kind"`
	Title      string          `json:"title"`
	Payer      string          `json:"payer,omitempty"`
	Amounts    []amountPayload `json:"amounts"`
	DayOfMonth int             `json:"day_of_month"`
	Active     bool            `json:"active"`
	LastRun    string          `json:"last_run,omitempty"`
}

func toTemplateResponse(rt core.RecurringTemplate) templateResponse {
	resp := templateResponse{
		ID:         rt.ID,
		Kind:       rt.Kind,
		Title:      rt.Title,
		Payer:      rt.Payer,
		Amounts:    fromAmounts(rt.Amounts),
		DayOfMonth: rt.DayOfMonth,
		Active:     rt.Active,
	}
	if !rt.LastRun.IsZero() {
		resp.LastRun = rt.LastRun.Format(dateLayout)
	}
	return resp
}

type birthdayPayload struct {
	User      string `json:"user"`
	Month     int    `json:"month"`
	Day       int    `json:"day"`
	AmountWon int64  `json:"amount_won"`
}

type birthdayResponse struct {
	ID                int64  `json:"id"`
	User              string `json:"user"`
	Month             int    `json:"month"`
	Day               int    `json:"day"`
	AmountWon         int64  `json:"amount_won"`
	LastGeneratedYear int    `json:"last_generated_year,omitempty"`
}

func toBirthdayResponse(row storage.BirthdayRow) birthdayResponse {
	return birthdayResponse{
		ID:                row.ID,
		User:              row.User,
		Month:             row.Month,
		Day:               row.Day,
		AmountWon:         row.Amount.Won,
		LastGeneratedYear: row.LastGeneratedYear,
	}
}

type settingsPayload struct {
	DesignRateWon      int64 `json:"design_rate_won"`
	DevelopmentRateWon int64 `json:"development_rate_won"`
	OperationRateWon   int64 `json:"operation_rate_won"`
}

func (p settingsPayload) toSettings() core.Settings {
	return core.Settings{
		DesignRate:      core.Money{Won: p.DesignRateWon},
		DevelopmentRate: core.Money{Won: p.DevelopmentRateWon},
		OperationRate:   core.Money{Won: p.OperationRateWon},
	}
}

func toSettingsPayload(s core.Settings) settingsPayload {
	return settingsPayload{
		DesignRateWon:      s.DesignRate.Won,
		DevelopmentRateWon: s.DevelopmentRate.Won,
		OperationRateWon:   s.OperationRate.Won,
	}
}

type bucketResponse struct {
	Key      string  `json:"key"`
	Count    int     `json:"count"`
	Hours    float64 `json:"hours"`
	PriceWon int64   `json:"price_won"`
}

type ledgerBucketResponse struct {
	Key      string `json:"key"`
	Count    int    `json:"count"`
	TotalWon int64  `json:"total_won"`
}

// parseTaskFilter reads the shared year/month/client/status query params.
func parseTaskFilter(r *http.Request) (storage.TaskFilter, error) {
	var f storage.TaskFilter
	q := r.URL.Query()
	var err error
	if f.Year, err = intParam(q.Get("year")); err != nil {
		return f, fmt.Errorf("invalid year: %w", err)
	}
	if f.Month, err = intParam(q.Get("month")); err != nil {
		return f, fmt.Errorf("invalid month: %w", err)
	}
	if v := q.Get("client_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return f, fmt.Errorf("invalid client_id: %w", err)
		}
		f.ClientID = id
	}
	if v := q.Get("status"); v != "" {
		status := core.SettleStatus(v)
		if err := status.Validate(); err != nil {
			return f, err
		}
		f.Status = status
	}
	return f, nil
}

func parseLedgerFilter(r *http.Request) (storage.LedgerFilter, error) {
	var f storage.LedgerFilter
	q := r.URL.Query()
	var err error
	if f.Year, err = intParam(q.Get("year")); err != nil {
		return f, fmt.Errorf("invalid year: %w", err)
	}
	if f.Month, err = intParam(q.Get("month")); err != nil {
		return f, fmt.Errorf("invalid month: %w", err)
	}
	f.Kind = q.Get("kind")
	return f, nil
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}
