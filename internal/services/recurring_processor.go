package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dops/internal/core"
	"dops/internal/storage"
)

// recurringStore is the slice of storage the recurring worker needs.
type recurringStore interface {
	ListTemplates(ctx context.Context, activeOnly bool) ([]core.RecurringTemplate, error)
	MarkTemplateRun(ctx context.Context, id int64, when time.Time) error
	ListBirthdays(ctx context.Context) ([]storage.BirthdayRow, error)
	MarkBirthdayGenerated(ctx context.Context, id int64, year int) error
}

// entryCreator records materialized entries; satisfied by *LedgerService
// so generated entries flow through the same balancing and sync path as
// manual ones.
type entryCreator interface {
	CreateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error)
}

// RecurringProcessor materializes recurring templates into monthly
// ledger entries and birthday settings into yearly gift entries.
type RecurringProcessor struct {
	storage      recurringStore
	ledger       entryCreator
	participants []string
}

func NewRecurringProcessor(storage recurringStore, ledger entryCreator, participants []string) *RecurringProcessor {
	return &RecurringProcessor{
		storage:      storage,
		ledger:       ledger,
		participants: core.NormalizeManagers(participants),
	}
}

// ProcessDue creates every entry that is due at the given time and
// returns how many were created. Each template fires at most once per
// month and each birthday at most once per year, so running the worker
// more often than needed is harmless.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	if p.storage == nil || p.ledger == nil {
		return 0, fmt.Errorf("recurring processor not properly initialized")
	}

	created, err := p.processTemplates(ctx, now)
	if err != nil {
		return created, err
	}

	birthdays, err := p.processBirthdays(ctx, now)
	created += birthdays
	return created, err
}

func (p *RecurringProcessor) processTemplates(ctx context.Context, now time.Time) (int, error) {
	templates, err := p.storage.ListTemplates(ctx, true)
	if err != nil {
		return 0, fmt.Errorf("list recurring templates: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring templates",
		"active", len(templates),
		"date", now.Format("2006-01-02"))

	created := 0
	for _, rt := range templates {
		if !monthlyDue(rt.LastRun, now, rt.DayOfMonth) {
			continue
		}

		day := clampDay(now.Year(), int(now.Month()), rt.DayOfMonth)
		entry := core.LedgerEntry{
			Date:    core.NewDate(now.Year(), int(now.Month()), day),
			Kind:    rt.Kind,
			Title:   rt.Title,
			Payer:   rt.Payer,
			Amounts: append([]core.UserAmount(nil), rt.Amounts...),
		}

		if _, err := p.ledger.CreateEntry(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "Failed to materialize recurring template",
				"template_id", rt.ID,
				"title", rt.Title,
				"error", err)
			continue
		}
		if err := p.storage.MarkTemplateRun(ctx, rt.ID, now); err != nil {
			// Entry exists; a missed stamp means one duplicate next run
			// at worst, which the operator can delete.
			slog.ErrorContext(ctx, "Failed to record template run",
				"template_id", rt.ID,
				"error", err)
		}

		created++
		slog.InfoContext(ctx, "Materialized recurring entry",
			"template_id", rt.ID,
			"title", rt.Title,
			"entry_date", entry.Date.Format("2006-01-02"))
	}
	return created, nil
}

func (p *RecurringProcessor) processBirthdays(ctx context.Context, now time.Time) (int, error) {
	settings, err := p.storage.ListBirthdays(ctx)
	if err != nil {
		return 0, fmt.Errorf("list birthday settings: %w", err)
	}

	created := 0
	for _, b := range settings {
		if !yearlyDue(b.LastGeneratedYear, now, b.Month, b.Day) {
			continue
		}

		amounts, err := core.BirthdayShares(b.Amount, b.User, p.participants)
		if err != nil {
			slog.ErrorContext(ctx, "Cannot compute birthday shares",
				"user", b.User,
				"participants", len(p.participants),
				"error", err)
			continue
		}

		day := clampDay(now.Year(), b.Month, b.Day)
		entry := core.LedgerEntry{
			Date:    core.NewDate(now.Year(), b.Month, day),
			Kind:    core.KindBirthday,
			Title:   fmt.Sprintf("%s birthday", b.User),
			Amounts: amounts,
		}

		if _, err := p.ledger.CreateEntry(ctx, entry); err != nil {
			slog.ErrorContext(ctx, "Failed to create birthday entry",
				"user", b.User,
				"error", err)
			continue
		}
		if err := p.storage.MarkBirthdayGenerated(ctx, b.ID, now.Year()); err != nil {
			slog.ErrorContext(ctx, "Failed to record birthday generation",
				"user", b.User,
				"error", err)
		}

		created++
		slog.InfoContext(ctx, "Created birthday entry",
			"user", b.User,
			"year", now.Year(),
			"pool_won", b.Amount.Won)
	}
	return created, nil
}

// monthlyDue reports whether a template with the given target day should
// fire now. A template fires once per calendar month, on or after the
// target day; days past the month's end clamp to the last day.
func monthlyDue(lastRun, now time.Time, targetDay int) bool {
	if !lastRun.IsZero() && lastRun.Year() == now.Year() && lastRun.Month() == now.Month() {
		return false
	}
	return now.Day() >= clampDay(now.Year(), int(now.Month()), targetDay)
}

// yearlyDue reports whether a birthday entry should be generated now.
func yearlyDue(lastGeneratedYear int, now time.Time, month, day int) bool {
	if lastGeneratedYear >= now.Year() {
		return false
	}
	if int(now.Month()) < month {
		return false
	}
	if int(now.Month()) > month {
		return true
	}
	return now.Day() >= clampDay(now.Year(), month, day)
}

// clampDay caps a day-of-month to the last day of the given month.
func clampDay(year, month, day int) int {
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}
