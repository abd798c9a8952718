package services

import (
	"context"
	"fmt"
	"log/slog"

	"dops/internal/amqp"
	"dops/internal/core"
	"dops/internal/storage"
)

// syncPublisher pushes ledger change notifications onto the bookkeeping
// queue. Satisfied by *amqp.Client; nil disables publishing.
type syncPublisher interface {
	PublishLedgerSync(ctx context.Context, id int64, op string, version int64) error
}

// LedgerService orchestrates shared-expense entries across SQLite and
// the AMQP sync queue. Writes always land locally first; a failed
// publish is logged and never fails the request.
type LedgerService struct {
	storage   *storage.SQLiteRepository
	publisher syncPublisher
}

func NewLedgerService(storage *storage.SQLiteRepository, publisher syncPublisher) *LedgerService {
	return &LedgerService{storage: storage, publisher: publisher}
}

// DutchPayInput describes an even split to be recorded as an entry.
type DutchPayInput struct {
	Date         core.Date
	Kind         string
	Title        string
	Total        core.Money
	Participants []string
	Payer        string
}

// CreateDutchPay splits the total evenly and records the result.
func (s *LedgerService) CreateDutchPay(ctx context.Context, in DutchPayInput) (core.LedgerEntry, error) {
	amounts, err := core.DutchPay(in.Total, core.NormalizeManagers(in.Participants), in.Payer)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	return s.CreateEntry(ctx, core.LedgerEntry{
		Date:    in.Date,
		Kind:    in.Kind,
		Title:   in.Title,
		Payer:   in.Payer,
		Amounts: amounts,
	})
}

// CreateEntry records a ledger entry. When a payer is set the payer's
// line is recomputed so the entry nets to zero regardless of what the
// caller sent.
func (s *LedgerService) CreateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	e.Amounts = core.BalancePayer(e.Amounts, e.Payer)
	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, err
	}

	created, err := s.storage.CreateEntry(ctx, e)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("save ledger entry: %w", err)
	}

	s.publish(ctx, created.ID, amqp.OpUpsert, 1)
	return created, nil
}

func (s *LedgerService) UpdateEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	e.Amounts = core.BalancePayer(e.Amounts, e.Payer)
	if err := e.Validate(); err != nil {
		return core.LedgerEntry{}, err
	}

	version, err := s.storage.UpdateEntry(ctx, e)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("update ledger entry: %w", err)
	}

	s.publish(ctx, e.ID, amqp.OpUpsert, version)
	return s.storage.GetEntry(ctx, e.ID)
}

func (s *LedgerService) DeleteEntry(ctx context.Context, id int64) error {
	version, err := s.storage.SoftDeleteEntry(ctx, id)
	if err != nil {
		return err
	}

	s.publish(ctx, id, amqp.OpDelete, version)
	return nil
}

func (s *LedgerService) GetEntry(ctx context.Context, id int64) (core.LedgerEntry, error) {
	return s.storage.GetEntry(ctx, id)
}

func (s *LedgerService) ListEntries(ctx context.Context, f storage.LedgerFilter) ([]core.LedgerEntry, error) {
	return s.storage.ListEntries(ctx, f)
}

// SummarizeLedger aggregates the filtered entries along the given axis.
func (s *LedgerService) SummarizeLedger(ctx context.Context, f storage.LedgerFilter, key core.LedgerKey) ([]core.LedgerBucket, error) {
	entries, err := s.storage.ListEntries(ctx, f)
	if err != nil {
		return nil, err
	}
	return core.SummarizeLedger(entries, key), nil
}

func (s *LedgerService) publish(ctx context.Context, id int64, op string, version int64) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "AMQP publisher not available, skipping sync message", "id", id, "op", op)
		return
	}
	if err := s.publisher.PublishLedgerSync(ctx, id, op, version); err != nil {
		// The entry is saved locally; the sheet catches up on the next
		// change or a manual resync.
		slog.ErrorContext(ctx, "Failed to publish ledger sync message",
			"id", id,
			"op", op,
			"version", version,
			"error", err)
	}
}

// Close releases the storage handle and, when present, the AMQP
// connection.
func (s *LedgerService) Close() error {
	var errs []error
	if s.storage != nil {
		if err := s.storage.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if closer, ok := s.publisher.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
