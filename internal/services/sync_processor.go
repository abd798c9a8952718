package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dops/internal/amqp"
	"dops/internal/core"
	"dops/internal/sheets"
)

// ledgerSyncStore is the slice of storage the sync worker needs.
type ledgerSyncStore interface {
	GetEntry(ctx context.Context, id int64) (core.LedgerEntry, error)
	GetEntryVersion(ctx context.Context, id int64) (int64, error)
}

// SyncProcessor applies queued ledger changes to the bookkeeping sheet.
// Messages carry only {id, op, version}; the processor reads the current
// row and skips deliveries that a later change has already superseded.
type SyncProcessor struct {
	storage ledgerSyncStore
	writer  sheets.BookkeepingWriter
	remover sheets.BookkeepingRemover
}

func NewSyncProcessor(storage ledgerSyncStore, writer sheets.BookkeepingWriter, remover sheets.BookkeepingRemover) *SyncProcessor {
	return &SyncProcessor{storage: storage, writer: writer, remover: remover}
}

// Handle processes one sync message. A nil return acknowledges the
// delivery; an error requeues it.
func (p *SyncProcessor) Handle(ctx context.Context, msg *amqp.LedgerSyncMessage) error {
	if err := msg.Validate(); err != nil {
		// Malformed messages would requeue forever; drop them by
		// acking with a log line.
		slog.ErrorContext(ctx, "Dropping invalid sync message", "error", err)
		return nil
	}

	current, err := p.storage.GetEntryVersion(ctx, msg.ID)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// The row is gone entirely; make sure the sheet agrees.
			return p.remove(ctx, msg.ID)
		}
		return fmt.Errorf("resolve entry %d: %w", msg.ID, err)
	}

	if msg.Version < current {
		slog.InfoContext(ctx, "Skipping superseded sync message",
			"id", msg.ID,
			"message_version", msg.Version,
			"current_version", current)
		return nil
	}

	switch msg.Op {
	case amqp.OpUpsert:
		return p.upsert(ctx, msg.ID, current)
	case amqp.OpDelete:
		return p.remove(ctx, msg.ID)
	default:
		slog.ErrorContext(ctx, "Dropping sync message with unknown op", "op", msg.Op)
		return nil
	}
}

func (p *SyncProcessor) upsert(ctx context.Context, id, version int64) error {
	entry, err := p.storage.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			// Soft-deleted between publish and delivery; the delete
			// message reconciles the sheet.
			slog.InfoContext(ctx, "Entry deleted before sync, skipping upsert", "id", id)
			return nil
		}
		return fmt.Errorf("get entry %d: %w", id, err)
	}

	ref, err := p.writer.UpsertEntry(ctx, entry, version)
	if err != nil {
		return fmt.Errorf("upsert entry %d in sheet: %w", id, err)
	}

	slog.InfoContext(ctx, "Synced ledger entry to bookkeeping sheet",
		"id", id,
		"version", version,
		"row_ref", ref)
	return nil
}

func (p *SyncProcessor) remove(ctx context.Context, id int64) error {
	if p.remover == nil {
		slog.WarnContext(ctx, "No sheet remover configured, skipping delete", "id", id)
		return nil
	}
	if err := p.remover.RemoveEntry(ctx, id); err != nil {
		return fmt.Errorf("remove entry %d from sheet: %w", id, err)
	}

	slog.InfoContext(ctx, "Removed ledger entry from bookkeeping sheet", "id", id)
	return nil
}
