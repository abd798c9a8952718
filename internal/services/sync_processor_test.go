package services

import (
	"context"
	"testing"

	"dops/internal/amqp"
	"dops/internal/core"
	"dops/internal/sheets/memory"
)

type fakeSyncStore struct {
	entries  map[int64]core.LedgerEntry
	versions map[int64]int64
}

func (f *fakeSyncStore) GetEntry(_ context.Context, id int64) (core.LedgerEntry, error) {
	e, ok := f.entries[id]
	if !ok {
		return core.LedgerEntry{}, core.ErrNotFound
	}
	return e, nil
}

func (f *fakeSyncStore) GetEntryVersion(_ context.Context, id int64) (int64, error) {
	v, ok := f.versions[id]
	if !ok {
		return 0, core.ErrNotFound
	}
	return v, nil
}

func syncEntry(id int64) core.LedgerEntry {
	return core.LedgerEntry{
		ID:    id,
		Date:  core.NewDate(2026, 7, 10),
		Kind:  core.KindMeal,
		Title: "team dinner",
		Payer: "A",
		Amounts: []core.UserAmount{
			{User: "A", Amount: core.Money{Won: -30000}},
			{User: "B", Amount: core.Money{Won: 15000}},
			{User: "C", Amount: core.Money{Won: 15000}},
		},
	}
}

func TestSyncProcessorUpsert(t *testing.T) {
	ctx := context.Background()
	store := &fakeSyncStore{
		entries:  map[int64]core.LedgerEntry{1: syncEntry(1)},
		versions: map[int64]int64{1: 2},
	}
	sheet := memory.New()
	p := NewSyncProcessor(store, sheet, sheet)

	if err := p.Handle(ctx, amqp.NewLedgerSyncMessage(1, amqp.OpUpsert, 2)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	if got := sheet.Entries(); len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("sheet entries = %+v, want entry 1", got)
	}
	if sheet.Version(1) != 2 {
		t.Errorf("synced version = %d, want 2", sheet.Version(1))
	}
}

func TestSyncProcessorSkipsStaleMessage(t *testing.T) {
	ctx := context.Background()
	store := &fakeSyncStore{
		entries:  map[int64]core.LedgerEntry{1: syncEntry(1)},
		versions: map[int64]int64{1: 5},
	}
	sheet := memory.New()
	p := NewSyncProcessor(store, sheet, sheet)

	// Version 3 was superseded by version 5; nothing should be written.
	if err := p.Handle(ctx, amqp.NewLedgerSyncMessage(1, amqp.OpUpsert, 3)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := sheet.Entries(); len(got) != 0 {
		t.Errorf("sheet entries = %+v, want none for a stale message", got)
	}
}

func TestSyncProcessorDelete(t *testing.T) {
	ctx := context.Background()
	store := &fakeSyncStore{
		entries:  map[int64]core.LedgerEntry{},         // soft-deleted: not readable
		versions: map[int64]int64{1: 3},                // but the row still resolves
	}
	sheet := memory.New()
	if _, err := sheet.UpsertEntry(ctx, syncEntry(1), 2); err != nil {
		t.Fatalf("seed sheet: %v", err)
	}
	p := NewSyncProcessor(store, sheet, sheet)

	if err := p.Handle(ctx, amqp.NewLedgerSyncMessage(1, amqp.OpDelete, 3)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := sheet.Entries(); len(got) != 0 {
		t.Errorf("sheet entries = %+v, want empty after delete", got)
	}
}

func TestSyncProcessorUpsertAfterDeletion(t *testing.T) {
	ctx := context.Background()
	// Entry soft-deleted between publish and delivery: version resolves
	// but the entry itself does not. The upsert is skipped, not failed.
	store := &fakeSyncStore{
		entries:  map[int64]core.LedgerEntry{},
		versions: map[int64]int64{1: 2},
	}
	sheet := memory.New()
	p := NewSyncProcessor(store, sheet, sheet)

	if err := p.Handle(ctx, amqp.NewLedgerSyncMessage(1, amqp.OpUpsert, 2)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := sheet.Entries(); len(got) != 0 {
		t.Errorf("sheet entries = %+v, want none", got)
	}
}

func TestSyncProcessorUnknownRowRemoves(t *testing.T) {
	ctx := context.Background()
	store := &fakeSyncStore{entries: map[int64]core.LedgerEntry{}, versions: map[int64]int64{}}
	sheet := memory.New()
	if _, err := sheet.UpsertEntry(ctx, syncEntry(9), 1); err != nil {
		t.Fatalf("seed sheet: %v", err)
	}
	p := NewSyncProcessor(store, sheet, sheet)

	// The database row is gone entirely; the sheet row is cleared.
	if err := p.Handle(ctx, amqp.NewLedgerSyncMessage(9, amqp.OpUpsert, 1)); err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if got := sheet.Entries(); len(got) != 0 {
		t.Errorf("sheet entries = %+v, want empty", got)
	}
}

func TestSyncProcessorDropsInvalidMessage(t *testing.T) {
	p := NewSyncProcessor(&fakeSyncStore{}, memory.New(), memory.New())
	msg := &amqp.LedgerSyncMessage{ID: 1, Op: "replace", Version: 1}

	// Invalid messages are acked, not requeued.
	if err := p.Handle(context.Background(), msg); err != nil {
		t.Errorf("Handle() error = %v, want nil", err)
	}
}
