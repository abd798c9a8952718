package sheets

import (
	"context"

	"dops/internal/core"
)

// Ports for the bookkeeping spreadsheet adapter.
type (
	// BookkeepingWriter mirrors ledger entries into the shared bookkeeping
	// sheet. UpsertEntry overwrites the row for the entry's ID when one
	// exists, otherwise appends a new row.
	BookkeepingWriter interface {
		UpsertEntry(ctx context.Context, e core.LedgerEntry, version int64) (rowRef string, err error)
	}

	// BookkeepingRemover clears the row of a deleted ledger entry.
	BookkeepingRemover interface {
		RemoveEntry(ctx context.Context, id int64) error
	}
)
