package sheets

import (
	"fmt"
	"strings"

	"dops/internal/core"
)

// Bookkeeping sheet layout, one row per ledger entry:
// A id, B date, C kind, D title, E payer, F total charged,
// G per-user amounts, H version.
const RowWidth = 8

// EntryRow renders a ledger entry as a spreadsheet row. The total column
// carries the sum of positive lines, which is what was actually spent.
func EntryRow(e core.LedgerEntry, version int64) []any {
	var spent int64
	for _, ua := range e.Amounts {
		if ua.Amount.Won > 0 {
			spent += ua.Amount.Won
		}
	}
	return []any{
		e.ID,
		e.Date.Format("2006-01-02"),
		e.Kind,
		e.Title,
		e.Payer,
		spent,
		FormatAmounts(e.Amounts),
		version,
	}
}

// FormatAmounts serializes amount lines as "user:amount" pairs joined by
// "; ", preserving order.
func FormatAmounts(amounts []core.UserAmount) string {
	parts := make([]string, 0, len(amounts))
	for _, ua := range amounts {
		parts = append(parts, fmt.Sprintf("%s:%d", ua.User, ua.Amount.Won))
	}
	return strings.Join(parts, "; ")
}
