package sheets

import (
	"testing"

	"dops/internal/core"
)

func TestEntryRow(t *testing.T) {
	e := core.LedgerEntry{
		ID:    7,
		Date:  core.NewDate(2026, 3, 14),
		Kind:  core.KindMeal,
		Title: "team lunch",
		Payer: "A",
		Amounts: []core.UserAmount{
			{User: "A", Amount: core.Money{Won: -20000}},
			{User: "B", Amount: core.Money{Won: 10000}},
			{User: "C", Amount: core.Money{Won: 10000}},
		},
	}

	row := EntryRow(e, 3)
	if len(row) != RowWidth {
		t.Fatalf("row width = %d, want %d", len(row), RowWidth)
	}
	if row[0] != int64(7) {
		t.Errorf("id column = %v, want 7", row[0])
	}
	if row[1] != "2026-03-14" {
		t.Errorf("date column = %v, want 2026-03-14", row[1])
	}
	// Total is the sum of positive lines, not the payer's negative one.
	if row[5] != int64(20000) {
		t.Errorf("total column = %v, want 20000", row[5])
	}
	if row[7] != int64(3) {
		t.Errorf("version column = %v, want 3", row[7])
	}
}

func TestFormatAmounts(t *testing.T) {
	tests := []struct {
		name    string
		amounts []core.UserAmount
		want    string
	}{
		{
			name: "payer and shares",
			amounts: []core.UserAmount{
				{User: "A", Amount: core.Money{Won: -20000}},
				{User: "B", Amount: core.Money{Won: 10000}},
				{User: "C", Amount: core.Money{Won: 10000}},
			},
			want: "A:-20000; B:10000; C:10000",
		},
		{
			name:    "single line",
			amounts: []core.UserAmount{{User: "A", Amount: core.Money{Won: 5000}}},
			want:    "A:5000",
		},
		{name: "empty", amounts: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatAmounts(tt.amounts); got != tt.want {
				t.Errorf("FormatAmounts() = %q, want %q", got, tt.want)
			}
		})
	}
}
