package core

import (
	"errors"
	"testing"
)

func TestParseWon(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "50000", want: 50000},
		{in: "1,200,000", want: 1200000},
		{in: " 9000 ", want: 9000},
		{in: "-4,500", want: -4500},
		{in: "", wantErr: true},
		{in: "-", wantErr: true},
		{in: "12.50", wantErr: true},
		{in: "abc", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseWon(tt.in)
		if tt.wantErr {
			if !errors.Is(err, ErrInvalidAmount) {
				t.Errorf("ParseWon(%q) error = %v, want %v", tt.in, err, ErrInvalidAmount)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseWon(%q) error = %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseWon(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatWon(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{in: 0, want: "0"},
		{in: 950, want: "950"},
		{in: 50000, want: "50,000"},
		{in: 1200000, want: "1,200,000"},
		{in: -240000, want: "-240,000"},
	}

	for _, tt := range tests {
		if got := FormatWon(tt.in); got != tt.want {
			t.Errorf("FormatWon(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
