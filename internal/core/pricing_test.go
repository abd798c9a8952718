package core

import (
	"errors"
	"testing"
)

func TestNormalizeHours(t *testing.T) {
	tests := []struct {
		name     string
		duration Duration
		want     Hours
		wantErr  error
	}{
		{name: "whole hours", duration: Duration{Value: 3, Unit: UnitHour}, want: 300},
		{name: "fractional hours", duration: Duration{Value: 1.5, Unit: UnitHour}, want: 150},
		{name: "one day is eight hours", duration: Duration{Value: 1, Unit: UnitDay}, want: 800},
		{name: "half day", duration: Duration{Value: 0.5, Unit: UnitDay}, want: 400},
		{name: "max magnitude", duration: Duration{Value: 999, Unit: UnitHour}, want: 99900},
		{name: "max in days", duration: Duration{Value: 124.875, Unit: UnitDay}, want: 99900},
		{name: "days past the hours bound", duration: Duration{Value: 125, Unit: UnitDay}, wantErr: ErrInvalidDuration},
		{name: "valid magnitude but too many hours", duration: Duration{Value: 999, Unit: UnitDay}, wantErr: ErrInvalidDuration},
		{name: "zero magnitude", duration: Duration{Value: 0, Unit: UnitHour}, wantErr: ErrInvalidDuration},
		{name: "negative magnitude", duration: Duration{Value: -1, Unit: UnitHour}, wantErr: ErrInvalidDuration},
		{name: "over max magnitude", duration: Duration{Value: 1000, Unit: UnitHour}, wantErr: ErrInvalidDuration},
		{name: "unknown unit", duration: Duration{Value: 1, Unit: "week"}, wantErr: ErrInvalidDuration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeHours(tt.duration)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("NormalizeHours() error = %v, want %v", err, tt.wantErr)
			}
			if err == nil && got != tt.want {
				t.Errorf("NormalizeHours() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestComputePrice(t *testing.T) {
	tests := []struct {
		name  string
		hours Hours
		rate  int64
		want  int64
	}{
		{name: "whole product", hours: 800, rate: 50000, want: 400000},
		{name: "fractional hours", hours: 150, rate: 50000, want: 75000},
		{name: "truncates odd product", hours: 133, rate: 777, want: 1033}, // 1.33h x 777 = 1033.41
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputePrice(tt.hours, Money{Won: tt.rate})
			if got.Won != tt.want {
				t.Errorf("ComputePrice() = %d, want %d", got.Won, tt.want)
			}
		})
	}
}

func TestPriceTask(t *testing.T) {
	hours, price, err := PriceTask(Duration{Value: 2, Unit: UnitDay}, Money{Won: 60000})
	if err != nil {
		t.Fatalf("PriceTask() error = %v", err)
	}
	if hours != 1600 {
		t.Errorf("hours = %d, want 1600", hours)
	}
	if price.Won != 960000 {
		t.Errorf("price = %d, want 960000", price.Won)
	}
}

func TestPriceTask_RejectsInvalidRate(t *testing.T) {
	tests := []struct {
		name string
		rate int64
	}{
		{name: "zero rate", rate: 0},
		{name: "negative rate", rate: -100},
		{name: "rate over cap", rate: MaxRateWon + 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, _, err := PriceTask(Duration{Value: 1, Unit: UnitHour}, Money{Won: tt.rate}); !errors.Is(err, ErrInvalidRate) {
				t.Errorf("PriceTask() error = %v, want %v", err, ErrInvalidRate)
			}
		})
	}
}

func TestPriceInvariantAfterRecompute(t *testing.T) {
	// Editing duration or rate must always produce price == hours x rate.
	durations := []Duration{
		{Value: 1, Unit: UnitHour},
		{Value: 2.25, Unit: UnitHour},
		{Value: 3, Unit: UnitDay},
	}
	rates := []int64{10000, 55000, 1_000_000}

	for _, d := range durations {
		for _, r := range rates {
			hours, price, err := PriceTask(d, Money{Won: r})
			if err != nil {
				t.Fatalf("PriceTask(%+v, %d) error = %v", d, r, err)
			}
			if want := int64(hours) * r / 100; price.Won != want {
				t.Errorf("PriceTask(%+v, %d) price = %d, want %d", d, r, price.Won, want)
			}
		}
	}
}
