package core

import "math"

// NormalizeHours converts a duration input into hours. A day counts as
// eight hours. The result keeps two-decimal precision through the integer
// Hours representation (half-up on the third decimal).
func NormalizeHours(d Duration) (Hours, error) {
	if err := d.Validate(); err != nil {
		return 0, err
	}
	value := d.Value
	if d.Unit == UnitDay {
		value *= HoursPerDay
	}
	hours := Hours(math.Round(value * 100))
	if hours > MaxHours {
		return 0, ErrInvalidDuration
	}
	return hours, nil
}

// ComputePrice derives the task price from hours and an hourly rate. The
// product is truncated toward zero into whole won, matching how prices are
// stored.
func ComputePrice(h Hours, rate Money) Money {
	return Money{Won: int64(h) * rate.Won / 100}
}

// PriceTask validates the duration/rate pair and returns the normalized
// hours and the derived price. Tasks must never carry a price that was not
// produced by this function.
func PriceTask(d Duration, rate Money) (Hours, Money, error) {
	hours, err := NormalizeHours(d)
	if err != nil {
		return 0, Money{}, err
	}
	if rate.Won <= 0 || rate.Won > MaxRateWon {
		return 0, Money{}, ErrInvalidRate
	}
	return hours, ComputePrice(hours, rate), nil
}
