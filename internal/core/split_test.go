package core

import (
	"errors"
	"testing"
)

func sumAmounts(amounts []UserAmount) int64 {
	var sum int64
	for _, ua := range amounts {
		sum += ua.Amount.Won
	}
	return sum
}

func amountFor(t *testing.T, amounts []UserAmount, user string) int64 {
	t.Helper()
	for _, ua := range amounts {
		if ua.User == user {
			return ua.Amount.Won
		}
	}
	t.Fatalf("no amount for user %q", user)
	return 0
}

func TestDutchPay_NoPayer(t *testing.T) {
	// 10000 across 3: floor share of 3333 each, the remaining 1 won is
	// dropped rather than redistributed.
	got, err := DutchPay(Money{Won: 10000}, []string{"A", "B", "C"}, "")
	if err != nil {
		t.Fatalf("DutchPay() error = %v", err)
	}
	for _, ua := range got {
		if ua.Amount.Won != 3333 {
			t.Errorf("share for %s = %d, want 3333", ua.User, ua.Amount.Won)
		}
	}
	if sum := sumAmounts(got); sum != 9999 {
		t.Errorf("sum = %d, want 9999 (remainder not redistributed)", sum)
	}
}

func TestDutchPay_WithPayer(t *testing.T) {
	got, err := DutchPay(Money{Won: 9000}, []string{"A", "B", "C"}, "A")
	if err != nil {
		t.Fatalf("DutchPay() error = %v", err)
	}
	if a := amountFor(t, got, "A"); a != -6000 {
		t.Errorf("payer amount = %d, want -6000", a)
	}
	if b := amountFor(t, got, "B"); b != 3000 {
		t.Errorf("B amount = %d, want 3000", b)
	}
	if c := amountFor(t, got, "C"); c != 3000 {
		t.Errorf("C amount = %d, want 3000", c)
	}
	if sum := sumAmounts(got); sum != 0 {
		t.Errorf("sum = %d, want 0", sum)
	}
}

func TestDutchPay_RemainderGoesToPayer(t *testing.T) {
	// 10000 across 3 with payer A: B and C keep the floor share, A absorbs
	// the remainder so the entry still nets to zero.
	got, err := DutchPay(Money{Won: 10000}, []string{"A", "B", "C"}, "A")
	if err != nil {
		t.Fatalf("DutchPay() error = %v", err)
	}
	if a := amountFor(t, got, "A"); a != -6666 {
		t.Errorf("payer amount = %d, want -6666", a)
	}
	if sum := sumAmounts(got); sum != 0 {
		t.Errorf("sum = %d, want 0", sum)
	}
}

func TestDutchPay_ZeroSumForAnyCount(t *testing.T) {
	users := []string{"A", "B", "C", "D", "E", "F", "G"}
	for n := 1; n <= len(users); n++ {
		for total := int64(1); total < 50; total += 7 {
			got, err := DutchPay(Money{Won: total}, users[:n], users[0])
			if err != nil {
				t.Fatalf("DutchPay(total=%d, n=%d) error = %v", total, n, err)
			}
			if sum := sumAmounts(got); sum != 0 {
				t.Errorf("DutchPay(total=%d, n=%d) sum = %d, want 0", total, n, sum)
			}
		}
	}
}

func TestDutchPay_Errors(t *testing.T) {
	tests := []struct {
		name         string
		total        int64
		participants []string
		payer        string
		wantErr      error
	}{
		{name: "no participants", total: 1000, participants: nil, wantErr: ErrNoParticipants},
		{name: "zero total", total: 0, participants: []string{"A"}, wantErr: ErrInvalidAmount},
		{name: "negative total", total: -100, participants: []string{"A"}, wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DutchPay(Money{Won: tt.total}, tt.participants, tt.payer)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("DutchPay() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("payer not participating", func(t *testing.T) {
		_, err := DutchPay(Money{Won: 1000}, []string{"A", "B"}, "Z")
		if err == nil {
			t.Error("DutchPay() expected error for non-participating payer")
		}
	})
}

func TestBalancePayer(t *testing.T) {
	amounts := []UserAmount{
		{User: "A", Amount: Money{Won: 0}},
		{User: "B", Amount: Money{Won: 4500}},
		{User: "C", Amount: Money{Won: 5500}},
	}

	got := BalancePayer(amounts, "A")
	if a := amountFor(t, got, "A"); a != -10000 {
		t.Errorf("payer amount = %d, want -10000", a)
	}
	if sum := sumAmounts(got); sum != 0 {
		t.Errorf("sum = %d, want 0", sum)
	}

	// Changing the payer selection rebalances the new payer instead.
	got = BalancePayer(got, "B")
	if b := amountFor(t, got, "B"); b != -(-10000 + 5500) {
		t.Errorf("new payer amount = %d, want %d", b, -(-10000 + 5500))
	}
	if sum := sumAmounts(got); sum != 0 {
		t.Errorf("sum after payer change = %d, want 0", sum)
	}
}

func TestBalancePayer_NoPayerLeavesAmountsAlone(t *testing.T) {
	amounts := []UserAmount{
		{User: "A", Amount: Money{Won: 1200}},
		{User: "B", Amount: Money{Won: 800}},
	}
	got := BalancePayer(amounts, "")
	if sum := sumAmounts(got); sum != 2000 {
		t.Errorf("sum = %d, want 2000 (informational entry keeps its total)", sum)
	}
}

func TestBalancePayer_DoesNotMutateInput(t *testing.T) {
	amounts := []UserAmount{
		{User: "A", Amount: Money{Won: 100}},
		{User: "B", Amount: Money{Won: 200}},
	}
	_ = BalancePayer(amounts, "A")
	if amounts[0].Amount.Won != 100 {
		t.Errorf("input mutated: A = %d, want 100", amounts[0].Amount.Won)
	}
}

func TestBirthdayShares(t *testing.T) {
	got, err := BirthdayShares(Money{Won: 240000}, "X", []string{"X", "A", "B", "C", "D"})
	if err != nil {
		t.Fatalf("BirthdayShares() error = %v", err)
	}
	if x := amountFor(t, got, "X"); x != -240000 {
		t.Errorf("recipient amount = %d, want -240000", x)
	}
	for _, u := range []string{"A", "B", "C", "D"} {
		if a := amountFor(t, got, u); a != 60000 {
			t.Errorf("contributor %s = %d, want 60000", u, a)
		}
	}
	if sum := sumAmounts(got); sum != 0 {
		t.Errorf("sum = %d, want 0", sum)
	}
}

func TestBirthdayShares_RoundingDrift(t *testing.T) {
	// 100000 over 3 contributors rounds half-up to 33333 each; the entry
	// is 1 won short of netting to zero, which is accepted drift.
	got, err := BirthdayShares(Money{Won: 100000}, "X", []string{"X", "A", "B", "C"})
	if err != nil {
		t.Fatalf("BirthdayShares() error = %v", err)
	}
	for _, u := range []string{"A", "B", "C"} {
		if a := amountFor(t, got, u); a != 33333 {
			t.Errorf("contributor %s = %d, want 33333", u, a)
		}
	}
	if sum := sumAmounts(got); sum != -1 {
		t.Errorf("sum = %d, want -1 (documented rounding drift)", sum)
	}
}

func TestBirthdayShares_Errors(t *testing.T) {
	if _, err := BirthdayShares(Money{Won: 1000}, "X", []string{"X"}); !errors.Is(err, ErrNoContributors) {
		t.Errorf("single participant: error = %v, want %v", err, ErrNoContributors)
	}
	if _, err := BirthdayShares(Money{Won: 1000}, "X", []string{"A", "B"}); err == nil {
		t.Error("expected error when recipient is not among participants")
	}
	if _, err := BirthdayShares(Money{Won: 0}, "X", []string{"X", "A"}); !errors.Is(err, ErrInvalidAmount) {
		t.Errorf("zero total: error = %v, want %v", err, ErrInvalidAmount)
	}
}
