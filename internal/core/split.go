package core

import "fmt"

// DutchPay splits a total evenly among the participating users.
//
// Every participant is assigned share = total/n, floored. When a payer is
// designated the payer's line is overwritten with share+remainder-total,
// which credits back the fronted money net of the payer's own share and
// folds the integer remainder into the payer, so the entry nets to exactly
// zero. Without a payer the remainder is simply dropped; the entry is
// informational and the drift is at most n-1 won.
func DutchPay(total Money, participants []string, payer string) ([]UserAmount, error) {
	if len(participants) == 0 {
		return nil, ErrNoParticipants
	}
	if total.Won <= 0 {
		return nil, ErrInvalidAmount
	}

	n := int64(len(participants))
	share := total.Won / n
	remainder := total.Won - share*n

	payerIdx := -1
	out := make([]UserAmount, len(participants))
	for i, p := range participants {
		out[i] = UserAmount{User: p, Amount: Money{Won: share}}
		if payer != "" && p == payer {
			payerIdx = i
		}
	}

	if payer != "" {
		if payerIdx < 0 {
			return nil, fmt.Errorf("payer %q is not among the participants", payer)
		}
		out[payerIdx].Amount.Won = share + remainder - total.Won
	}

	return out, nil
}

// BalancePayer recomputes the payer's amount as the negated sum of every
// other amount, keeping the entry zero-sum. It is applied whenever a
// non-payer amount or the payer selection changes. With no payer the
// amounts are returned untouched.
func BalancePayer(amounts []UserAmount, payer string) []UserAmount {
	out := make([]UserAmount, len(amounts))
	copy(out, amounts)
	if payer == "" {
		return out
	}

	var othersSum int64
	payerIdx := -1
	for i, ua := range out {
		if ua.User == payer {
			payerIdx = i
			continue
		}
		othersSum += ua.Amount.Won
	}
	if payerIdx < 0 {
		out = append(out, UserAmount{User: payer})
		payerIdx = len(out) - 1
	}
	out[payerIdx].Amount.Won = -othersSum
	return out
}

// BirthdayShares computes the gift-pool distribution for a birthday entry.
// The recipient draws the full pool (-total) and every other participant
// contributes total/(n-1) rounded half-up. Contributor rounding means the
// entry may not net to exactly zero; the drift is bounded by the
// contributor count and accepted for the social ledger.
func BirthdayShares(total Money, recipient string, participants []string) ([]UserAmount, error) {
	if total.Won <= 0 {
		return nil, ErrInvalidAmount
	}

	contributors := 0
	found := false
	for _, p := range participants {
		if p == recipient {
			found = true
			continue
		}
		contributors++
	}
	if !found {
		return nil, fmt.Errorf("recipient %q is not among the participants", recipient)
	}
	if contributors == 0 {
		return nil, ErrNoContributors
	}

	c := int64(contributors)
	share := (total.Won + c/2) / c // half-up

	out := make([]UserAmount, len(participants))
	for i, p := range participants {
		if p == recipient {
			out[i] = UserAmount{User: p, Amount: Money{Won: -total.Won}}
			continue
		}
		out[i] = UserAmount{User: p, Amount: Money{Won: share}}
	}
	return out, nil
}
