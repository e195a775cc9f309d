// Package settlement contains the deposit/settlement matching logic.
//
// A settlement is a batch of processor-collected funds expected to arrive
// as a single bank deposit. The matcher scores candidate settlements by
// monetary variance against an observed deposit and decides whether the
// link can be made automatically or needs a human.
package settlement

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// WindowDays is how far back from the deposit date candidate settlements
// are considered, inclusive at both ends.
const WindowDays = 3

// DefaultMargin is the auto-reconcile tolerance: 5 pence.
var DefaultMargin = decimal.NewFromFloat(0.05)

// Candidate is an unreconciled settlement under consideration for a deposit.
type Candidate struct {
	ID               string          `json:"id"`
	SettlementDate   time.Time       `json:"settlement_date"`
	NetAmount        decimal.Decimal `json:"net_amount"`
	TransactionCount int             `json:"transaction_count"`
}

// Match is a scored candidate.
type Match struct {
	Candidate
	Variance     decimal.Decimal `json:"variance"`
	WithinMargin bool            `json:"within_margin"`
}

// Decision is the outcome of scoring all candidates for one deposit.
type Decision struct {
	// Matches holds every candidate in the window, closest first.
	Matches []Match `json:"matches"`

	// AutoReconcile is true when exactly one candidate fell within the
	// margin; Winner is that candidate.
	AutoReconcile bool   `json:"auto_reconcile"`
	Winner        *Match `json:"winner,omitempty"`
}

// Score computes the variance of a single candidate against the deposit
// amount. Variance is always non-negative and rounded to two decimals.
func Score(c Candidate, depositAmount decimal.Decimal, margin decimal.Decimal) Match {
	variance := c.NetAmount.Sub(depositAmount).Abs().Round(2)
	return Match{
		Candidate:    c,
		Variance:     variance,
		WithinMargin: variance.LessThanOrEqual(margin),
	}
}

// InWindow reports whether a settlement date falls inside the trailing
// match window for a deposit date. Both dates are compared at day
// granularity; the window is [deposit-WindowDays, deposit] inclusive.
func InWindow(settlementDate, depositDate time.Time) bool {
	s := truncateDay(settlementDate)
	d := truncateDay(depositDate)
	earliest := d.AddDate(0, 0, -WindowDays)
	return !s.Before(earliest) && !s.After(d)
}

// Decide scores every candidate and applies the auto-reconcile policy:
// exactly one candidate within margin wins; zero or several leave the
// ambiguity to a human. Two candidates with identical in-margin variance
// are deliberately both left unreconciled.
func Decide(candidates []Candidate, depositAmount decimal.Decimal, margin decimal.Decimal) Decision {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		matches = append(matches, Score(c, depositAmount, margin))
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Variance.LessThan(matches[j].Variance)
	})

	decision := Decision{Matches: matches}

	inMargin := 0
	var winner *Match
	for i := range matches {
		if matches[i].WithinMargin {
			inMargin++
			if winner == nil {
				winner = &matches[i]
			}
		}
	}

	if inMargin == 1 {
		decision.AutoReconcile = true
		decision.Winner = winner
	}
	return decision
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
