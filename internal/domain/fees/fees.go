// Package fees computes payment-processor fees for individual transactions
// and batches.
//
// Fee rules are evaluated first-match-wins:
//   - on-account and cash payments carry no fee
//   - direct debit / BACS: 1.00% + £0.20 per transaction
//   - card present (chip, swipe): 1.75%, no fixed fee
//   - everything else is treated as card-not-present: 1.99% + £0.20
//
// All results are rounded to two decimal places, half up at the penny.
package fees

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Fee category tags.
const (
	TagNone           = "none"
	TagBACS           = "bacs"
	TagCardPresent    = "card-present"
	TagCardNotPresent = "card-not-present"
)

var (
	rateBACS           = decimal.NewFromFloat(0.0100)
	rateCardPresent    = decimal.NewFromFloat(0.0175)
	rateCardNotPresent = decimal.NewFromFloat(0.0199)

	fixedFee = decimal.NewFromFloat(0.20)
)

// Calculation is the derived fee result for a single transaction.
// It has no identity and is never persisted.
type Calculation struct {
	Fee      decimal.Decimal `json:"fee"`
	Rate     decimal.Decimal `json:"rate"`
	FixedFee decimal.Decimal `json:"fixed_fee"`
	Tag      string          `json:"tag"`
}

// Transaction is the minimal input needed to price a transaction.
type Transaction struct {
	Amount      decimal.Decimal `json:"amount"`
	PaymentType string          `json:"payment_type"`
	EntryMethod string          `json:"entry_method"`
}

// TagBucket aggregates fees for one fee category within a batch.
type TagBucket struct {
	Count       int             `json:"count"`
	AmountTotal decimal.Decimal `json:"amount_total"`
	FeeTotal    decimal.Decimal `json:"fee_total"`
}

// BatchSummary aggregates fees over a batch of transactions.
// The fixed fee is charged per transaction, so FixedTotal is the sum of
// each transaction's own fixed fee, never a single multiplication.
type BatchSummary struct {
	FeeTotal        decimal.Decimal      `json:"fee_total"`
	FixedTotal      decimal.Decimal      `json:"fixed_total"`
	PercentageTotal decimal.Decimal      `json:"percentage_total"`
	Buckets         map[string]TagBucket `json:"buckets"`
}

// Calculate prices a single transaction. Amount is a non-negative value in
// major currency units; paymentType and entryMethod are free-form tags from
// the upstream processor and are matched case-insensitively.
func Calculate(amount decimal.Decimal, paymentType, entryMethod string) Calculation {
	pt := normalize(paymentType)
	em := normalize(entryMethod)

	switch {
	case pt == "on-account" || pt == "cash":
		return Calculation{
			Fee:      decimal.Zero,
			Rate:     decimal.Zero,
			FixedFee: decimal.Zero,
			Tag:      TagNone,
		}

	case pt == "direct-debit" || em == "bacs" || em == "direct-debit":
		return calculation(amount, rateBACS, fixedFee, TagBACS)

	case em == "card-present" || em == "chip" || em == "swipe":
		return calculation(amount, rateCardPresent, decimal.Zero, TagCardPresent)

	default:
		return calculation(amount, rateCardNotPresent, fixedFee, TagCardNotPresent)
	}
}

// CalculateBatch prices every transaction in the batch and aggregates the
// results. Zero-fee ("none") entries are counted in their bucket but
// excluded from the fee totals.
func CalculateBatch(txs []Transaction) BatchSummary {
	summary := BatchSummary{
		FeeTotal:        decimal.Zero,
		FixedTotal:      decimal.Zero,
		PercentageTotal: decimal.Zero,
		Buckets:         make(map[string]TagBucket),
	}

	for _, tx := range txs {
		calc := Calculate(tx.Amount, tx.PaymentType, tx.EntryMethod)

		bucket := summary.Buckets[calc.Tag]
		bucket.Count++
		bucket.AmountTotal = bucket.AmountTotal.Add(tx.Amount)

		if calc.Tag != TagNone {
			bucket.FeeTotal = bucket.FeeTotal.Add(calc.Fee)
			summary.FeeTotal = summary.FeeTotal.Add(calc.Fee)
			summary.FixedTotal = summary.FixedTotal.Add(calc.FixedFee)
			summary.PercentageTotal = summary.PercentageTotal.Add(calc.Fee.Sub(calc.FixedFee))
		}
		summary.Buckets[calc.Tag] = bucket
	}

	return summary
}

func calculation(amount, rate, fixed decimal.Decimal, tag string) Calculation {
	// Round half up at the penny. Amounts are non-negative, so
	// decimal's round-half-away-from-zero is round-half-up here.
	fee := amount.Mul(rate).Add(fixed).Round(2)
	return Calculation{
		Fee:      fee,
		Rate:     rate,
		FixedFee: fixed,
		Tag:      tag,
	}
}

// normalize lowercases a processor tag and unifies separator style so that
// "DirectDebit", "direct_debit" and "direct-debit" compare equal.
func normalize(tag string) string {
	s := strings.ToLower(strings.TrimSpace(tag))
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, " ", "-")

	// Common upstream spellings without a separator.
	switch s {
	case "directdebit":
		return "direct-debit"
	case "onaccount":
		return "on-account"
	case "cardpresent":
		return "card-present"
	case "cardnotpresent":
		return "card-not-present"
	}
	return s
}
