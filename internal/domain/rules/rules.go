// Package rules evaluates stored matching criteria against transactions to
// produce suggested categorizations.
//
// Rules are scanned in priority order (lower number = higher priority) and
// the first rule whose criteria are all satisfied wins. A hit never mutates
// the transaction; it only yields a suggestion that becomes effective after
// human approval.
package rules

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Rule is one stored matching rule. Read-only to the engine; created and
// edited by users through the API.
type Rule struct {
	ID               string           `json:"id"`
	TenantID         string           `json:"tenant_id"`
	Name             string           `json:"name"`
	Priority         int              `json:"priority"`
	Active           bool             `json:"active"`
	VendorID         string           `json:"vendor_id,omitempty"`
	DescriptionMatch string           `json:"description_match,omitempty"`
	AmountMin        *decimal.Decimal `json:"amount_min,omitempty"`
	AmountMax        *decimal.Decimal `json:"amount_max,omitempty"`
	TransactionType  string           `json:"transaction_type,omitempty"`
	CategoryID       string           `json:"category_id"`
	RequiresApproval bool             `json:"requires_approval"`
	UseCount         int              `json:"use_count"`
	LastUsedAt       *time.Time       `json:"last_used_at,omitempty"`
}

// Transaction is the subset of a transaction the engine inspects.
type Transaction struct {
	ID          string          `json:"id"`
	VendorID    string          `json:"vendor_id,omitempty"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	CategoryID  string          `json:"category_id,omitempty"`
}

// Categorized reports whether the transaction already carries a confirmed
// category.
func (t Transaction) Categorized() bool { return t.CategoryID != "" }

// Match is the engine's suggestion for one transaction.
type Match struct {
	TransactionID string  `json:"transaction_id"`
	RuleID        string  `json:"rule_id"`
	CategoryID    string  `json:"category_id"`
	Confidence    float64 `json:"confidence"`
}

// Satisfies reports whether the transaction meets every criterion the rule
// constrains. A rule with no criteria matches nothing.
func (r Rule) Satisfies(tx Transaction) bool {
	constrained := false

	if r.VendorID != "" {
		constrained = true
		if tx.VendorID != r.VendorID {
			return false
		}
	}

	if r.DescriptionMatch != "" {
		constrained = true
		if !strings.Contains(strings.ToLower(tx.Description), strings.ToLower(r.DescriptionMatch)) {
			return false
		}
	}

	if r.AmountMin != nil {
		constrained = true
		if tx.Amount.LessThan(*r.AmountMin) {
			return false
		}
	}
	if r.AmountMax != nil {
		constrained = true
		if tx.Amount.GreaterThan(*r.AmountMax) {
			return false
		}
	}

	if r.TransactionType != "" {
		constrained = true
		if !strings.EqualFold(tx.Type, r.TransactionType) {
			return false
		}
	}

	return constrained
}

// Confidence scores a hit by how specific the rule is: each constrained
// criterion adds certainty on top of a floor for any hit at all.
func (r Rule) Confidence() float64 {
	criteria := 0
	if r.VendorID != "" {
		criteria++
	}
	if r.DescriptionMatch != "" {
		criteria++
	}
	if r.AmountMin != nil || r.AmountMax != nil {
		criteria++
	}
	if r.TransactionType != "" {
		criteria++
	}

	score := 0.5 + 0.125*float64(criteria)
	if score > 1.0 {
		score = 1.0
	}
	return score
}

// Evaluate runs the transaction through the rule set and returns the first
// satisfying rule's suggestion, or nil when nothing matches. The rules
// slice is not assumed sorted; inactive rules are skipped.
func Evaluate(tx Transaction, ruleset []Rule) *Match {
	ordered := make([]Rule, 0, len(ruleset))
	for _, r := range ruleset {
		if r.Active {
			ordered = append(ordered, r)
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})

	for _, r := range ordered {
		if r.Satisfies(tx) {
			return &Match{
				TransactionID: tx.ID,
				RuleID:        r.ID,
				CategoryID:    r.CategoryID,
				Confidence:    r.Confidence(),
			}
		}
	}
	return nil
}
