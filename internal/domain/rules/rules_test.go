package rules

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestSatisfies_VendorMatch(t *testing.T) {
	r := Rule{VendorID: "v-1", CategoryID: "cat-1"}

	assert.True(t, r.Satisfies(Transaction{VendorID: "v-1"}))
	assert.False(t, r.Satisfies(Transaction{VendorID: "v-2"}))
	assert.False(t, r.Satisfies(Transaction{}))
}

func TestSatisfies_DescriptionIsCaseInsensitiveSubstring(t *testing.T) {
	r := Rule{DescriptionMatch: "coffee"}

	assert.True(t, r.Satisfies(Transaction{Description: "PRET COFFEE SUBS LONDON"}))
	assert.True(t, r.Satisfies(Transaction{Description: "Coffee beans"}))
	assert.False(t, r.Satisfies(Transaction{Description: "tea house"}))
}

func TestSatisfies_AmountRangeInclusive(t *testing.T) {
	r := Rule{AmountMin: decPtr("10.00"), AmountMax: decPtr("20.00")}

	assert.True(t, r.Satisfies(Transaction{Amount: dec("10.00")}))
	assert.True(t, r.Satisfies(Transaction{Amount: dec("20.00")}))
	assert.True(t, r.Satisfies(Transaction{Amount: dec("15.50")}))
	assert.False(t, r.Satisfies(Transaction{Amount: dec("9.99")}))
	assert.False(t, r.Satisfies(Transaction{Amount: dec("20.01")}))
}

func TestSatisfies_AllCriteriaMustHold(t *testing.T) {
	r := Rule{
		VendorID:         "v-1",
		DescriptionMatch: "subscription",
		TransactionType:  "expense",
	}

	tx := Transaction{VendorID: "v-1", Description: "Monthly Subscription", Type: "expense"}
	assert.True(t, r.Satisfies(tx))

	tx.Type = "income"
	assert.False(t, r.Satisfies(tx))
}

func TestSatisfies_EmptyRuleMatchesNothing(t *testing.T) {
	r := Rule{CategoryID: "cat-1"}

	assert.False(t, r.Satisfies(Transaction{Description: "anything"}))
}

func TestConfidence_ScalesWithCriteria(t *testing.T) {
	broad := Rule{DescriptionMatch: "x"}
	narrow := Rule{
		VendorID:         "v-1",
		DescriptionMatch: "x",
		AmountMin:        decPtr("1"),
		TransactionType:  "expense",
	}

	assert.Less(t, broad.Confidence(), narrow.Confidence())
	assert.InDelta(t, 0.625, broad.Confidence(), 0.001)
	assert.InDelta(t, 1.0, narrow.Confidence(), 0.001)
}

func TestEvaluate_FirstByPriorityWins(t *testing.T) {
	ruleset := []Rule{
		{ID: "low", Priority: 20, Active: true, DescriptionMatch: "acme", CategoryID: "cat-general"},
		{ID: "high", Priority: 1, Active: true, DescriptionMatch: "acme", CategoryID: "cat-supplies"},
	}

	m := Evaluate(Transaction{ID: "t1", Description: "ACME LTD"}, ruleset)

	require.NotNil(t, m)
	assert.Equal(t, "high", m.RuleID)
	assert.Equal(t, "cat-supplies", m.CategoryID)
	assert.Equal(t, "t1", m.TransactionID)
}

func TestEvaluate_SkipsInactiveRules(t *testing.T) {
	ruleset := []Rule{
		{ID: "off", Priority: 1, Active: false, DescriptionMatch: "acme", CategoryID: "a"},
		{ID: "on", Priority: 2, Active: true, DescriptionMatch: "acme", CategoryID: "b"},
	}

	m := Evaluate(Transaction{ID: "t1", Description: "acme"}, ruleset)

	require.NotNil(t, m)
	assert.Equal(t, "on", m.RuleID)
}

func TestEvaluate_NoMatch(t *testing.T) {
	ruleset := []Rule{
		{ID: "r", Priority: 1, Active: true, DescriptionMatch: "acme", CategoryID: "a"},
	}

	assert.Nil(t, Evaluate(Transaction{ID: "t1", Description: "globex"}, ruleset))
}
