package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain json", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"leading whitespace", "  \n```json\n{\"a\":1}\n```  ", `{"a":1}`},
		{"no closing fence", "```json\n{\"a\":1}", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, stripFences(tt.input))
		})
	}
}

func TestParseJSON_FencedPayload(t *testing.T) {
	var suggestion Suggestion
	raw := "```json\n{\"category_id\":\"cat-1\",\"category_name\":\"Supplies\",\"confidence\":0.9}\n```"

	require.NoError(t, parseJSON(raw, &suggestion))
	assert.Equal(t, "cat-1", suggestion.CategoryID)
	assert.InDelta(t, 0.9, suggestion.Confidence, 0.001)
}

func TestParseJSON_GarbageFails(t *testing.T) {
	var suggestion Suggestion
	assert.Error(t, parseJSON("the model rambled instead of answering", &suggestion))
}

// fakeProvider scripts provider behavior for assistant tests.
type fakeProvider struct {
	summary       string
	suggestion    *Suggestion
	fields        BillFields
	summarizeErr  error
	categorizeErr error
	extractErr    error
}

func (f *fakeProvider) Summarize(ctx context.Context, text string) (string, error) {
	return f.summary, f.summarizeErr
}

func (f *fakeProvider) ExtractStructured(ctx context.Context, prompt string, out any) error {
	if f.extractErr != nil {
		return f.extractErr
	}
	*(out.(*BillFields)) = f.fields
	return nil
}

func (f *fakeProvider) Categorize(ctx context.Context, description string, categories []Category) (*Suggestion, error) {
	return f.suggestion, f.categorizeErr
}

func TestAssistant_SummaryFallsBackOnError(t *testing.T) {
	a := NewAssistant(&fakeProvider{summarizeErr: errors.New("rate limited")}, nil)

	got := a.SummarizeSpending(context.Background(), "spend data")
	assert.Equal(t, summaryFallback, got)
}

func TestAssistant_SummaryPassesThrough(t *testing.T) {
	a := NewAssistant(&fakeProvider{summary: "You spent less this month."}, nil)

	got := a.SummarizeSpending(context.Background(), "spend data")
	assert.Equal(t, "You spent less this month.", got)
}

func TestAssistant_CategorizeFailureYieldsNil(t *testing.T) {
	a := NewAssistant(&fakeProvider{categorizeErr: errors.New("timeout")}, nil)

	assert.Nil(t, a.SuggestCategory(context.Background(), "coffee", nil))
}

func TestAssistant_NilProviderDisabled(t *testing.T) {
	a := NewAssistant(nil, nil)

	assert.False(t, a.Enabled())
	assert.Equal(t, summaryFallback, a.SummarizeSpending(context.Background(), "x"))
	assert.Nil(t, a.SuggestCategory(context.Background(), "x", nil))
	assert.Nil(t, a.ExtractBillFields(context.Background(), "x"))
}

func TestAssistant_ExtractBillFields(t *testing.T) {
	a := NewAssistant(&fakeProvider{fields: BillFields{VendorName: "Acme Ltd", Amount: "120.00"}}, nil)

	fields := a.ExtractBillFields(context.Background(), "bill text")
	require.NotNil(t, fields)
	assert.Equal(t, "Acme Ltd", fields.VendorName)
}
