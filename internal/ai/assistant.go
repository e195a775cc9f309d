package ai

import (
	"context"
	"log/slog"
)

// Fallback text returned when the provider is unavailable or its output
// cannot be used.
const summaryFallback = "Summary unavailable right now."

// Assistant wraps a Provider with the error policy the pages rely on:
// provider failures are logged and mapped to safe fallbacks, never
// propagated.
type Assistant struct {
	provider Provider
	logger   *slog.Logger
}

// NewAssistant creates an assistant. Provider may be nil (AI disabled); in
// that case every call returns its fallback immediately.
func NewAssistant(provider Provider, logger *slog.Logger) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{provider: provider, logger: logger}
}

// Enabled reports whether a provider is configured.
func (a *Assistant) Enabled() bool { return a.provider != nil }

// SummarizeSpending returns a summary of the input, or a placeholder when
// the provider fails.
func (a *Assistant) SummarizeSpending(ctx context.Context, text string) string {
	if a.provider == nil {
		return summaryFallback
	}
	summary, err := a.provider.Summarize(ctx, text)
	if err != nil {
		a.logger.Warn("ai summary failed", "error", err)
		return summaryFallback
	}
	return summary
}

// SuggestCategory asks the model to categorize a transaction description.
// Any failure, including unparsable model output, yields nil.
func (a *Assistant) SuggestCategory(ctx context.Context, description string, categories []Category) *Suggestion {
	if a.provider == nil {
		return nil
	}
	suggestion, err := a.provider.Categorize(ctx, description, categories)
	if err != nil {
		a.logger.Warn("ai categorization failed", "description", description, "error", err)
		return nil
	}
	return suggestion
}

// ExtractBillFields pulls structured fields out of bill text. Failures
// yield nil rather than an error.
func (a *Assistant) ExtractBillFields(ctx context.Context, billText string) *BillFields {
	if a.provider == nil {
		return nil
	}
	var fields BillFields
	prompt := "Extract vendor_name, amount, due_date and reference from this bill:\n\n" + billText
	if err := a.provider.ExtractStructured(ctx, prompt, &fields); err != nil {
		a.logger.Warn("ai bill extraction failed", "error", err)
		return nil
	}
	return &fields
}
