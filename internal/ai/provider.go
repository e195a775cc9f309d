// Package ai integrates the generative-AI provider used for categorization
// suggestions, bill-field extraction, and summaries.
//
// The provider is a best-effort plugin: every failure is caught, logged,
// and converted into a user-safe fallback so an AI outage never breaks the
// surrounding page.
package ai

import (
	"context"
	"encoding/json"
	"strings"
)

// Category is a candidate category offered to the model.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Suggestion is the model's categorization pick for one transaction.
type Suggestion struct {
	CategoryID   string  `json:"category_id"`
	CategoryName string  `json:"category_name"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning,omitempty"`
}

// BillFields are the fields extracted from an uploaded bill document.
type BillFields struct {
	VendorName string `json:"vendor_name"`
	Amount     string `json:"amount"`
	DueDate    string `json:"due_date"`
	Reference  string `json:"reference"`
}

// Provider is the narrow capability surface exposed to the rest of the
// application. Implementations speak to the external model; tests inject
// fakes.
type Provider interface {
	// Summarize produces a short plain-text summary of the input.
	Summarize(ctx context.Context, text string) (string, error)

	// ExtractStructured asks the model for JSON and unmarshals it into out.
	ExtractStructured(ctx context.Context, prompt string, out any) error

	// Categorize picks the best category for a transaction description.
	Categorize(ctx context.Context, description string, categories []Category) (*Suggestion, error)
}

// stripFences removes optional markdown code-fence markers the model wraps
// around JSON output, so the payload parses either way.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}

// parseJSON tolerantly unmarshals model output into out. Unparsable
// payloads map to an error the caller downgrades to a nil result.
func parseJSON(raw string, out any) error {
	return json.Unmarshal([]byte(stripFences(raw)), out)
}
