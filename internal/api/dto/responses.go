package dto

import "time"

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// NewHealthResponse creates a healthy response with the current timestamp.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// WebhookResponse is the success-shaped body the membership platform
// always receives, whatever happened inside.
type WebhookResponse struct {
	Received bool   `json:"received"`
	Event    string `json:"event,omitempty"`
}

// ManualReconcileResponse reports the outcome of a manual reconciliation.
type ManualReconcileResponse struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Variance string `json:"variance,omitempty"`
}

// SuggestionRunResponse reports what a rule suggestion run did.
type SuggestionRunResponse struct {
	Evaluated int `json:"evaluated"`
	Suggested int `json:"suggested"`
	Skipped   int `json:"skipped"`
}

// AISuggestionResponse carries the assistant's categorization pick. When
// the provider is down or talking nonsense, Suggestion is null and the
// page shows nothing rather than an error.
type AISuggestionResponse struct {
	Suggestion any `json:"suggestion"`
}

// ListResponse is a generic paginated wrapper.
type ListResponse[T any] struct {
	Items []T `json:"items"`
	Count int `json:"count"`
}

// NewListResponse wraps items in a list envelope. A nil slice renders as
// an empty JSON array, not null.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, Count: len(items)}
}
