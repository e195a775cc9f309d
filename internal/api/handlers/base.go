package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/oakfieldhq/backoffice/internal/api/dto"
	"github.com/oakfieldhq/backoffice/internal/api/middleware"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
)

// Base provides shared functionality for all handlers.
type Base struct {
	repo storage.Repository
}

// NewBase creates a new base handler with the given repository.
func NewBase(repo storage.Repository) *Base {
	return &Base{repo: repo}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// DecodeJSON decodes the request body into dst. On failure it writes a 400
// and reports false; handlers should return immediately.
func (b *Base) DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		b.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid JSON body"))
		return false
	}
	return true
}

// Tenant returns the tenant ID attached by the tenant middleware. It may
// be empty; write handlers should reject that, read handlers degrade to
// empty results.
func (b *Base) Tenant(r *http.Request) string {
	return middleware.TenantFromContext(r.Context())
}

// RequireTenant returns the tenant ID, writing a 401 and reporting false
// when no tenant header was sent.
func (b *Base) RequireTenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenant := b.Tenant(r)
	if tenant == "" {
		b.WriteError(w, http.StatusUnauthorized, dto.UnauthorizedError())
		return "", false
	}
	return tenant, true
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseBoolParam parses a boolean query parameter with a default value.
func ParseBoolParam(r *http.Request, name string, defaultVal bool) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}
