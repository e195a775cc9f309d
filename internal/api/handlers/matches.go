package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/oakfieldhq/backoffice/internal/api/dto"
	"github.com/oakfieldhq/backoffice/internal/application/categorize"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
)

// MatchesHandler handles pending categorization match HTTP requests.
type MatchesHandler struct {
	*Base
	categorizer *categorize.Service
}

// NewMatchesHandler creates a new matches handler.
func NewMatchesHandler(repo storage.Repository, categorizer *categorize.Service) *MatchesHandler {
	return &MatchesHandler{Base: NewBase(repo), categorizer: categorizer}
}

// List handles GET /api/matches. The status query parameter filters by
// pending, approved or rejected; empty means all.
func (h *MatchesHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := h.Tenant(r)
	if tenant == "" {
		h.WriteJSON(w, http.StatusOK, dto.NewListResponse[*storage.PendingMatch](nil))
		return
	}

	status := r.URL.Query().Get("status")

	matches, err := h.repo.ListPendingMatches(tenant, status)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewListResponse(matches))
}

// Suggest handles POST /api/matches/suggest. It runs the rule engine over
// the tenant's transactions and creates pending matches.
func (h *MatchesHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.RequireTenant(w, r)
	if !ok {
		return
	}

	var req dto.SuggestRequest
	if r.ContentLength > 0 && !h.DecodeJSON(w, r, &req) {
		return
	}

	summary, err := h.categorizer.SuggestCategories(r.Context(), tenant, categorize.Options{
		IncludeConfirmed: req.IncludeConfirmed,
	})
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.SuggestionRunResponse{
		Evaluated: summary.Evaluated,
		Suggested: summary.Suggested,
		Skipped:   summary.Skipped,
	})
}

// Approve handles POST /api/matches/{id}/approve.
func (h *MatchesHandler) Approve(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.RequireTenant(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.categorizer.Approve(r.Context(), tenant, id); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Reject handles POST /api/matches/{id}/reject.
func (h *MatchesHandler) Reject(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.RequireTenant(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.categorizer.Reject(r.Context(), tenant, id); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]bool{"success": true})
}
