package handlers

import (
	"net/http"

	"github.com/oakfieldhq/backoffice/internal/ai"
	"github.com/oakfieldhq/backoffice/internal/api/dto"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
)

// AssistantHandler handles AI suggestion HTTP requests. The assistant owns
// the fallback policy, so this handler never returns an AI-caused error.
type AssistantHandler struct {
	*Base
	assistant *ai.Assistant
}

// NewAssistantHandler creates a new assistant handler.
func NewAssistantHandler(repo storage.Repository, assistant *ai.Assistant) *AssistantHandler {
	return &AssistantHandler{Base: NewBase(repo), assistant: assistant}
}

// Suggest handles POST /api/ai/suggest. A null suggestion means the
// provider is disabled, failed, or returned something unusable.
func (h *AssistantHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req dto.AISuggestRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if req.Description == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("description is required"))
		return
	}

	categories := make([]ai.Category, 0, len(req.Categories))
	for _, c := range req.Categories {
		categories = append(categories, ai.Category{ID: c.ID, Name: c.Name})
	}

	suggestion := h.assistant.SuggestCategory(r.Context(), req.Description, categories)

	resp := dto.AISuggestionResponse{}
	if suggestion != nil {
		resp.Suggestion = suggestion
	}
	h.WriteJSON(w, http.StatusOK, resp)
}
