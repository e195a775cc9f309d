package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakfieldhq/backoffice/internal/api/dto"
	"github.com/oakfieldhq/backoffice/internal/domain/rules"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
)

// RulesHandler handles reconciliation rule HTTP requests.
type RulesHandler struct {
	*Base
}

// NewRulesHandler creates a new rules handler.
func NewRulesHandler(repo storage.Repository) *RulesHandler {
	return &RulesHandler{Base: NewBase(repo)}
}

// List handles GET /api/rules.
func (h *RulesHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := h.Tenant(r)
	if tenant == "" {
		h.WriteJSON(w, http.StatusOK, dto.NewListResponse[rules.Rule](nil))
		return
	}

	activeOnly := ParseBoolParam(r, "active", false)

	ruleset, err := h.repo.ListRules(tenant, activeOnly)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewListResponse(ruleset))
}

// Get handles GET /api/rules/{id}.
func (h *RulesHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant := h.Tenant(r)
	id := chi.URLParam(r, "id")

	rule, err := h.repo.GetRule(tenant, id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if rule == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("rule"))
		return
	}

	h.WriteJSON(w, http.StatusOK, rule)
}

// Create handles POST /api/rules.
func (h *RulesHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.RequireTenant(w, r)
	if !ok {
		return
	}

	rule, ok := h.decodeRule(w, r, tenant, uuid.NewString())
	if !ok {
		return
	}

	if err := h.repo.SaveRule(rule); err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusCreated, rule)
}

// Update handles PUT /api/rules/{id}.
func (h *RulesHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.RequireTenant(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	existing, err := h.repo.GetRule(tenant, id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if existing == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("rule"))
		return
	}

	rule, ok := h.decodeRule(w, r, tenant, id)
	if !ok {
		return
	}
	rule.UseCount = existing.UseCount
	rule.LastUsedAt = existing.LastUsedAt

	if err := h.repo.SaveRule(rule); err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, rule)
}

// Delete handles DELETE /api/rules/{id}.
func (h *RulesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.RequireTenant(w, r)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")

	if err := h.repo.DeleteRule(tenant, id); err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// decodeRule parses and validates a rule body. On failure it writes the
// error response and reports false.
func (h *RulesHandler) decodeRule(w http.ResponseWriter, r *http.Request, tenant, id string) (*rules.Rule, bool) {
	var req dto.SaveRuleRequest
	if !h.DecodeJSON(w, r, &req) {
		return nil, false
	}

	if req.Name == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("name is required"))
		return nil, false
	}
	if req.CategoryID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("category_id is required"))
		return nil, false
	}

	rule := &rules.Rule{
		ID:               id,
		TenantID:         tenant,
		Name:             req.Name,
		Priority:         req.Priority,
		Active:           req.Active,
		VendorID:         req.VendorID,
		DescriptionMatch: req.DescriptionMatch,
		TransactionType:  req.TransactionType,
		CategoryID:       req.CategoryID,
		RequiresApproval: req.RequiresApproval,
	}

	if req.AmountMin != "" {
		min, err := decimal.NewFromString(req.AmountMin)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.ValidationError("amount_min must be a decimal string"))
			return nil, false
		}
		rule.AmountMin = &min
	}
	if req.AmountMax != "" {
		max, err := decimal.NewFromString(req.AmountMax)
		if err != nil {
			h.WriteError(w, http.StatusBadRequest, dto.ValidationError("amount_max must be a decimal string"))
			return nil, false
		}
		rule.AmountMax = &max
	}
	if rule.AmountMin != nil && rule.AmountMax != nil && rule.AmountMax.LessThan(*rule.AmountMin) {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("amount_max must not be below amount_min"))
		return nil, false
	}

	return rule, true
}
