package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakfieldhq/backoffice/internal/api/dto"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
)

// DepositsHandler handles bank deposit HTTP requests.
type DepositsHandler struct {
	*Base
}

// NewDepositsHandler creates a new deposits handler.
func NewDepositsHandler(repo storage.Repository) *DepositsHandler {
	return &DepositsHandler{Base: NewBase(repo)}
}

// List handles GET /api/deposits.
func (h *DepositsHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := h.Tenant(r)
	if tenant == "" {
		h.WriteJSON(w, http.StatusOK, dto.NewListResponse[*storage.BankDeposit](nil))
		return
	}

	limit := ParseIntParam(r, "limit", 50)
	offset := ParseIntParam(r, "offset", 0)

	deposits, err := h.repo.ListDeposits(tenant, limit, offset)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewListResponse(deposits))
}

// Get handles GET /api/deposits/{id}.
func (h *DepositsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenant := h.Tenant(r)
	id := chi.URLParam(r, "id")

	deposit, err := h.repo.GetDeposit(tenant, id)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}
	if deposit == nil {
		h.WriteError(w, http.StatusNotFound, dto.NotFoundError("deposit"))
		return
	}

	h.WriteJSON(w, http.StatusOK, deposit)
}

// Create handles POST /api/deposits.
func (h *DepositsHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.RequireTenant(w, r)
	if !ok {
		return
	}

	var req dto.CreateDepositRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("amount must be a decimal string"))
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("date must be YYYY-MM-DD"))
		return
	}

	deposit := &storage.BankDeposit{
		ID:          uuid.NewString(),
		TenantID:    tenant,
		Amount:      amount,
		Date:        date,
		Description: req.Description,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.repo.SaveDeposit(deposit); err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusCreated, deposit)
}
