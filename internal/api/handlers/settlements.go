package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakfieldhq/backoffice/internal/api/dto"
	"github.com/oakfieldhq/backoffice/internal/application/reconcile"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
)

// SettlementsHandler handles settlement and reconciliation HTTP requests.
type SettlementsHandler struct {
	*Base
	reconciler *reconcile.Service
}

// NewSettlementsHandler creates a new settlements handler.
func NewSettlementsHandler(repo storage.Repository, reconciler *reconcile.Service) *SettlementsHandler {
	return &SettlementsHandler{Base: NewBase(repo), reconciler: reconciler}
}

// List handles GET /api/settlements.
func (h *SettlementsHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := h.Tenant(r)
	if tenant == "" {
		h.WriteJSON(w, http.StatusOK, dto.NewListResponse[*storage.Settlement](nil))
		return
	}

	unreconciledOnly := ParseBoolParam(r, "unreconciled", false)

	settlements, err := h.repo.ListSettlements(tenant, unreconciledOnly)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.NewListResponse(settlements))
}

// Create handles POST /api/settlements.
func (h *SettlementsHandler) Create(w http.ResponseWriter, r *http.Request) {
	tenant, ok := h.RequireTenant(w, r)
	if !ok {
		return
	}

	var req dto.CreateSettlementRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	net, err := decimal.NewFromString(req.NetAmount)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("net_amount must be a decimal string"))
		return
	}
	date, err := time.Parse("2006-01-02", req.SettlementDate)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("settlement_date must be YYYY-MM-DD"))
		return
	}

	settlement := &storage.Settlement{
		ID:               uuid.NewString(),
		TenantID:         tenant,
		SettlementDate:   date,
		NetAmount:        net,
		TransactionCount: req.TransactionCount,
	}

	if err := h.repo.SaveSettlement(settlement); err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusCreated, settlement)
}

// FindMatches handles POST /api/deposits/{id}/matches. It scores candidate
// settlements against the deposit and may auto-reconcile the single
// in-margin winner.
func (h *SettlementsHandler) FindMatches(w http.ResponseWriter, r *http.Request) {
	tenant := h.Tenant(r)
	depositID := chi.URLParam(r, "id")

	result, err := h.reconciler.FindSettlementMatches(r.Context(), tenant, depositID)
	if err != nil {
		h.WriteError(w, http.StatusInternalServerError, dto.InternalError())
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// ManualReconcile handles POST /api/settlements/{id}/reconcile. Failures
// come back as a success:false body rather than an HTTP error, so the
// client always gets a reason it can show.
func (h *SettlementsHandler) ManualReconcile(w http.ResponseWriter, r *http.Request) {
	tenant := h.Tenant(r)
	settlementID := chi.URLParam(r, "id")

	var req dto.ManualReconcileRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}
	if req.BankTransactionID == "" {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("bank_transaction_id is required"))
		return
	}
	amount, err := decimal.NewFromString(req.BankAmount)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("bank_amount must be a decimal string"))
		return
	}

	result := h.reconciler.ManualReconcile(r.Context(), tenant, settlementID, req.BankTransactionID, amount)

	resp := dto.ManualReconcileResponse{Success: result.Success, Error: result.Error}
	if result.Success {
		resp.Variance = result.Variance.String()
	}
	h.WriteJSON(w, http.StatusOK, resp)
}
