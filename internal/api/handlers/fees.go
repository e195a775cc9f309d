package handlers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/oakfieldhq/backoffice/internal/api/dto"
	"github.com/oakfieldhq/backoffice/internal/domain/fees"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
)

// FeesHandler handles fee calculation HTTP requests. Fee quotes are pure
// derivations, so no tenant check is needed and nothing is persisted.
type FeesHandler struct {
	*Base
}

// NewFeesHandler creates a new fees handler.
func NewFeesHandler(repo storage.Repository) *FeesHandler {
	return &FeesHandler{Base: NewBase(repo)}
}

// Quote handles POST /api/fees/quote.
func (h *FeesHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req dto.FeeQuoteRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	amount, ok := h.parseAmount(w, req.Amount)
	if !ok {
		return
	}

	calc := fees.Calculate(amount, req.PaymentType, req.EntryMethod)
	h.WriteJSON(w, http.StatusOK, calc)
}

// Batch handles POST /api/fees/batch.
func (h *FeesHandler) Batch(w http.ResponseWriter, r *http.Request) {
	var req dto.FeeBatchRequest
	if !h.DecodeJSON(w, r, &req) {
		return
	}

	txs := make([]fees.Transaction, 0, len(req.Transactions))
	for _, t := range req.Transactions {
		amount, ok := h.parseAmount(w, t.Amount)
		if !ok {
			return
		}
		txs = append(txs, fees.Transaction{
			Amount:      amount,
			PaymentType: t.PaymentType,
			EntryMethod: t.EntryMethod,
		})
	}

	summary := fees.CalculateBatch(txs)
	h.WriteJSON(w, http.StatusOK, summary)
}

func (h *FeesHandler) parseAmount(w http.ResponseWriter, raw string) (decimal.Decimal, bool) {
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("amount must be a decimal string"))
		return decimal.Zero, false
	}
	if amount.IsNegative() {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("amount must not be negative"))
		return decimal.Zero, false
	}
	return amount, true
}
