package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/oakfieldhq/backoffice/internal/api/dto"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
)

// Webhook event types sent by the membership platform.
const (
	EventClientCreated       = "client.created"
	EventClientUpdated       = "client.updated"
	EventClientMerged        = "client.merged"
	EventMembershipCreated   = "membership.created"
	EventMembershipCancelled = "membership.cancelled"
	EventSaleCreated         = "sale.created"
)

// Audit outcomes.
const (
	outcomeProcessed = "processed"
	outcomeIgnored   = "ignored"
	outcomeFailed    = "failed"
)

// webhookEnvelope is the wire shape of a membership platform delivery.
type webhookEnvelope struct {
	Event    string          `json:"event"`
	TenantID string          `json:"tenant_id"`
	Data     json.RawMessage `json:"data"`
}

// saleEvent is the payload of a sale.created delivery.
type saleEvent struct {
	SaleID      string `json:"sale_id"`
	Description string `json:"description"`
	Amount      string `json:"amount"`
	PaymentType string `json:"payment_type"`
	EntryMethod string `json:"entry_method"`
	SoldAt      string `json:"sold_at"`
}

// clientEvent is the payload of client.* deliveries.
type clientEvent struct {
	ClientID string `json:"client_id"`
	Name     string `json:"name"`
}

// WebhooksHandler receives deliveries from the membership platform.
//
// The platform retries on any non-success response and its retries are not
// idempotent, so this handler ALWAYS answers with a success-shaped body.
// Whatever goes wrong internally is logged and recorded in the audit trail
// instead.
type WebhooksHandler struct {
	*Base
	logger *slog.Logger
}

// NewWebhooksHandler creates a new webhooks handler.
func NewWebhooksHandler(repo storage.Repository, logger *slog.Logger) *WebhooksHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhooksHandler{Base: NewBase(repo), logger: logger}
}

// Receive handles POST /webhooks/membership.
func (h *WebhooksHandler) Receive(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var envelope webhookEnvelope
	if err := json.NewDecoder(r.Body).Decode(&envelope); err != nil {
		h.logger.Warn("webhook body unreadable", "error", err)
		h.audit("", outcomeFailed, "unreadable body", start)
		h.WriteJSON(w, http.StatusOK, dto.WebhookResponse{Received: true})
		return
	}

	outcome, detail := h.dispatch(envelope)
	if outcome == outcomeFailed {
		h.logger.Warn("webhook handling failed",
			"event", envelope.Event, "detail", detail)
	} else {
		h.logger.Info("webhook received",
			"event", envelope.Event, "outcome", outcome)
	}

	h.audit(envelope.Event, outcome, detail, start)
	h.WriteJSON(w, http.StatusOK, dto.WebhookResponse{Received: true, Event: envelope.Event})
}

// dispatch routes one delivery by event type. It returns the audit outcome
// and detail; it never panics the response path.
func (h *WebhooksHandler) dispatch(envelope webhookEnvelope) (string, string) {
	switch envelope.Event {
	case EventSaleCreated:
		return h.handleSale(envelope)

	case EventClientCreated, EventClientUpdated:
		return h.handleClient(envelope)

	case EventClientMerged, EventMembershipCreated, EventMembershipCancelled:
		// Acknowledged but nothing to record yet; membership state lives
		// upstream.
		return outcomeProcessed, ""

	default:
		return outcomeIgnored, fmt.Sprintf("unknown event %q", envelope.Event)
	}
}

func (h *WebhooksHandler) handleSale(envelope webhookEnvelope) (string, string) {
	if envelope.TenantID == "" {
		return outcomeFailed, "missing tenant_id"
	}

	var sale saleEvent
	if err := json.Unmarshal(envelope.Data, &sale); err != nil {
		return outcomeFailed, "unreadable sale payload"
	}

	amount, err := decimal.NewFromString(sale.Amount)
	if err != nil {
		return outcomeFailed, fmt.Sprintf("bad amount %q", sale.Amount)
	}

	date, err := time.Parse("2006-01-02", sale.SoldAt)
	if err != nil {
		date = time.Now().UTC()
	}

	id := sale.SaleID
	if id == "" {
		id = uuid.NewString()
	}

	tx := &storage.Transaction{
		ID:          id,
		TenantID:    envelope.TenantID,
		Description: sale.Description,
		Amount:      amount,
		Type:        "sale",
		PaymentType: sale.PaymentType,
		EntryMethod: sale.EntryMethod,
		Date:        date,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.repo.SaveTransaction(tx); err != nil {
		return outcomeFailed, fmt.Sprintf("save transaction: %v", err)
	}
	return outcomeProcessed, ""
}

func (h *WebhooksHandler) handleClient(envelope webhookEnvelope) (string, string) {
	if envelope.TenantID == "" {
		return outcomeFailed, "missing tenant_id"
	}

	var client clientEvent
	if err := json.Unmarshal(envelope.Data, &client); err != nil {
		return outcomeFailed, "unreadable client payload"
	}
	if client.ClientID == "" || client.Name == "" {
		return outcomeFailed, "client payload missing id or name"
	}

	vendor := &storage.Vendor{
		ID:        client.ClientID,
		TenantID:  envelope.TenantID,
		Name:      client.Name,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.repo.SaveVendor(vendor); err != nil {
		return outcomeFailed, fmt.Sprintf("save vendor: %v", err)
	}
	return outcomeProcessed, ""
}

// audit records the delivery in a goroutine. Audit failures are logged and
// dropped; they must never affect the response already on its way out.
func (h *WebhooksHandler) audit(event, outcome, detail string, start time.Time) {
	entry := &storage.WebhookAuditEntry{
		ID:         uuid.NewString(),
		EventType:  event,
		Outcome:    outcome,
		Detail:     detail,
		DurationMs: time.Since(start).Milliseconds(),
		ReceivedAt: start.UTC(),
	}

	go func() {
		if err := h.repo.LogWebhookEvent(entry); err != nil {
			h.logger.Warn("webhook audit write failed", "event", event, "error", err)
		}
	}()
}
