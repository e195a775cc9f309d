package handlers_test

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakfieldhq/backoffice/internal/api/dto"
	"github.com/oakfieldhq/backoffice/internal/api/handlers"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
)

func newWebhooksHandler(repo *storage.MockRepository) *handlers.WebhooksHandler {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	return handlers.NewWebhooksHandler(repo, logger)
}

func postWebhook(t *testing.T, handler *handlers.WebhooksHandler, body string) (*httptest.ResponseRecorder, dto.WebhookResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/webhooks/membership", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.Receive(rec, req)

	var resp dto.WebhookResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return rec, resp
}

func waitForAudit(t *testing.T, repo *storage.MockRepository) *storage.WebhookAuditEntry {
	t.Helper()
	require.Eventually(t, repo.WebhookAudited, time.Second, 5*time.Millisecond)
	return repo.AuditEntry()
}

func TestWebhooksHandler_Receive(t *testing.T) {
	t.Run("sale.created stores transaction", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := newWebhooksHandler(repo)

		body := `{
			"event": "sale.created",
			"tenant_id": "t1",
			"data": {
				"sale_id": "sale-1",
				"description": "Monthly membership",
				"amount": "45.00",
				"payment_type": "DirectDebit",
				"sold_at": "2025-06-10"
			}
		}`
		rec, resp := postWebhook(t, handler, body)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Received)
		assert.Equal(t, "sale.created", resp.Event)

		tx, err := repo.GetTransaction("t1", "sale-1")
		require.NoError(t, err)
		require.NotNil(t, tx)
		assert.Equal(t, "Monthly membership", tx.Description)
		assert.Equal(t, "sale", tx.Type)
		assert.Equal(t, "DirectDebit", tx.PaymentType)

		entry := waitForAudit(t, repo)
		assert.Equal(t, "sale.created", entry.EventType)
		assert.Equal(t, "processed", entry.Outcome)
	})

	t.Run("client.created stores vendor", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := newWebhooksHandler(repo)

		body := `{
			"event": "client.created",
			"tenant_id": "t1",
			"data": {"client_id": "cl-1", "name": "Acme Fitness"}
		}`
		rec, resp := postWebhook(t, handler, body)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Received)

		vendors, err := repo.ListVendors("t1")
		require.NoError(t, err)
		require.Len(t, vendors, 1)
		assert.Equal(t, "Acme Fitness", vendors[0].Name)
	})

	t.Run("unknown event is acknowledged and audited as ignored", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := newWebhooksHandler(repo)

		rec, resp := postWebhook(t, handler, `{"event":"client.exploded","tenant_id":"t1"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Received)

		entry := waitForAudit(t, repo)
		assert.Equal(t, "ignored", entry.Outcome)
		assert.Contains(t, entry.Detail, "client.exploded")
	})

	t.Run("garbage body still returns success shape", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := newWebhooksHandler(repo)

		rec, resp := postWebhook(t, handler, `not json at all`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Received)

		entry := waitForAudit(t, repo)
		assert.Equal(t, "failed", entry.Outcome)
	})

	t.Run("storage failure never reaches the sender", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.SaveTransactionErr = assert.AnError
		handler := newWebhooksHandler(repo)

		body := `{
			"event": "sale.created",
			"tenant_id": "t1",
			"data": {"sale_id": "sale-1", "amount": "45.00", "sold_at": "2025-06-10"}
		}`
		rec, resp := postWebhook(t, handler, body)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Received)

		entry := waitForAudit(t, repo)
		assert.Equal(t, "failed", entry.Outcome)
	})

	t.Run("audit write failure does not affect response", func(t *testing.T) {
		repo := storage.NewMockRepository()
		repo.LogWebhookEventErr = assert.AnError
		handler := newWebhooksHandler(repo)

		rec, resp := postWebhook(t, handler, `{"event":"membership.created","tenant_id":"t1"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Received)
	})

	t.Run("missing tenant_id is a handled failure", func(t *testing.T) {
		repo := storage.NewMockRepository()
		handler := newWebhooksHandler(repo)

		body := `{"event":"sale.created","data":{"sale_id":"s1","amount":"10.00"}}`
		rec, resp := postWebhook(t, handler, body)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, resp.Received)

		entry := waitForAudit(t, repo)
		assert.Equal(t, "failed", entry.Outcome)
		assert.Contains(t, entry.Detail, "tenant_id")
	})
}
