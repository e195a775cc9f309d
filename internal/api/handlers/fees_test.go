package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakfieldhq/backoffice/internal/api/handlers"
	"github.com/oakfieldhq/backoffice/internal/domain/fees"
	"github.com/oakfieldhq/backoffice/internal/infrastructure/storage"
)

func postJSON(handler http.HandlerFunc, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestFeesHandler_Quote(t *testing.T) {
	handler := handlers.NewFeesHandler(storage.NewMockRepository())

	t.Run("cash is free", func(t *testing.T) {
		rec := postJSON(handler.Quote, "/api/fees/quote",
			`{"amount":"100.00","payment_type":"cash"}`)

		assert.Equal(t, http.StatusOK, rec.Code)

		var calc fees.Calculation
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&calc))
		assert.True(t, calc.Fee.IsZero())
		assert.Equal(t, fees.TagNone, calc.Tag)
	})

	t.Run("direct debit takes percentage plus fixed fee", func(t *testing.T) {
		rec := postJSON(handler.Quote, "/api/fees/quote",
			`{"amount":"100.00","payment_type":"DirectDebit"}`)

		assert.Equal(t, http.StatusOK, rec.Code)

		var calc fees.Calculation
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&calc))
		assert.Equal(t, "1.2", calc.Fee.String())
		assert.Equal(t, fees.TagBACS, calc.Tag)
	})

	t.Run("rejects negative amount", func(t *testing.T) {
		rec := postJSON(handler.Quote, "/api/fees/quote",
			`{"amount":"-5.00","payment_type":"cash"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects non-decimal amount", func(t *testing.T) {
		rec := postJSON(handler.Quote, "/api/fees/quote",
			`{"amount":"lots","payment_type":"cash"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestFeesHandler_Batch(t *testing.T) {
	handler := handlers.NewFeesHandler(storage.NewMockRepository())

	t.Run("aggregates fixed fees per transaction", func(t *testing.T) {
		body := `{"transactions":[
			{"amount":"100.00","payment_type":"DirectDebit"},
			{"amount":"50.00","payment_type":"DirectDebit"},
			{"amount":"25.00","payment_type":"cash"}
		]}`
		rec := postJSON(handler.Batch, "/api/fees/batch", body)

		assert.Equal(t, http.StatusOK, rec.Code)

		var summary fees.BatchSummary
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))

		// Two fee-bearing transactions at 0.20 fixed each.
		assert.Equal(t, "0.4", summary.FixedTotal.String())
		assert.Equal(t, 2, summary.Buckets[fees.TagBACS].Count)
		assert.Equal(t, 1, summary.Buckets[fees.TagNone].Count)
	})

	t.Run("empty batch yields zero totals", func(t *testing.T) {
		rec := postJSON(handler.Batch, "/api/fees/batch", `{"transactions":[]}`)

		assert.Equal(t, http.StatusOK, rec.Code)

		var summary fees.BatchSummary
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&summary))
		assert.True(t, summary.FeeTotal.IsZero())
		assert.Empty(t, summary.Buckets)
	})

	t.Run("one bad amount fails the whole batch", func(t *testing.T) {
		body := `{"transactions":[{"amount":"abc","payment_type":"cash"}]}`
		rec := postJSON(handler.Batch, "/api/fees/batch", body)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
