package handlers_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"

	"github.com/oakfieldhq/backoffice/internal/api/middleware"
)

// serveAs runs a handler through the tenant middleware with the given
// tenant header, returning the recorded response.
func serveAs(h http.HandlerFunc, tenant string, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	if tenant != "" {
		req.Header.Set(middleware.TenantHeader, tenant)
	}
	middleware.Tenant()(h).ServeHTTP(rec, req)
	return rec
}

// Helper to set chi URL param in context
func setChiURLParam(ctx context.Context, key, value string) context.Context {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, rctx)
}
