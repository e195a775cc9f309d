package middleware

import (
	"context"
	"net/http"
)

type contextKey string

// tenantKey is the context key under which the tenant ID is stored.
const tenantKey contextKey = "tenant"

// TenantHeader is the request header carrying the tenant identifier.
const TenantHeader = "X-Tenant-ID"

// Tenant extracts the tenant ID from the request header and stores it in
// the request context. A missing header results in an empty tenant ID;
// handlers decide how to respond to that.
func Tenant() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant := r.Header.Get(TenantHeader)
			ctx := context.WithValue(r.Context(), tenantKey, tenant)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// TenantFromContext returns the tenant ID stored by Tenant, or "" when
// none was set.
func TenantFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(tenantKey).(string); ok {
		return v
	}
	return ""
}
