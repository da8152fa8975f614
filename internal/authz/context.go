package authz

import (
	"context"
	"net/http"

	"github.com/craftplan/craftplan-api/internal/identity"
	"github.com/craftplan/craftplan-api/internal/models"
)

type contextKey string

const (
	identityKey      contextKey = "identity"
	tenantContextKey contextKey = "tenant_context"
)

// TenantContext is the resolved caller: who they are and which tenant
// every subsequent data operation must be scoped to. It is only ever
// constructed fully populated by the Resolver.
type TenantContext struct {
	TenantID string
	UserID   string
	User     models.User
	Tenant   models.Tenant
}

// WithIdentity stores the authenticated principal on the context.
func WithIdentity(ctx context.Context, ident identity.Identity) context.Context {
	return context.WithValue(ctx, identityKey, ident)
}

// IdentityFromRequest retrieves the authenticated principal, if any.
func IdentityFromRequest(r *http.Request) (identity.Identity, bool) {
	ident, ok := r.Context().Value(identityKey).(identity.Identity)
	if !ok || ident.ID == "" {
		return identity.Identity{}, false
	}
	return ident, true
}

// WithTenantContext stores the resolved tenant context on the context.
func WithTenantContext(ctx context.Context, tc TenantContext) context.Context {
	return context.WithValue(ctx, tenantContextKey, tc)
}

// FromRequest retrieves the resolved tenant context.
func FromRequest(r *http.Request) (TenantContext, bool) {
	tc, ok := r.Context().Value(tenantContextKey).(TenantContext)
	if !ok || tc.TenantID == "" || tc.UserID == "" {
		return TenantContext{}, false
	}
	return tc, true
}
