package authz

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/craftplan/craftplan-api/internal/apperr"
	"github.com/craftplan/craftplan-api/internal/identity"
)

// Authenticate resolves the Bearer session token into a principal and
// stores it on the request context. It does not require a tenant; the
// signup, tenant-creation and access-request endpoints serve principals
// that have no tenant yet.
func Authenticate(provider identity.Provider, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if auth == "" {
				apperr.Write(w, logger, apperr.NotAuthenticated("missing authorization header"))
				return
			}
			parts := strings.SplitN(auth, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				apperr.Write(w, logger, apperr.NotAuthenticated("expected authorization header format: Bearer <token>"))
				return
			}

			ident, err := provider.ResolveSession(parts[1])
			if err != nil {
				apperr.Write(w, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), ident)))
		})
	}
}

// RequireTenant resolves the principal into a full tenant context and
// stores it on the request. Must sit inside Authenticate.
func RequireTenant(resolver *Resolver, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ident, ok := IdentityFromRequest(r)
			if !ok {
				apperr.Write(w, logger, apperr.NotAuthenticated(""))
				return
			}

			tc, err := resolver.Resolve(ident)
			if err != nil {
				apperr.Write(w, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithTenantContext(r.Context(), tc)))
		})
	}
}

// RequireAdmin ensures the resolved user is an admin of their tenant.
// Must sit inside RequireTenant.
func RequireAdmin(evaluator *Evaluator, logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok := FromRequest(r)
			if !ok {
				apperr.Write(w, logger, apperr.NotAuthenticated(""))
				return
			}

			isAdmin, err := evaluator.IsAdmin(tc.UserID, tc.TenantID)
			if err != nil {
				apperr.Write(w, logger, err)
				return
			}
			if !isAdmin {
				apperr.Write(w, logger, apperr.AccessDenied(""))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
