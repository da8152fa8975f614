package authz

import (
	"database/sql"
	"errors"

	"github.com/craftplan/craftplan-api/internal/apperr"
	"github.com/craftplan/craftplan-api/internal/identity"
	"github.com/craftplan/craftplan-api/internal/repository"
)

// Resolver maps an authenticated principal to its owning tenant. It is
// the single mandatory entry point for every tenant-scoped operation:
// nothing may query tenant-scoped data without a TenantContext from
// here first.
type Resolver struct {
	users   repository.UserRepository
	tenants repository.TenantRepository
}

func NewResolver(users repository.UserRepository, tenants repository.TenantRepository) *Resolver {
	return &Resolver{users: users, tenants: tenants}
}

// Resolve returns the caller's tenant context. The two failure kinds
// stay distinct because the remedies differ: not_authenticated sends
// the caller to login, tenant_not_configured to onboarding.
func (r *Resolver) Resolve(ident identity.Identity) (TenantContext, error) {
	if ident.ID == "" {
		return TenantContext{}, apperr.NotAuthenticated("")
	}

	user, err := r.users.GetUserByAccountID(ident.ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TenantContext{}, apperr.TenantNotConfigured()
		}
		return TenantContext{}, err
	}

	if !user.Onboarded() {
		return TenantContext{}, apperr.TenantNotConfigured()
	}

	tenant, err := r.tenants.GetTenantByID(*user.TenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TenantContext{}, apperr.TenantNotConfigured()
		}
		return TenantContext{}, err
	}

	return TenantContext{
		TenantID: tenant.ID,
		UserID:   user.ID,
		User:     user,
		Tenant:   tenant,
	}, nil
}
