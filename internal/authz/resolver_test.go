package authz

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftplan/craftplan-api/internal/apperr"
	"github.com/craftplan/craftplan-api/internal/identity"
	"github.com/craftplan/craftplan-api/internal/models"
	"github.com/craftplan/craftplan-api/internal/repository"
)

// stub repositories: the embedded interface satisfies the methods the
// test never exercises.

type stubUserRepo struct {
	repository.UserRepository
	user models.User
	err  error
}

func (s stubUserRepo) GetUserByAccountID(string) (models.User, error) {
	return s.user, s.err
}

type stubTenantRepo struct {
	repository.TenantRepository
	tenant models.Tenant
	err    error
}

func (s stubTenantRepo) GetTenantByID(string) (models.Tenant, error) {
	return s.tenant, s.err
}

func TestResolverResolve(t *testing.T) {
	tenantID := "tenant-1"

	onboarded := models.User{
		ID:       "user-1",
		TenantID: &tenantID,
		Email:    "jo@example.com",
		IsActive: true,
	}
	tenant := models.Tenant{ID: tenantID, Name: "Acme", Status: models.TenantActive}

	t.Run("anonymous caller is not authenticated", func(t *testing.T) {
		resolver := NewResolver(stubUserRepo{}, stubTenantRepo{})

		_, err := resolver.Resolve(identity.Identity{})
		assert.True(t, apperr.IsCode(err, apperr.CodeNotAuthenticated))
	})

	t.Run("authenticated but no local user", func(t *testing.T) {
		resolver := NewResolver(stubUserRepo{err: sql.ErrNoRows}, stubTenantRepo{})

		_, err := resolver.Resolve(identity.Identity{ID: "acc-1"})
		assert.True(t, apperr.IsCode(err, apperr.CodeTenantNotConfigured))
	})

	t.Run("user without a tenant binding", func(t *testing.T) {
		resolver := NewResolver(stubUserRepo{user: models.User{ID: "user-1", IsActive: true}}, stubTenantRepo{})

		_, err := resolver.Resolve(identity.Identity{ID: "acc-1"})
		assert.True(t, apperr.IsCode(err, apperr.CodeTenantNotConfigured))
	})

	t.Run("deactivated member", func(t *testing.T) {
		inactive := onboarded
		inactive.IsActive = false
		resolver := NewResolver(stubUserRepo{user: inactive}, stubTenantRepo{})

		_, err := resolver.Resolve(identity.Identity{ID: "acc-1"})
		assert.True(t, apperr.IsCode(err, apperr.CodeTenantNotConfigured))
	})

	t.Run("tenant row vanished", func(t *testing.T) {
		resolver := NewResolver(stubUserRepo{user: onboarded}, stubTenantRepo{err: sql.ErrNoRows})

		_, err := resolver.Resolve(identity.Identity{ID: "acc-1"})
		assert.True(t, apperr.IsCode(err, apperr.CodeTenantNotConfigured))
	})

	t.Run("fully onboarded caller", func(t *testing.T) {
		resolver := NewResolver(stubUserRepo{user: onboarded}, stubTenantRepo{tenant: tenant})

		tc, err := resolver.Resolve(identity.Identity{ID: "acc-1", Email: "jo@example.com"})
		require.NoError(t, err)
		assert.Equal(t, tenantID, tc.TenantID)
		assert.Equal(t, "user-1", tc.UserID)
		assert.Equal(t, "Acme", tc.Tenant.Name)
	})
}
