package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftplan/craftplan-api/internal/models"
	"github.com/craftplan/craftplan-api/internal/repository"
)

type scopeKey struct {
	userID   string
	tenantID string
}

// stubRoleRepo keys role sets by (user, tenant) so cross-tenant lookups
// come back empty, the same way the tenant-filtered SQL would.
type stubRoleRepo struct {
	repository.RoleRepository
	roles map[scopeKey][]models.Role
	perms map[scopeKey][]string
}

func (s stubRoleRepo) ListRolesForUser(userID, tenantID string) ([]models.Role, error) {
	return s.roles[scopeKey{userID, tenantID}], nil
}

func (s stubRoleRepo) ListPermissionCodesForUser(userID, tenantID string) ([]string, error) {
	return s.perms[scopeKey{userID, tenantID}], nil
}

func TestEvaluatorRolesAreTenantScoped(t *testing.T) {
	eval := NewEvaluator(stubRoleRepo{
		roles: map[scopeKey][]models.Role{
			{"user-1", "tenant-a"}: {{Name: models.RoleAdmin}, {Name: models.RoleMember}},
			{"user-1", "tenant-b"}: {{Name: models.RoleViewer}},
		},
	})

	t.Run("role held in its own tenant", func(t *testing.T) {
		ok, err := eval.IsAdmin("user-1", "tenant-a")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("same user, different tenant", func(t *testing.T) {
		ok, err := eval.IsAdmin("user-1", "tenant-b")
		require.NoError(t, err)
		assert.False(t, ok, "admin in tenant-a must grant nothing in tenant-b")
	})

	t.Run("user with no memberships at all", func(t *testing.T) {
		ok, err := eval.HasRole("user-2", "tenant-a", models.RoleMember)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("multiple roles use set semantics", func(t *testing.T) {
		ok, err := eval.HasRole("user-1", "tenant-a", models.RoleMember)
		require.NoError(t, err)
		assert.True(t, ok)

		roles, err := eval.GetUserRoles("user-1", "tenant-a")
		require.NoError(t, err)
		assert.Len(t, roles, 2)
	})
}

func TestEvaluatorHasPermission(t *testing.T) {
	eval := NewEvaluator(stubRoleRepo{
		perms: map[scopeKey][]string{
			{"user-1", "tenant-a"}: {"project.view", "project.create"},
		},
	})

	ok, err := eval.HasPermission("user-1", "tenant-a", "project.create")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = eval.HasPermission("user-1", "tenant-a", "project.delete")
	require.NoError(t, err)
	assert.False(t, ok)

	// Zero grants yields false, never an error.
	ok, err = eval.HasPermission("user-1", "tenant-b", "project.view")
	require.NoError(t, err)
	assert.False(t, ok)

	codes, err := eval.GetUserPermissions("user-1", "tenant-b")
	require.NoError(t, err)
	assert.Empty(t, codes)
}
