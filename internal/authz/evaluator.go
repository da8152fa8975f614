package authz

import (
	"github.com/craftplan/craftplan-api/internal/models"
	"github.com/craftplan/craftplan-api/internal/repository"
)

// Evaluator answers role and permission questions for (user, tenant)
// pairs. A user may hold multiple roles per tenant; every query here
// uses set semantics. A role held in one tenant grants nothing in any
// other, so every lookup is tenant-filtered.
type Evaluator struct {
	roles repository.RoleRepository
}

func NewEvaluator(roles repository.RoleRepository) *Evaluator {
	return &Evaluator{roles: roles}
}

// HasRole reports whether the user holds the named role within the
// tenant. Zero roles yields false, never an error.
func (e *Evaluator) HasRole(userID, tenantID, roleName string) (bool, error) {
	roles, err := e.roles.ListRolesForUser(userID, tenantID)
	if err != nil {
		return false, err
	}
	for _, role := range roles {
		if role.Name == roleName {
			return true, nil
		}
	}
	return false, nil
}

// IsAdmin is sugar for HasRole with the admin role.
func (e *Evaluator) IsAdmin(userID, tenantID string) (bool, error) {
	return e.HasRole(userID, tenantID, models.RoleAdmin)
}

// HasPermission reports whether any of the user's tenant-scoped roles
// grants the permission code.
func (e *Evaluator) HasPermission(userID, tenantID, permissionCode string) (bool, error) {
	codes, err := e.roles.ListPermissionCodesForUser(userID, tenantID)
	if err != nil {
		return false, err
	}
	for _, code := range codes {
		if code == permissionCode {
			return true, nil
		}
	}
	return false, nil
}

// GetUserRoles returns the user's full role set within the tenant, for
// display and audit.
func (e *Evaluator) GetUserRoles(userID, tenantID string) ([]models.Role, error) {
	return e.roles.ListRolesForUser(userID, tenantID)
}

// GetUserPermissions returns the de-duplicated union of permission
// codes granted by the user's roles within the tenant.
func (e *Evaluator) GetUserPermissions(userID, tenantID string) ([]string, error) {
	return e.roles.ListPermissionCodesForUser(userID, tenantID)
}
