package repository

import (
	"database/sql"

	"github.com/craftplan/craftplan-api/internal/models"
)

type RoleRepository interface {
	GetRoleByName(name string) (models.Role, error)
	ListRolesForUser(userID, tenantID string) ([]models.Role, error)
	ListPermissionCodesForUser(userID, tenantID string) ([]string, error)
	AssignRole(userID, tenantID, roleID string) error
	RemoveRoles(userID, tenantID string) error
}

type roleRepository struct {
	db *sql.DB
}

func NewRoleRepository(db *sql.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) GetRoleByName(name string) (models.Role, error) {
	const query = `
		SELECT id, name, description
		FROM erp.roles
		WHERE name = $1;
	`
	var role models.Role
	err := r.db.QueryRow(query, name).Scan(&role.ID, &role.Name, &role.Description)
	return role, err
}

// ListRolesForUser returns every role the user holds within the given
// tenant. An empty result is not an error: a user with zero roles is a
// valid state that simply grants nothing.
func (r *roleRepository) ListRolesForUser(userID, tenantID string) ([]models.Role, error) {
	const query = `
		SELECT r.id, r.name, r.description
		FROM erp.user_roles ur
		JOIN erp.roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND ur.tenant_id = $2
		ORDER BY r.name;
	`

	rows, err := r.db.Query(query, userID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []models.Role
	for rows.Next() {
		var role models.Role
		if err := rows.Scan(&role.ID, &role.Name, &role.Description); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// ListPermissionCodesForUser returns the de-duplicated union of
// permission codes granted by the user's tenant-scoped roles.
func (r *roleRepository) ListPermissionCodesForUser(userID, tenantID string) ([]string, error) {
	const query = `
		SELECT DISTINCT p.code
		FROM erp.user_roles ur
		JOIN erp.role_permissions rp ON rp.role_id = ur.role_id
		JOIN erp.permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1 AND ur.tenant_id = $2
		ORDER BY p.code;
	`

	rows, err := r.db.Query(query, userID, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (r *roleRepository) AssignRole(userID, tenantID, roleID string) error {
	const query = `
		INSERT INTO erp.user_roles (user_id, tenant_id, role_id)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, tenant_id, role_id) DO NOTHING;
	`
	_, err := r.db.Exec(query, userID, tenantID, roleID)
	return err
}

func (r *roleRepository) RemoveRoles(userID, tenantID string) error {
	const query = `
		DELETE FROM erp.user_roles
		WHERE user_id = $1 AND tenant_id = $2;
	`
	_, err := r.db.Exec(query, userID, tenantID)
	return err
}
