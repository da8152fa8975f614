package repository

import (
	"database/sql"

	"github.com/craftplan/craftplan-api/internal/models"
)

type TenantRepository interface {
	CreateTenant(name, slug string, plan models.TenantPlan) (models.Tenant, error)
	GetTenantByID(id string) (models.Tenant, error)
	GetTenantBySlug(slug string) (models.Tenant, error)
	UpdateStatus(id string, status models.TenantStatus) (models.Tenant, error)
}

type tenantRepository struct {
	db *sql.DB
}

func NewTenantRepository(db *sql.DB) TenantRepository {
	return &tenantRepository{db: db}
}

const tenantColumns = "id, name, slug, plan, status, max_users, max_projects, created_at, updated_at"

func scanTenant(row *sql.Row) (models.Tenant, error) {
	var t models.Tenant
	err := row.Scan(&t.ID, &t.Name, &t.Slug, &t.Plan, &t.Status, &t.MaxUsers, &t.MaxProjects, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

func (r *tenantRepository) CreateTenant(name, slug string, plan models.TenantPlan) (models.Tenant, error) {
	maxUsers, maxProjects := models.PlanLimits(plan)

	const query = `
		INSERT INTO erp.tenants (name, slug, plan, status, max_users, max_projects)
		VALUES ($1, $2, $3, 'active', $4, $5)
		RETURNING ` + tenantColumns + `;
	`
	return scanTenant(r.db.QueryRow(query, name, slug, plan, maxUsers, maxProjects))
}

func (r *tenantRepository) GetTenantByID(id string) (models.Tenant, error) {
	const query = `
		SELECT ` + tenantColumns + `
		FROM erp.tenants
		WHERE id = $1;
	`
	return scanTenant(r.db.QueryRow(query, id))
}

func (r *tenantRepository) GetTenantBySlug(slug string) (models.Tenant, error) {
	const query = `
		SELECT ` + tenantColumns + `
		FROM erp.tenants
		WHERE slug = $1;
	`
	return scanTenant(r.db.QueryRow(query, slug))
}

func (r *tenantRepository) UpdateStatus(id string, status models.TenantStatus) (models.Tenant, error) {
	const query = `
		UPDATE erp.tenants
		SET status = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + tenantColumns + `;
	`
	return scanTenant(r.db.QueryRow(query, id, status))
}
