package repository

import (
	"database/sql"

	"github.com/craftplan/craftplan-api/internal/models"
)

type ProjectRepository interface {
	CreateProject(project models.Project) (models.Project, error)
	// GetProjectByID fetches without a tenant filter on purpose: the
	// caller compares the row's tenant id against its own context so
	// that "not found" and "found but foreign" stay distinguishable.
	GetProjectByID(id string) (models.Project, error)
	ListProjectsByTenant(tenantID string) ([]models.Project, error)
	UpdateProject(project models.Project) (models.Project, error)
	DeleteProject(id, tenantID string) error
}

type projectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) ProjectRepository {
	return &projectRepository{db: db}
}

const projectColumns = "id, tenant_id, name, description, status, created_by, created_at, updated_at"

func scanProject(row rowScanner) (models.Project, error) {
	var (
		p         models.Project
		createdBy sql.NullString
	)
	err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.Status, &createdBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return models.Project{}, err
	}
	if createdBy.Valid {
		p.CreatedBy = &createdBy.String
	}
	return p, nil
}

func (r *projectRepository) CreateProject(project models.Project) (models.Project, error) {
	const query = `
		INSERT INTO erp.projects (tenant_id, name, description, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + projectColumns + `;
	`

	var createdBy interface{}
	if project.CreatedBy != nil && *project.CreatedBy != "" {
		createdBy = *project.CreatedBy
	}
	if project.Status == "" {
		project.Status = "planned"
	}

	return scanProject(r.db.QueryRow(query,
		project.TenantID,
		project.Name,
		project.Description,
		project.Status,
		createdBy,
	))
}

func (r *projectRepository) GetProjectByID(id string) (models.Project, error) {
	const query = `
		SELECT ` + projectColumns + `
		FROM erp.projects
		WHERE id = $1;
	`
	return scanProject(r.db.QueryRow(query, id))
}

func (r *projectRepository) ListProjectsByTenant(tenantID string) ([]models.Project, error) {
	const query = `
		SELECT ` + projectColumns + `
		FROM erp.projects
		WHERE tenant_id = $1
		ORDER BY created_at DESC;
	`

	rows, err := r.db.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []models.Project
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

func (r *projectRepository) UpdateProject(project models.Project) (models.Project, error) {
	const query = `
		UPDATE erp.projects
		SET name = $3, description = $4, status = $5, updated_at = now()
		WHERE id = $1 AND tenant_id = $2
		RETURNING ` + projectColumns + `;
	`
	return scanProject(r.db.QueryRow(query,
		project.ID,
		project.TenantID,
		project.Name,
		project.Description,
		project.Status,
	))
}

func (r *projectRepository) DeleteProject(id, tenantID string) error {
	const query = `
		DELETE FROM erp.projects
		WHERE id = $1 AND tenant_id = $2;
	`

	result, err := r.db.Exec(query, id, tenantID)
	if err != nil {
		return err
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
