package repository

import (
	"database/sql"

	"github.com/craftplan/craftplan-api/internal/models"
)

type AccessRequestRepository interface {
	CreateAccessRequest(req models.TenantAccessRequest) (models.TenantAccessRequest, error)
	GetAccessRequestByID(id string) (models.TenantAccessRequest, error)
	ListPendingByTenant(tenantID string) ([]models.TenantAccessRequest, error)
	Approve(id, tenantID, reviewerID string) (models.TenantAccessRequest, error)
	Reject(id, tenantID, reviewerID, reason string) (models.TenantAccessRequest, error)
}

type accessRequestRepository struct {
	db *sql.DB
}

func NewAccessRequestRepository(db *sql.DB) AccessRequestRepository {
	return &accessRequestRepository{db: db}
}

const accessRequestColumns = "id, tenant_id, user_id, message, status, reviewed_by, reviewed_at, rejection_reason, created_at, updated_at"

func scanAccessRequest(row rowScanner) (models.TenantAccessRequest, error) {
	var (
		req        models.TenantAccessRequest
		reviewedBy sql.NullString
		reason     sql.NullString
	)
	err := row.Scan(
		&req.ID,
		&req.TenantID,
		&req.UserID,
		&req.Message,
		&req.Status,
		&reviewedBy,
		&req.ReviewedAt,
		&reason,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		return models.TenantAccessRequest{}, err
	}
	if reviewedBy.Valid {
		req.ReviewedBy = &reviewedBy.String
	}
	if reason.Valid {
		req.RejectionReason = &reason.String
	}
	return req, nil
}

func (r *accessRequestRepository) CreateAccessRequest(req models.TenantAccessRequest) (models.TenantAccessRequest, error) {
	const query = `
		INSERT INTO erp.tenant_access_requests (tenant_id, user_id, message, status)
		VALUES ($1, $2, $3, 'pending')
		RETURNING ` + accessRequestColumns + `;
	`
	return scanAccessRequest(r.db.QueryRow(query, req.TenantID, req.UserID, req.Message))
}

func (r *accessRequestRepository) GetAccessRequestByID(id string) (models.TenantAccessRequest, error) {
	const query = `
		SELECT ` + accessRequestColumns + `
		FROM erp.tenant_access_requests
		WHERE id = $1;
	`
	return scanAccessRequest(r.db.QueryRow(query, id))
}

func (r *accessRequestRepository) ListPendingByTenant(tenantID string) ([]models.TenantAccessRequest, error) {
	const query = `
		SELECT ` + accessRequestColumns + `
		FROM erp.tenant_access_requests
		WHERE tenant_id = $1 AND status = 'pending'
		ORDER BY created_at ASC;
	`

	rows, err := r.db.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []models.TenantAccessRequest
	for rows.Next() {
		req, err := scanAccessRequest(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// Approve transitions pending -> approved. The status guard in the WHERE
// clause makes the transition race-safe: acting on an already-resolved
// request returns sql.ErrNoRows.
func (r *accessRequestRepository) Approve(id, tenantID, reviewerID string) (models.TenantAccessRequest, error) {
	const query = `
		UPDATE erp.tenant_access_requests
		SET status = 'approved', reviewed_by = $3, reviewed_at = now(), updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = 'pending'
		RETURNING ` + accessRequestColumns + `;
	`
	return scanAccessRequest(r.db.QueryRow(query, id, tenantID, reviewerID))
}

func (r *accessRequestRepository) Reject(id, tenantID, reviewerID, reason string) (models.TenantAccessRequest, error) {
	const query = `
		UPDATE erp.tenant_access_requests
		SET status = 'rejected', reviewed_by = $3, reviewed_at = now(), rejection_reason = $4, updated_at = now()
		WHERE id = $1 AND tenant_id = $2 AND status = 'pending'
		RETURNING ` + accessRequestColumns + `;
	`
	return scanAccessRequest(r.db.QueryRow(query, id, tenantID, reviewerID, reason))
}
