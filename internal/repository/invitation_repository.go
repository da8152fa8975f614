package repository

import (
	"database/sql"
	"time"

	"github.com/craftplan/craftplan-api/internal/models"
)

type InvitationRepository interface {
	CreateInvitation(inv models.TenantInvitation) (models.TenantInvitation, error)
	GetInvitationByID(id string) (models.TenantInvitation, error)
	GetInvitationByTokenHash(tokenHash string) (models.TenantInvitation, error)
	ListInvitationsByTenant(tenantID string) ([]models.TenantInvitation, error)
	HasPendingInvitation(tenantID, email string, now time.Time) (bool, error)
	ExpireStalePending(tenantID, email string, now time.Time) error
	MarkAccepted(id, acceptedBy string, now time.Time) (models.TenantInvitation, error)
	MarkExpired(id string) (models.TenantInvitation, error)
	Cancel(id, tenantID string) (models.TenantInvitation, error)
}

type invitationRepository struct {
	db *sql.DB
}

func NewInvitationRepository(db *sql.DB) InvitationRepository {
	return &invitationRepository{db: db}
}

const invitationColumns = `i.id, i.tenant_id, i.email, i.role_id, r.name, i.token_hash, i.invited_by,
	       i.status, i.message, i.expires_at, i.accepted_at, i.accepted_by, i.created_at, i.updated_at`

func scanInvitation(row rowScanner) (models.TenantInvitation, error) {
	var (
		inv        models.TenantInvitation
		roleID     sql.NullString
		roleName   sql.NullString
		invitedBy  sql.NullString
		acceptedBy sql.NullString
	)
	err := row.Scan(
		&inv.ID,
		&inv.TenantID,
		&inv.Email,
		&roleID,
		&roleName,
		&inv.TokenHash,
		&invitedBy,
		&inv.Status,
		&inv.Message,
		&inv.ExpiresAt,
		&inv.AcceptedAt,
		&acceptedBy,
		&inv.CreatedAt,
		&inv.UpdatedAt,
	)
	if err != nil {
		return models.TenantInvitation{}, err
	}
	if roleID.Valid {
		inv.RoleID = &roleID.String
	}
	inv.RoleName = roleName.String
	if invitedBy.Valid {
		inv.InvitedBy = &invitedBy.String
	}
	if acceptedBy.Valid {
		inv.AcceptedBy = &acceptedBy.String
	}
	return inv, nil
}

// CreateInvitation persists a new pending invitation. The partial unique
// index on (tenant_id, email) where status = 'pending' is the actual
// duplicate guard; a unique violation here must surface as a conflict.
func (r *invitationRepository) CreateInvitation(inv models.TenantInvitation) (models.TenantInvitation, error) {
	const query = `
		WITH inserted AS (
			INSERT INTO erp.tenant_invitations (tenant_id, email, role_id, token_hash, invited_by, status, message, expires_at)
			VALUES ($1, $2, $3, $4, $5, 'pending', $6, $7)
			RETURNING *
		)
		SELECT ` + invitationColumns + `
		FROM inserted i
		LEFT JOIN erp.roles r ON r.id = i.role_id;
	`

	var roleID, invitedBy interface{}
	if inv.RoleID != nil && *inv.RoleID != "" {
		roleID = *inv.RoleID
	}
	if inv.InvitedBy != nil && *inv.InvitedBy != "" {
		invitedBy = *inv.InvitedBy
	}

	return scanInvitation(r.db.QueryRow(query,
		inv.TenantID,
		inv.Email,
		roleID,
		inv.TokenHash,
		invitedBy,
		inv.Message,
		inv.ExpiresAt,
	))
}

func (r *invitationRepository) GetInvitationByID(id string) (models.TenantInvitation, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM erp.tenant_invitations i
		LEFT JOIN erp.roles r ON r.id = i.role_id
		WHERE i.id = $1;
	`
	return scanInvitation(r.db.QueryRow(query, id))
}

func (r *invitationRepository) GetInvitationByTokenHash(tokenHash string) (models.TenantInvitation, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM erp.tenant_invitations i
		LEFT JOIN erp.roles r ON r.id = i.role_id
		WHERE i.token_hash = $1;
	`
	return scanInvitation(r.db.QueryRow(query, tokenHash))
}

func (r *invitationRepository) ListInvitationsByTenant(tenantID string) ([]models.TenantInvitation, error) {
	const query = `
		SELECT ` + invitationColumns + `
		FROM erp.tenant_invitations i
		LEFT JOIN erp.roles r ON r.id = i.role_id
		WHERE i.tenant_id = $1
		ORDER BY i.created_at DESC;
	`

	rows, err := r.db.Query(query, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []models.TenantInvitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}
	return invitations, rows.Err()
}

// HasPendingInvitation is the fast-path duplicate check. The uniqueness
// constraint remains the source of truth under concurrency.
func (r *invitationRepository) HasPendingInvitation(tenantID, email string, now time.Time) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1
			FROM erp.tenant_invitations
			WHERE tenant_id = $1 AND email = $2 AND status = 'pending' AND expires_at > $3
		);
	`
	var exists bool
	err := r.db.QueryRow(query, tenantID, email, now).Scan(&exists)
	return exists, err
}

// ExpireStalePending applies the lazy pending -> expired transition to
// any invitation for the address whose deadline has passed. Expiry is
// lazy, so a stale row keeps status = 'pending' until observed; it must
// be expired before a replacement insert or it trips the partial unique
// index.
func (r *invitationRepository) ExpireStalePending(tenantID, email string, now time.Time) error {
	const query = `
		UPDATE erp.tenant_invitations
		SET status = 'expired', updated_at = now()
		WHERE tenant_id = $1 AND email = $2 AND status = 'pending' AND expires_at <= $3;
	`
	_, err := r.db.Exec(query, tenantID, email, now)
	return err
}

// MarkAccepted transitions pending -> accepted. The WHERE clause guards
// both the state and the deadline so a concurrent accept or a stale
// pending row past expiry yields sql.ErrNoRows instead of a transition.
func (r *invitationRepository) MarkAccepted(id, acceptedBy string, now time.Time) (models.TenantInvitation, error) {
	const query = `
		WITH updated AS (
			UPDATE erp.tenant_invitations
			SET status = 'accepted', accepted_at = $3, accepted_by = $2, updated_at = now()
			WHERE id = $1 AND status = 'pending' AND expires_at > $3
			RETURNING *
		)
		SELECT ` + invitationColumns + `
		FROM updated i
		LEFT JOIN erp.roles r ON r.id = i.role_id;
	`
	return scanInvitation(r.db.QueryRow(query, id, acceptedBy, now))
}

// MarkExpired applies the lazy pending -> expired transition detected at
// validation time.
func (r *invitationRepository) MarkExpired(id string) (models.TenantInvitation, error) {
	const query = `
		WITH updated AS (
			UPDATE erp.tenant_invitations
			SET status = 'expired', updated_at = now()
			WHERE id = $1 AND status = 'pending'
			RETURNING *
		)
		SELECT ` + invitationColumns + `
		FROM updated i
		LEFT JOIN erp.roles r ON r.id = i.role_id;
	`
	return scanInvitation(r.db.QueryRow(query, id))
}

// Cancel soft-transitions pending -> cancelled, preserving the row for
// audit. Restricted to the invitation's own tenant.
func (r *invitationRepository) Cancel(id, tenantID string) (models.TenantInvitation, error) {
	const query = `
		WITH updated AS (
			UPDATE erp.tenant_invitations
			SET status = 'cancelled', updated_at = now()
			WHERE id = $1 AND tenant_id = $2 AND status = 'pending'
			RETURNING *
		)
		SELECT ` + invitationColumns + `
		FROM updated i
		LEFT JOIN erp.roles r ON r.id = i.role_id;
	`
	return scanInvitation(r.db.QueryRow(query, id, tenantID))
}
