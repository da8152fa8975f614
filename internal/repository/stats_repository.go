package repository

import (
	"database/sql"

	"github.com/craftplan/craftplan-api/internal/models"
)

type StatsRepository interface {
	// RecomputeUsage recounts the tenant's resources from scratch and
	// upserts the cached row. Full recount keeps the numbers honest at
	// the cost of strictness; the result is advisory.
	RecomputeUsage(tenantID string) (models.TenantUsageStats, error)
	GetUsage(tenantID string) (models.TenantUsageStats, error)
}

type statsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) RecomputeUsage(tenantID string) (models.TenantUsageStats, error) {
	const query = `
		INSERT INTO erp.tenant_usage_stats (tenant_id, user_count, project_count, pending_invite_count, computed_at)
		SELECT
			$1,
			(SELECT count(*) FROM erp.users WHERE tenant_id = $1 AND is_active = TRUE),
			(SELECT count(*) FROM erp.projects WHERE tenant_id = $1),
			(SELECT count(*) FROM erp.tenant_invitations WHERE tenant_id = $1 AND status = 'pending' AND expires_at > now()),
			now()
		ON CONFLICT (tenant_id) DO UPDATE
		SET user_count = EXCLUDED.user_count,
		    project_count = EXCLUDED.project_count,
		    pending_invite_count = EXCLUDED.pending_invite_count,
		    computed_at = EXCLUDED.computed_at
		RETURNING tenant_id, user_count, project_count, pending_invite_count, computed_at;
	`

	var stats models.TenantUsageStats
	err := r.db.QueryRow(query, tenantID).Scan(
		&stats.TenantID,
		&stats.UserCount,
		&stats.ProjectCount,
		&stats.PendingInviteCount,
		&stats.ComputedAt,
	)
	return stats, err
}

func (r *statsRepository) GetUsage(tenantID string) (models.TenantUsageStats, error) {
	const query = `
		SELECT tenant_id, user_count, project_count, pending_invite_count, computed_at
		FROM erp.tenant_usage_stats
		WHERE tenant_id = $1;
	`

	var stats models.TenantUsageStats
	err := r.db.QueryRow(query, tenantID).Scan(
		&stats.TenantID,
		&stats.UserCount,
		&stats.ProjectCount,
		&stats.PendingInviteCount,
		&stats.ComputedAt,
	)
	if err == sql.ErrNoRows {
		return r.RecomputeUsage(tenantID)
	}
	return stats, err
}
