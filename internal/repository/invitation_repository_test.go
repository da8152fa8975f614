package repository

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftplan/craftplan-api/internal/models"
)

var invitationRows = []string{
	"id", "tenant_id", "email", "role_id", "name", "token_hash", "invited_by",
	"status", "message", "expires_at", "accepted_at", "accepted_by", "created_at", "updated_at",
}

func newInvitationRepo(t *testing.T) (InvitationRepository, sqlmock.Sqlmock, *sql.DB) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	return NewInvitationRepository(db), mock, db
}

func TestCreateInvitation(t *testing.T) {
	repo, mock, db := newInvitationRepo(t)
	defer db.Close()

	now := time.Now()
	expiry := now.Add(7 * 24 * time.Hour)
	roleID := "role-member"
	invitedBy := "user-admin"

	t.Run("success", func(t *testing.T) {
		rows := sqlmock.NewRows(invitationRows).AddRow(
			"inv-1", "tenant-1", "new@example.com", roleID, "member", "hash", invitedBy,
			"pending", "welcome", expiry, nil, nil, now, now,
		)
		mock.ExpectQuery(`INSERT INTO erp.tenant_invitations`).
			WithArgs("tenant-1", "new@example.com", roleID, "hash", invitedBy, "welcome", expiry).
			WillReturnRows(rows)

		inv, err := repo.CreateInvitation(models.TenantInvitation{
			TenantID:  "tenant-1",
			Email:     "new@example.com",
			RoleID:    &roleID,
			TokenHash: "hash",
			InvitedBy: &invitedBy,
			Message:   "welcome",
			ExpiresAt: expiry,
		})
		require.NoError(t, err)
		assert.Equal(t, "inv-1", inv.ID)
		assert.Equal(t, models.InvitationPending, inv.Status)
		assert.Equal(t, "member", inv.RoleName)
		require.NotNil(t, inv.RoleID)
		assert.Equal(t, roleID, *inv.RoleID)
		assert.Nil(t, inv.AcceptedBy)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate pending invitation is a unique violation", func(t *testing.T) {
		mock.ExpectQuery(`INSERT INTO erp.tenant_invitations`).
			WithArgs("tenant-1", "new@example.com", roleID, "hash2", invitedBy, "", expiry).
			WillReturnError(&pq.Error{Code: "23505", Constraint: "uniq_pending_invitation"})

		_, err := repo.CreateInvitation(models.TenantInvitation{
			TenantID:  "tenant-1",
			Email:     "new@example.com",
			RoleID:    &roleID,
			TokenHash: "hash2",
			InvitedBy: &invitedBy,
			ExpiresAt: expiry,
		})
		assert.True(t, IsUniqueViolation(err))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestHasPendingInvitation(t *testing.T) {
	repo, mock, db := newInvitationRepo(t)
	defer db.Close()

	now := time.Now()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("tenant-1", "new@example.com", now).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.HasPendingInvitation("tenant-1", "new@example.com", now)
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkAccepted(t *testing.T) {
	repo, mock, db := newInvitationRepo(t)
	defer db.Close()

	now := time.Now()

	t.Run("pending invitation transitions to accepted", func(t *testing.T) {
		rows := sqlmock.NewRows(invitationRows).AddRow(
			"inv-1", "tenant-1", "new@example.com", "role-member", "member", "hash", "user-admin",
			"accepted", "", now.Add(time.Hour), now, "user-new", now, now,
		)
		mock.ExpectQuery(`UPDATE erp.tenant_invitations`).
			WithArgs("inv-1", "user-new", now).
			WillReturnRows(rows)

		inv, err := repo.MarkAccepted("inv-1", "user-new", now)
		require.NoError(t, err)
		assert.Equal(t, models.InvitationAccepted, inv.Status)
		require.NotNil(t, inv.AcceptedBy)
		assert.Equal(t, "user-new", *inv.AcceptedBy)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("already processed or expired row yields no rows", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE erp.tenant_invitations`).
			WithArgs("inv-done", "user-new", now).
			WillReturnRows(sqlmock.NewRows(invitationRows))

		_, err := repo.MarkAccepted("inv-done", "user-new", now)
		assert.ErrorIs(t, err, sql.ErrNoRows)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCancelInvitation(t *testing.T) {
	repo, mock, db := newInvitationRepo(t)
	defer db.Close()

	now := time.Now()

	t.Run("pending invitation is cancelled", func(t *testing.T) {
		rows := sqlmock.NewRows(invitationRows).AddRow(
			"inv-1", "tenant-1", "new@example.com", "role-member", "member", "hash", "user-admin",
			"cancelled", "", now.Add(time.Hour), nil, nil, now, now,
		)
		mock.ExpectQuery(`UPDATE erp.tenant_invitations`).
			WithArgs("inv-1", "tenant-1").
			WillReturnRows(rows)

		inv, err := repo.Cancel("inv-1", "tenant-1")
		require.NoError(t, err)
		assert.Equal(t, models.InvitationCancelled, inv.Status)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign tenant matches nothing", func(t *testing.T) {
		mock.ExpectQuery(`UPDATE erp.tenant_invitations`).
			WithArgs("inv-1", "tenant-other").
			WillReturnRows(sqlmock.NewRows(invitationRows))

		_, err := repo.Cancel("inv-1", "tenant-other")
		assert.ErrorIs(t, err, sql.ErrNoRows)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestExpireStalePending(t *testing.T) {
	t.Run("expires rows past their deadline", func(t *testing.T) {
		repo, mock, db := newInvitationRepo(t)
		defer db.Close()

		now := time.Now()
		mock.ExpectExec(`UPDATE erp.tenant_invitations`).
			WithArgs("tenant-1", "new@example.com", now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.ExpireStalePending("tenant-1", "new@example.com", now))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("no stale row is fine", func(t *testing.T) {
		repo, mock, db := newInvitationRepo(t)
		defer db.Close()

		now := time.Now()
		mock.ExpectExec(`UPDATE erp.tenant_invitations`).
			WithArgs("tenant-1", "fresh@example.com", now).
			WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, repo.ExpireStalePending("tenant-1", "fresh@example.com", now))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestMarkExpired(t *testing.T) {
	repo, mock, db := newInvitationRepo(t)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(invitationRows).AddRow(
		"inv-1", "tenant-1", "new@example.com", "role-member", "member", "hash", "user-admin",
		"expired", "", now.Add(-time.Hour), nil, nil, now, now,
	)
	mock.ExpectQuery(`UPDATE erp.tenant_invitations`).
		WithArgs("inv-1").
		WillReturnRows(rows)

	inv, err := repo.MarkExpired("inv-1")
	require.NoError(t, err)
	assert.Equal(t, models.InvitationExpired, inv.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}
