package notification

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/craftplan/craftplan-api/internal/models"
	"github.com/craftplan/craftplan-api/internal/repository"
)

type captureRepo struct {
	repository.NotificationRepository
	created   []models.Notification
	createErr error
	listLimit int
}

func (r *captureRepo) CreateNotification(n models.Notification) (models.Notification, error) {
	if r.createErr != nil {
		return models.Notification{}, r.createErr
	}
	r.created = append(r.created, n)
	return n, nil
}

func (r *captureRepo) ListRecent(tenantID string, limit int) ([]models.Notification, error) {
	r.listLimit = limit
	return nil, nil
}

func TestPublish(t *testing.T) {
	t.Run("persists a well-formed event", func(t *testing.T) {
		repo := &captureRepo{}
		svc := NewService(repo, zerolog.Nop())

		svc.NotifyInvitationCreated("tenant-1", "new@example.com", "member")

		require.Len(t, repo.created, 1)
		n := repo.created[0]
		assert.Equal(t, "tenant-1", n.TenantID)
		assert.Equal(t, models.EventInvitationCreated, n.EventType)
		assert.Equal(t, models.NotificationSeverityInfo, n.Severity)
		assert.Contains(t, n.Message, "new@example.com")
		assert.Contains(t, string(n.Metadata), "member")
	})

	t.Run("drops events missing a tenant", func(t *testing.T) {
		repo := &captureRepo{}
		svc := NewService(repo, zerolog.Nop())

		svc.Publish(Event{Event: models.EventInvitationCreated})
		assert.Empty(t, repo.created)
	})

	t.Run("a persistence failure is swallowed", func(t *testing.T) {
		repo := &captureRepo{createErr: errors.New("db down")}
		svc := NewService(repo, zerolog.Nop())

		// must not panic or propagate
		svc.NotifyInvitationAccepted("tenant-1", "new@example.com")
	})
}

func TestNotifyAccessRequestResolved(t *testing.T) {
	repo := &captureRepo{}
	svc := NewService(repo, zerolog.Nop())

	svc.NotifyAccessRequestResolved("tenant-1", "jo@example.com", true)
	svc.NotifyAccessRequestResolved("tenant-1", "jo@example.com", false)

	require.Len(t, repo.created, 2)
	assert.Equal(t, models.EventAccessRequestApproved, repo.created[0].EventType)
	assert.Equal(t, models.EventAccessRequestRejected, repo.created[1].EventType)
}

func TestListRecentClampsLimit(t *testing.T) {
	repo := &captureRepo{}
	svc := NewService(repo, zerolog.Nop())

	_, err := svc.ListRecent("tenant-1", 0)
	require.NoError(t, err)
	assert.Equal(t, 20, repo.listLimit)

	_, err = svc.ListRecent("tenant-1", 500)
	require.NoError(t, err)
	assert.Equal(t, 20, repo.listLimit)

	_, err = svc.ListRecent("tenant-1", 50)
	require.NoError(t, err)
	assert.Equal(t, 50, repo.listLimit)
}
