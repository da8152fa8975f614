package notification

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/craftplan/craftplan-api/internal/models"
	"github.com/craftplan/craftplan-api/internal/repository"
)

// Event is a tenant-scoped onboarding event worth surfacing to the
// tenant's admins.
type Event struct {
	TenantID string
	Event    models.NotificationEvent
	Severity models.NotificationSeverity
	Title    string
	Message  string
	Metadata map[string]interface{}
}

type Service interface {
	// Publish persists the notification. Failures are logged, never
	// propagated: no request fails because a notification did not land.
	Publish(evt Event)
	NotifyInvitationCreated(tenantID, email, roleName string)
	NotifyInvitationAccepted(tenantID, email string)
	NotifyAccessRequestCreated(tenantID, userEmail string)
	NotifyAccessRequestResolved(tenantID, userEmail string, approved bool)
	ListRecent(tenantID string, limit int) ([]models.Notification, error)
	MarkRead(tenantID, notificationID string) (models.Notification, error)
}

type service struct {
	repo   repository.NotificationRepository
	logger zerolog.Logger
}

func NewService(repo repository.NotificationRepository, logger zerolog.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger.With().Str("component", "notification_service").Logger(),
	}
}

func (s *service) Publish(evt Event) {
	if evt.Event == "" || evt.TenantID == "" {
		return
	}
	if evt.Severity == "" {
		evt.Severity = models.NotificationSeverityInfo
	}

	var metadata json.RawMessage
	if len(evt.Metadata) > 0 {
		raw, err := json.Marshal(evt.Metadata)
		if err != nil {
			s.logger.Warn().Err(err).Str("event_type", string(evt.Event)).Msg("failed to encode notification metadata")
		} else {
			metadata = raw
		}
	}

	_, err := s.repo.CreateNotification(models.Notification{
		TenantID:  evt.TenantID,
		EventType: evt.Event,
		Severity:  evt.Severity,
		Title:     strings.TrimSpace(evt.Title),
		Message:   strings.TrimSpace(evt.Message),
		Metadata:  metadata,
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Str("tenant_id", evt.TenantID).
			Str("event_type", string(evt.Event)).
			Msg("failed to persist notification")
	}
}

func (s *service) NotifyInvitationCreated(tenantID, email, roleName string) {
	s.Publish(Event{
		TenantID: tenantID,
		Event:    models.EventInvitationCreated,
		Title:    "Invitation sent",
		Message:  fmt.Sprintf("%s was invited as %s", email, roleName),
		Metadata: map[string]interface{}{"email": email, "role": roleName},
	})
}

func (s *service) NotifyInvitationAccepted(tenantID, email string) {
	s.Publish(Event{
		TenantID: tenantID,
		Event:    models.EventInvitationAccepted,
		Title:    "Invitation accepted",
		Message:  fmt.Sprintf("%s joined the workspace", email),
		Metadata: map[string]interface{}{"email": email},
	})
}

func (s *service) NotifyAccessRequestCreated(tenantID, userEmail string) {
	s.Publish(Event{
		TenantID: tenantID,
		Event:    models.EventAccessRequestCreated,
		Title:    "New access request",
		Message:  fmt.Sprintf("%s requested to join the workspace", userEmail),
		Metadata: map[string]interface{}{"email": userEmail},
	})
}

func (s *service) NotifyAccessRequestResolved(tenantID, userEmail string, approved bool) {
	event := models.EventAccessRequestApproved
	verb := "approved"
	if !approved {
		event = models.EventAccessRequestRejected
		verb = "rejected"
	}
	s.Publish(Event{
		TenantID: tenantID,
		Event:    event,
		Title:    "Access request " + verb,
		Message:  fmt.Sprintf("The request from %s was %s", userEmail, verb),
		Metadata: map[string]interface{}{"email": userEmail},
	})
}

func (s *service) ListRecent(tenantID string, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.ListRecent(tenantID, limit)
}

func (s *service) MarkRead(tenantID, notificationID string) (models.Notification, error) {
	return s.repo.MarkRead(tenantID, notificationID)
}
