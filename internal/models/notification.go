package models

import (
	"encoding/json"
	"time"
)

type NotificationEvent string

const (
	EventInvitationCreated     NotificationEvent = "invitation.created"
	EventInvitationAccepted    NotificationEvent = "invitation.accepted"
	EventAccessRequestCreated  NotificationEvent = "access_request.created"
	EventAccessRequestApproved NotificationEvent = "access_request.approved"
	EventAccessRequestRejected NotificationEvent = "access_request.rejected"
)

type NotificationSeverity string

const (
	NotificationSeverityInfo    NotificationSeverity = "info"
	NotificationSeverityWarning NotificationSeverity = "warning"
)

// Notification is an in-app message shown to a tenant's members about
// onboarding activity.
type Notification struct {
	ID        string               `json:"id"`
	TenantID  string               `json:"tenant_id"`
	EventType NotificationEvent    `json:"event_type"`
	Severity  NotificationSeverity `json:"severity"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Metadata  json.RawMessage      `json:"metadata,omitempty"`
	ReadAt    *time.Time           `json:"read_at,omitempty"`
	CreatedAt time.Time            `json:"created_at"`
}
