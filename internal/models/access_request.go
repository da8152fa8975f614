package models

import "time"

// AccessRequestStatus is the lifecycle state of a self-service join
// request. Only pending requests may be approved or rejected.
type AccessRequestStatus string

const (
	AccessRequestPending  AccessRequestStatus = "pending"
	AccessRequestApproved AccessRequestStatus = "approved"
	AccessRequestRejected AccessRequestStatus = "rejected"
)

// Terminal reports whether the status permits no further transitions.
func (s AccessRequestStatus) Terminal() bool {
	return s != AccessRequestPending
}

// DefaultRejectionReason is recorded when an admin rejects a request
// without supplying a reason.
const DefaultRejectionReason = "Your request to join this organization was not approved."

// TenantAccessRequest is a user's request to join a tenant without a
// prior invitation.
type TenantAccessRequest struct {
	ID              string              `json:"id"`
	TenantID        string              `json:"tenant_id"`
	UserID          string              `json:"user_id"`
	Message         string              `json:"message,omitempty"`
	Status          AccessRequestStatus `json:"status"`
	ReviewedBy      *string             `json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time          `json:"reviewed_at,omitempty"`
	RejectionReason *string             `json:"rejection_reason,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
}
