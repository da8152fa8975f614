package models

import "time"

// InvitationStatus is the lifecycle state of a tenant invitation.
// Transitions are monotonic: pending is the only state that permits one.
type InvitationStatus string

const (
	InvitationPending   InvitationStatus = "pending"
	InvitationAccepted  InvitationStatus = "accepted"
	InvitationExpired   InvitationStatus = "expired"
	InvitationCancelled InvitationStatus = "cancelled"
)

// CanTransitionTo reports whether the state machine permits moving from
// the receiver to target.
func (s InvitationStatus) CanTransitionTo(target InvitationStatus) bool {
	if s != InvitationPending {
		return false
	}
	switch target {
	case InvitationAccepted, InvitationExpired, InvitationCancelled:
		return true
	}
	return false
}

// Terminal reports whether the status permits no further transitions.
func (s InvitationStatus) Terminal() bool {
	return s != InvitationPending
}

// TenantInvitation is an outstanding or resolved invitation to join a
// tenant. The raw token is never stored; only its SHA-256 hash is.
type TenantInvitation struct {
	ID         string           `json:"id"`
	TenantID   string           `json:"tenant_id"`
	Email      string           `json:"email"`
	RoleID     *string          `json:"role_id,omitempty"`
	RoleName   string           `json:"role_name"`
	TokenHash  string           `json:"-"`
	InvitedBy  *string          `json:"invited_by,omitempty"`
	Status     InvitationStatus `json:"status"`
	Message    string           `json:"message,omitempty"`
	ExpiresAt  time.Time        `json:"expires_at"`
	AcceptedAt *time.Time       `json:"accepted_at,omitempty"`
	AcceptedBy *string          `json:"accepted_by,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

// IsExpired determines whether the invitation has passed its deadline.
// Callers branching on validity must use this alongside Status: expiry
// is applied lazily, so a stale row can still read pending.
func (i TenantInvitation) IsExpired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}

// EffectiveStatus resolves the status a caller should observe at the
// given instant, folding lazy expiry into the answer.
func (i TenantInvitation) EffectiveStatus(now time.Time) InvitationStatus {
	if i.Status == InvitationPending && i.IsExpired(now) {
		return InvitationExpired
	}
	return i.Status
}
