package models

import "time"

// User is a person belonging to at most one tenant at a time. TenantID
// stays nil until onboarding (invitation acceptance or access-request
// approval) completes.
type User struct {
	ID            string    `json:"id"`
	AccountID     string    `json:"-"`
	TenantID      *string   `json:"tenant_id,omitempty"`
	Email         string    `json:"email"`
	FullName      string    `json:"full_name"`
	IsActive      bool      `json:"is_active"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Onboarded reports whether the user is bound to a tenant and active.
// Anything less must be denied access to tenant-scoped resources.
func (u User) Onboarded() bool {
	return u.TenantID != nil && *u.TenantID != "" && u.IsActive
}
