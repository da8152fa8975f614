package models

import "time"

// TenantPlan identifies the billing plan a tenant is on.
type TenantPlan string

const (
	PlanTrial        TenantPlan = "trial"
	PlanBasic        TenantPlan = "basic"
	PlanProfessional TenantPlan = "professional"
	PlanEnterprise   TenantPlan = "enterprise"
)

// TenantStatus is the operational state of a tenant.
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
	TenantCancelled TenantStatus = "cancelled"
)

// Tenant represents a customer organization sharing the deployment.
type Tenant struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Slug        string       `json:"slug"`
	Plan        TenantPlan   `json:"plan"`
	Status      TenantStatus `json:"status"`
	MaxUsers    int          `json:"max_users"`
	MaxProjects int          `json:"max_projects"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// IsWritable reports whether write operations may proceed on behalf of
// the tenant's members. Suspended and cancelled tenants are read-only.
func (t Tenant) IsWritable() bool {
	return t.Status == TenantActive
}

// IsValidPlan reports whether the given plan is one of the known plans.
func IsValidPlan(plan TenantPlan) bool {
	switch plan {
	case PlanTrial, PlanBasic, PlanProfessional, PlanEnterprise:
		return true
	}
	return false
}

// PlanLimits returns the default user and project ceilings for a plan.
func PlanLimits(plan TenantPlan) (maxUsers, maxProjects int) {
	switch plan {
	case PlanBasic:
		return 10, 20
	case PlanProfessional:
		return 50, 100
	case PlanEnterprise:
		return 500, 1000
	default: // trial
		return 5, 3
	}
}

// TenantUsageStats is a derived, cached snapshot of per-tenant resource
// counts. It is recomputed by full recount and is advisory only.
type TenantUsageStats struct {
	TenantID           string    `json:"tenant_id"`
	UserCount          int       `json:"user_count"`
	ProjectCount       int       `json:"project_count"`
	PendingInviteCount int       `json:"pending_invite_count"`
	ComputedAt         time.Time `json:"computed_at"`
}
