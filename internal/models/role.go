package models

// Well-known role names seeded by the migrations. Role assignment is
// always tenant-scoped: holding a role in one tenant grants nothing in
// another.
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

// Role is a named bundle of permissions. Role definitions are shared
// reference data; assignments live in user_roles per (user, tenant).
type Role struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

// Permission is a named atomic capability, e.g. "project.delete".
type Permission struct {
	ID          string `json:"id"`
	Code        string `json:"code"`
	Description string `json:"description,omitempty"`
}
