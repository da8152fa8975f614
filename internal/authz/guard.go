package authz

import (
	"github.com/rs/zerolog"

	"github.com/craftplan/craftplan-api/internal/apperr"
)

// EnsureTenant re-verifies that a row fetched by id belongs to the
// caller's tenant. This is the second half of the fetch-then-compare
// guard against id-guessing across tenants: internally the mismatch is
// logged as a denied access so audit can tell it apart from a genuine
// miss, but the caller sees the same not-found either way so foreign
// resources never reveal their existence.
func EnsureTenant(logger zerolog.Logger, tc TenantContext, resource, resourceID, ownerTenantID string) error {
	if ownerTenantID == tc.TenantID {
		return nil
	}
	logger.Warn().
		Str("resource", resource).
		Str("resource_id", resourceID).
		Str("tenant_id", tc.TenantID).
		Str("user_id", tc.UserID).
		Msg("cross-tenant access denied")
	return apperr.NotFound(resource + " not found")
}

// EnsureWritable gates write operations on the tenant's status. Writes
// on behalf of a suspended or cancelled tenant fail before reaching the
// data store.
func EnsureWritable(tc TenantContext) error {
	if tc.Tenant.IsWritable() {
		return nil
	}
	return apperr.AccessDenied("tenant is " + string(tc.Tenant.Status))
}
