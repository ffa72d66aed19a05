package auth

import "errors"

var (
	// ErrTenantMismatch indicates resource belongs to a different tenant.
	ErrTenantMismatch = errors.New("tenant mismatch")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("resource not found")
)

// EnsureTenant verifies a resource's tenant against the caller's tenant.
// An empty caller tenant (auth disabled) passes.
func EnsureTenant(callerTenantID, resourceTenantID string) error {
	if callerTenantID == "" {
		return nil
	}
	if resourceTenantID != callerTenantID {
		return ErrTenantMismatch
	}
	return nil
}
