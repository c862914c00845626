package model

import "fmt"

// Role is the closed set of account roles. Keeping it typed means handlers
// and middleware switch on values the compiler knows about instead of
// comparing raw strings.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
	RoleTenant Role = "tenant"
)

// ParseRole validates a stored or submitted role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin:
		return RoleAdmin, nil
	case RoleOwner:
		return RoleOwner, nil
	case RoleTenant:
		return RoleTenant, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// CanManageProperties reports whether the role may create properties,
// units, and leases.
func (r Role) CanManageProperties() bool {
	switch r {
	case RoleAdmin, RoleOwner:
		return true
	case RoleTenant:
		return false
	}
	return false
}
