package types

// RoleName is one of the fixed set of roles known to the system.
type RoleName string

const (
	RoleAdmin RoleName = "Admin"
	RoleUser  RoleName = "User"
)

// Role is a named authorization grouping. Roles are seeded by migration and
// never created at runtime.
type Role struct {
	// ID is the unique identifier of the role.
	ID int `json:"id" db:"id"`

	// Name is the role name, e.g. "Admin" or "User".
	Name RoleName `json:"name" db:"name"`
}

// Claim is an additive (type, value) tag attached to an account.
type Claim struct {
	Type  string `json:"type" db:"claim_type"`
	Value string `json:"value" db:"claim_value"`
}

// ClaimTypeRole is the claim type used to mirror the assigned role.
const ClaimTypeRole = "Role"
