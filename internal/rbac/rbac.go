package rbac

// Role is the closed set of account roles. Role names double as the
// stored reference labels in the roles table.
type Role string

const (
	RoleSuperUser      Role = "Super User"
	RoleAdministration Role = "Administration"
	RoleContractors    Role = "Contractors"
)

// Normalize maps an arbitrary role string onto the closed set. An
// unknown or empty role is treated as Super User, matching the listing
// behavior for unspecified callers (no row filter).
func Normalize(role string) Role {
	switch Role(role) {
	case RoleSuperUser, RoleAdministration, RoleContractors:
		return Role(role)
	default:
		return RoleSuperUser
	}
}

// Privileged is the single privilege check: only Super User may alter
// another account's role, scope, or active flag.
func Privileged(role Role) bool {
	return role == RoleSuperUser
}
