package rbac

// Role names. Keep these stable; they are part of auth/RBAC contracts.
const (
	RoleObserver    = "observer" // calls, registrations, event stream, reports
	RoleOperator    = "operator" // call-control commands
	RoleAdmin       = "admin"    // parameters, registration, simulator
	RoleSuperAdmin  = "super_admin"
	RoleMaintenance = "maintenance" // hidden role
)

func IsSuperAdmin(role string) bool { return role == RoleSuperAdmin }

// Known reports whether role may be put in an access token.
func Known(role string) bool {
	switch role {
	case RoleObserver, RoleOperator, RoleAdmin, RoleSuperAdmin, RoleMaintenance:
		return true
	}
	return false
}

// Readers, Operators and Admins are the usual allow-lists for RequireAnyRole.
// Each includes the roles above it in privilege.
var (
	Readers   = []string{RoleObserver, RoleOperator, RoleAdmin}
	Operators = []string{RoleOperator, RoleAdmin}
	Admins    = []string{RoleAdmin}
)
