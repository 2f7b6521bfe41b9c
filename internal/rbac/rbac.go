package rbac

// Role constants
const (
	RoleOperator = "operator"
	RoleAdmin    = "admin"
)

// Permission constants
const (
	PermContribute    = "contribute"
	PermViewJournal   = "view_journal"
	PermManageRounds  = "manage_rounds"
	PermManageFunding = "manage_funding"
	PermManageProject = "manage_project"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleOperator: {
		PermContribute, PermViewJournal,
	},
	RoleAdmin: {
		PermContribute, PermViewJournal,
		PermManageRounds, PermManageFunding, PermManageProject,
	},
}

func IsRole(role string) bool {
	_, ok := RolePermissions[role]
	return ok
}

// HasPermission checks if a role has a specific permission.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}
