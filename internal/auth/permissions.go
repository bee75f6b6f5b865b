package auth

import "slices"

// Permission is a named capability.
type Permission string

const (
	PermJunctionRead       Permission = "junction:read"
	PermOverrideOperate    Permission = "override:operate"
	PermPreemptionDispatch Permission = "preemption:dispatch"
)

// rolePermissions is the single source of truth for the authorisation model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermJunctionRead,
	},
	RoleOperator: {
		PermJunctionRead,
		PermOverrideOperate,
	},
	RoleDispatcher: {
		PermJunctionRead,
		PermOverrideOperate,
		PermPreemptionDispatch,
	},
}

// HasPermission reports whether role grants perm. Unknown roles grant nothing.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// PermissionsForRole returns a copy of the role's permissions, or nil for
// an unknown role.
func PermissionsForRole(role Role) []Permission {
	return slices.Clone(rolePermissions[role])
}
