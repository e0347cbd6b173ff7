package auth

import "slices"

// Permission is a named capability checked by the API layer.
type Permission string

const (
	PermNetworkRead      Permission = "network:read"
	PermNetworkWrite     Permission = "network:write"
	PermMeasurementWrite Permission = "measurement:write"
	PermUserManage       Permission = "user:manage"
	PermAuditRead        Permission = "audit:read"
)

// rolePermissions is the single source of truth for the authorisation
// model.
var rolePermissions = map[Role][]Permission{
	RoleViewer: {
		PermNetworkRead,
	},
	RoleOperator: {
		PermNetworkRead,
		PermNetworkWrite,
		PermMeasurementWrite,
	},
	RoleAdmin: {
		PermNetworkRead,
		PermNetworkWrite,
		PermMeasurementWrite,
		PermUserManage,
		PermAuditRead,
	},
}

// HasPermission reports whether role grants perm. Unknown roles have no
// permissions.
func HasPermission(role Role, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// PermissionsForRole returns a copy of the permissions granted to role, or
// nil for an unknown role.
func PermissionsForRole(role Role) []Permission {
	return slices.Clone(rolePermissions[role])
}
