package domain

// Role is a permission tier. Higher IDs are more privileged; the resolved tier
// of an identity is the maximum assigned ID.
type Role struct {
	ID          int
	Name        string
	Permissions []string
}

// Assignment binds an identity to a role.
type Assignment struct {
	IdentityID string
	RoleID     int
}

// Built-in role and permission names.
const (
	RoleOwnerDriver = "owner_driver"
	RolePartner     = "partner"
	RoleBoardAccess = "board_access"

	PermissionSystemConfiguration = "system_configuration"
)

// JoinableRoles are the roles a new identity may request at join.
var JoinableRoles = map[string]bool{
	RoleOwnerDriver: true,
	RolePartner:     true,
}

// DefaultJoinRoles are assigned to every new identity in addition to the requested role.
var DefaultJoinRoles = []string{RoleBoardAccess}
