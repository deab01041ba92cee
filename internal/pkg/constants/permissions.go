package constants

const (
	ViewData        = "view_data"
	EditSharings    = "edit_sharings"
	ManageVersions  = "manage_versions"
	ManageDocuments = "manage_documents"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
var PermissionRoles = map[string][]string{
	ViewData:        {Viewer, Manager, Admin},
	EditSharings:    {Manager, Admin},
	ManageDocuments: {Manager, Admin},
	ManageVersions:  {Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
