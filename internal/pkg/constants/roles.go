package constants

import "strings"

// Roles of the remote API users.
const (
	Admin   = "ADMIN"
	Manager = "MANAGER"
	Viewer  = "VIEWER"
)

var ValidRoles = []string{Viewer, Manager, Admin}

// IsValidRole returns true if role is one of the known roles.
func IsValidRole(role string) bool {
	for _, r := range ValidRoles {
		if r == role {
			return true
		}
	}
	return false
}

// NormalizeRole upper-cases a role and returns "" for unknown roles.
func NormalizeRole(role string) string {
	r := strings.ToUpper(strings.TrimSpace(role))
	if !IsValidRole(r) {
		return ""
	}
	return r
}
