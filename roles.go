package auth

// ValidRole checks if the role is one of the predefined valid roles
func ValidRole(r UserRole) bool {
	switch r {
	case RoleGuest, RoleMember, RoleAdmin, RoleOwner:
		return true
	default:
		return false
	}
}

// RoleAtLeast checks if role meets the minimum required level. Unknown roles
// never satisfy any minimum.
func RoleAtLeast(role, minRole UserRole) bool {
	roleHierarchy := map[UserRole]int{
		RoleGuest:  0,
		RoleMember: 1,
		RoleAdmin:  2,
		RoleOwner:  3,
	}

	currentLevel, exists := roleHierarchy[role]
	if !exists {
		return false
	}

	minLevel, exists := roleHierarchy[minRole]
	if !exists {
		return false
	}

	return currentLevel >= minLevel
}

// AllRoles returns all predefined roles in hierarchical order
func AllRoles() []UserRole {
	return []UserRole{
		RoleGuest,
		RoleMember,
		RoleAdmin,
		RoleOwner,
	}
}

// ParseRole safely parses a string into a known role
func ParseRole(roleStr string) (UserRole, bool) {
	role := UserRole(roleStr)
	return role, ValidRole(role)
}
