package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-opaque-auth"
	"github.com/stretchr/testify/assert"
)

func TestValidRole(t *testing.T) {
	for _, role := range auth.AllRoles() {
		assert.True(t, auth.ValidRole(role), "expected %q to be valid", role)
	}

	assert.False(t, auth.ValidRole("superuser"))
	assert.False(t, auth.ValidRole(""))
}

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		name     string
		role     auth.UserRole
		minRole  auth.UserRole
		expected bool
	}{
		{name: "owner is at least admin", role: auth.RoleOwner, minRole: auth.RoleAdmin, expected: true},
		{name: "admin is at least admin", role: auth.RoleAdmin, minRole: auth.RoleAdmin, expected: true},
		{name: "member is not admin", role: auth.RoleMember, minRole: auth.RoleAdmin, expected: false},
		{name: "guest is at least guest", role: auth.RoleGuest, minRole: auth.RoleGuest, expected: true},
		{name: "unknown role fails every check", role: "superuser", minRole: auth.RoleGuest, expected: false},
		{name: "unknown minimum fails every check", role: auth.RoleOwner, minRole: "superuser", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, auth.RoleAtLeast(tt.role, tt.minRole))
		})
	}
}

func TestParseRole(t *testing.T) {
	role, ok := auth.ParseRole("admin")
	assert.True(t, ok)
	assert.Equal(t, auth.RoleAdmin, role)

	_, ok = auth.ParseRole("superuser")
	assert.False(t, ok)
}
