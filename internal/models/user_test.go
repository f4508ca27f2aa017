package models

import "testing"

func rolesNamed(names ...string) []Role {
	roles := make([]Role, 0, len(names))
	for _, n := range names {
		roles = append(roles, Role{Name: n})
	}
	return roles
}

// TestUserIsAdmin verifies that IsAdmin returns true only when the user
// holds the admin role.
func TestUserIsAdmin(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  bool
	}{
		{name: "admin only", roles: []string{RoleAdmin}, want: true},
		{name: "admin among others", roles: []string{RoleAuthor, RoleAdmin}, want: true},
		{name: "editor", roles: []string{RoleEditor}, want: false},
		{name: "author", roles: []string{RoleAuthor}, want: false},
		{name: "no roles", roles: nil, want: false},
		{name: "unknown role", roles: []string{"superadmin"}, want: false},
		{name: "uppercase ADMIN", roles: []string{"ADMIN"}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{Roles: rolesNamed(tt.roles...)}
			if got := u.IsAdmin(); got != tt.want {
				t.Errorf("User{Roles: %v}.IsAdmin() = %v, want %v", tt.roles, got, tt.want)
			}
		})
	}
}

func TestUserHasRole(t *testing.T) {
	u := &User{Roles: rolesNamed(RoleEditor, RoleAuthor)}
	if !u.HasRole(RoleEditor) {
		t.Error("expected editor role")
	}
	if !u.HasRole(RoleAuthor) {
		t.Error("expected author role")
	}
	if u.HasRole(RoleAdmin) {
		t.Error("did not expect admin role")
	}
}

func TestUserRoleNames(t *testing.T) {
	u := &User{Roles: rolesNamed(RoleAuthor, RoleEditor)}
	got := u.RoleNames()
	if len(got) != 2 || got[0] != RoleAuthor || got[1] != RoleEditor {
		t.Errorf("RoleNames() = %v", got)
	}

	empty := (&User{}).RoleNames()
	if empty == nil || len(empty) != 0 {
		t.Errorf("RoleNames() on no roles = %#v, want empty non-nil slice", empty)
	}
}

// TestUserNeeds2FASetup verifies 2FA setup detection based on
// TOTPEnabled and TOTPSecret fields.
func TestUserNeeds2FASetup(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXP"

	tests := []struct {
		name        string
		totpSecret  *string
		totpEnabled bool
		want        bool
	}{
		{name: "no secret and not enabled", totpSecret: nil, totpEnabled: false, want: true},
		{name: "secret set but not enabled", totpSecret: &secret, totpEnabled: false, want: true},
		{name: "secret set and enabled", totpSecret: &secret, totpEnabled: true, want: false},
		{name: "nil secret but enabled (edge case)", totpSecret: nil, totpEnabled: true, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u := &User{
				TOTPSecret:  tt.totpSecret,
				TOTPEnabled: tt.totpEnabled,
			}
			got := u.Needs2FASetup()
			if got != tt.want {
				t.Errorf("Needs2FASetup() = %v, want %v (secret=%v, enabled=%v)",
					got, tt.want, tt.totpSecret != nil, tt.totpEnabled)
			}
		})
	}
}

func TestRoleIsBuiltin(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{name: RoleAdmin, want: true},
		{name: RoleEditor, want: true},
		{name: RoleAuthor, want: true},
		{name: "reviewer", want: false},
		{name: "", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Role{Name: tt.name}
			if got := r.IsBuiltin(); got != tt.want {
				t.Errorf("Role{Name: %q}.IsBuiltin() = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
