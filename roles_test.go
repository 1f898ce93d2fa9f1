package authflow

import "testing"

func TestRoleDerivation(t *testing.T) {
	cases := []struct {
		name       string
		user       *User
		admin      bool
		superAdmin bool
	}{
		{"nil", nil, false, false},
		{"user", &User{Roles: []string{"user"}}, false, false},
		{"admin", &User{Roles: []string{"user", "admin"}}, true, false},
		{"superadmin", &User{Roles: []string{"superadmin"}}, true, true},
		{"no roles", &User{}, false, false},
	}
	for _, tc := range cases {
		if got := tc.user.IsAdmin(); got != tc.admin {
			t.Fatalf("%s: IsAdmin=%v", tc.name, got)
		}
		if got := tc.user.IsSuperAdmin(); got != tc.superAdmin {
			t.Fatalf("%s: IsSuperAdmin=%v", tc.name, got)
		}
	}

	u := &User{Roles: []string{"editor", "user"}}
	if !u.HasAnyRole("viewer", "editor") || u.HasAnyRole("viewer") || u.HasAnyRole() {
		t.Fatal("HasAnyRole must be set intersection")
	}
}

func TestAuthorizeAdminRoutes(t *testing.T) {
	cfg := DefaultConfig()
	c := &Controller{cfg: cfg}

	set := func(roles ...string) {
		c.session = Session{Status: SessionAuthenticated, Token: "t", User: &User{ID: "1", Roles: roles}}
	}

	if ok, redirect := c.Authorize("/admin"); ok || redirect != "/" {
		t.Fatalf("anonymous must be redirected home, got %v %q", ok, redirect)
	}
	if ok, _ := c.Authorize("/profile"); !ok {
		t.Fatal("unprotected path must pass")
	}
	if ok, _ := c.Authorize("/administrator"); !ok {
		t.Fatal("prefix must match whole segments only")
	}

	set("user")
	if ok, _ := c.Authorize("/admin/users"); ok {
		t.Fatal("plain user must be denied")
	}
	set("admin")
	if ok, _ := c.Authorize("/admin/users"); !ok {
		t.Fatal("admin must pass")
	}
	set("superadmin")
	if ok, _ := c.Authorize("/admin"); !ok {
		t.Fatal("superadmin must pass")
	}

	// authenticated flag without a user is never authorized
	c.session = Session{Status: SessionAuthenticated, Token: "t"}
	if ok, _ := c.Authorize("/admin"); ok {
		t.Fatal("session without user must be denied")
	}
}

func TestMatchRulePrefersLongestPrefix(t *testing.T) {
	rules := []RouteRule{
		{Prefix: "/admin", AnyOf: []string{RoleAdmin}},
		{Prefix: "/admin/system", AnyOf: []string{RoleSuperAdmin}},
	}
	r, ok := matchRule(rules, "/admin/system/flags")
	if !ok || r.Prefix != "/admin/system" {
		t.Fatalf("unexpected rule %+v", r)
	}
	if _, ok := matchRule(rules, "/"); ok {
		t.Fatal("root must not match")
	}
}
