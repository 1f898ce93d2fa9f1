package authflow

import (
	"slices"
	"strings"
)

const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperAdmin = "superadmin"
)

// HasRole reports whether u holds role. Comparison is case-insensitive.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	role = strings.ToLower(role)
	return slices.Contains(u.Roles, role)
}

// HasAnyRole reports whether u holds at least one of roles.
func (u *User) HasAnyRole(roles ...string) bool {
	for _, r := range roles {
		if u.HasRole(r) {
			return true
		}
	}
	return false
}

// IsAdmin is true for admins and super admins.
func (u *User) IsAdmin() bool {
	return u.HasAnyRole(RoleAdmin, RoleSuperAdmin)
}

func (u *User) IsSuperAdmin() bool {
	return u.HasRole(RoleSuperAdmin)
}

// matchRule returns the most specific rule covering path.
func matchRule(rules []RouteRule, path string) (RouteRule, bool) {
	var (
		best  RouteRule
		found bool
	)
	for _, r := range rules {
		if !pathHasPrefix(path, r.Prefix) {
			continue
		}
		if !found || len(r.Prefix) > len(best.Prefix) {
			best, found = r, true
		}
	}
	return best, found
}

// pathHasPrefix matches whole segments: "/admin" covers "/admin" and
// "/admin/users" but not "/administrator".
func pathHasPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	if prefix == "" {
		return true
	}
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	return len(path) == len(prefix) || path[len(prefix)] == '/'
}
