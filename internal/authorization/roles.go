package authorization

import "strings"

// Canonical role names. Comparison is case-insensitive everywhere;
// these are the forms persisted and seeded.
const (
	RoleSuperAdmin  = "SUPER_ADMIN"
	RoleSiteManager = "site_manager"
	RoleMeterReader = "meter_reader"
)

// CanonicalRole maps a free-form role name onto its canonical form.
func CanonicalRole(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "super_admin":
		return RoleSuperAdmin, true
	case "site_manager":
		return RoleSiteManager, true
	case "meter_reader":
		return RoleMeterReader, true
	default:
		return "", false
	}
}

// IsSuperAdmin reports whether the role name is the admin role.
func IsSuperAdmin(name string) bool {
	canonical, ok := CanonicalRole(name)
	return ok && canonical == RoleSuperAdmin
}
