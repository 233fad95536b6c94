package rbac

import "strings"

// RequireAnyOf passes when roles holds at least one of required.
func RequireAnyOf(roles RoleSet, required ...Role) error {
	if roles.HasAny(required...) {
		return nil
	}
	names := make([]string, 0, len(required))
	for _, r := range required {
		names = append(names, string(r))
	}
	return NewForbiddenError("Forbidden: " + strings.Join(names, "/") + " only")
}

func RequireSuperAdmin(roles RoleSet) error {
	return RequireAnyOf(roles, RoleSuperAdmin)
}

func RequireAdmin(roles RoleSet) error {
	return RequireAnyOf(roles, AdminRoles...)
}

func RequireAdminOrGuru(roles RoleSet) error {
	return RequireAnyOf(roles, RoleSuperAdmin, RoleAdmin, RoleGuru)
}

// CanAssignRole enforces the tier constraint for granting target.
// Administrative roles need a super_admin; the others need an admin or super_admin.
func CanAssignRole(roles RoleSet, target Role) error {
	return canManageRole(roles, target, "assign")
}

// CanRemoveRole is the removal counterpart of CanAssignRole.
func CanRemoveRole(roles RoleSet, target Role) error {
	return canManageRole(roles, target, "remove")
}

func canManageRole(roles RoleSet, target Role, verb string) error {
	if target.IsAdmin() && !roles.Has(RoleSuperAdmin) {
		return NewForbiddenError("Only super_admin can " + verb + " admin roles")
	}
	return RequireAdmin(roles)
}
