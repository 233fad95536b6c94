package rbac

import (
	"sort"
	"time"
)

// Roles
const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleGuru       Role = "guru"  // teacher
	RoleSiswa      Role = "siswa" // student
)

// Actions
const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

var (
	AllRoles   = []Role{RoleSuperAdmin, RoleAdmin, RoleGuru, RoleSiswa}
	AdminRoles = []Role{RoleSuperAdmin, RoleAdmin}
	AllActions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

	// DefaultRole is given to every newly provisioned user.
	DefaultRole = RoleSiswa

	// CoreResources are seeded on first start.
	CoreResources = []Resource{
		{ID: "00000000-0000-4000-8000-000000000001", Name: "students", Description: "Student records"},
		{ID: "00000000-0000-4000-8000-000000000002", Name: "teachers", Description: "Teacher records"},
		{ID: "00000000-0000-4000-8000-000000000003", Name: "classes", Description: "Classes and class membership"},
		{ID: "00000000-0000-4000-8000-000000000004", Name: "subjects", Description: "Subjects"},
		{ID: "00000000-0000-4000-8000-000000000005", Name: "lessons", Description: "Lessons"},
		{ID: "00000000-0000-4000-8000-000000000006", Name: "quizzes", Description: "Quizzes"},
		{ID: "00000000-0000-4000-8000-000000000007", Name: "quiz_results", Description: "Quiz results"},
		{ID: "00000000-0000-4000-8000-000000000008", Name: "quiz_feedback", Description: "Mentor feedback on quiz results"},
		{ID: "00000000-0000-4000-8000-000000000009", Name: "users", Description: "User accounts and roles"},
		{ID: "00000000-0000-4000-8000-00000000000a", Name: "reports", Description: "Reports and exports"},
	}

	rolePriorities = map[Role]int{
		RoleSuperAdmin: 4,
		RoleAdmin:      3,
		RoleGuru:       2,
		RoleSiswa:      1,
	}
)

type (
	Role   string
	Action string

	// RoleSet is the unordered set of roles held by a user.
	RoleSet map[Role]struct{}

	Resource struct {
		ID          string    `json:"id" db:"id"`
		Name        string    `json:"name" db:"name"`
		Description string    `json:"description" db:"description"`
		CreatedAt   time.Time `json:"created_at" db:"created_at"`
	}

	Permission struct {
		Role       Role   `json:"role" db:"role"`
		ResourceID string `json:"resource_id" db:"resource_id"`
		Action     Action `json:"action" db:"action"`
		Allowed    bool   `json:"allowed" db:"allowed"`
	}

	Matrix struct {
		Resources   []Resource   `json:"resources"`
		Permissions []Permission `json:"permissions"`
	}

	// Caller is the authenticated user a request acts on behalf of.
	Caller struct {
		ID    string
		Email string
		Roles RoleSet
	}
)

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", ErrInvalidRole
	}
	return r, nil
}

func (r Role) Valid() bool {
	_, ok := rolePriorities[r]
	return ok
}

// IsAdmin reports whether r is one of AdminRoles.
func (r Role) IsAdmin() bool {
	for _, admin := range AdminRoles {
		if r == admin {
			return true
		}
	}
	return false
}

func (r Role) Priority() int {
	return rolePriorities[r]
}

func (a Action) Valid() bool {
	for _, act := range AllActions {
		if a == act {
			return true
		}
	}
	return false
}

func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

func (s RoleSet) Has(role Role) bool {
	_, ok := s[role]
	return ok
}

func (s RoleSet) HasAny(roles ...Role) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Slice returns the roles ordered from the highest tier down.
func (s RoleSet) Slice() []Role {
	roles := make([]Role, 0, len(s))
	for r := range s {
		roles = append(roles, r)
	}
	SortRoles(roles)
	return roles
}

// SortRoles orders roles from the highest tier down.
func SortRoles(roles []Role) {
	sort.Slice(roles, func(i, j int) bool {
		if roles[i].Priority() == roles[j].Priority() {
			return roles[i] < roles[j]
		}
		return roles[i].Priority() > roles[j].Priority()
	})
}

// SeedPermissions returns one entry per role and action for a new resource.
// Only super_admin is allowed by default.
func SeedPermissions(resourceID string) []Permission {
	perms := make([]Permission, 0, len(AllRoles)*len(AllActions))
	for _, role := range AllRoles {
		for _, action := range AllActions {
			perms = append(perms, Permission{
				Role:       role,
				ResourceID: resourceID,
				Action:     action,
				Allowed:    role == RoleSuperAdmin,
			})
		}
	}
	return perms
}

// Allowed reports whether any of roles is granted by entries.
// Missing entries deny.
func Allowed(roles RoleSet, entries []Permission) bool {
	for _, e := range entries {
		if e.Allowed && roles.Has(e.Role) {
			return true
		}
	}
	return false
}

// RoleAssignment is the input of both role assignment and removal.
type RoleAssignment struct {
	UserID string `json:"target_user_id" validate:"required,uuid"`
	Role   Role   `json:"role" validate:"required,role"`
}

type PermissionUpdate struct {
	Role       Role   `json:"role" validate:"required,role"`
	ResourceID string `json:"resource_id" validate:"required,uuid"`
	Action     Action `json:"permission_action" validate:"required,action"`
	Allowed    *bool  `json:"allowed" validate:"required"`
}

type NewResource struct {
	Name        string `json:"name" validate:"required,notblank,max=100"`
	Description string `json:"description" validate:"max=500"`
}

type ResourceRef struct {
	ID string `json:"resource_id" validate:"required,uuid"`
}

type PermissionQuery struct {
	Resource string `json:"resource" validate:"required,notblank"`
	Action   Action `json:"permission_action" validate:"required,action"`
}
