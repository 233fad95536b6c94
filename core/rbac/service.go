package rbac

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type (
	Repository interface {
		// GetUserRoles returns the roles held by userID; empty for unprovisioned accounts.
		GetUserRoles(ctx context.Context, userID string) ([]Role, error)
		// AssignRole is an idempotent upsert. Returns ErrUserNotFound for unknown users.
		AssignRole(ctx context.Context, userID string, role Role) error
		// RemoveRole atomically checks the role count and deletes the assignment.
		// Returns ErrLastRole when userID holds at most one role.
		RemoveRole(ctx context.Context, userID string, role Role) error

		// QueryResources returns every resource ordered by name.
		QueryResources(ctx context.Context) ([]Resource, error)
		QueryPermissions(ctx context.Context) ([]Permission, error)
		// QueryResourcePermissions returns the entries of the named resource for action.
		QueryResourcePermissions(ctx context.Context, resourceName string, action Action) ([]Permission, error)
		// CreateResource stores res and its permission entries in one transaction.
		// Returns ErrResourceExists when the name is taken.
		CreateResource(ctx context.Context, res Resource, perms []Permission) error
		// DeleteResource removes the resource and its permission entries. Unknown ids are a no-op.
		DeleteResource(ctx context.Context, id string) error
		// UpsertPermission returns ErrResourceNotFound for unknown resources.
		UpsertPermission(ctx context.Context, perm Permission) error
	}

	Service struct {
		repo     Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, validate: validate}
}

// ResolveCaller loads the roles of an authenticated user with a single store read.
func (svc *Service) ResolveCaller(ctx context.Context, userID, email string) (Caller, error) {
	roles, err := svc.repo.GetUserRoles(ctx, userID)
	if err != nil {
		return Caller{}, errors.Wrap(err, "getting user roles")
	}
	return Caller{ID: userID, Email: email, Roles: NewRoleSet(roles...)}, nil
}

func (svc *Service) MyRoles(caller Caller) []Role {
	return caller.Roles.Slice()
}

func (svc *Service) AssignRole(ctx context.Context, caller Caller, ra RoleAssignment) error {
	if err := CanAssignRole(caller.Roles, ra.Role); err != nil {
		return err
	}
	if err := svc.validate.Struct(ra); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.AssignRole(ctx, ra.UserID, ra.Role), "assigning role")
}

func (svc *Service) RemoveRole(ctx context.Context, caller Caller, ra RoleAssignment) error {
	if err := CanRemoveRole(caller.Roles, ra.Role); err != nil {
		return err
	}
	if err := svc.validate.Struct(ra); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.RemoveRole(ctx, ra.UserID, ra.Role), "removing role")
}

func (svc *Service) Matrix(ctx context.Context, caller Caller) (Matrix, error) {
	if err := RequireAdmin(caller.Roles); err != nil {
		return Matrix{}, err
	}
	resources, err := svc.repo.QueryResources(ctx)
	if err != nil {
		return Matrix{}, errors.Wrap(err, "querying resources")
	}
	perms, err := svc.repo.QueryPermissions(ctx)
	if err != nil {
		return Matrix{}, errors.Wrap(err, "querying permissions")
	}
	return Matrix{Resources: resources, Permissions: perms}, nil
}

func (svc *Service) SetAllowed(ctx context.Context, caller Caller, pu PermissionUpdate) error {
	if err := RequireSuperAdmin(caller.Roles); err != nil {
		return err
	}
	if err := svc.validate.Struct(pu); err != nil {
		return err
	}
	perm := Permission{
		Role:       pu.Role,
		ResourceID: pu.ResourceID,
		Action:     pu.Action,
		Allowed:    *pu.Allowed,
	}
	return errors.Wrap(svc.repo.UpsertPermission(ctx, perm), "upserting permission")
}

// AddResource creates a resource along with its seeded permission entries.
func (svc *Service) AddResource(ctx context.Context, caller Caller, nr NewResource) (Resource, []Permission, error) {
	if err := RequireSuperAdmin(caller.Roles); err != nil {
		return Resource{}, nil, err
	}
	nr.Name = strings.TrimSpace(nr.Name)
	nr.Description = strings.TrimSpace(nr.Description)
	if err := svc.validate.Struct(nr); err != nil {
		return Resource{}, nil, err
	}

	res := Resource{
		ID:          uuid.New().String(),
		Name:        nr.Name,
		Description: nr.Description,
		CreatedAt:   time.Now().UTC(),
	}
	perms := SeedPermissions(res.ID)
	if err := svc.repo.CreateResource(ctx, res, perms); err != nil {
		return Resource{}, nil, errors.Wrap(err, "creating resource")
	}
	return res, perms, nil
}

func (svc *Service) DeleteResource(ctx context.Context, caller Caller, ref ResourceRef) error {
	if err := RequireSuperAdmin(caller.Roles); err != nil {
		return err
	}
	if err := svc.validate.Struct(ref); err != nil {
		return err
	}
	return errors.Wrap(svc.repo.DeleteResource(ctx, ref.ID), "deleting resource")
}

// IsAllowed evaluates the matrix for the caller's roles. Unknown resources deny.
func (svc *Service) IsAllowed(ctx context.Context, caller Caller, pq PermissionQuery) (bool, error) {
	pq.Resource = strings.TrimSpace(pq.Resource)
	if err := svc.validate.Struct(pq); err != nil {
		return false, err
	}
	if len(caller.Roles) == 0 {
		return false, nil
	}
	entries, err := svc.repo.QueryResourcePermissions(ctx, pq.Resource, pq.Action)
	if err != nil {
		return false, errors.Wrap(err, "querying resource permissions")
	}
	return Allowed(caller.Roles, entries), nil
}
