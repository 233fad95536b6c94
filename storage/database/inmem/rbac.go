package inmemdb

import (
	"context"
	"sort"

	"github.com/penahikmah/sekolah/core/rbac"
)

type rbacRepository struct {
	db *DB
}

var _ rbac.Repository = (*rbacRepository)(nil) // interface compliance check

func NewRBACRepository(db *DB) *rbacRepository {
	return &rbacRepository{db: db}
}

func (repo *rbacRepository) GetUserRoles(_ context.Context, userID string) ([]rbac.Role, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.db.userRoles[userID].Slice(), nil
}

func (repo *rbacRepository) AssignRole(_ context.Context, userID string, role rbac.Role) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[userID]; !ok {
		return rbac.ErrUserNotFound
	}
	roles, ok := repo.db.userRoles[userID]
	if !ok {
		roles = rbac.NewRoleSet()
		repo.db.userRoles[userID] = roles
	}
	roles[role] = struct{}{}
	return nil
}

func (repo *rbacRepository) RemoveRole(_ context.Context, userID string, role rbac.Role) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	roles := repo.db.userRoles[userID]
	if len(roles) <= 1 {
		return rbac.ErrLastRole
	}
	delete(roles, role)
	return nil
}

func (repo *rbacRepository) QueryResources(_ context.Context) ([]rbac.Resource, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	resources := make([]rbac.Resource, 0, len(repo.db.resources))
	for _, res := range repo.db.resources {
		resources = append(resources, res)
	}
	sort.Slice(resources, func(i, j int) bool { return resources[i].Name < resources[j].Name })
	return resources, nil
}

func (repo *rbacRepository) QueryPermissions(_ context.Context) ([]rbac.Permission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	perms := make([]rbac.Permission, 0, len(repo.db.permissions))
	for k, allowed := range repo.db.permissions {
		perms = append(perms, rbac.Permission{Role: k.role, ResourceID: k.resourceID, Action: k.action, Allowed: allowed})
	}
	sort.Slice(perms, func(i, j int) bool {
		a, b := perms[i], perms[j]
		if a.ResourceID != b.ResourceID {
			return a.ResourceID < b.ResourceID
		}
		if a.Role != b.Role {
			return a.Role < b.Role
		}
		return a.Action < b.Action
	})
	return perms, nil
}

func (repo *rbacRepository) QueryResourcePermissions(_ context.Context, resourceName string, action rbac.Action) ([]rbac.Permission, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var perms []rbac.Permission
	for _, res := range repo.db.resources {
		if res.Name != resourceName {
			continue
		}
		for _, role := range rbac.AllRoles {
			if allowed, ok := repo.db.permissions[permKey{role, res.ID, action}]; ok {
				perms = append(perms, rbac.Permission{Role: role, ResourceID: res.ID, Action: action, Allowed: allowed})
			}
		}
	}
	return perms, nil
}

func (repo *rbacRepository) CreateResource(_ context.Context, res rbac.Resource, perms []rbac.Permission) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, r := range repo.db.resources {
		if r.Name == res.Name {
			return rbac.ErrResourceExists
		}
	}
	repo.db.resources[res.ID] = res
	for _, p := range perms {
		repo.db.permissions[permKey{p.Role, p.ResourceID, p.Action}] = p.Allowed
	}
	return nil
}

func (repo *rbacRepository) DeleteResource(_ context.Context, id string) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	delete(repo.db.resources, id)
	for k := range repo.db.permissions {
		if k.resourceID == id {
			delete(repo.db.permissions, k)
		}
	}
	return nil
}

func (repo *rbacRepository) UpsertPermission(_ context.Context, perm rbac.Permission) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.resources[perm.ResourceID]; !ok {
		return rbac.ErrResourceNotFound
	}
	repo.db.permissions[permKey{perm.Role, perm.ResourceID, perm.Action}] = perm.Allowed
	return nil
}
