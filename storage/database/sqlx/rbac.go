package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/penahikmah/sekolah/core"
	"github.com/penahikmah/sekolah/core/rbac"
	"github.com/penahikmah/sekolah/storage/database"
)

type rbacRepository struct {
	db core.DB
}

var _ rbac.Repository = (*rbacRepository)(nil) // interface compliance check

func NewRBACRepository(db core.DB) *rbacRepository {
	return &rbacRepository{db: db}
}

var rbacConstraints = constraintErrs{
	"user_roles_user_id_fkey":           rbac.ErrUserNotFound,
	"role_permissions_resource_id_fkey": rbac.ErrResourceNotFound,
	"resources_name_key":                rbac.ErrResourceExists,
}

var byName = core.DBOrdering{Field: "name", Ascending: true}

func (repo *rbacRepository) GetUserRoles(ctx context.Context, userID string) ([]rbac.Role, error) {
	roles := make([]rbac.Role, 0, len(rbac.AllRoles))
	err := repo.db.SelectContext(ctx, &roles, `SELECT role FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, trapErr(err, "selecting user roles", nil, nil)
	}
	rbac.SortRoles(roles)
	return roles, nil
}

func (repo *rbacRepository) AssignRole(ctx context.Context, userID string, role rbac.Role) error {
	_, err := repo.db.ExecContext(ctx,
		`INSERT INTO user_roles (user_id, role) VALUES ($1, $2) ON CONFLICT (user_id, role) DO NOTHING`,
		userID, role)
	return trapErr(err, "inserting user role", nil, rbacConstraints)
}

func (repo *rbacRepository) RemoveRole(ctx context.Context, userID string, role rbac.Role) error {
	return database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		var roles []rbac.Role
		if err := tx.SelectContext(ctx, &roles,
			`SELECT role FROM user_roles WHERE user_id = $1 FOR UPDATE`, userID); err != nil {
			return trapErr(err, "locking user roles", nil, nil)
		}
		if len(roles) <= 1 {
			return rbac.ErrLastRole
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role = $2`, userID, role)
		return trapErr(err, "deleting user role", nil, nil)
	})
}

func (repo *rbacRepository) QueryResources(ctx context.Context) ([]rbac.Resource, error) {
	resources := make([]rbac.Resource, 0)
	err := repo.db.SelectContext(ctx, &resources,
		`SELECT id, name, description, created_at FROM resources ORDER BY `+byName.String())
	return resources, trapErr(err, "selecting resources", nil, nil)
}

func (repo *rbacRepository) QueryPermissions(ctx context.Context) ([]rbac.Permission, error) {
	perms := make([]rbac.Permission, 0)
	err := repo.db.SelectContext(ctx, &perms,
		`SELECT role, resource_id, action, allowed FROM role_permissions ORDER BY resource_id, role, action`)
	return perms, trapErr(err, "selecting permissions", nil, nil)
}

func (repo *rbacRepository) QueryResourcePermissions(ctx context.Context, resourceName string, action rbac.Action) ([]rbac.Permission, error) {
	perms := make([]rbac.Permission, 0, len(rbac.AllRoles))
	err := repo.db.SelectContext(ctx, &perms, `
		SELECT p.role, p.resource_id, p.action, p.allowed
		FROM role_permissions p
		JOIN resources r ON r.id = p.resource_id
		WHERE r.name = $1 AND p.action = $2`,
		resourceName, action)
	return perms, trapErr(err, "selecting resource permissions", nil, nil)
}

func (repo *rbacRepository) CreateResource(ctx context.Context, res rbac.Resource, perms []rbac.Permission) error {
	return database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx,
			`INSERT INTO resources (id, name, description, created_at) VALUES (:id, :name, :description, :created_at)`,
			res)
		if err != nil {
			return trapErr(err, "inserting resource", nil, rbacConstraints)
		}
		if len(perms) == 0 {
			return nil
		}
		_, err = tx.NamedExecContext(ctx,
			`INSERT INTO role_permissions (role, resource_id, action, allowed) VALUES (:role, :resource_id, :action, :allowed)`,
			perms)
		return trapErr(err, "inserting resource permissions", nil, rbacConstraints)
	})
}

func (repo *rbacRepository) DeleteResource(ctx context.Context, id string) error {
	_, err := repo.db.ExecContext(ctx, `DELETE FROM resources WHERE id = $1`, id)
	return trapErr(err, "deleting resource", nil, nil)
}

func (repo *rbacRepository) UpsertPermission(ctx context.Context, perm rbac.Permission) error {
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO role_permissions (role, resource_id, action, allowed) VALUES ($1, $2, $3, $4)
		ON CONFLICT (role, resource_id, action) DO UPDATE SET allowed = EXCLUDED.allowed`,
		perm.Role, perm.ResourceID, perm.Action, perm.Allowed)
	return trapErr(err, "upserting permission", nil, rbacConstraints)
}
