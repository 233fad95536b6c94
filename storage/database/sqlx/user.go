package sqlxrepos

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/penahikmah/sekolah/core"
	"github.com/penahikmah/sekolah/core/rbac"
	"github.com/penahikmah/sekolah/core/user"
	"github.com/penahikmah/sekolah/storage/database"
)

type userRepository struct {
	db core.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db core.DB) *userRepository {
	return &userRepository{db: db}
}

var userConstraints = constraintErrs{
	"users_pkey":      user.ErrUserExists,
	"users_email_key": user.ErrUserExists,
}

// userRow is a user joined with its aggregated roles.
type userRow struct {
	user.User
	RoleNames pq.StringArray `db:"roles"`
}

func (row userRow) toUser() user.User {
	usr := row.User
	usr.Roles = make([]rbac.Role, 0, len(row.RoleNames))
	for _, name := range row.RoleNames {
		usr.Roles = append(usr.Roles, rbac.Role(name))
	}
	rbac.SortRoles(usr.Roles)
	return usr
}

const userSelect = `
	SELECT u.id, u.email, u.full_name, u.class, u.avatar_url, u.created_at,
		COALESCE(array_agg(ur.role) FILTER (WHERE ur.role IS NOT NULL), '{}') AS roles
	FROM users u
	LEFT JOIN user_roles ur ON ur.user_id = u.id`

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, role rbac.Role) (user.User, error) {
	err := database.WithTx(ctx, repo.db, func(tx *sqlx.Tx) error {
		_, err := tx.NamedExecContext(ctx, `
			INSERT INTO users (id, email, full_name, class, avatar_url, created_at)
			VALUES (:id, :email, :full_name, :class, :avatar_url, :created_at)`,
			usr)
		if err != nil {
			return trapErr(err, "inserting user", nil, userConstraints)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO user_roles (user_id, role) VALUES ($1, $2)`, usr.ID, role)
		return trapErr(err, "inserting user role", nil, nil)
	})
	if err != nil {
		return user.User{}, err
	}
	usr.Roles = []rbac.Role{role}
	return usr, nil
}

func (repo *userRepository) getUser(ctx context.Context, where string, arg interface{}) (user.User, error) {
	var row userRow
	err := repo.db.GetContext(ctx, &row, userSelect+` WHERE `+where+` GROUP BY u.id`, arg)
	if err != nil {
		return user.User{}, trapErr(err, "selecting user", user.ErrNotFound, nil)
	}
	return row.toUser(), nil
}

func (repo *userRepository) GetUserByID(ctx context.Context, id string) (user.User, error) {
	return repo.getUser(ctx, "u.id = $1", id)
}

func (repo *userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	return repo.getUser(ctx, "u.email = $1", email)
}

func (repo *userRepository) QueryUsers(ctx context.Context) ([]user.User, error) {
	var rows []userRow
	ord := core.DBOrdering{Field: "u.full_name", Ascending: true}
	if err := repo.db.SelectContext(ctx, &rows, userSelect+` GROUP BY u.id ORDER BY `+ord.String()); err != nil {
		return nil, trapErr(err, "selecting users", nil, nil)
	}
	users := make([]user.User, 0, len(rows))
	for _, row := range rows {
		users = append(users, row.toUser())
	}
	return users, nil
}
