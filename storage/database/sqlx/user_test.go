package sqlxrepos

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/penahikmah/sekolah/core/rbac"
	"github.com/penahikmah/sekolah/core/user"
)

var userColumns = []string{"id", "email", "full_name", "class", "avatar_url", "created_at", "roles"}

func TestGetUserByEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(`FROM users u\s+LEFT JOIN user_roles ur ON ur.user_id = u.id WHERE u.email = \$1 GROUP BY u.id`).
			WithArgs("guru@example.com").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(userID, "guru@example.com", "Bu Guru", nil, nil, now, []byte("{siswa,guru}")))

		usr, err := repo.GetUserByEmail(ctx, "guru@example.com")
		require.NoError(t, err)
		assert.Equal(t, user.User{
			ID:        userID,
			Email:     "guru@example.com",
			FullName:  "Bu Guru",
			CreatedAt: now,
			Roles:     []rbac.Role{rbac.RoleGuru, rbac.RoleSiswa},
		}, usr)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery(`WHERE u.email = \$1`).
			WithArgs("nobody@example.com").
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetUserByEmail(ctx, "nobody@example.com")
		assert.Equal(t, user.ErrNotFound, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestQueryUsers(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(`GROUP BY u.id ORDER BY u.full_name ASC`).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(userID, "a@example.com", "Ani", "7A", nil, now, []byte("{siswa}")).
			AddRow("0b1d7c5e-0a58-4f3c-8f5e-6a1b2c3d4e5f", "b@example.com", "Budi", nil, nil, now, []byte("{}")))

	users, err := repo.QueryUsers(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, null.StringFrom("7A"), users[0].Class)
	assert.Equal(t, []rbac.Role{rbac.RoleSiswa}, users[0].Roles)
	assert.Empty(t, users[1].Roles)
	assert.NotNil(t, users[1].Roles)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()
	usr := user.User{ID: userID, Email: "siswa@example.com", FullName: "Siswa", CreatedAt: time.Now().UTC()}

	t.Run("success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO users`).
			WithArgs(usr.ID, usr.Email, usr.FullName, usr.Class, usr.AvatarURL, usr.CreatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO user_roles \(user_id, role\) VALUES \(\$1, \$2\)`).
			WithArgs(usr.ID, rbac.RoleSiswa).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		got, err := repo.CreateUser(ctx, usr, rbac.RoleSiswa)
		require.NoError(t, err)
		assert.Equal(t, []rbac.Role{rbac.RoleSiswa}, got.Roles)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate email", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectExec(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: uniqueViolation, Constraint: "users_email_key"})
		mock.ExpectRollback()

		_, err := repo.CreateUser(ctx, usr, rbac.RoleSiswa)
		assert.Equal(t, user.ErrUserExists, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
