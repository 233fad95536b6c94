package inmemdb

import (
	"context"
	"sort"

	"github.com/penahikmah/sekolah/core/rbac"
	"github.com/penahikmah/sekolah/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

// withRoles must be called with the lock held.
func (repo *userRepository) withRoles(usr user.User) user.User {
	usr.Roles = repo.db.userRoles[usr.ID].Slice()
	return usr
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, role rbac.Role) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, u := range repo.db.users {
		if u.Email == usr.Email || u.ID == usr.ID {
			return user.User{}, user.ErrUserExists
		}
	}
	usr.Roles = nil
	repo.db.users[usr.ID] = usr
	repo.db.userRoles[usr.ID] = rbac.NewRoleSet(role)
	return repo.withRoles(usr), nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return repo.withRoles(usr), nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return repo.withRoles(usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) QueryUsers(_ context.Context) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		users = append(users, repo.withRoles(usr))
	}
	sort.Slice(users, func(i, j int) bool {
		if users[i].FullName == users[j].FullName {
			return users[i].Email < users[j].Email
		}
		return users[i].FullName < users[j].FullName
	})
	return users, nil
}
