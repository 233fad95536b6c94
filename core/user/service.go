package user

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/penahikmah/sekolah/core"
	"github.com/penahikmah/sekolah/core/rbac"
)

type (
	Repository interface {
		// CreateUser stores usr together with its first role in one transaction.
		CreateUser(ctx context.Context, usr User, role rbac.Role) (User, error)
		GetUserByID(ctx context.Context, id string) (User, error)
		GetUserByEmail(ctx context.Context, email string) (User, error)
		// QueryUsers returns every user with its roles, ordered by full name.
		QueryUsers(ctx context.Context) ([]User, error)
	}

	Service struct {
		repo     Repository
		roles    rbac.Repository
		validate *validator.Validate
	}
)

func NewService(repo Repository, roles rbac.Repository, validate *validator.Validate) *Service {
	return &Service{repo: repo, roles: roles, validate: validate}
}

// List returns every user with email and roles. Admins only.
func (svc *Service) List(ctx context.Context, caller rbac.Caller) ([]User, error) {
	if err := rbac.RequireAdmin(caller.Roles); err != nil {
		return nil, err
	}
	users, err := svc.repo.QueryUsers(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "querying users")
	}
	return users, nil
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.GetUserByEmail(ctx, core.CleanString(email, true /* lower */))
}

// Provision creates a user holding nu.Role (siswa by default).
// When the email is already registered the role is assigned to the existing user instead.
// created reports whether a new user was stored.
func (svc *Service) Provision(ctx context.Context, nu NewUser) (usr User, created bool, err error) {
	nu.clean()
	if err = svc.validate.Struct(nu); err != nil {
		return User{}, false, err
	}

	usr, err = svc.repo.GetUserByEmail(ctx, nu.Email)
	switch {
	case err == nil:
		if err = svc.roles.AssignRole(ctx, usr.ID, nu.Role); err != nil {
			return User{}, false, errors.Wrap(err, "assigning role")
		}
		usr, err = svc.repo.GetUserByID(ctx, usr.ID)
		return usr, false, errors.Wrap(err, "getting user")
	case !core.IsNotFound(err):
		return User{}, false, errors.Wrap(err, "getting user by email")
	}

	id := nu.ID
	if id == "" {
		id = uuid.New().String()
	}
	usr = User{
		ID:        id,
		Email:     nu.Email,
		FullName:  nu.FullName,
		Class:     null.NewString(nu.Class, nu.Class != ""),
		CreatedAt: time.Now().UTC(),
	}
	usr, err = svc.repo.CreateUser(ctx, usr, nu.Role)
	if err != nil {
		return User{}, false, errors.Wrap(err, "creating user")
	}
	return usr, true, nil
}
