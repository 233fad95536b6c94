package user

import (
	"time"

	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/penahikmah/sekolah/core"
	"github.com/penahikmah/sekolah/core/rbac"
)

var ErrNotFound = core.NewNotFoundError("user not found")

// User is an account profile along with the roles it holds.
type User struct {
	ID        string      `json:"user_id" db:"id"`
	Email     string      `json:"email" db:"email"`
	FullName  string      `json:"full_name" db:"full_name"`
	Class     null.String `json:"class" db:"class"`
	AvatarURL null.String `json:"avatar_url" db:"avatar_url"`
	CreatedAt time.Time   `json:"created_at" db:"created_at"` // UTC
	Roles     []rbac.Role `json:"roles" db:"-"`
}

// NewUser contains information needed to provision a User.
// ID is the identity provider's subject; a new one is generated when empty.
type NewUser struct {
	ID       string    `json:"id" validate:"omitempty,uuid"`
	Email    string    `json:"email" validate:"required,email"`
	FullName string    `json:"full_name" validate:"required,notblank"`
	Class    string    `json:"class"`
	Role     rbac.Role `json:"role" validate:"omitempty,role"`
}

func (nu *NewUser) clean() {
	nu.Email = core.CleanString(nu.Email, true /* lower */)
	nu.FullName = core.CleanString(nu.FullName)
	nu.Class = core.CleanString(nu.Class)
	if nu.Role == "" {
		nu.Role = rbac.DefaultRole
	}
}

var ErrUserExists = core.NewValidationError(
	errors.New("a user with this email already exists"),
	core.FieldError{Field: "email", Error: "a user with this email already exists"},
)
