package rbac

import (
	"github.com/pkg/errors"

	"github.com/penahikmah/sekolah/core"
)

var (
	ErrInvalidRole      = core.NewValidationError(errors.New("invalid role"), core.FieldError{Field: "role", Error: "invalid role"})
	ErrLastRole         = core.NewValidationError(errors.New("Cannot remove last role"))
	ErrResourceExists   = core.NewValidationError(errors.New("a resource with this name already exists"), core.FieldError{Field: "name", Error: "a resource with this name already exists"})
	ErrResourceNotFound = core.NewNotFoundError("resource not found")
	ErrUserNotFound     = core.NewNotFoundError("user not found")
)

// ForbiddenError is returned when the caller's roles do not satisfy a guard.
type ForbiddenError struct {
	message string
}

func NewForbiddenError(msg string) error {
	return &ForbiddenError{message: msg}
}

func (e ForbiddenError) Error() string {
	return e.message
}

func IsForbidden(err error) bool {
	_, ok := errors.Cause(err).(*ForbiddenError)
	return ok
}
