package rbac

import (
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/penahikmah/sekolah/core"
)

var (
	roleTag  = "role"
	roleText = "{0} must be one of super_admin, admin, guru, siswa"

	actionTag  = "action"
	actionText = "{0} must be one of create, read, update, delete"
)

func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(roleTag, roleValidation)
	core.RegisterCustomTranslation(validate, translator, roleTag, roleText)

	_ = validate.RegisterValidation(actionTag, actionValidation)
	core.RegisterCustomTranslation(validate, translator, actionTag, actionText)
}

func roleValidation(fl validator.FieldLevel) bool {
	return Role(fl.Field().String()).Valid()
}

func actionValidation(fl validator.FieldLevel) bool {
	return Action(fl.Field().String()).Valid()
}
