package testutil

import (
	"context"
	"io"
	"testing"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/penahikmah/sekolah/core"
	"github.com/penahikmah/sekolah/core/rbac"
	"github.com/penahikmah/sekolah/core/user"
	logsvc "github.com/penahikmah/sekolah/services/logger"
)

// JWTSecret signs the tokens of API tests.
const JWTSecret = "test-secret"

// NewConfig returns a TEST config without reading the environment.
func NewConfig() *core.Config {
	conf := &core.Config{
		Env:                "TEST",
		Build:              "test",
		TestMode:           true,
		AppName:            "Sekolah",
		FrontendBaseURL:    "http://localhost:5173",
		ImportMaxRows:      5,
		JWTSecret:          JWTSecret,
		JWTExpirationDelta: time.Hour,
	}
	conf.SetDefaultFromEmail("Sekolah <noreply@penahikmah.sch.id>")
	conf.Server.Address = ":0"
	conf.Server.ReadTimeout = 5 * time.Second
	conf.Server.WriteTimeout = 5 * time.Second
	conf.Server.AllowedOrigins = []string{"*"}
	conf.Database.Engine = "memory"
	conf.Log.Level = "error"
	return conf
}

// NewLogger returns a logger that reports nowhere.
func NewLogger(conf *core.Config) core.Logger {
	local := logrus.New()
	local.SetOutput(io.Discard)
	logger := logsvc.NewRollbarLogger(local, conf)
	logger.Enable(false)
	return logger
}

func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	rbac.InitValidators(validate, translator)
	return validate, translator
}

// CreateUser stores a user holding roles. The first role is given on creation.
func CreateUser(
	t *testing.T,
	usrRepo user.Repository,
	roleRepo rbac.Repository,
	name, email string,
	roles ...rbac.Role,
) user.User {
	if len(roles) == 0 {
		roles = []rbac.Role{rbac.DefaultRole}
	}
	ctx := context.Background()
	usr := user.User{
		ID:        uuid.New().String(),
		Email:     email,
		FullName:  name,
		CreatedAt: time.Now().UTC(),
	}
	usr, err := usrRepo.CreateUser(ctx, usr, roles[0])
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	for _, r := range roles[1:] {
		if err = roleRepo.AssignRole(ctx, usr.ID, r); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err = usrRepo.GetUserByID(ctx, usr.ID)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

// Caller builds the caller of usr as the API would resolve it.
func Caller(usr user.User) rbac.Caller {
	return rbac.Caller{ID: usr.ID, Email: usr.Email, Roles: rbac.NewRoleSet(usr.Roles...)}
}
