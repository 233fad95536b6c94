package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dgrijalva/jwt-go"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/penahikmah/sekolah/apps/api/echo"
	"github.com/penahikmah/sekolah/core/rbac"
	"github.com/penahikmah/sekolah/core/user"
	inmemdb "github.com/penahikmah/sekolah/storage/database/inmem"
	"github.com/penahikmah/sekolah/tests"
)

var (
	usrRepo  user.Repository
	roleRepo rbac.Repository
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := testutil.NewConfig()

	// set up DB & repos
	mockDB, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = mockDB.Close() })
	mem := inmemdb.NewDB()
	usrRepo = inmemdb.NewUserRepository(mem)
	roleRepo = inmemdb.NewRBACRepository(mem)
	validate, _ := testutil.NewValidator()

	// start CLI
	out := new(bytes.Buffer)
	return &commandLine{
		conf:   conf,
		db:     sqlx.NewDb(mockDB, "postgres"),
		usrSvc: user.NewService(usrRepo, roleRepo, validate),
		out:    out,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	wantAnyErr bool
	extra      interface{}
}

func checkRunErr(t *testing.T, tt cliTest, err error) {
	switch {
	case tt.wantErr != nil:
		if err != tt.wantErr {
			t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
		}
	case tt.wantAnyErr:
		if err == nil {
			t.Error("cli.run() expected an error")
		}
	case tt.wantErrStr != "":
		if err == nil || err.Error() != tt.wantErrStr {
			t.Errorf("cli.run() error = %v, wantErrStr %s", err, tt.wantErrStr)
		}
	case err != nil:
		t.Errorf("cli.run() unexpected error = %v", err)
	}
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	var gotDir string
	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		gotDir = dir
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "assignments", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, tt, cli.run(args))
		})
	}
	assert.Equal(t, "migrations", gotDir)
}

func Test_commandLine_addUser(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "no name", args: []string{"adduser", "-email", "ani@test.id"}, wantErr: errHelp},
		{name: "invalid role", args: []string{"adduser", "-email", "ani@test.id", "-name", "Ani", "-role", "lol"}, wantErr: rbac.ErrInvalidRole},
		{name: "invalid email", args: []string{"adduser", "-email", "lol", "-name", "Ani"}, wantAnyErr: true},
		{name: "create siswa", args: []string{"adduser", "-email", " ANI@test.id ", "-name", "Ani", "-class", "7A"}},
		{name: "grant guru", args: []string{"adduser", "-email", "ani@test.id", "-name", "Ani", "-role", "guru"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			checkRunErr(t, tt, cli.run(args))
		})
	}

	usr, err := usrRepo.GetUserByEmail(ctx, "ani@test.id")
	require.NoError(t, err)
	assert.Equal(t, "Ani", usr.FullName)
	assert.Equal(t, "7A", usr.Class.String)
	assert.Equal(t, []rbac.Role{rbac.RoleGuru, rbac.RoleSiswa}, usr.Roles)
	assert.Contains(t, out.String(), "created ani@test.id")
	assert.Contains(t, out.String(), "updated ani@test.id")
}

func Test_commandLine_seed(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		require.NoError(t, cli.run([]string{"admin", "seed"}))
	}

	users, err := usrRepo.QueryUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, len(demoAccounts))
	for _, acc := range demoAccounts {
		usr, err := usrRepo.GetUserByEmail(ctx, acc.email)
		require.NoError(t, err)
		assert.Equal(t, []rbac.Role{acc.role}, usr.Roles)
	}
}

func Test_commandLine_token(t *testing.T) {
	cli, out := setup(t)
	require.NoError(t, cli.run([]string{"admin", "adduser", "-email", "guru@test.id", "-name", "Guru", "-role", "guru"}))
	usr, err := usrRepo.GetUserByEmail(context.Background(), "guru@test.id")
	require.NoError(t, err)

	type extra struct {
		secret string
	}
	tests := []cliTest{
		{name: "no email", args: []string{"token"}, wantErr: errHelp},
		{name: "unknown user", args: []string{"token", "-email", "lol@test.id"}, wantErr: user.ErrNotFound},
		{name: "configured secret", args: []string{"token", "-email", "guru@test.id"}},
		{name: "prompted secret", args: []string{"token", "-email", "GURU@test.id", "-expires", "1h"}, extra: extra{secret: "prompted"}},
		{name: "empty prompted secret", args: []string{"token", "-email", "guru@test.id"}, extra: extra{}, wantErr: errHelp},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		cli.conf.JWTSecret = testutil.JWTSecret
		if _, ok := tt.extra.(extra); ok {
			cli.conf.JWTSecret = ""
		}
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.secret), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			out.Reset()
			err := cli.run(args)
			checkRunErr(t, tt, err)
			if err != nil {
				return
			}

			secret := testutil.JWTSecret
			if extra, ok := tt.extra.(extra); ok {
				secret = extra.secret
			}
			lines := strings.Split(strings.TrimSpace(out.String()), "\n")
			claims := new(echoapi.Claims)
			_, err = jwt.ParseWithClaims(lines[len(lines)-1], claims, func(*jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			require.NoError(t, err)
			assert.Equal(t, usr.ID, claims.Subject)
			assert.Equal(t, usr.Email, claims.Email)
		})
	}
}
