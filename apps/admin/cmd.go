package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"golang.org/x/term"

	"github.com/penahikmah/sekolah/core"
	"github.com/penahikmah/sekolah/core/rbac"
	"github.com/penahikmah/sekolah/core/user"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	conf   *core.Config
	db     *sqlx.DB
	usrSvc *user.Service
	out    io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, up-by-one, up-to, down, down-to, redo, reset, status, version, create, fix)")
	fmt.Fprintln(cli.out, "  adduser -email EMAIL -name NAME [-role ROLE] [-class CLASS] - provision a user or grant a role to an existing one")
	fmt.Fprintln(cli.out, "  seed - provision one demo account per role")
	fmt.Fprintln(cli.out, "  token -email EMAIL [-expires DURATION] - print a signed API token; the secret is prompted when not configured")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserCmd.SetOutput(cli.out)
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserName := addUserCmd.String("name", "", "The user's full name.")
	addUserRole := addUserCmd.String("role", string(rbac.DefaultRole), "One of super_admin, admin, guru, siswa.")
	addUserClass := addUserCmd.String("class", "", "The user's class (students).")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenCmd.SetOutput(cli.out)
	tokenEmail := tokenCmd.String("email", "", "The email of the user the token is issued to.")
	tokenExpires := tokenCmd.Duration("expires", 0, "How long the token is valid (defaults to the configured JWT expiration).")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *addUserEmail == "" || *addUserName == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserEmail, *addUserName, *addUserRole, *addUserClass)

	case "seed":
		return cli.seed()

	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenEmail == "" {
			tokenCmd.Usage()
			return errHelp
		}
		secret := cli.conf.JWTSecret
		if secret == "" {
			fmt.Fprint(cli.out, "Enter JWT secret:")
			pwd, err := readPasswordFunc(int(syscall.Stdin))
			fmt.Fprintln(cli.out)
			if err != nil {
				return err
			}
			if len(pwd) == 0 {
				tokenCmd.Usage()
				return errHelp
			}
			secret = string(pwd)
		}
		expires := *tokenExpires
		if expires <= 0 {
			expires = cli.conf.JWTExpirationDelta
		}
		if expires <= 0 {
			expires = 24 * time.Hour
		}
		return cli.token(*tokenEmail, secret, expires)

	default:
		cli.printUsage()
		return errHelp
	}
}
