package main

import (
	"context"
	"fmt"
	"time"

	echoapi "github.com/penahikmah/sekolah/apps/api/echo"
)

// token prints a JWT the API accepts for the user registered with email.
func (cli *commandLine) token(email, secret string, expiresIn time.Duration) error {
	usr, err := cli.usrSvc.GetByEmail(context.Background(), email)
	if err != nil {
		return err
	}
	claims := echoapi.GetUserClaims(usr, cli.conf.AppName, expiresIn)
	token, err := echoapi.GenerateToken(claims, secret)
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.out, token)
	return nil
}
