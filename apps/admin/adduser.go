package main

import (
	"context"
	"fmt"

	"github.com/penahikmah/sekolah/core/rbac"
	"github.com/penahikmah/sekolah/core/user"
)

// addUser creates a user.User, or grants role to the user already registered with email.
func (cli *commandLine) addUser(email, name, role, class string) error {
	r, err := rbac.ParseRole(role)
	if err != nil {
		return err
	}
	usr, created, err := cli.usrSvc.Provision(context.Background(), user.NewUser{
		Email:    email,
		FullName: name,
		Class:    class,
		Role:     r,
	})
	if err != nil {
		return err
	}
	verb := "updated"
	if created {
		verb = "created"
	}
	fmt.Fprintf(cli.out, "%s %s (%s) roles=%v\n", verb, usr.Email, usr.ID, usr.Roles)
	return nil
}
