package main

import (
	"github.com/penahikmah/sekolah/core/rbac"
)

var demoAccounts = []struct {
	email, name string
	role        rbac.Role
}{
	{"superadmin@penahikmah.sch.id", "Super Admin", rbac.RoleSuperAdmin},
	{"admin@penahikmah.sch.id", "Admin Sekolah", rbac.RoleAdmin},
	{"guru@penahikmah.sch.id", "Guru Demo", rbac.RoleGuru},
	{"siswa@penahikmah.sch.id", "Siswa Demo", rbac.RoleSiswa},
}

// seed provisions one account per role. Running it again is a no-op.
func (cli *commandLine) seed() error {
	for _, acc := range demoAccounts {
		if err := cli.addUser(acc.email, acc.name, string(acc.role), ""); err != nil {
			return err
		}
	}
	return nil
}
