package main

import (
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/penahikmah/sekolah/core"
	"github.com/penahikmah/sekolah/core/rbac"
	"github.com/penahikmah/sekolah/core/user"
	logsvc "github.com/penahikmah/sekolah/services/logger"
	"github.com/penahikmah/sekolah/storage/database"
	sqlxrepos "github.com/penahikmah/sekolah/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	logger, err := logsvc.NewLogrus(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	entry := logger.WithField("app", "ADMIN")

	// set up DB
	if err = database.CreateIfNotExist(conf); err != nil {
		entry.WithError(err).Fatal("creating database")
	}
	db, err := database.Open(conf)
	if err != nil {
		entry.WithError(err).Fatal("opening database")
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	rbac.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		conf:   conf,
		db:     db,
		usrSvc: user.NewService(sqlxrepos.NewUserRepository(db), sqlxrepos.NewRBACRepository(db), validate),
		out:    os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			entry.WithError(err).Error("command failed")
		}
		os.Exit(1)
	}
}
