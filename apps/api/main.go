package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	echoapi "github.com/penahikmah/sekolah/apps/api/echo"
	"github.com/penahikmah/sekolah/core"
	"github.com/penahikmah/sekolah/core/quiz"
	"github.com/penahikmah/sekolah/core/rbac"
	"github.com/penahikmah/sekolah/core/school"
	"github.com/penahikmah/sekolah/core/user"
	emailsvc "github.com/penahikmah/sekolah/services/email"
	logsvc "github.com/penahikmah/sekolah/services/logger"
	metricsvc "github.com/penahikmah/sekolah/services/metrics"
	"github.com/penahikmah/sekolah/storage/database"
	inmemdb "github.com/penahikmah/sekolah/storage/database/inmem"
	sqlxrepos "github.com/penahikmah/sekolah/storage/database/sqlx"
)

// memoryEngine keeps every record in process memory; used for demos and local development.
const memoryEngine = "memory"

type repositories struct {
	rbac   rbac.Repository
	user   user.Repository
	school school.Repository
	quiz   quiz.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	local, err := logsvc.NewLogrus(conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	logger := logsvc.NewRollbarLogger(local, conf)
	logger.Enable(!conf.Debug)

	// set up DB
	repos, closeDB, err := setUpRepositories(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = closeDB(); err != nil {
			logger.Error("Failed to close DB", err)
		}
	}()

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	rbac.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	rbacSvc := rbac.NewService(repos.rbac, validate)
	usrSvc := user.NewService(repos.user, repos.rbac, validate)
	schoolSvc := school.NewService(repos.school, validate, conf)
	quizSvc := quiz.NewService(repos.quiz, validate, mailSvc)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.
	// /metrics - Prometheus metrics.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := metricsvc.NewMetrics(registry)
	http.Handle("/metrics", metricsvc.Handler(registry))

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:       conf,
			Logger:     logger,
			Metrics:    metrics,
			RBACSvc:    rbacSvc,
			UserSvc:    usrSvc,
			SchoolSvc:  schoolSvc,
			QuizSvc:    quizSvc,
			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpRepositories(conf *core.Config) (repositories, func() error, error) {
	if conf.Database.Engine == memoryEngine {
		db := inmemdb.NewDB()
		return repositories{
			rbac:   inmemdb.NewRBACRepository(db),
			user:   inmemdb.NewUserRepository(db),
			school: inmemdb.NewSchoolRepository(db),
			quiz:   inmemdb.NewQuizRepository(db),
		}, func() error { return nil }, nil
	}

	db, err := setUpDB(conf)
	if err != nil {
		return repositories{}, nil, err
	}
	return repositories{
		rbac:   sqlxrepos.NewRBACRepository(db),
		user:   sqlxrepos.NewUserRepository(db),
		school: sqlxrepos.NewSchoolRepository(db),
		quiz:   sqlxrepos.NewQuizRepository(db),
	}, db.Close, nil
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
