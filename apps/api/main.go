package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	"github.com/pkg/errors"

	echoapi "github.com/trezcool/masomo-records/apps/api/echo"
	"github.com/trezcool/masomo-records/core"
	"github.com/trezcool/masomo-records/core/course"
	"github.com/trezcool/masomo-records/core/material"
	"github.com/trezcool/masomo-records/core/student"
	"github.com/trezcool/masomo-records/core/user"
	aisvc "github.com/trezcool/masomo-records/services/ai"
	emailsvc "github.com/trezcool/masomo-records/services/email"
	logsvc "github.com/trezcool/masomo-records/services/logger"
	"github.com/trezcool/masomo-records/storage/database"
	inmemdb "github.com/trezcool/masomo-records/storage/database/inmem"
	sqlxrepos "github.com/trezcool/masomo-records/storage/database/sqlx"
)

type repositories struct {
	users    user.Repository
	students student.Repository
	courses  course.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger, err := logsvc.NewRollbarLogger("API", conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}
	defer logger.Sync()

	dbLogger, err := logsvc.NewRollbarLogger("DB", conf)
	if err != nil {
		log.Fatalf("setting up DB logger: %v", err)
	}

	// set up DB
	repos, closeDB, err := setUpRepos(context.Background(), conf)
	if err != nil {
		logger.Fatal("setting up database", "error", err)
	}
	defer func() {
		if err = closeDB(); err != nil {
			dbLogger.Error("failed to close", "error", err)
		}
	}()

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	store, err := material.NewDiskStore(conf.Uploads.Root, conf.Uploads.AllowedExtensions, logger)
	if err != nil {
		logger.Fatal("setting up upload store", "error", err)
	}
	summarizer := material.NewSummarizer(
		aisvc.NewGeminiGenerator(logger),
		conf.AI.Model,
		conf.AI.GoogleAPIKey,
		conf.AI.Timeout,
		logger,
	)
	pipeline := material.NewPipeline(store, material.NewPDFExtractor(store.Fs(), logger), summarizer, logger)

	usrSvc := user.NewService(repos.users, mailSvc, conf)
	studentSvc := student.NewService(repos.students)
	courseSvc := course.NewService(repos.courses, studentSvc, store, pipeline, logger)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)

	if conf.AI.GoogleAPIKey == "" {
		logger.Warn("google api key not configured: pdf material will not be summarized")
	}

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error("debug server closed", "error", err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		StudentSvc: studentSvc,
		CourseSvc:  courseSvc,
		Store:      store,
		Validate:   validate,
		Translator: translator,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal("server error", "error", err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error("could not stop server gracefully", "error", err)

			if err = server.Close(); err != nil {
				logger.Fatal("could not force stop server", "error", err)
			}
		}
	}
}

// setUpRepos returns the repositories of the configured database engine, and a func closing it.
func setUpRepos(ctx context.Context, conf *core.Config) (repositories, func() error, error) {
	if conf.UsesMemoryDB() {
		db := inmemdb.Open()
		return repositories{
			users:    inmemdb.NewUserRepository(db),
			students: inmemdb.NewStudentRepository(db),
			courses:  inmemdb.NewCourseRepository(db),
		}, func() error { return nil }, nil
	}

	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return repositories{}, nil, errors.Wrap(err, "creating database")
	}
	db, err := database.Open(ctx, conf)
	if err != nil {
		return repositories{}, nil, errors.Wrap(err, "opening database")
	}
	if err = database.Migrate(ctx, db.DB, "up"); err != nil {
		_ = db.Close()
		return repositories{}, nil, err
	}
	return repositories{
		users:    sqlxrepos.NewUserRepository(db),
		students: sqlxrepos.NewStudentRepository(db),
		courses:  sqlxrepos.NewCourseRepository(db),
	}, db.Close, nil
}
