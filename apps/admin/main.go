package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/trezcool/masomo-records/core"
	"github.com/trezcool/masomo-records/core/course"
	"github.com/trezcool/masomo-records/core/material"
	"github.com/trezcool/masomo-records/core/student"
	"github.com/trezcool/masomo-records/core/user"
	aisvc "github.com/trezcool/masomo-records/services/ai"
	emailsvc "github.com/trezcool/masomo-records/services/email"
	logsvc "github.com/trezcool/masomo-records/services/logger"
	"github.com/trezcool/masomo-records/storage/database"
	sqlxrepos "github.com/trezcool/masomo-records/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger, err := logsvc.NewRollbarLogger("ADMIN", conf)
	if err != nil {
		log.Fatalf("setting up logger: %v", err)
	}

	code := 0
	if err := start(conf, logger); err != nil {
		if err != errHelp {
			fmt.Fprintf(os.Stderr, "\nerror: %s\n", err)
		}
		code = 1
	}
	logger.Sync()
	os.Exit(code)
}

func start(conf *core.Config, logger *logsvc.RollbarLogger) error {
	if conf.UsesMemoryDB() {
		return fmt.Errorf("the admin commands need a postgres database (got engine %q)", conf.Database.Engine)
	}

	// set up DB
	db, err := database.Open(context.Background(), conf)
	if err != nil {
		return err
	}
	defer db.Close()

	// set up services
	store, err := material.NewDiskStore(conf.Uploads.Root, conf.Uploads.AllowedExtensions, logger)
	if err != nil {
		return err
	}
	summarizer := material.NewSummarizer(aisvc.NewGeminiGenerator(logger), conf.AI.Model, conf.AI.GoogleAPIKey, conf.AI.Timeout, logger)
	pipeline := material.NewPipeline(store, material.NewPDFExtractor(store.Fs(), logger), summarizer, logger)

	translator := core.NewTranslator()
	validate := core.NewValidator(translator)
	user.InitValidators(validate, translator)

	// start CLI
	cli := commandLine{
		db:        db.DB,
		usrSvc:    user.NewService(sqlxrepos.NewUserRepository(db), emailsvc.NewConsoleService(conf, logger), conf),
		courseSvc: course.NewService(sqlxrepos.NewCourseRepository(db), student.NewService(sqlxrepos.NewStudentRepository(db)), store, pipeline, logger),
		validate:  validate,
		out:       os.Stdout,
	}
	return cli.run(os.Args)
}
