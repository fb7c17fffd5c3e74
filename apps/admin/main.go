package main

import (
	"database/sql"
	"fmt"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/paymentplan"
	"github.com/trezcool/masomo-admin/services/backend"
	emailsvc "github.com/trezcool/masomo-admin/services/email"
	logsvc "github.com/trezcool/masomo-admin/services/logger"
	"github.com/trezcool/masomo-admin/storage/database"
	inmemdb "github.com/trezcool/masomo-admin/storage/database/inmem"
	sqlxrepos "github.com/trezcool/masomo-admin/storage/database/sqlx"
)

var logger *logrus.Logger

func main() {
	conf := core.NewConfig()
	logger = logsvc.NewStdLogger(os.Stderr, conf)

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	paymentplan.InitValidators(validate, translator)

	cli := commandLine{conf: conf, validate: validate, out: os.Stdout}

	var repo paymentplan.Repository
	switch conf.StorageDriver {
	case core.StoragePostgres:
		db, err := database.Open(conf)
		errAndDie(err)
		defer db.Close()
		errAndDie(db.Ping())
		cli.db = db
		repo = sqlxrepos.NewPlanRepository(sqlx.NewDb(db, conf.Database.Engine))
	case core.StorageBackend:
		if conf.Backend.Token == "" && needsStorage(os.Args) {
			token, err := promptToken(os.Stdout)
			errAndDie(err)
			conf.Backend.Token = token
		}
		repo = backend.NewClient(conf, core.NopLogger{})
	default:
		repo = inmemdb.NewPlanRepository(inmemdb.NewDB())
	}

	core.ParseEmailTemplates(core.NopLogger{}, false)
	mailSvc := emailsvc.NewConsoleService(conf, core.NopLogger{})
	cli.planSvc = paymentplan.NewService(repo, inmemdb.NewDraftStore(inmemdb.NewDB()), mailSvc, core.NopLogger{}, conf)

	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			printError(err, translator)
		}
		closeAndExit(cli.db, 1)
	}
}

func printError(err error, translator ut.Translator) {
	if vErrs, ok := errors.Cause(err).(validator.ValidationErrors); ok {
		for _, fErr := range core.TranslateErrors(vErrs, translator) {
			logger.Errorf("%s: %s", fErr.Field, fErr.Error)
		}
		return
	}
	if vErr, ok := core.AsValidationError(err); ok && len(vErr.Fields) > 0 {
		for fld, msg := range vErr.FieldMap() {
			logger.Errorf("%s: %s", fld, msg)
		}
		return
	}
	logger.Error(fmt.Sprintf("error: %s", err))
}

// closeAndExit closes the database before exiting: deferred calls do not run on os.Exit.
func closeAndExit(db *sql.DB, code int) {
	if db != nil {
		_ = db.Close()
	}
	os.Exit(code)
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
