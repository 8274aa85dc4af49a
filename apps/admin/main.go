package main

import (
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
	"github.com/trezcool/shule/storage/database"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	// set up DB
	errAndDie(database.CreateIfNotExist(conf))
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	validate := validator.New()
	lang := en.New()
	translator, _ := ut.New(lang, lang).GetTranslator(lang.Locale())
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	schoolRepo := sqlxrepos.NewSchoolRepository(db)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), nil, conf, validate)
	tenantSvc := tenant.NewService(schoolRepo, nil, core.NewStdLogger(logger))
	profileSvc := profile.NewService(sqlxrepos.NewProfileRepository(db), usrSvc, tenantSvc, conf, core.NewStdLogger(logger))
	tenantSvc.SetBootstrapper(profileSvc)

	// start CLI
	cli := commandLine{
		db:        db,
		conf:      conf,
		usrSvc:    usrSvc,
		tenantSvc: tenantSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
