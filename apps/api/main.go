package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	echoapi "github.com/trezcool/shule/apps/api/echo"
	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academics"
	"github.com/trezcool/shule/core/analytics"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
	emailsvc "github.com/trezcool/shule/services/email"
	logsvc "github.com/trezcool/shule/services/logger"
	"github.com/trezcool/shule/storage/database"
	sqlxrepos "github.com/trezcool/shule/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading config: %+v", err)
	}

	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() { _ = db.Close() }()

	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	schoolRepo := sqlxrepos.NewSchoolRepository(db)
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, conf, validate)
	tenantSvc := tenant.NewService(schoolRepo, nil, logger)
	profileSvc := profile.NewService(sqlxrepos.NewProfileRepository(db), usrSvc, tenantSvc, conf, logger)
	tenantSvc.SetBootstrapper(profileSvc)

	academicsSvc := academics.NewService(sqlxrepos.NewAcademicsRepository(db))
	attendanceSvc := attendance.NewService(sqlxrepos.NewAttendanceRepository(db), profileSvc)
	reportSvc := report.NewService(sqlxrepos.NewReportRepository(db), profileSvc)
	analyticsSvc := analytics.NewService(profileSvc, attendanceSvc, reportSvc)

	if err := ensurePublicTenant(context.Background(), tenantSvc); err != nil {
		logger.Fatal(fmt.Sprintf("ensuring public tenant: %v", err), err)
	}

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(echoapi.ServerDeps{
		Conf:          conf,
		Logger:        logger,
		UserSvc:       usrSvc,
		TenantSvc:     tenantSvc,
		ProfileSvc:    profileSvc,
		AcademicsSvc:  academicsSvc,
		AttendanceSvc: attendanceSvc,
		ReportSvc:     reportSvc,
		AnalyticsSvc:  analyticsSvc,
		Validate:      validate,
		Translator:    translator,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}

// ensurePublicTenant registers the shared Public tenant on first boot.
func ensurePublicTenant(ctx context.Context, tenants *tenant.Service) error {
	if _, err := tenants.Resolve(ctx, tenant.PublicName); err == nil {
		return nil
	} else if errors.Cause(err) != tenant.ErrNotFound {
		return err
	}
	_, err := tenants.Create(ctx, tenant.NewSchool{Name: tenant.PublicName})
	return err
}

func newTranslator() ut.Translator {
	lang := en.New()
	translator, _ := ut.New(lang, lang).GetTranslator("en")
	return translator
}
