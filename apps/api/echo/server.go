package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academics"
	"github.com/trezcool/shule/core/analytics"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/profile"
	"github.com/trezcool/shule/core/report"
	"github.com/trezcool/shule/core/tenant"
	"github.com/trezcool/shule/core/user"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		UserSvc        *user.Service
		TenantSvc      *tenant.Service
		ProfileSvc     *profile.Service
		AcademicsSvc   *academics.Service
		AttendanceSvc  *attendance.Service
		ReportSvc      *report.Service
		AnalyticsSvc   *analytics.Service
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		jwt      echo.MiddlewareFunc
		errs     chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		errs:     make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, syscall.SIGINT, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug
	s.app.HideBanner = true

	s.jwt = middleware.JWTWithConfig(newJWTConfig(conf))

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	registerAccountAPI(v1, s.jwt, s.deps)
	registerSchoolAPI(v1, s.jwt, s.deps)

	// every tenant-scoped route resolves its partition from the JWT claims
	tg := v1.Group("", s.jwt, tenantMiddleware(s.deps.TenantSvc))
	registerProfileAPI(tg, s.deps)
	registerAcademicsAPI(tg, s.deps)
	registerAttendanceAPI(tg, s.deps)
	registerReportAPI(tg, s.deps)
	registerAnalyticsAPI(tg, s.deps)
	registerParentAPI(tg, s.deps)
}

func (s *server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address()); err != nil && err != http.ErrServerClosed {
		s.errs <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error          { return s.app.Shutdown(ctx) }
func (s *server) Close() error                                { return s.app.Close() }
func (s *server) Errors() <-chan error                        { return s.errs }
func (s *server) ShutdownSignal() <-chan os.Signal            { return s.shutdown }
func (s *server) signalShutdown()                             { s.shutdown <- syscall.SIGTERM }
func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.app.ServeHTTP(w, r) } // for tests

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Shule API!")
}
