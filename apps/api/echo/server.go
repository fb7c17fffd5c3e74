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

	"github.com/trezcool/masomo-admin/core"
	"github.com/trezcool/masomo-admin/core/paymentplan"
	"github.com/trezcool/masomo-admin/core/report"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		PlanSvc    paymentplan.ServiceInterface
		ReportSvc  report.ServiceInterface
		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server struct {
		ServerDeps
		app      *echo.Echo
		jwt      middleware.JWTConfig
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		ServerDeps: deps,
		app:        echo.New(),
		jwt:        newJWTConfig(deps.Conf),
		errors:     make(chan error, 1),
		shutdown:   make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.Conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(s.Conf.Debug || s.Conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.Logger, s.Translator, s.signalShutdown)
	s.app.Debug = s.Conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(s.jwt)

	registerPlanAPI(v1, jwt, s.PlanSvc, s.Validate)
	registerDraftAPI(v1, jwt, s.PlanSvc, s.Validate)
	registerReportAPI(v1, jwt, s.ReportSvc, s.Validate)
}

func (s *Server) signalShutdown() {
	s.shutdown <- syscall.SIGTERM
}

// Start listens until the server is shut down; unexpected failures are sent to Errors().
func (s *Server) Start() {
	if err := s.app.Start(s.Conf.Server.Addr); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error { return s.errors }

func (s *Server) ShutdownSignal() <-chan os.Signal { return s.shutdown }

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Masomo Admin API!")
}
