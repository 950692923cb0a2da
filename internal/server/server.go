package server

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/rs/zerolog"

	"github.com/akave-ai/consultlog/internal/auth"
	"github.com/akave-ai/consultlog/internal/config"
	"github.com/akave-ai/consultlog/internal/handler"
	"github.com/akave-ai/consultlog/internal/intake"
	"github.com/akave-ai/consultlog/internal/storage"
	"github.com/akave-ai/consultlog/internal/store"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the server routes requests to.
type Deps struct {
	Store    *store.Store
	Archiver *storage.Archiver // optional
	NewRelic *newrelic.Application
	Logger   zerolog.Logger
}

// Server holds the Echo apps and dependencies.
type Server struct {
	Echo *echo.Echo
	// Admin serves only the viewer on server.admin_listen; nil when unset.
	Admin  *echo.Echo
	Config *config.Config
	logger zerolog.Logger
}

// New builds the Echo server and registers routes.
func New(cfg *config.Config, deps Deps) *Server {
	logger := deps.Logger.With().Str("component", "server").Logger()
	verifier := auth.NewVerifier(cfg.Admin)
	requireAdmin := auth.Middleware(verifier, logger)

	e := newEcho(cfg, deps, logger)

	contact := intake.NewHandler(deps.Store, deps.Logger)
	e.POST("/api/contact", contact.Submit)

	mountAdmin(e, "/admin", &handler.AdminHandler{
		Reader:   deps.Store,
		Archiver: deps.Archiver,
		Logger:   deps.Logger,
		BasePath: "/admin",
	}, requireAdmin)

	if err := cfg.CheckStaticDir(); err != nil {
		logger.Error().Err(err).Msg("static site disabled")
	} else if dir := cfg.Server.StaticDir; dir != "" {
		index := cfg.Server.IndexFile
		if index == "" {
			index = "Index.html"
		}
		// Static also claims "/", so the index route must be added after it.
		e.Static("/", dir)
		e.GET("/", func(c echo.Context) error {
			return c.File(filepath.Join(dir, index))
		})
	}

	s := &Server{Echo: e, Config: cfg, logger: logger}

	if cfg.Server.AdminListen != "" {
		a := newEcho(cfg, deps, logger)
		mountAdmin(a, "", &handler.AdminHandler{
			Reader:   deps.Store,
			Archiver: deps.Archiver,
			Logger:   deps.Logger,
			BasePath: "",
		}, requireAdmin)
		s.Admin = a
	}

	logger.Info().
		Bool("archive_enabled", deps.Archiver != nil).
		Bool("new_relic", deps.NewRelic != nil).
		Str("static_dir", cfg.Server.StaticDir).
		Msg("routes registered")
	return s
}

func newEcho(cfg *config.Config, deps Deps, logger zerolog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Server.ReadTimeout = time.Duration(cfg.Server.ReadTimeout) * time.Second
	e.Server.WriteTimeout = time.Duration(cfg.Server.WriteTimeout) * time.Second
	e.Server.IdleTimeout = time.Duration(cfg.Server.IdleTimeout) * time.Second

	e.Use(
		middleware.Recover(),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}),
		requestLogger(logger),
		middleware.CORSWithConfig(middleware.CORSConfig{AllowOrigins: cfg.Server.CORSAllowedOrigins}),
	)
	if deps.NewRelic != nil {
		e.Use(newRelicTransactions(deps.NewRelic))
	}
	return e
}

// mountAdmin registers the viewer routes under prefix, all behind requireAdmin.
func mountAdmin(e *echo.Echo, prefix string, h *handler.AdminHandler, requireAdmin echo.MiddlewareFunc) {
	prefix = strings.TrimSuffix(prefix, "/")
	root := prefix
	if root == "" {
		root = "/"
	}
	e.GET(root, h.Dashboard, requireAdmin)
	e.GET(prefix+"/records", h.Records, requireAdmin)
	e.GET(prefix+"/download", h.Download, requireAdmin)
	e.POST(prefix+"/archive", h.Archive, requireAdmin)
	e.GET(prefix+"/archives", h.Archives, requireAdmin)
	e.GET(prefix+"/archives/*", h.ArchiveContent, requireAdmin)
}

// Start serves HTTP until ctx is cancelled or a listener fails, then shuts
// both listeners down.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 2)
	addr := ":" + s.Config.Server.Port
	go func() { errCh <- listen(s.Echo, addr) }()
	s.logger.Info().Str("addr", addr).Msg("listening")

	if s.Admin != nil {
		go func() { errCh <- listen(s.Admin, s.Config.Server.AdminListen) }()
		s.logger.Info().Str("addr", s.Config.Server.AdminListen).Msg("admin viewer listening")
	}

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return s.Shutdown(shutdownCtx)
	case err := <-errCh:
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(err, s.Shutdown(shutdownCtx))
	}
}

func listen(e *echo.Echo, addr string) error {
	if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the listeners.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.Admin != nil {
		errs = append(errs, s.Admin.Shutdown(ctx))
	}
	errs = append(errs, s.Echo.Shutdown(ctx))
	return errors.Join(errs...)
}
