// Package server provides HTTP server initialization and lifecycle management.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"

	"statapi/src/app/http/handler"
	"statapi/src/app/middleware"
	"statapi/src/core/ports"
	"statapi/src/core/usecase"
	"statapi/src/infra/config"
	"statapi/src/infra/db"
	"statapi/src/infra/metrics"
)

// Server wraps the HTTP server and its dependencies.
type Server struct {
	cfg     *config.Config
	log     *slog.Logger
	router  *gin.Engine
	http    *http.Server
	dbs     *db.Registry
	metrics *metrics.Metrics

	// Handlers
	healthHandler *handler.HealthHandler
	leagueHandler *handler.LeagueHandler
}

// New creates a new Server with all dependencies wired up.
func New(cfg *config.Config, log *slog.Logger, dbs *db.Registry, m *metrics.Metrics, leagues ports.LeagueRepository) *Server {
	// Set Gin mode based on log level
	if cfg.Log.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router without default middleware
	router := gin.New()

	// Create services
	healthService := usecase.NewHealthService(dbs, log)
	leagueService := usecase.NewLeagueService(leagues, cfg.Database.Default, log)

	s := &Server{
		cfg:           cfg,
		log:           log,
		router:        router,
		dbs:           dbs,
		metrics:       m,
		healthHandler: handler.NewHealthHandler(healthService),
		leagueHandler: handler.NewLeagueHandler(leagueService),
	}

	s.setupMiddleware()
	s.setupRoutes()
	s.setupHTTPServer()

	return s
}

// setupMiddleware configures global middleware.
//
// Order matters. Lifecycle and Metrics wrap Recovery so they see the 500
// written after a panic. ConnectionScope is innermost so its deferred release
// runs before Recovery writes the response.
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Lifecycle(s.log))
	s.router.Use(middleware.Metrics(s.metrics))
	s.router.Use(middleware.Recovery(s.log))
	s.router.Use(middleware.CORS())
	s.router.Use(middleware.Errors(s.log))
	s.router.Use(middleware.ConnectionScope(s.dbs, s.log))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	index := handler.Index(s.cfg.Log.ServiceName)
	s.router.GET("/", index)
	s.router.GET("/index", index)

	s.router.GET("/health", s.healthHandler.Health)
	s.router.GET("/health/detailed", s.healthHandler.DetailedHealth)
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	// One group per configured database; the prefix selects the database.
	for _, name := range s.dbs.Names() {
		g := s.router.Group("/" + name)
		g.GET("/leagues", s.leagueHandler.List)
		g.GET("/leagues/:league_id", s.leagueHandler.Get)
		g.PUT("/leagues/:league_id/external_id", s.leagueHandler.Link)
	}

	api := s.router.Group("/api")
	api.GET("/get_leagues_api_new/", s.leagueHandler.Unlinked)

	// Handle 404
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": gin.H{
				"code":       "NOT_FOUND",
				"message":    "The requested resource was not found",
				"request_id": middleware.GetRequestID(c),
			},
		})
	})
}

// setupHTTPServer configures the underlying HTTP server.
func (s *Server) setupHTTPServer() {
	s.http = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
}

// Run starts the HTTP server and blocks until shutdown.
// It handles graceful shutdown on SIGINT/SIGTERM.
func (s *Server) Run() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)

	go func() {
		s.log.Info("starting HTTP server",
			"addr", s.cfg.Server.Addr(),
			"databases", s.dbs.Names(),
		)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case sig := <-quit:
		s.log.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		return err
	}

	return s.Shutdown()
}

// Shutdown gracefully stops the server. In-flight requests finish and
// release their connections before it returns.
func (s *Server) Shutdown() error {
	s.log.Info("shutting down server", "timeout", s.cfg.Server.ShutdownTimeout)

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}

	s.log.Info("server stopped gracefully")
	return nil
}

// Router returns the Gin router for testing.
func (s *Server) Router() *gin.Engine {
	return s.router
}
