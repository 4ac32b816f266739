// Package server exposes the stored deals over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dealio/dealio/internal/logger"
	"github.com/dealio/dealio/internal/metrics"
	"github.com/dealio/dealio/pkg/listing"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

const shutdownTimeout = 10 * time.Second

// Store is the read side of the persistence gateway.
type Store interface {
	TopDeals(ctx context.Context, limit int, minScore float64) ([]listing.Listing, error)
	Ping(ctx context.Context) bool
}

// Options configures a Server.
type Options struct {
	Port     int
	Gatherer prometheus.Gatherer
	Debug    bool
}

// Server provides the HTTP API.
type Server struct {
	router *gin.Engine
	store  Store
	logger logger.Logger
	port   int
	now    func() time.Time
}

// New creates a new HTTP server.
func New(s Store, log logger.Logger, opts Options) *Server {
	if opts.Port == 0 {
		opts.Port = 8000
	}
	if opts.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	srv := &Server{
		router: gin.New(),
		store:  s,
		logger: log,
		port:   opts.Port,
		now:    time.Now,
	}

	srv.router.Use(recoveryMiddleware(log), requestLogger(log), corsMiddleware())
	srv.routes(opts.Gatherer)
	return srv
}

func (s *Server) routes(g prometheus.Gatherer) {
	s.router.GET("/", s.handleRoot)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/test-db", s.handleTestDB)
	s.router.GET("/deals", s.handleDeals)
	s.router.GET("/deals/categories", s.handleCategories)
	s.router.GET("/metrics", gin.WrapH(metrics.Handler(g)))
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("dealio API listening", logger.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("serve %s: %w", httpServer.Addr, err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown server: %w", err)
	}
	s.logger.Info("dealio API stopped")
	return nil
}
