package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"leaderwatch/pkg/api/middleware"
	"leaderwatch/pkg/cluster"
)

// Server exposes the tracked leader address over HTTP, for cluster members
// and operators that prefer a query surface over linking the cache directly.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	log        *zap.Logger

	cache   *cluster.MasterAddressCache
	backend string
}

// Config holds API server configuration.
type Config struct {
	Port    string
	Cache   *cluster.MasterAddressCache
	Backend string
	Tracing bool
	Log     *zap.Logger
}

// NewServer creates a new API server with all dependencies.
func NewServer(cfg Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	if cfg.Tracing {
		router.Use(middleware.TracingMiddleware("leaderwatch"))
	}

	s := &Server{
		router:  router,
		log:     cfg.Log.Named("api"),
		cache:   cfg.Cache,
		backend: cfg.Backend,
	}
	router.Use(s.requestLogger())

	s.registerRoutes()

	s.httpServer = &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.log.Info("starting server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("shutting down server")
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// registerRoutes sets up all API endpoints.
func (s *Server) registerRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.router.Group("/api/v1")
	{
		clusterGroup := v1.Group("/cluster")
		{
			clusterGroup.GET("/leader", s.getLeader)
			clusterGroup.GET("/leader/wait", s.waitLeader)
		}
	}
}

// healthCheck returns server health status.
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"backend": s.backend,
		"leader":  s.cache.HasLeader(),
	})
}

// requestLogger is a middleware that logs HTTP requests.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		s.log.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString("request_id")),
		)
	}
}
