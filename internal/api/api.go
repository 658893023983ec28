package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/zippdf/zippdf/internal/api/handler"
	"github.com/zippdf/zippdf/internal/config"
)

type Server struct {
	cfg       *config.Config
	ginEngine *gin.Engine
	server    *http.Server
}

// New creates the status API server. Routes are registered right away.
func New(cfg *config.Config, status handler.StatusProvider, debug bool) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if status == nil {
		return nil, fmt.Errorf("status provider is required")
	}

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ginEngine := gin.New()
	ginEngine.Use(gin.Recovery(), requestLogger(), gzip.Gzip(gzip.DefaultCompression))

	s := &Server{
		cfg:       cfg,
		ginEngine: ginEngine,
		server: &http.Server{
			Addr:              cfg.Listen,
			Handler:           ginEngine,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
	s.setupRoutes(handler.New(status))
	return s, nil
}

func (s *Server) setupRoutes(h *handler.Handler) {
	s.ginEngine.GET("/healthz", h.Health)

	api := s.ginEngine.Group("/api")
	api.GET("/stats", h.Stats)
	api.GET("/jobs", h.Jobs)
	api.GET("/jobs/:id", h.Job)
}

// Handler returns the http handler of the server.
func (s *Server) Handler() http.Handler {
	return s.ginEngine
}

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	log.Info("Starting status API", "listen", s.cfg.Listen)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func requestLogger() gin.HandlerFunc {
	logger := log.WithPrefix("api")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("Request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
