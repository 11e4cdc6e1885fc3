package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lk2023060901/vibe-remote/internal/conf"
	"github.com/lk2023060901/vibe-remote/internal/pkg/logger"
	"github.com/lk2023060901/vibe-remote/internal/transcript/service"
	"go.uber.org/zap"
)

// HTTPServer serves the local transcript mirror
type HTTPServer struct {
	server *http.Server
	logger *logger.Logger
}

// NewRouter builds the mirror routes
func NewRouter(log *logger.Logger, mirror *service.MirrorService) *gin.Engine {
	router := gin.New()
	router.Use(logger.GinRecovery(log))
	router.Use(logger.GinLoggerWithConfig(log, logger.MiddlewareOptions{
		SkipPaths: []string{"/health", "/api/v1/events"},
	}))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// API routes
	api := router.Group("/api/v1")
	mirror.RegisterRoutes(api)

	return router
}

func NewHTTPServer(config *conf.Config, log *logger.Logger, mirror *service.MirrorService) *HTTPServer {
	gin.SetMode(gin.ReleaseMode)

	return &HTTPServer{
		server: &http.Server{
			Addr:              config.Mirror.Addr(),
			Handler:           NewRouter(log, mirror),
			ReadHeaderTimeout: 10 * time.Second,
		},
		logger: log,
	}
}

// Addr returns the listen address
func (s *HTTPServer) Addr() string {
	return s.server.Addr
}

func (s *HTTPServer) Start() error {
	s.logger.Info("starting mirror server", zap.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *HTTPServer) Stop(ctx context.Context) error {
	s.logger.Info("stopping mirror server")
	return s.server.Shutdown(ctx)
}
