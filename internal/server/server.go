package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/fakturnik/invoice-intake-service/internal/config"
	"github.com/fakturnik/invoice-intake-service/internal/handler"
	"github.com/fakturnik/invoice-intake-service/internal/middleware"
	"github.com/fakturnik/invoice-intake-service/internal/service"
)

// Handlers bundles the HTTP handlers the server exposes
type Handlers struct {
	Auth      *handler.AuthHandler
	Invoices  *handler.InvoiceHandler
	Documents *handler.DocumentHandler
	Reports   *handler.ReportHandler
}

// Server represents the HTTP admin surface of the intake service
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	config     *config.Config
	logger     *zap.Logger
}

// NewServer creates and configures a new server instance. All versioned
// routes sit behind JWT auth; only the health check, API docs and the token
// exchange are open.
func NewServer(cfg *config.Config, auth service.AuthService, handlers Handlers, logger *zap.Logger) *Server {
	if cfg.LogFormat != "pretty" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(middleware.RequestLogger(logger))

	server := &Server{
		router: router,
		config: cfg,
		logger: logger,
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
	}

	server.setupRoutes(auth, handlers)

	return server
}

// GetRouter returns the gin router instance
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// setupRoutes configures all application routes
func (s *Server) setupRoutes(auth service.AuthService, handlers Handlers) {
	// Health check endpoint
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})

	// API documentation endpoints
	// Access the Swagger UI at http://localhost:8080/api-docs/index.html
	swaggerHandler := ginSwagger.WrapHandler(swaggerFiles.Handler)
	s.router.GET("/api-docs/*any", swaggerHandler)

	s.router.GET("/api-docs", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/api-docs/index.html")
	})

	if handlers.Auth != nil {
		handlers.Auth.RegisterRoutes(s.router)
	}

	v1 := s.router.Group("/v1")
	v1.Use(middleware.AuthMiddleware(auth))
	if handlers.Invoices != nil {
		handlers.Invoices.RegisterRoutes(v1)
	}
	if handlers.Documents != nil {
		handlers.Documents.RegisterRoutes(v1)
	}
	if handlers.Reports != nil {
		handlers.Reports.RegisterRoutes(v1)
	}
}

// Run listens for requests until the context is cancelled, then shuts the
// server down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", zap.Int("port", s.config.Port))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("server exited gracefully")
	return nil
}
