// Package api exposes the protocol derivation and versioning engine over
// HTTP for the provider-facing web application.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pbm-protocol-server/internal/domain"
	"github.com/pbm-protocol-server/internal/middleware"
)

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	log           *logrus.Logger
	catalog       domain.Catalog
	deriver       domain.Deriver
	adapter       domain.DeviceAdapter
	versioner     domain.Versioner
	store         domain.PlanStore
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(
	configManager domain.ConfigManager,
	logger *logrus.Logger,
	cat domain.Catalog,
	deriver domain.Deriver,
	adapter domain.DeviceAdapter,
	versioner domain.Versioner,
	store domain.PlanStore,
) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.SecurityHeaders())
	router.Use(gin.Recovery())
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		router.Use(limiter.Handler())
	}

	server := &Server{
		configManager: configManager,
		log:           logger,
		catalog:       cat,
		deriver:       deriver,
		adapter:       adapter,
		versioner:     versioner,
		store:         store,
		router:        router,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving on %s: %w", addr, err)
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.router.GET("/health", s.handleHealth)

	// API v1 routes
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/catalog/conditions", s.handleListConditions)
		v1.GET("/catalog/protocols", s.handleListProtocols)
		v1.POST("/derive", s.handleDerive)
		v1.POST("/clients/:clientId/plans", s.handleCreatePlan)
		v1.GET("/clients/:clientId/plans", s.handleListPlans)
		v1.POST("/clients/:clientId/plans/relabel", s.handleRelabel)
		v1.DELETE("/plans/:planId", s.handleDeletePlan)
	}
}

// handleHealth handles health check requests. The store probe is a cheap
// read so a wedged backend flips the report without blocking for long.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	health := "healthy"
	storeStatus := "reachable"
	if _, err := s.store.ClientIDs(ctx); err != nil {
		status = http.StatusServiceUnavailable
		health = "degraded"
		storeStatus = "unreachable"
	}

	c.JSON(status, gin.H{
		"status":    health,
		"timestamp": time.Now().UTC(),
		"catalog":   s.catalog.Version(),
		"store":     storeStatus,
	})
}

// statusForError maps the domain error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	switch domain.ErrorCode(err) {
	case domain.ErrCodeUnknownCondition,
		domain.ErrCodeUnknownProtocolID,
		domain.ErrCodeInvalidSelector,
		domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeDuplicateLabel,
		domain.ErrCodeLabelConflictUnresolved:
		return http.StatusConflict
	case domain.ErrCodeStoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes the structured error payload for err.
func (s *Server) respondError(c *gin.Context, err error) {
	requestID := c.GetString("correlation_id")
	code := domain.ErrorCode(err)
	status := statusForError(err)

	if status >= http.StatusInternalServerError {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"code":       code,
			"error":      err,
		}).Error("Request failed")
	}

	c.JSON(status, domain.NewServiceError(code, http.StatusText(status), err.Error(), requestID))
}
