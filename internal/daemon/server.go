package daemon

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/hiershare/hiershare/internal/common"
	"github.com/hiershare/hiershare/internal/config"
	"github.com/hiershare/hiershare/internal/models"
	"github.com/hiershare/hiershare/internal/store"
)

// Authorizer is the relationship store the gateway consults for every
// permission decision. *fga.Authorizer is the production implementation.
type Authorizer interface {
	CheckPermission(ctx context.Context, userID, relation string, object models.ObjectRef) (bool, error)
	ListObjectsForUser(ctx context.Context, userID, relation, objectType string) ([]string, error)
	Grant(ctx context.Context, grants ...models.Grant) error
	Revoke(ctx context.Context, grants ...models.Grant) error
	RemoveObjectTuples(ctx context.Context, object models.ObjectRef) error
}

// HealthProbe reports whether the authorization server is reachable.
// *client.OpenFGAClient satisfies it.
type HealthProbe interface {
	Healthz(ctx context.Context) error
}

// Server is the HTTP daemon fronting the resource store and the
// authorization server.
type Server struct {
	config     *config.Config
	authorizer Authorizer
	resources  store.ResourceStore
	probe      HealthProbe

	decisions *DecisionCache
	limiter   *RateLimiter

	router *gin.Engine
	server *http.Server

	startTime time.Time

	totalRequests  int64
	checkRequests  int64
	deniedRequests int64
}

// NewServer creates a new gateway server. The probe may be nil, in which
// case the health endpoint skips the authorization server check.
func NewServer(cfg *config.Config, authorizer Authorizer, resources store.ResourceStore, probe HealthProbe) *Server {
	return &Server{
		config:     cfg,
		authorizer: authorizer,
		resources:  resources,
		probe:      probe,
		decisions:  NewDecisionCache(cfg.Authz.CacheTTL),
		limiter:    NewRateLimiter(cfg.Server.Limits.RequestsPerMinute, cfg.Server.Limits.Burst),
		startTime:  time.Now(),
	}
}

// Start starts the HTTP server. It returns once the listener is accepting
// connections or fails to bind.
func (s *Server) Start() error {
	if s.config.Profile != "dev" {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()
	s.router.Use(gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logrus.WithField("panic", recovered).Error("Recovered from panic in handler")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Internal Server Error",
			"message": "An unexpected error occurred",
		})
		c.Abort()
	}))

	s.router.Use(CorrelationMiddleware())
	s.router.Use(s.countRequests())
	s.router.Use(RateLimitMiddleware(s.limiter))

	corsCfg := s.config.Server.Security.CORS
	s.router.Use(cors.New(cors.Config{
		AllowOrigins: corsCfg.AllowedOrigins,
		AllowMethods: corsCfg.AllowedMethods,
		AllowHeaders: corsCfg.AllowedHeaders,
		MaxAge:       time.Duration(corsCfg.MaxAge) * time.Second,
	}))

	s.setupRoutes()

	addr := s.config.GetListenAddr()
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.Server.Limits.ReadTimeout,
		WriteTimeout: s.config.Server.Limits.WriteTimeout,
		IdleTimeout:  s.config.Server.Limits.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		logrus.WithField("addr", addr).Info("Starting gateway server")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("failed to start server on %s: %w", addr, err)
	case <-time.After(250 * time.Millisecond):
		return nil
	}
}

// Stop gracefully shuts down the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	s.limiter.Close()
	if s.server == nil {
		return nil
	}
	logrus.Info("Shutting down gateway server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the configured router, used by tests.
func (s *Server) Handler() http.Handler {
	if s.router == nil {
		s.router = gin.New()
		s.setupRoutes()
	}
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/", s.rootHandler)

	if s.config.Server.Health.Enabled {
		s.router.GET(s.config.Server.Health.Path, s.healthHandler)
	}
	if s.config.Server.Ready.Enabled {
		s.router.GET(s.config.Server.Ready.Path, s.readyHandler)
	}
	if s.config.Server.Metrics.Enabled {
		s.router.GET(s.config.Server.Metrics.Path, s.metricsHandler)
	}

	api := s.router.Group(s.config.GetApiBasePath())
	api.Use(UserMiddleware())
	{
		api.POST("/resource/:service/:type/:org/:name", s.createResource)
		api.GET("/resource/:service/:type/:org/:name", s.getResource)
		api.PUT("/resource/:service/:type/:org/:name", s.updateResource)
		api.DELETE("/resource/:service/:type/:org/:name", s.deleteResource)

		api.GET("/resources", s.listResources)
		api.GET("/shared", s.sharedResources)

		api.POST("/share", s.createShare)
		api.DELETE("/share", s.deleteShare)

		api.GET("/logs", s.logsHandler)
	}
}

func (s *Server) countRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		atomic.AddInt64(&s.totalRequests, 1)
		c.Next()
	}
}

// checkPermission runs a permission check through the decision cache,
// keeping the request counters up to date.
func (s *Server) checkPermission(ctx context.Context, userID, relation string, object models.ObjectRef) (bool, error) {
	atomic.AddInt64(&s.checkRequests, 1)

	if s.decisions.Get(userID, relation, object.String()) {
		return true, nil
	}

	allowed, err := s.authorizer.CheckPermission(ctx, userID, relation, object)
	if err != nil {
		return false, err
	}

	if allowed {
		s.decisions.Add(userID, relation, object.String())
	} else {
		atomic.AddInt64(&s.deniedRequests, 1)
	}
	return allowed, nil
}

func (s *Server) rootHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"service": "hiershare-gateway",
		"message": "Hierarchical resource sharing gateway",
	})
}

func (s *Server) healthHandler(c *gin.Context) {
	services := make(map[string]models.HealthState)
	status := models.HealthStatusHealthy

	if s.probe != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()
		if err := s.probe.Healthz(ctx); err != nil {
			services["openfga"] = models.HealthStatusUnhealthy
			status = models.HealthStatusDegraded
		} else {
			services["openfga"] = models.HealthStatusHealthy
		}
	}

	if s.resources != nil {
		if err := s.resources.Ping(c.Request.Context()); err != nil {
			services["store"] = models.HealthStatusUnhealthy
			status = models.HealthStatusUnhealthy
		} else {
			services["store"] = models.HealthStatusHealthy
		}
	}

	code := http.StatusOK
	if status == models.HealthStatusUnhealthy {
		code = http.StatusServiceUnavailable
	}

	c.JSON(code, models.HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Version:   common.GetVersion(),
		Profile:   s.config.Profile,
		Services:  services,
	})
}

func (s *Server) readyHandler(c *gin.Context) {
	if s.resources != nil {
		if err := s.resources.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"ready": true})
}

func (s *Server) metricsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, models.MetricsInfo{
		Uptime:          time.Since(s.startTime).Round(time.Second).String(),
		TotalRequests:   atomic.LoadInt64(&s.totalRequests),
		CheckRequests:   atomic.LoadInt64(&s.checkRequests),
		DeniedRequests:  atomic.LoadInt64(&s.deniedRequests),
		TrackedClients:  s.limiter.TrackedClients(),
		CachedDecisions: s.decisions.Len(),
	})
}

func (s *Server) logsHandler(c *gin.Context) {
	count := 100
	if raw := c.Query("count"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			count = parsed
		}
	}

	logger := s.config.GetLogger()
	if logger == nil {
		c.JSON(http.StatusOK, gin.H{"logs": []models.LogEntry{}})
		return
	}

	c.JSON(http.StatusOK, gin.H{"logs": logger.GetRecentEvents(count)})
}
