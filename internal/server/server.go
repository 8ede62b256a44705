package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/aman-churiwal/redaction-gateway/internal/config"
	"github.com/aman-churiwal/redaction-gateway/internal/handler"
	"github.com/aman-churiwal/redaction-gateway/internal/middleware"
	"github.com/aman-churiwal/redaction-gateway/internal/ratelimit"
	"github.com/aman-churiwal/redaction-gateway/internal/redactor"
	"github.com/aman-churiwal/redaction-gateway/internal/repository"
	"github.com/aman-churiwal/redaction-gateway/internal/service"
	"github.com/aman-churiwal/redaction-gateway/internal/storage"
	"github.com/aman-churiwal/redaction-gateway/internal/tenant"
)

type Server struct {
	router   *gin.Engine
	config   *config.Config
	redis    *storage.RedisClient
	postgres *storage.Postgres
	registry *tenant.Registry

	sessions     *service.SessionService
	limiter      ratelimit.Limiter
	redactClient *redactor.Client
	redactCache  *redactor.Cache

	authHandler   *handler.AuthHandler
	recordHandler *handler.RecordHandler
	flagHandler   *handler.FlagHandler
	systemHandler *handler.SystemHandler

	httpServer *http.Server
}

func New(cfg *config.Config, redis *storage.RedisClient, postgres *storage.Postgres, registry *tenant.Registry) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	sessions := service.NewSessionService(cfg.Session.Secret, cfg.Session.Issuer, time.Duration(cfg.Session.TTLSeconds)*time.Second)

	limiter := ratelimit.New(redis, cfg.Redis.Prefix, ratelimit.Policy{
		MaxRequests: cfg.RateLimit.MaxRequests,
		Window:      cfg.RateLimit.Window(),
		MinInterval: cfg.RateLimit.MinInterval(),
	})

	redactClient := redactor.NewClient(cfg.Redactor)
	redactCache := redactor.NewCache(redis, cfg.Redis.Prefix, cfg.Redactor)

	recordRepo := repository.NewRecordRepository(postgres)
	logRepo := repository.NewRequestLogRepository(postgres)

	middleware.InitRequestLogger(logRepo, 1000)

	s := &Server{
		router:        router,
		config:        cfg,
		redis:         redis,
		postgres:      postgres,
		registry:      registry,
		sessions:      sessions,
		limiter:       limiter,
		redactClient:  redactClient,
		redactCache:   redactCache,
		authHandler:   handler.NewAuthHandler(sessions, registry, cfg.Session),
		recordHandler: handler.NewRecordHandler(recordRepo),
		flagHandler:   handler.NewFlagHandler(recordRepo, cfg.Flag),
		systemHandler: handler.NewSystemHandler(redis, postgres, redactClient, logRepo),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.RequestLogger())
	s.router.Use(middleware.SessionGate(s.sessions, s.registry, s.config.Session.CookieName, s.config.UnprotectedPrefixes))
	s.router.Use(middleware.RateLimit(s.limiter))
}

func (s *Server) setupRoutes() {
	redact := middleware.Redact(s.redactClient, s.redactCache, s.config.RedactedPrefixes)

	s.router.GET("/health", s.systemHandler.Health)
	s.router.GET("/hint", s.systemHandler.Hint)

	s.router.GET("/auth", s.authHandler.Usage)
	s.router.POST("/auth", s.authHandler.Authenticate)

	s.router.GET("/users/:id", redact, s.recordHandler.GetByID)
	s.router.GET("/search", redact, s.recordHandler.Search)
	s.router.GET("/export", redact, s.recordHandler.Export)

	s.router.GET("/flag", s.flagHandler.Submit)
	s.router.POST("/flag", s.flagHandler.Submit)

	admin := s.router.Group("/admin")
	{
		admin.GET("/stats", s.systemHandler.Stats)
	}
}

// StartJanitor begins periodic cleanup of idle local rate limit state.
// No-op when the shared-store limiter is active.
func (s *Server) StartJanitor(ctx context.Context) {
	if local, ok := s.limiter.(*ratelimit.LocalLimiter); ok {
		local.StartJanitor(ctx, time.Minute)
	}
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	log.Printf("Starting redaction gateway on %s", addr)
	log.Printf("Environment: %s", s.config.Server.Environment)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down server...")

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
