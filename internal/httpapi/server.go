package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/openclaw/bridge/internal/config"
	"github.com/openclaw/bridge/internal/logging"
	"github.com/openclaw/bridge/internal/middleware"
	"github.com/openclaw/bridge/internal/monitoring"
)

// Server wraps the HTTP server and its routes.
type Server struct {
	router *gin.Engine
	http   *http.Server
	log    *logging.Logger
}

// NewServer wires the middleware chain and routes.
func NewServer(
	cfg *config.Config,
	dispatcher ActionDispatcher,
	metrics *monitoring.Metrics,
	log *logging.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS())
	router.Use(monitoring.Middleware(metrics))

	handlers := NewHandlers(dispatcher, cfg.Server.MaxBodyBytes, log)

	router.GET("/health", handlers.Health)
	router.GET("/metrics", monitoring.Handler(metrics))

	actions := router.Group("/v1")
	actions.Use(middleware.ClientAuth(cfg.Server.ClientKey))
	actions.Use(middleware.RateLimit(cfg.RateLimit))
	actions.POST("/action", handlers.Action)

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Router exposes the gin engine, for tests.
func (s *Server) Router() *gin.Engine { return s.router }

// Run serves until the listener fails or Shutdown is called.
func (s *Server) Run() error {
	s.log.Info("bridge listening", zap.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
