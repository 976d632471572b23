package api

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"qbooking/internal/audit"
	"qbooking/internal/cache"
	"qbooking/internal/config"
	"qbooking/internal/database"
	"qbooking/internal/handlers"
	"qbooking/internal/logger"
	"qbooking/internal/middleware"
	"qbooking/internal/push"
	"qbooking/internal/repository"
	"qbooking/internal/service"
)

// Server is the settlement HTTP API
type Server struct {
	router   *gin.Engine
	config   *config.Config
	db       *database.DB
	redis    *cache.RedisClient
	push     push.Channel
	services *service.Services
	repos    *repository.Repositories
}

func NewServer(cfg *config.Config) (*Server, error) {
	gin.SetMode(cfg.GinMode)

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.RunMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Redis only accelerates auth lookups; start without it if it's down
	redisClient, err := cache.NewRedisClient(cfg.Redis)
	if err != nil {
		logger.Get().Warn("Redis unavailable, credential caching disabled", "error", err)
		redisClient = nil
	}

	var pushChannel push.Channel = push.Noop{}
	natsChannel, err := push.Connect(cfg.Push)
	if err != nil {
		logger.Get().Warn("NATS Streaming unavailable, real-time push disabled", "error", err)
	} else {
		pushChannel = natsChannel
	}

	var auditSink audit.Sink
	if cfg.Audit.Enabled() {
		esSink, err := audit.NewElasticsearchSink(cfg.Audit)
		if err != nil {
			logger.Get().Warn("Elasticsearch unavailable, audit falls back to logs", "error", err)
			auditSink = audit.NewLogSink()
		} else {
			auditSink = esSink
		}
	} else {
		auditSink = audit.NewLogSink()
	}

	repos := repository.NewRepositories(db)
	services := service.NewServices(repos, auditSink, pushChannel, cfg.BookingCodePrefix)

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.CORS())
	router.Use(middleware.Logger())
	router.Use(middleware.Metrics())

	server := &Server{
		router:   router,
		config:   cfg,
		db:       db,
		redis:    redisClient,
		push:     pushChannel,
		services: services,
		repos:    repos,
	}

	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	h := handlers.NewHandlers(s.services, s.db)

	api := s.router.Group("/api")

	// The webhook authenticates by content (booking code + exact amount),
	// not by credentials; gateways cannot hold Basic Auth accounts.
	api.POST("/payments/webhook", h.PaymentWebhook)

	authed := api.Group("")
	authed.Use(middleware.BasicAuth(s.repos.Users, s.redis))
	{
		notifications := authed.Group("/notifications")
		{
			notifications.GET("", h.ListNotifications)
		}

		refunds := authed.Group("/refunds")
		{
			refunds.POST("", h.CreateRefundTicket)
			refunds.GET("", h.ListRefundTickets)
			refunds.GET("/:id", h.GetRefundTicket)
			refunds.PATCH("/:id/cancel", h.CancelRefundTicket)
		}

		admin := authed.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.POST("/bookings/:id/complete", h.CompleteBooking)

			admin.PATCH("/earnings/:id/approve", h.ApproveEarning)
			admin.PATCH("/earnings/:id/reject", h.RejectEarning)

			admin.POST("/payouts", h.CreatePayout)
			admin.GET("/payouts", h.ListHostPayouts)
			admin.PATCH("/payouts/:id/process", h.ProcessPayout)
			admin.PATCH("/payouts/:id/complete", h.CompletePayout)
			admin.PATCH("/payouts/:id/cancel", h.CancelPayout)
			admin.GET("/payouts/:id/earnings", h.ListPayoutEarnings)

			admin.GET("/refunds", h.ListAdminRefundTickets)
			admin.GET("/refunds/stats", h.RefundStats)
			admin.GET("/refunds/:id", h.GetAdminRefundTicket)
			admin.PATCH("/refunds/:id/process", h.ProcessRefund)
			admin.PATCH("/refunds/:id/status", h.UpdateRefundTicketStatus)
		}
	}

	s.router.GET("/health", h.Health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// GetRouter exposes the router for tests
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Cleanup closes external connections
func (s *Server) Cleanup() error {
	if c, ok := s.push.(*push.NATSChannel); ok {
		if err := c.Close(); err != nil {
			logger.Get().Error("Error closing NATS connection", "error", err)
		}
	}

	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			logger.Get().Error("Error closing Redis connection", "error", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			logger.Get().Error("Error closing database connection", "error", err)
			return err
		}
	}

	return nil
}
