package server

import (
	"net/http"
	"time"

	"mediator/internal/analyzer"
	"mediator/internal/config"
	"mediator/internal/handler"
	"mediator/internal/hub"
	"mediator/internal/mediation"
	"mediator/internal/middleware"
	"mediator/internal/push"
	"mediator/internal/repository"
	"mediator/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
)

type Server struct {
	router   *gin.Engine
	db       *sqlx.DB
	cfg      *config.Config
	log      *logrus.Logger
	logger   *zap.Logger
	analyzer *analyzer.Client
}

func NewServer(db *sqlx.DB, cfg *config.Config, log *logrus.Logger, logger *zap.Logger) (*Server, error) {
	router := gin.Default()

	s := &Server{
		router: router,
		db:     db,
		cfg:    cfg,
		log:    log,
		logger: logger,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) setupRoutes() error {
	service.SetJWTSecret(s.cfg.Auth.JWTSecret)

	// Repositories
	authRepo := repository.NewAuthRepository(s.db, s.logger)
	messageRepo := repository.NewMessageRepository(s.db, s.logger)
	roomRepo := repository.NewRoomRepository(s.db, s.logger)
	contactRepo := repository.NewContactRepository(s.db, s.logger)
	statsRepo := repository.NewStatsRepository(s.db, s.logger)
	subRepo := repository.NewSubscriptionRepository(s.db, s.logger)

	// Analyzer. The pipeline fails open without it, so a missing API key
	// degrades to pass-through delivery instead of refusing to start.
	var llm mediation.Analyzer
	if s.cfg.Analyzer.APIKey != "" {
		client, err := analyzer.NewClient(analyzer.Config{
			APIKey:    s.cfg.Analyzer.APIKey,
			ModelName: s.cfg.Analyzer.Model,
		}, s.logger)
		if err != nil {
			return err
		}
		s.analyzer = client
		llm = client
	} else {
		s.logger.Warn("Analyzer API key not configured, mediation disabled")
	}

	// Pipeline
	sessions := hub.NewHub(s.logger)
	pushService := push.NewService(subRepo, push.Config{
		VAPIDPublicKey:  s.cfg.Push.VAPIDPublicKey,
		VAPIDPrivateKey: s.cfg.Push.VAPIDPrivateKey,
		Subscriber:      s.cfg.Push.Subscriber,
	}, s.logger)

	suggestions := mediation.NewSuggestionCache()
	var mentions *mediation.MentionDetector
	var extractor *mediation.Extractor
	if llm != nil {
		mentions = mediation.NewMentionDetector(llm, contactRepo, suggestions, s.logger)
		extractor = mediation.NewExtractor(llm, contactRepo, s.logger)
	}

	aggregator := mediation.NewContextAggregator(messageRepo, roomRepo, contactRepo, statsRepo, sessions, s.logger)
	approval := mediation.NewApprovalProcessor(messageRepo, roomRepo, statsRepo, sessions, sessions,
		pushService, mentions, extractor, s.logger)
	interventions := mediation.NewInterventionProcessor(messageRepo, statsRepo, sessions, s.logger)
	orchestrator := mediation.NewOrchestrator(llm, aggregator, approval, interventions,
		time.Duration(s.cfg.Analyzer.TimeoutSeconds)*time.Second, s.logger)

	// Services and handlers
	authService := service.NewAuthService(authRepo, s.logger)
	authHandler := handler.NewAuthHandler(authService, s.log)
	pushHandler := handler.NewPushHandler(subRepo, pushService, s.log)
	wsHandler := handler.NewWSHandler(authService, roomRepo, messageRepo, sessions, orchestrator, suggestions, s.log)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Websocket endpoint; authenticates itself via query token
	s.router.GET("/ws", wsHandler.Serve)

	// Authentication routes
	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	// The VAPID public key must be readable before login: the service worker
	// subscribes with it.
	s.router.GET("/api/push/vapid-key", pushHandler.VAPIDKey)

	// Authenticated routes
	authRequired := s.router.Group("/api")
	authRequired.Use(middleware.AuthMiddleware(s.logger))
	{
		authRequired.POST("/auth/logout", authHandler.Logout)

		authRequired.POST("/push/subscribe", pushHandler.Subscribe)
		authRequired.DELETE("/push/unsubscribe", pushHandler.Unsubscribe)
		authRequired.GET("/push/status", pushHandler.Status)
		authRequired.POST("/push/test", pushHandler.Test)
	}

	return nil
}

// Close releases external clients held by the server.
func (s *Server) Close() {
	if s.analyzer != nil {
		if err := s.analyzer.Close(); err != nil {
			s.logger.Warn("Failed to close analyzer client", zap.Error(err))
		}
	}
}

func (s *Server) Run(addr string) {
	s.log.Infof("Server starting on port %s...", addr)
	if err := s.router.Run(addr); err != nil {
		s.log.Fatalf("Server failed to start: %v", err)
	}
}
