package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/leadloom/leadloom/internal/config"
)

type Server struct {
	Config   *config.Config
	Router   *gin.Engine
	Logger   *zap.Logger
	Server   *http.Server
	Services *Services
}

func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	// Set gin mode
	gin.SetMode(cfg.Server.Mode)

	services, err := NewServices(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	srv := &Server{
		Config:   cfg,
		Router:   gin.New(),
		Logger:   logger,
		Services: services,
	}

	srv.setupMiddleware()
	srv.setupRoutes()

	return srv, nil
}

func (s *Server) setupMiddleware() {
	s.Router.Use(gin.Recovery())

	s.Router.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
		SkipPaths: []string{"/health"},
	}))

	// CORS middleware
	s.Router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.Router.Use(s.Services.Auth.AuthMiddleware("/health", "/api/v1/auth/login"))
}

func (s *Server) setupRoutes() {
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	api := s.Router.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", s.handleLogin)
			auth.POST("/logout", s.handleLogout)
		}

		content := api.Group("/content")
		content.Use(s.invalidateAnalytics())
		{
			content.GET("/items", s.handleListItems)
			content.POST("/items", s.handleCreateManual)
			content.POST("/items/generate", s.handleGenerateIdea)
			content.GET("/items/:id", s.handleGetItem)
			content.PUT("/items/:id/content", s.handleUpdateContent)
			content.POST("/items/:id/transition", s.handleTransition)
			content.POST("/items/:id/send", s.handleSendNow)
			content.DELETE("/items/:id", s.handleDeleteItem)
			content.GET("/items/:id/history", s.handleGetHistory)

			content.POST("/process-due", s.handleProcessDue)
			content.GET("/analytics", s.handleAnalytics)

			content.GET("/sources", s.handleListSources)
			content.POST("/sources", s.handleCreateSource)
			content.GET("/sources/:id", s.handleGetSource)
			content.PUT("/sources/:id", s.handleUpdateSource)
			content.DELETE("/sources/:id", s.handleDeleteSource)
			content.POST("/sources/:id/import", s.handleImportSource)

			content.GET("/ctas", s.handleListCtas)
			content.POST("/ctas", s.handleCreateCta)
			content.GET("/ctas/:id", s.handleGetCta)
			content.PUT("/ctas/:id", s.handleUpdateCta)
			content.DELETE("/ctas/:id", s.handleDeleteCta)
		}

		api.GET("/notifications", s.handleListNotifications)
		api.POST("/notifications/:id/read", s.handleMarkNotificationRead)

		api.GET("/monitoring/errors", s.handleRecentErrors)
	}
}

// invalidateAnalytics drops the cached summary after every successful write.
func (s *Server) invalidateAnalytics() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if c.Request.Method != http.MethodGet && c.Writer.Status() < http.StatusBadRequest {
			s.Services.Analytics.Invalidate(c.Request.Context())
		}
	}
}

func (s *Server) Start(ctx context.Context) error {
	if err := s.Services.Scheduler.Start(ctx); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	if s.Services.Housekeeper != nil {
		s.Services.Housekeeper.Start(ctx)
	}

	addr := fmt.Sprintf("%s:%d", s.Config.Server.Host, s.Config.Server.Port)

	s.Server = &http.Server{
		Addr:              addr,
		Handler:           s.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.Logger.Info("Starting HTTP server", zap.String("addr", addr))

	if s.Config.Server.CertFile != "" && s.Config.Server.KeyFile != "" {
		return s.Server.ListenAndServeTLS(s.Config.Server.CertFile, s.Config.Server.KeyFile)
	}

	return s.Server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Background loops stop before the pool closes.
	s.Services.Scheduler.Stop()
	if s.Services.Housekeeper != nil {
		s.Services.Housekeeper.Stop()
	}
	defer s.Services.Close()

	if s.Server == nil {
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	return s.Server.Shutdown(shutdownCtx)
}
