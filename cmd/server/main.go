package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/sokosmart/marketplace-backend/internal/config"
	"github.com/sokosmart/marketplace-backend/internal/database"
	"github.com/sokosmart/marketplace-backend/internal/handlers"
	"github.com/sokosmart/marketplace-backend/internal/middleware"
	"github.com/sokosmart/marketplace-backend/internal/models"
	"github.com/sokosmart/marketplace-backend/internal/services"
	"github.com/sokosmart/marketplace-backend/pkg/jwt"
	"github.com/sokosmart/marketplace-backend/pkg/validator"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Soko Smart Marketplace Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	phoneValidator := validator.NewPhoneValidator()

	// Repositories
	userRepository := database.NewUserRepository(db)
	refreshTokenRepository := database.NewRefreshTokenRepository(db)
	profileRepository := database.NewProviderProfileRepository(db)
	auditLogRepository := database.NewAuditLogRepository(db)
	notificationRepository := database.NewNotificationRepository(db)

	// Workflow services
	auditService := services.NewAuditService(auditLogRepository, cfg.Security.EnableAuditLog)
	eventBus := services.NewEventBus(logger)
	approvalService := services.NewApprovalService(profileRepository, auditService, eventBus, logger)
	roleService := services.NewRoleService(profileRepository)

	// Notification consumer: subscribes to status changes so approvals
	// and rejections land in the affected user's inbox
	notificationService := services.NewNotificationService(notificationRepository, logger)
	go notificationService.Start(eventBus.Subscribe())

	// Periodic cleanup of expired refresh tokens
	cleanupStop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(12 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				removed, err := refreshTokenRepository.CleanupExpiredTokens()
				if err != nil {
					logger.WithError(err).Error("Refresh token cleanup failed")
				} else if removed > 0 {
					logger.Infof("Removed %d expired refresh tokens", removed)
				}
			case <-cleanupStop:
				return
			}
		}
	}()

	logger.Info("Services initialized")

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(
		jwtService,
		phoneValidator,
		auditService,
		userRepository,
		refreshTokenRepository,
		cfg,
		logger,
	)
	providerHandler := handlers.NewProviderHandler(profileRepository, auditService, phoneValidator, logger)
	adminHandler := handlers.NewAdminHandler(profileRepository, userRepository, approvalService, logger)
	roleHandler := handlers.NewRoleHandler(roleService, logger)
	notificationHandler := handlers.NewNotificationHandler(notificationRepository, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Authentication routes (public)
		auth := v1.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.RefreshToken)

			// Protected routes (require JWT authentication)
			protected := auth.Group("")
			protected.Use(middleware.AuthMiddleware(jwtService))
			{
				protected.POST("/logout", authHandler.Logout)
			}
		}

		// User routes (protected)
		user := v1.Group("/user")
		user.Use(middleware.AuthMiddleware(jwtService))
		{
			user.GET("/profile", authHandler.GetProfile)
			user.PUT("/profile", authHandler.UpdateProfile)
		}

		// Role resolution (protected)
		roles := v1.Group("/roles")
		roles.Use(middleware.AuthMiddleware(jwtService))
		{
			roles.GET("/me", roleHandler.GetMyRoles)
		}

		// Provider application routes (protected)
		providers := v1.Group("/providers")
		providers.Use(middleware.AuthMiddleware(jwtService))
		{
			providers.POST("/:type/applications", providerHandler.SubmitApplication)
			providers.GET("/:type/application", providerHandler.GetMyApplication)
		}

		// Guarded dashboards, one group per vertical. The same
		// parameterized middleware serves every vertical.
		for providerType := range models.Verticals {
			dashboard := v1.Group("/providers/" + string(providerType) + "/dashboard")
			dashboard.Use(middleware.AuthMiddleware(jwtService))
			dashboard.Use(middleware.RequireApprovedProvider(profileRepository, providerType))
			{
				dashboard.GET("", providerHandler.Dashboard)
			}
		}

		// Notification inbox (protected)
		notifications := v1.Group("/notifications")
		notifications.Use(middleware.AuthMiddleware(jwtService))
		{
			notifications.GET("", notificationHandler.List)
			notifications.POST("/:id/read", notificationHandler.MarkRead)
		}

		// Admin review workflow (admin role required)
		admin := v1.Group("/admin")
		admin.Use(middleware.AuthMiddleware(jwtService))
		admin.Use(middleware.RequireRole("admin"))
		{
			admin.GET("/applications/pending", adminHandler.ListPendingApplications)
			admin.GET("/applications/:id", adminHandler.GetApplication)
			admin.POST("/applications/:id/approve", adminHandler.ApproveApplication)
			admin.POST("/applications/:id/reject", adminHandler.RejectApplication)
			admin.GET("/dashboard/stats", adminHandler.GetDashboardStats)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	// Let the notification consumer drain before the DB closes
	close(cleanupStop)
	eventBus.Close()
	notificationService.Wait()

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)
		status := c.Writer.Status()

		entry := logger.WithFields(logrus.Fields{
			"status":     status,
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		})

		if status >= 500 {
			entry.Error("Request failed")
		} else if status >= 400 {
			entry.Warn("Request error")
		} else {
			entry.Info("Request completed")
		}
	}
}

// healthCheckHandler reports service and database health
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unreachable",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"version":  version,
			"database": "connected",
		})
	}
}
