package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking-violation-monitor/be/config"
	"parking-violation-monitor/be/database"
	"parking-violation-monitor/be/handlers"
	"parking-violation-monitor/be/logger"
	"parking-violation-monitor/be/middleware"
	"parking-violation-monitor/be/realtime"
	"parking-violation-monitor/be/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type app struct {
	cfg              *config.Config
	log              *zap.Logger
	authHandler      *handlers.AuthHandler
	locationHandler  *handlers.LocationHandler
	violationHandler *handlers.ViolationHandler
	detectionHandler *handlers.DetectionHandler
	realtimeHandler  *handlers.RealtimeHandler
}

func main() {
	// Load environment variables
	envErr := godotenv.Load()

	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.Server)
	defer func() { _ = log.Sync() }()

	if envErr != nil {
		log.Info("no .env file found, using environment variables")
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database, log)
	if err != nil {
		log.Fatal("failed to initialize database", zap.Error(err))
	}
	if err := database.SeedDefaultOperator(db, cfg.JWT, log); err != nil {
		log.Warn("failed to create default operator", zap.Error(err))
	}

	// Evidence uploads are served from disk
	if err := os.MkdirAll(cfg.Upload.Folder, 0755); err != nil {
		log.Warn("failed to create upload folder", zap.String("path", cfg.Upload.Folder), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start realtime hub
	hub := realtime.NewHub(log)
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	// Setup router and server
	server := &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           setupRouter(newApp(cfg, log, database.NewStore(db), hub)),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	<-ctx.Done()
	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	<-hubDone

	// Close database
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info("server exited gracefully")
}

func newApp(cfg *config.Config, log *zap.Logger, store *database.Store, hub *realtime.Hub) *app {
	detectionService := services.NewDetectionService(store, hub, cfg.Detection, log)

	return &app{
		cfg:              cfg,
		log:              log,
		authHandler:      handlers.NewAuthHandler(store, cfg.JWT, log),
		locationHandler:  handlers.NewLocationHandler(store, hub, log),
		violationHandler: handlers.NewViolationHandler(store, hub, log),
		detectionHandler: handlers.NewDetectionHandler(detectionService, log),
		realtimeHandler:  handlers.NewRealtimeHandler(hub, log),
	}
}

func setupRouter(a *app) *gin.Engine {
	// Set Gin mode
	if os.Getenv("GIN_MODE") == "release" || a.cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Middleware
	router := gin.New()
	router.Use(logger.GinRecovery(a.log), logger.GinLogger(a.log))
	router.Use(cors.New(corsConfig(a.cfg.Server.AllowedOrigins)))
	router.Use(middleware.MaxBodySize(a.cfg.Upload.MaxContentLen))

	// Health check
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "message": "Parking Violation API is running"})
	})

	// Evidence images and clips written by the detection pipeline.
	router.Static("/static/uploads", a.cfg.Upload.Folder)

	// Public routes
	api := router.Group("/api")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/login", a.authHandler.Login)
			auth.GET("/me", middleware.AuthMiddleware(a.cfg.JWT.Secret), a.authHandler.GetMe)
		}
	}

	// Protected routes, open unless AUTH_REQUIRED is set
	protected := api.Group("")
	realtimeRoutes := router.Group("")
	if a.cfg.JWT.Required {
		protected.Use(middleware.AuthMiddleware(a.cfg.JWT.Secret))
		realtimeRoutes.Use(middleware.AuthMiddleware(a.cfg.JWT.Secret))
	}
	{
		locations := protected.Group("/locations")
		{
			locations.GET("", a.locationHandler.GetLocations)
			locations.GET("/", a.locationHandler.GetLocations)
			locations.POST("", a.locationHandler.CreateLocation)
			locations.POST("/", a.locationHandler.CreateLocation)
			locations.PUT("/:id", a.locationHandler.UpdateLocation)
			locations.DELETE("/:id", a.locationHandler.DeleteLocation)
		}

		violations := protected.Group("/violations")
		{
			violations.GET("", a.violationHandler.GetViolations)
			violations.GET("/", a.violationHandler.GetViolations)
			violations.PUT("/:id", a.violationHandler.AcknowledgeViolation)
		}

		if a.cfg.Detection.IngestEnabled {
			detections := protected.Group("/detections")
			{
				detections.GET("/config", a.detectionHandler.GetConfig)
				detections.POST("/violations", a.detectionHandler.RecordViolation)
				detections.PUT("/locations/:id/monitoring", a.detectionHandler.SetMonitoring)
			}
		}
	}

	// Realtime; /socket.io/ is a plain websocket alias, not an Engine.IO endpoint
	realtimeRoutes.GET("/ws", a.realtimeHandler.Connect)
	realtimeRoutes.GET("/socket.io/", a.realtimeHandler.Connect)

	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders: []string{"Content-Length", "Content-Type"},
		MaxAge:        12 * time.Hour,
	}

	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}

	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}
