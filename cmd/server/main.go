package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gotrike/internal/config"
	"gotrike/internal/handlers"
	"gotrike/internal/middleware"
	mongorepo "gotrike/internal/repositories/mongodb"
	"gotrike/internal/services"
	"gotrike/internal/utils"
	"gotrike/pkg/cache"
	"gotrike/pkg/database"
	"gotrike/pkg/logger"
	"gotrike/pkg/maps"
	ws "gotrike/pkg/websocket"
	"gotrike/routes"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.NewLogger(&logger.Config{
		Level:  logger.LogLevel(cfg.App.LogLevel),
		Format: cfg.App.LogFormat,
		Output: "stdout",
		Colors: cfg.App.Debug,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	mongoDB, err := database.NewMongoDB(&database.DatabaseConfig{
		URI:            cfg.Database.URI,
		Database:       cfg.Database.Database,
		MaxPoolSize:    cfg.Database.MaxPoolSize,
		MinPoolSize:    cfg.Database.MinPoolSize,
		ConnectTimeout: cfg.Database.ConnectTimeout,
		SocketTimeout:  cfg.Database.SocketTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Close()

	if err := database.NewMigrator(mongoDB.Database).Up(); err != nil {
		appLogger.Fatalf("Failed to run migrations: %v", err)
	}

	redisCache, err := cache.NewRedisCache(&cache.RedisConfig{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		appLogger.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisCache.Close()

	cacheService := services.NewCacheService(redisCache)

	// Repositories
	rideRepo := mongorepo.NewRideRepository(mongoDB.Database, cacheService)
	chatRepo := mongorepo.NewChatRepository(mongoDB.Database, cacheService)
	userRepo := mongorepo.NewUserRepository(mongoDB.Database, cacheService)

	// Directions provider is optional; booking falls back to straight-line
	// estimates when no API key is configured.
	var routeProvider services.RouteProvider
	if cfg.Maps.APIKey != "" {
		provider, err := maps.NewGoogleMapsProvider(cfg.Maps.APIKey)
		if err != nil {
			appLogger.WithError(err).Warn("Directions provider init failed, continuing with fallback routing")
		} else {
			routeProvider = provider
		}
	}
	directionsService := services.NewDirectionsService(routeProvider, cfg.Maps.RequestTimeout, appLogger)

	// Realtime hub
	presence := ws.NewPresence(cfg.WebSocket.TypingIdleTimeout)
	hub := ws.NewHub(presence, appLogger)
	go hub.Run()
	wsHandler := ws.NewHandler(hub, appLogger)

	// Services
	rideService := services.NewRideService(rideRepo, userRepo, directionsService, appLogger)
	chatService := services.NewChatService(chatRepo, userRepo, wsHandler, appLogger)

	// Handlers
	rideHandler := handlers.NewRideHandler(rideService)
	chatHandler := handlers.NewChatHandler(chatService)

	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RequestLogger(appLogger))

	v1 := router.Group("/api/v1")
	{
		routes.SetupRideRoutes(v1, rideHandler, cfg.Security.JWTSecret)
		routes.SetupChatRoutes(v1, chatHandler, cfg.Security.JWTSecret)
		routes.SetupWebSocketRoutes(v1, wsHandler, cfg.Security.JWTSecret)
	}

	router.GET("/health", func(c *gin.Context) {
		status := "healthy"
		code := http.StatusOK
		if err := mongoDB.Ping(); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{
			"status":  status,
			"version": utils.AppVersion,
		})
	})

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.App.Port),
		Handler: router,
	}

	go func() {
		appLogger.Infof("Starting %s on port %d", cfg.App.Name, cfg.App.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Errorf("Forced shutdown: %v", err)
	}

	appLogger.Info("Server stopped")
}
