package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/quent-dev/inventory-system/internal/api"
	"github.com/quent-dev/inventory-system/internal/config"
	"github.com/quent-dev/inventory-system/internal/engine"
	"github.com/quent-dev/inventory-system/internal/source/sheets"
	"github.com/quent-dev/inventory-system/internal/source/shopify"
	"github.com/quent-dev/inventory-system/internal/velocity"
	"github.com/quent-dev/inventory-system/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	catalog := shopify.NewClient(cfg)

	configuration, err := sheets.NewClient(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize sheets client")
	}

	velocityStore, err := velocity.NewStore(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Velocity persistence unavailable, running in-memory only")
		velocityStore = velocity.NewNoopStore()
	}
	velocityCache := velocity.New(catalog, velocity.WithStore(velocityStore))

	eng := engine.New(catalog, configuration, velocityCache,
		engine.WithLowStockThreshold(cfg.Engine.LowStockThreshold),
		engine.WithWorkers(cfg.Engine.Workers),
	)

	stores := make([]string, 0)
	for id := range cfg.AvailableStores() {
		stores = append(stores, id)
	}
	sort.Strings(stores)
	if len(stores) == 0 {
		logger.Log.Fatal().Msg("No store has Shopify credentials configured")
	}
	logger.Log.Info().Strs("stores", stores).Msg("Configured stores")

	router := api.NewRouter(eng, stores, cfg.Server.AllowedOrigins)
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
