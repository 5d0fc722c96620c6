package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/quent-dev/inventory-system/internal/api/handlers"
	"github.com/quent-dev/inventory-system/internal/api/middleware"
	"github.com/quent-dev/inventory-system/internal/engine"
)

func NewRouter(eng *engine.Engine, stores []string, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	apiGroup := router.Group("/api/v1")

	handler := handlers.NewEngineHandler(eng, stores)
	apiGroup.GET("/stores", handler.GetStores)

	storeGroup := apiGroup.Group("/stores/:store")
	{
		storeGroup.GET("/inventory", handler.GetInventory)
		storeGroup.GET("/inventory/:kit", handler.GetKitInventory)
		storeGroup.GET("/anomalies", handler.GetAnomalies)
		storeGroup.GET("/velocity/:sku", handler.GetVelocity)
		storeGroup.GET("/status", handler.GetStatus)
		storeGroup.POST("/simulate", handler.Simulate)
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
