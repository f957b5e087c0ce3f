// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/dataset-relay/internal/api/handlers"
	"github.com/andresuchdata/dataset-relay/internal/api/middleware"
	"github.com/andresuchdata/dataset-relay/internal/cache"
	"github.com/andresuchdata/dataset-relay/internal/config"
	"github.com/andresuchdata/dataset-relay/internal/repository"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Runner  handlers.Runner
	History repository.TransferRepository
	Cache   cache.TransferCache
	// Drive serves the /api/drive routes when set.
	Drive http.Handler
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	// Add middleware
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	corsConfig := cors.Config{
		AllowOrigins:     config.DefaultAllowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			// Wildcard origins never carry credentials.
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
			corsConfig.AllowCredentials = false
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if services == nil {
		return router
	}

	apiGroup := router.Group("/api/v1")

	if services.Runner != nil {
		transferHandler := handlers.NewTransferHandler(services.Runner, services.History, services.Cache)
		transferGroup := apiGroup.Group("/transfers")
		{
			transferGroup.POST("", transferHandler.CreateTransfer)
			transferGroup.GET("", transferHandler.ListTransfers)
			transferGroup.GET("/latest", transferHandler.GetLatestTransfer)
		}
	}

	if services.Drive != nil {
		router.Any("/api/drive/*path", gin.WrapH(services.Drive))
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
