package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/yourusername/media-fetch-go/api/handlers"
	"github.com/yourusername/media-fetch-go/api/middleware"
	"github.com/yourusername/media-fetch-go/internal/app"
	"github.com/yourusername/media-fetch-go/internal/domain"
)

// SetupRouter sets up the HTTP router. repo may be nil when history is
// disabled; the history endpoints then answer 404.
func SetupRouter(
	fetchMgr *app.FetchManager,
	repo domain.FetchHistoryRepository,
	scratchDir string,
	log *zap.Logger,
) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(scratchDir)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		fetchHandler := handlers.NewFetchHandler(fetchMgr, repo, log)
		v1.POST("/fetch", fetchHandler.Fetch)
		v1.POST("/release", fetchHandler.Release)

		fetches := v1.Group("/fetches")
		{
			fetches.GET("", fetchHandler.ListFetches)
			fetches.GET("/stats", fetchHandler.GetStats)
			fetches.GET("/:id", fetchHandler.GetFetch)
		}
	}

	return router
}
