package handlers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	scratchDir string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(scratchDir string) *HealthHandler {
	return &HealthHandler{
		scratchDir: scratchDir,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	})
}

// Ready handles GET /ready. The engine is ready when its scratch
// directory is writable.
func (h *HealthHandler) Ready(c *gin.Context) {
	if info, err := os.Stat(h.scratchDir); err != nil || !info.IsDir() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"reason": "scratch directory unavailable",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
