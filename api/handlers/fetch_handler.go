package handlers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/media-fetch-go/internal/app"
	"github.com/yourusername/media-fetch-go/internal/domain"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// FetchHandler handles media fetch requests
type FetchHandler struct {
	manager *app.FetchManager
	repo    domain.FetchHistoryRepository
	logger  *zap.Logger
}

// NewFetchHandler creates a new fetch handler. repo may be nil when
// history is disabled.
func NewFetchHandler(manager *app.FetchManager, repo domain.FetchHistoryRepository, logger *zap.Logger) *FetchHandler {
	return &FetchHandler{
		manager: manager,
		repo:    repo,
		logger:  logger,
	}
}

// FetchRequest represents a request to fetch media from a URL
type FetchRequest struct {
	URL string `json:"url" binding:"required"`
}

// ReleaseRequest represents a request to remove a fetched file
type ReleaseRequest struct {
	FilePath string `json:"file_path" binding:"required"`
}

// Fetch handles POST /api/v1/fetch
func (h *FetchHandler) Fetch(c *gin.Context) {
	var req FetchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url is required"})
		return
	}

	mediaReq := domain.NewMediaRequest(req.URL)

	result, err := h.manager.Fetch(c.Request.Context(), req.URL)
	if err != nil {
		h.recordHistory(domain.NewFailedRecord(mediaReq, err))

		h.logger.Warn("Fetch failed",
			zap.String("url", req.URL),
			zap.Error(err))

		c.JSON(statusForError(err), gin.H{
			"error": err.Error(),
			"kind":  string(domain.KindOf(err)),
		})
		return
	}

	h.recordHistory(domain.NewSucceededRecord(mediaReq, result, fileSizeOf(result.FilePath)))

	c.JSON(http.StatusOK, result)
}

// Release handles POST /api/v1/release
func (h *FetchHandler) Release(c *gin.Context) {
	var req ReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file_path is required"})
		return
	}

	if !h.manager.OwnsFile(req.FilePath) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file path is outside the download directory"})
		return
	}

	h.manager.Release(req.FilePath)
	c.JSON(http.StatusOK, gin.H{"status": "released"})
}

// ListFetches handles GET /api/v1/fetches
func (h *FetchHandler) ListFetches(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}

	filters := make(map[string]interface{})
	if status := c.Query("status"); status != "" {
		filters["status"] = status
	}
	if platform := c.Query("platform"); platform != "" {
		filters["platform"] = platform
	}

	records, err := h.repo.FindAll(filters)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list fetches"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"fetches": records,
		"count":   len(records),
	})
}

// GetFetch handles GET /api/v1/fetches/:id
func (h *FetchHandler) GetFetch(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}

	record, err := h.repo.FindByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "fetch not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load fetch"})
		return
	}

	c.JSON(http.StatusOK, record)
}

// GetStats handles GET /api/v1/fetches/stats
func (h *FetchHandler) GetStats(c *gin.Context) {
	if h.repo == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}

	stats, err := h.repo.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *FetchHandler) recordHistory(record *domain.FetchRecord) {
	if h.repo == nil {
		return
	}
	if err := h.repo.Create(record); err != nil {
		h.logger.Error("Failed to record fetch history", zap.Error(err))
	}
}

// statusForError maps the engine's failure kinds onto HTTP status codes
func statusForError(err error) int {
	switch domain.KindOf(err) {
	case domain.ErrNotFound:
		return http.StatusNotFound
	case domain.ErrUnsupportedSource:
		return http.StatusUnprocessableEntity
	case domain.ErrMalformedResponse, domain.ErrEmptyMedia:
		return http.StatusBadGateway
	case domain.ErrTransientNetwork:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func fileSizeOf(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
