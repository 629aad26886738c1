package domain

import (
	"time"

	"github.com/google/uuid"
)

// FetchStatus represents the terminal outcome of a fetch
type FetchStatus string

const (
	FetchSucceeded FetchStatus = "succeeded"
	FetchFailed    FetchStatus = "failed"
)

// FetchRecord is one row of fetch history, written by the serving layer
// after the engine returns. It records metadata only; the file itself is
// owned by the caller until released.
type FetchRecord struct {
	ID        string      `json:"id" gorm:"primaryKey"`
	URL       string      `json:"url" gorm:"not null"`
	Platform  Platform    `json:"platform" gorm:"not null;index"`
	Status    FetchStatus `json:"status" gorm:"not null;index"`
	Title     string      `json:"title,omitempty"`
	MediaType MediaType   `json:"media_type,omitempty"`
	Ext       string      `json:"ext,omitempty"`
	FilePath  string      `json:"file_path,omitempty"`
	FileSize  int64       `json:"file_size,omitempty"`
	Duration  float64     `json:"duration,omitempty"`
	ErrorKind string      `json:"error_kind,omitempty"`
	CreatedAt time.Time   `json:"created_at" gorm:"autoCreateTime;index"`
}

// NewSucceededRecord builds a history row from a successful result
func NewSucceededRecord(req *MediaRequest, result *DownloadResult, fileSize int64) *FetchRecord {
	return &FetchRecord{
		ID:        uuid.New().String(),
		URL:       req.URL,
		Platform:  req.Platform,
		Status:    FetchSucceeded,
		Title:     result.Title,
		MediaType: result.MediaType,
		Ext:       result.Ext,
		FilePath:  result.FilePath,
		FileSize:  fileSize,
		Duration:  result.Duration,
		CreatedAt: time.Now(),
	}
}

// NewFailedRecord builds a history row from a fetch failure
func NewFailedRecord(req *MediaRequest, err error) *FetchRecord {
	return &FetchRecord{
		ID:        uuid.New().String(),
		URL:       req.URL,
		Platform:  req.Platform,
		Status:    FetchFailed,
		ErrorKind: string(KindOf(err)),
		CreatedAt: time.Now(),
	}
}

// FetchStats summarizes the history store
type FetchStats struct {
	Total     int64 `json:"total"`
	Succeeded int64 `json:"succeeded"`
	Failed    int64 `json:"failed"`
}
