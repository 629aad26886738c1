package infrastructure

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/media-fetch-go/internal/domain"
	"go.uber.org/zap"
)

const fetchChunkSize = 64 * 1024

// FileFetcher streams remote bytes into the scratch directory. All
// intermediate and final files the engine produces live under that one
// directory, named per request to avoid collisions.
type FileFetcher struct {
	client     *http.Client
	scratchDir string
	userAgent  string
	logger     *zap.Logger
}

// NewFileFetcher creates a file fetcher from the download configuration
func NewFileFetcher(config *domain.DownloadConfig, logger *zap.Logger) (*FileFetcher, error) {
	client, err := newHTTPClient(config)
	if err != nil {
		return nil, err
	}

	return &FileFetcher{
		client:     client,
		scratchDir: config.ScratchDir,
		userAgent:  config.UserAgent,
		logger:     logger,
	}, nil
}

// newHTTPClient builds an HTTP client honoring the configured proxy.
// Per-request timeouts come from contexts, not the client.
func newHTTPClient(config *domain.DownloadConfig) (*http.Client, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if config.Proxy != "" {
		proxyURL, err := url.Parse(config.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL %q: %w", config.Proxy, err)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &http.Client{Transport: transport}, nil
}

// ScratchDir returns the directory all fetched files are written under
func (f *FileFetcher) ScratchDir() string {
	return f.scratchDir
}

// ScratchPath returns the scratch-directory path for the given file name
func (f *FileFetcher) ScratchPath(name string) string {
	return filepath.Join(f.scratchDir, name)
}

// UniqueScratchPath returns a collision-free scratch path with the given
// extension (without the leading dot).
func (f *FileFetcher) UniqueScratchPath(ext string) string {
	return filepath.Join(f.scratchDir, uuid.New().String()+"."+ext)
}

// Fetch streams sourceURL into destination using 64 KiB chunks. On any
// transport failure mid-stream the partial destination file is removed
// before the failure is surfaced.
func (f *FileFetcher) Fetch(ctx context.Context, sourceURL, destination string, headers map[string]string, timeout time.Duration) error {
	if err := os.MkdirAll(filepath.Dir(destination), 0755); err != nil {
		return domain.NewFetchError(domain.ErrTransientNetwork, "could not prepare download directory", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return domain.NewFetchError(domain.ErrUnsupportedSource, "invalid media URL", err)
	}

	if _, ok := headers["User-Agent"]; !ok {
		req.Header.Set("User-Agent", f.userAgent)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return domain.NewFetchError(domain.ErrTransientNetwork, "could not download media file", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		return domain.NewFetchError(domain.ErrNotFound, "media file is missing or removed", nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.NewFetchError(domain.ErrTransientNetwork,
			fmt.Sprintf("media server returned status %d", resp.StatusCode), nil)
	}

	file, err := os.Create(destination)
	if err != nil {
		return domain.NewFetchError(domain.ErrTransientNetwork, "could not create local file", err)
	}

	buf := make([]byte, fetchChunkSize)
	_, copyErr := io.CopyBuffer(file, resp.Body, buf)
	closeErr := file.Close()

	if copyErr != nil || closeErr != nil {
		f.removePartial(destination)
		if copyErr == nil {
			copyErr = closeErr
		}
		return domain.NewFetchError(domain.ErrTransientNetwork, "media transfer was interrupted", copyErr)
	}

	return nil
}

// removePartial deletes a half-written destination file
func (f *FileFetcher) removePartial(destination string) {
	if err := os.Remove(destination); err != nil && !os.IsNotExist(err) {
		f.logger.Debug("Failed to remove partial file",
			zap.String("path", destination),
			zap.Error(err))
	}
}

// Cleanup removes a previously fetched file. Absence is not an error and
// any other failure is logged and swallowed; Cleanup never fails
// observably.
func (f *FileFetcher) Cleanup(path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		f.logger.Warn("Failed to remove file",
			zap.String("path", path),
			zap.Error(err))
	}
}

// InScratchDir reports whether path points inside the scratch directory
func (f *FileFetcher) InScratchDir(path string) bool {
	absScratch, err := filepath.Abs(f.scratchDir)
	if err != nil {
		return false
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(absScratch, absPath)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// extFromURL extracts a file extension (without dot) from a media URL
// path, with a fallback when none is present.
func extFromURL(rawURL, fallback string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fallback
	}
	ext := strings.TrimPrefix(filepath.Ext(parsed.Path), ".")
	if ext == "" {
		return fallback
	}
	return ext
}
