package infrastructure

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lrstanley/go-ytdlp"
	"github.com/yourusername/media-fetch-go/internal/domain"
	"go.uber.org/zap"
)

// formatChain prefers H.264 MP4 streams the downstream transport plays
// natively, then any MP4 video, then whatever is best.
const formatChain = "bestvideo[ext=mp4][vcodec~=avc]+bestaudio[ext=m4a]/" +
	"bestvideo[ext=mp4]+bestaudio[ext=m4a]/" +
	"bestvideo*+bestaudio/best"

// candidateExtensions are tried when the extractor reports an output
// path that does not exist on disk.
var candidateExtensions = []string{".mp4", ".jpg", ".jpeg", ".png", ".webp", ".mkv", ".webm"}

var stillImageExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
	"ico":  true,
}

// GenericProvider resolves any URL through the universal extraction
// tool. It is the default for unmatched domains and the fallback for
// Instagram.
type GenericProvider struct {
	config *domain.DownloadConfig
	logger *zap.Logger
}

// NewGenericProvider creates a new generic provider
func NewGenericProvider(config *domain.DownloadConfig, logger *zap.Logger) *GenericProvider {
	return &GenericProvider{
		config: config,
		logger: logger,
	}
}

// Platform returns the platform this provider handles
func (p *GenericProvider) Platform() domain.Platform {
	return domain.PlatformGeneric
}

// Resolve runs one extraction attempt for the URL. Retry with backoff is
// the orchestrator's job; this method performs a single attempt.
func (p *GenericProvider) Resolve(ctx context.Context, req *domain.MediaRequest) (*domain.DownloadResult, error) {
	if err := os.MkdirAll(p.config.ScratchDir, 0755); err != nil {
		return nil, domain.NewFetchError(domain.ErrTransientNetwork, "could not prepare download directory", err)
	}

	retries := strconv.Itoa(p.config.EffectiveRetries())

	dl := ytdlp.New().
		Output(filepath.Join(p.config.ScratchDir, "%(id)s.%(ext)s")).
		Format(formatChain).
		SocketTimeout(p.config.EffectiveSocketTimeout().Seconds()).
		Retries(retries).
		FragmentRetries(retries).
		NoCheckCertificates().
		NoProgress().
		PrintJSON().
		AddHeaders("User-Agent:" + p.config.UserAgent).
		AddHeaders("Referer:" + refererFor(req.Platform)).
		AddHeaders("Accept-Language:en-US,en;q=0.9")

	if p.config.Proxy != "" {
		dl = dl.Proxy(p.config.Proxy)
	}

	p.logger.Info("Starting extraction", zap.String("url", req.URL))

	result, err := dl.Run(ctx, req.URL)
	if err != nil {
		return nil, classifyExtractionError(err)
	}

	infos, err := result.GetExtractedInfo()
	if err != nil {
		return nil, domain.NewFetchError(domain.ErrMalformedResponse, "could not read extraction metadata", err)
	}
	if len(infos) == 0 {
		return nil, domain.NewFetchError(domain.ErrMalformedResponse, "extraction produced no media information", nil)
	}

	info := infos[0]
	if info.Type == "playlist" {
		info = pickPlaylistEntry(info.Entries)
		if info == nil {
			return nil, domain.NewFetchError(domain.ErrMalformedResponse, "post contains no media", nil)
		}
		p.logger.Info("Selected playlist entry",
			zap.String("id", info.ID),
			zap.String("ext", info.Extension))
	}

	path, err := p.resolveOutputPath(info)
	if err != nil {
		return nil, err
	}

	ext := strings.TrimPrefix(filepath.Ext(path), ".")
	mediaType := domain.MediaTypeForExt(ext)

	title := strVal(info.Title)
	if title == "" {
		title = "Downloaded media"
	}

	duration := 0.0
	if info.Duration != nil {
		duration = *info.Duration
	}

	return &domain.DownloadResult{
		FilePath:   path,
		Title:      title,
		Duration:   duration,
		Ext:        ext,
		MediaType:  mediaType,
		VideoCodec: detectCodecHint(info),
	}, nil
}

// pickPlaylistEntry selects the usable entry from a playlist result: the
// first entry with a real video codec, else the first whose extension is
// not a still image, else the first outright.
func pickPlaylistEntry(entries []*ytdlp.ExtractedInfo) *ytdlp.ExtractedInfo {
	if len(entries) == 0 {
		return nil
	}

	for _, entry := range entries {
		codec := strings.ToLower(strVal(entry.VCodec))
		if codec != "" && codec != "none" {
			return entry
		}
	}

	for _, entry := range entries {
		ext := strings.ToLower(entry.Extension)
		if ext != "" && !stillImageExtensions[ext] {
			return entry
		}
	}

	return entries[0]
}

// resolveOutputPath locates the downloaded file, trying the candidate
// extensions when the reported path does not exist (the extractor may
// merge or remux into a different container than it predicted).
func (p *GenericProvider) resolveOutputPath(info *ytdlp.ExtractedInfo) (string, error) {
	reported := strVal(info.Filename)
	if reported == "" {
		reported = filepath.Join(p.config.ScratchDir,
			fmt.Sprintf("%s.%s", info.ID, info.Extension))
	}

	if fileExists(reported) {
		return reported, nil
	}

	base := strings.TrimSuffix(reported, filepath.Ext(reported))
	for _, ext := range candidateExtensions {
		candidate := base + ext
		if fileExists(candidate) {
			return candidate, nil
		}
	}

	p.logger.Error("Downloaded file not found",
		zap.String("expected", reported))
	return "", domain.NewFetchError(domain.ErrEmptyMedia, "downloaded file was not found", nil)
}

// detectCodecHint pulls the video codec from the extraction metadata,
// walking the requested-format lists when the top level has none.
func detectCodecHint(info *ytdlp.ExtractedInfo) string {
	codec := strings.TrimSpace(strVal(info.VCodec))
	if codec != "" && strings.ToLower(codec) != "none" {
		return codec
	}

	for _, format := range info.RequestedFormats {
		candidate := strings.TrimSpace(strVal(format.VCodec))
		if candidate != "" && strings.ToLower(candidate) != "none" {
			return candidate
		}
	}
	for _, format := range info.Formats {
		candidate := strings.TrimSpace(strVal(format.VCodec))
		if candidate != "" && strings.ToLower(candidate) != "none" {
			return candidate
		}
	}

	return ""
}

// classifyExtractionError maps extractor failures onto the engine's
// error taxonomy with user-facing messages.
func classifyExtractionError(err error) error {
	message := strings.ToLower(err.Error())

	switch {
	case strings.Contains(message, "handshake operation timed out"),
		strings.Contains(message, "timed out"),
		strings.Contains(message, "timeout"),
		strings.Contains(message, "connection re"):
		return domain.NewFetchError(domain.ErrTransientNetwork,
			"the source server is responding slowly, try again shortly", err)
	case strings.Contains(message, "404"),
		strings.Contains(message, "not found"),
		strings.Contains(message, "video unavailable"),
		strings.Contains(message, "has been removed"):
		return domain.NewFetchError(domain.ErrNotFound, "media is missing or removed", err)
	default:
		return domain.NewFetchError(domain.ErrUnsupportedSource,
			"could not download media from this URL", err)
	}
}

// refererFor returns the browser-equivalent Referer for the provider
// family.
func refererFor(platform domain.Platform) string {
	switch platform {
	case domain.PlatformInstagram:
		return "https://www.instagram.com/"
	case domain.PlatformYouTube:
		return "https://www.youtube.com/"
	case domain.PlatformSnapchat:
		return "https://story.snapchat.com/"
	case domain.PlatformLikee:
		return "https://www.likee.video/"
	default:
		return "https://www.tiktok.com/"
	}
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
