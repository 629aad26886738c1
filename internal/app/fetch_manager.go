package app

import (
	"context"
	"fmt"
	"time"

	"github.com/yourusername/media-fetch-go/internal/domain"
	"go.uber.org/zap"
)

const maxBackoff = 10 * time.Second

// PlayableEnsurer is the compliance step applied to every video result
type PlayableEnsurer interface {
	EnsurePlayable(ctx context.Context, path, codecHint string) (string, error)
}

// FileReleaser removes files the engine produced
type FileReleaser interface {
	Cleanup(path string)
	InScratchDir(path string) bool
}

// FetchManager orchestrates a fetch: pick the provider for the URL's
// platform, run it with the retry policy that applies, fall back to the
// generic provider where configured, and pass video results through the
// compliance transcode.
type FetchManager struct {
	providers map[domain.Platform]domain.MediaProvider
	fallbacks map[domain.Platform]domain.Platform
	ensurer   PlayableEnsurer
	releaser  FileReleaser
	config    *domain.DownloadConfig
	logger    *zap.Logger

	// backoff is swappable in tests
	backoff func(ctx context.Context, delay time.Duration) error
}

// NewFetchManager creates a new fetch manager
func NewFetchManager(
	providers map[domain.Platform]domain.MediaProvider,
	ensurer PlayableEnsurer,
	releaser FileReleaser,
	config *domain.DownloadConfig,
	logger *zap.Logger,
) *FetchManager {
	return &FetchManager{
		providers: providers,
		fallbacks: map[domain.Platform]domain.Platform{
			domain.PlatformInstagram: domain.PlatformGeneric,
		},
		ensurer:  ensurer,
		releaser: releaser,
		config:   config,
		logger:   logger,
		backoff:  sleepBackoff,
	}
}

// Fetch resolves a raw URL into a downloaded file. One fallback hop at
// most; the file returned is owned by the caller until Release.
func (fm *FetchManager) Fetch(ctx context.Context, rawURL string) (*domain.DownloadResult, error) {
	req := domain.NewMediaRequest(rawURL)

	fm.logger.Info("Fetching media",
		zap.String("url", req.URL),
		zap.String("platform", string(req.Platform)))

	platform := req.Platform
	if _, ok := fm.providers[platform]; !ok {
		platform = domain.PlatformGeneric
	}

	result, err := fm.resolveWith(ctx, platform, req)
	if err != nil {
		fallback, ok := fm.fallbacks[platform]
		if !ok {
			return nil, err
		}

		fm.logger.Warn("Provider failed, trying fallback",
			zap.String("platform", string(platform)),
			zap.String("fallback", string(fallback)),
			zap.Error(err))

		result, err = fm.resolveWith(ctx, fallback, req)
		if err != nil {
			return nil, err
		}
	}

	if result.MediaType == domain.MediaTypeVideo {
		playable, err := fm.ensurer.EnsurePlayable(ctx, result.FilePath, result.VideoCodec)
		if err != nil {
			fm.releaser.Cleanup(result.FilePath)
			return nil, err
		}
		if playable != result.FilePath {
			result.FilePath = playable
			result.Ext = "mp4"
		}
	}

	fm.logger.Info("Fetch completed",
		zap.String("url", req.URL),
		zap.String("file", result.FilePath),
		zap.String("media_type", string(result.MediaType)))

	return result, nil
}

// resolveWith runs one provider with the retry policy that applies to
// it. Only the generic provider is retried, and only on retryable
// failure kinds.
func (fm *FetchManager) resolveWith(ctx context.Context, platform domain.Platform, req *domain.MediaRequest) (*domain.DownloadResult, error) {
	provider, ok := fm.providers[platform]
	if !ok {
		return nil, domain.NewFetchError(domain.ErrUnsupportedSource,
			fmt.Sprintf("no provider for platform %s", platform), nil)
	}

	attempts := 1
	if platform == domain.PlatformGeneric {
		attempts = fm.config.EffectiveRetries()
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := backoffDelay(attempt)
			fm.logger.Info("Retrying fetch",
				zap.String("url", req.URL),
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay))

			if err := fm.backoff(ctx, delay); err != nil {
				return nil, domain.NewFetchError(domain.ErrTransientNetwork, "fetch cancelled", err)
			}
		}

		result, err := provider.Resolve(ctx, req)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !domain.KindOf(err).Retryable() {
			return nil, err
		}

		fm.logger.Warn("Fetch attempt failed",
			zap.String("url", req.URL),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return nil, lastErr
}

// Release removes a previously returned file. Safe to call repeatedly;
// a missing file is not an error.
func (fm *FetchManager) Release(path string) {
	fm.releaser.Cleanup(path)
}

// OwnsFile reports whether path points into the engine's scratch
// directory. Release only honors owned paths at the API boundary.
func (fm *FetchManager) OwnsFile(path string) bool {
	return fm.releaser.InScratchDir(path)
}

// backoffDelay returns the exponential delay before the given retry
// attempt (1-based), capped at maxBackoff.
func backoffDelay(attempt int) time.Duration {
	delay := time.Duration(1<<uint(attempt)) * time.Second
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

func sleepBackoff(ctx context.Context, delay time.Duration) error {
	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
