package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/yourusername/media-fetch-go/internal/domain"
	"go.uber.org/zap"
)

var (
	resolverTokenPattern = regexp.MustCompile(`id="tt"\s+value="([^"]+)"`)

	// The no-watermark download link carries a without_watermark class;
	// any absolute link in the fragment is the fallback.
	watermarkFreePattern = regexp.MustCompile(`(?i)<a[^>]+href="([^"\s]+)"[^>]*class="[^"]*without_watermark[^"]*"`)
	anyLinkPattern       = regexp.MustCompile(`(https?://[^"\s]+)`)

	resolverTitlePattern = regexp.MustCompile(`(?s)class="[^"]*download-title[^"]*"[^>]*>(.*?)</p>`)
	htmlTagPattern       = regexp.MustCompile(`<.*?>`)
)

// TikTokProvider resolves TikTok URLs through an external resolver
// service: fetch its landing page for the rotating anti-abuse token,
// submit the target URL, and extract the no-watermark download link from
// the returned fragment.
type TikTokProvider struct {
	config   *domain.TikTokConfig
	download *domain.DownloadConfig
	fetcher  *FileFetcher
	client   *http.Client
	logger   *zap.Logger
}

// NewTikTokProvider creates a new TikTok provider
func NewTikTokProvider(config *domain.TikTokConfig, download *domain.DownloadConfig, fetcher *FileFetcher, logger *zap.Logger) (*TikTokProvider, error) {
	client, err := newHTTPClient(download)
	if err != nil {
		return nil, err
	}

	return &TikTokProvider{
		config:   config,
		download: download,
		fetcher:  fetcher,
		client:   client,
		logger:   logger,
	}, nil
}

// Platform returns the platform this provider handles
func (p *TikTokProvider) Platform() domain.Platform {
	return domain.PlatformTikTok
}

// Resolve fetches the media behind a TikTok URL
func (p *TikTokProvider) Resolve(ctx context.Context, req *domain.MediaRequest) (*domain.DownloadResult, error) {
	token, err := p.fetchToken(ctx)
	if err != nil {
		return nil, err
	}

	fragment, err := p.submitURL(ctx, req.URL, token)
	if err != nil {
		return nil, err
	}

	videoURL, err := p.extractVideoURL(fragment)
	if err != nil {
		return nil, err
	}

	title := p.extractTitle(fragment)
	destination := p.fetcher.UniqueScratchPath("mp4")

	headers := map[string]string{
		"User-Agent": p.download.UserAgent,
		"Referer":    p.resolverBase() + "/",
	}
	if err := p.fetcher.Fetch(ctx, videoURL, destination, headers, 40*time.Second); err != nil {
		return nil, err
	}

	info, err := os.Stat(destination)
	if err != nil {
		return nil, domain.NewFetchError(domain.ErrEmptyMedia, "TikTok video file was not written", err)
	}
	if info.Size() < p.minVideoBytes() {
		p.fetcher.Cleanup(destination)
		return nil, domain.NewFetchError(domain.ErrEmptyMedia,
			fmt.Sprintf("resolver returned an empty video (%d bytes)", info.Size()), nil)
	}

	return &domain.DownloadResult{
		FilePath:  destination,
		Title:     title,
		Ext:       "mp4",
		MediaType: domain.MediaTypeVideo,
	}, nil
}

// fetchToken loads the resolver landing page and pulls out the rotating
// form token. A missing token is tolerated; the resolver accepts empty
// tokens intermittently.
func (p *TikTokProvider) fetchToken(ctx context.Context) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, p.resolverBase()+"/", nil)
	if err != nil {
		return "", domain.NewFetchError(domain.ErrUnsupportedSource, "invalid resolver URL", err)
	}
	req.Header.Set("User-Agent", p.download.UserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", domain.NewFetchError(domain.ErrTransientNetwork, "could not reach the TikTok resolver", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.NewFetchError(domain.ErrTransientNetwork,
			fmt.Sprintf("resolver landing page returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewFetchError(domain.ErrTransientNetwork, "could not read resolver landing page", err)
	}

	if match := resolverTokenPattern.FindSubmatch(body); match != nil {
		return string(match[1]), nil
	}
	return "", nil
}

// submitURL posts the target URL with the token and returns the HTML
// fragment holding the download links. The resolver answers either with
// JSON wrapping the fragment or with the raw fragment itself.
func (p *TikTokProvider) submitURL(ctx context.Context, targetURL, token string) (string, error) {
	timeout := 30 * time.Second
	if p.config.RequestTimeout > 0 {
		timeout = time.Duration(p.config.RequestTimeout) * time.Second
	}
	reqCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	form := url.Values{}
	form.Set("id", targetURL)
	form.Set("locale", "en")
	form.Set("tt", token)

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost,
		p.resolverBase()+"/abc?url=dl", strings.NewReader(form.Encode()))
	if err != nil {
		return "", domain.NewFetchError(domain.ErrUnsupportedSource, "invalid resolver URL", err)
	}
	req.Header.Set("User-Agent", p.download.UserAgent)
	req.Header.Set("Referer", p.resolverBase()+"/")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", domain.NewFetchError(domain.ErrTransientNetwork, "could not reach the TikTok resolver", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", domain.NewFetchError(domain.ErrTransientNetwork,
			fmt.Sprintf("resolver returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewFetchError(domain.ErrTransientNetwork, "could not read resolver response", err)
	}

	status := ""
	fragment := ""
	var payload struct {
		Status string `json:"status"`
		Data   string `json:"data"`
		Result string `json:"result"`
	}
	if json.Unmarshal(body, &payload) == nil {
		status = strings.ToLower(payload.Status)
		fragment = payload.Data
		if fragment == "" {
			fragment = payload.Result
		}
	} else {
		fragment = string(body)
	}

	if status != "" && status != "ok" && status != "success" {
		return "", domain.NewFetchError(domain.ErrMalformedResponse,
			fmt.Sprintf("resolver reported status %q", status), nil)
	}
	if fragment == "" {
		return "", domain.NewFetchError(domain.ErrMalformedResponse, "resolver returned an empty response", nil)
	}

	return fragment, nil
}

// extractVideoURL finds the no-watermark link in the fragment, falling
// back to the first absolute link, and normalizes it against the
// resolver origin.
func (p *TikTokProvider) extractVideoURL(fragment string) (string, error) {
	videoURL := ""
	if match := watermarkFreePattern.FindStringSubmatch(fragment); match != nil {
		videoURL = match[1]
	}
	if videoURL == "" {
		if match := anyLinkPattern.FindStringSubmatch(fragment); match != nil {
			videoURL = match[1]
		}
	}
	if videoURL == "" {
		return "", domain.NewFetchError(domain.ErrMalformedResponse, "no video link in resolver response", nil)
	}

	return normalizeRemoteURL(html.UnescapeString(videoURL), p.resolverBase()), nil
}

func (p *TikTokProvider) extractTitle(fragment string) string {
	if match := resolverTitlePattern.FindStringSubmatch(fragment); match != nil {
		raw := strings.TrimSpace(htmlTagPattern.ReplaceAllString(match[1], ""))
		if raw != "" {
			return html.UnescapeString(raw)
		}
	}
	return "TikTok video"
}

func (p *TikTokProvider) resolverBase() string {
	return strings.TrimRight(p.config.ResolverURL, "/")
}

func (p *TikTokProvider) minVideoBytes() int64 {
	if p.config.MinVideoBytes > 0 {
		return p.config.MinVideoBytes
	}
	return 120 * 1024
}

// normalizeRemoteURL resolves protocol-relative and host-relative links
// against the resolver origin.
func normalizeRemoteURL(raw, base string) string {
	cleaned := strings.TrimSpace(raw)
	if cleaned == "" {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "//") {
		return "https:" + cleaned
	}
	if strings.HasPrefix(cleaned, "/") {
		return strings.TrimRight(base, "/") + cleaned
	}
	return cleaned
}
