package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/yourusername/media-fetch-go/internal/domain"
	"go.uber.org/zap"
)

var (
	nextDataPattern = regexp.MustCompile(`(?s)<script type="application/json"[^>]*id="__NEXT_DATA__"[^>]*>(.*?)</script>`)

	// Legacy per-page payload embedded as a script tag starting with a
	// require_login marker.
	legacyDataPattern = regexp.MustCompile(`(?s)<script type="application/json"[^>]*>({"require_login".*?})</script>`)
)

// InstagramProvider resolves Instagram post, reel and tv URLs in two
// phases: a JSON endpoint keyed by shortcode first, then the HTML page
// with embedded JSON when the endpoint answers with anything unexpected.
type InstagramProvider struct {
	config   *domain.InstagramConfig
	download *domain.DownloadConfig
	fetcher  *FileFetcher
	client   *http.Client
	logger   *zap.Logger
}

// NewInstagramProvider creates a new Instagram provider
func NewInstagramProvider(config *domain.InstagramConfig, download *domain.DownloadConfig, fetcher *FileFetcher, logger *zap.Logger) (*InstagramProvider, error) {
	client, err := newHTTPClient(download)
	if err != nil {
		return nil, err
	}

	return &InstagramProvider{
		config:   config,
		download: download,
		fetcher:  fetcher,
		client:   client,
		logger:   logger,
	}, nil
}

// Platform returns the platform this provider handles
func (p *InstagramProvider) Platform() domain.Platform {
	return domain.PlatformInstagram
}

type igGraphql struct {
	ShortcodeMedia *igNode          `json:"shortcode_media"`
	Reel           *json.RawMessage `json:"reel"`
}

type igNode struct {
	ID            string  `json:"id"`
	IsVideo       bool    `json:"is_video"`
	VideoURL      string  `json:"video_url"`
	VideoDuration float64 `json:"video_duration"`
	DisplayURL    string  `json:"display_url"`
	ThumbnailSrc  string  `json:"thumbnail_src"`

	DisplayResources []struct {
		Src string `json:"src"`
	} `json:"display_resources"`

	EdgeSidecarToChildren *struct {
		Edges []struct {
			Node igNode `json:"node"`
		} `json:"edges"`
	} `json:"edge_sidecar_to_children"`

	EdgeMediaToCaption struct {
		Edges []struct {
			Node struct {
				Text string `json:"text"`
			} `json:"node"`
		} `json:"edges"`
	} `json:"edge_media_to_caption"`

	AccessibilityCaption string `json:"accessibility_caption"`
}

type igPayload struct {
	Graphql *igGraphql `json:"graphql"`
	Items   []igNode   `json:"items"`
}

// Resolve fetches the media behind an Instagram URL
func (p *InstagramProvider) Resolve(ctx context.Context, req *domain.MediaRequest) (*domain.DownloadResult, error) {
	shortcode, kind, err := parseInstagramPath(req.URL)
	if err != nil {
		return nil, err
	}

	payload, err := p.fetchPayload(ctx, kind, shortcode)
	if err != nil {
		return nil, err
	}

	var media *igNode
	if payload.Graphql != nil && payload.Graphql.ShortcodeMedia != nil {
		media = payload.Graphql.ShortcodeMedia
	} else if len(payload.Items) > 0 {
		media = &payload.Items[0]
	}
	if media == nil {
		return nil, domain.NewFetchError(domain.ErrMalformedResponse, "post data not found in response", nil)
	}

	nodes := carouselNodes(media)
	if len(nodes) == 0 {
		return nil, domain.NewFetchError(domain.ErrMalformedResponse, "post contains no media", nil)
	}

	index, err := p.selectIndex(req.CarouselIndex, len(nodes))
	if err != nil {
		return nil, err
	}

	node := nodes[index]
	title := instagramCaption(media)
	if title == "" {
		title = "Instagram " + shortcode
	}

	suffix := ""
	if len(nodes) > 1 {
		suffix = fmt.Sprintf("_%d", index+1)
	}

	if node.IsVideo && node.VideoURL != "" {
		ext := extFromURL(node.VideoURL, "mp4")
		destination := p.fetcher.ScratchPath(shortcode + suffix + "." + ext)
		if err := p.fetcher.Fetch(ctx, node.VideoURL, destination, p.headers(false), p.requestTimeout()); err != nil {
			return nil, err
		}
		// Carousel children often omit video_duration; the post-level
		// node carries it for the lead video.
		duration := node.VideoDuration
		if duration == 0 {
			duration = media.VideoDuration
		}
		return &domain.DownloadResult{
			FilePath:  destination,
			Title:     title,
			Duration:  duration,
			Ext:       ext,
			MediaType: domain.MediaTypeVideo,
		}, nil
	}

	imageURL := node.DisplayURL
	if imageURL == "" && len(node.DisplayResources) > 0 {
		imageURL = node.DisplayResources[len(node.DisplayResources)-1].Src
	}
	if imageURL == "" {
		imageURL = node.ThumbnailSrc
	}
	if imageURL == "" {
		return nil, domain.NewFetchError(domain.ErrMalformedResponse, "post contains no image", nil)
	}

	ext := extFromURL(imageURL, "jpg")
	destination := p.fetcher.ScratchPath(shortcode + suffix + "." + ext)
	if err := p.fetcher.Fetch(ctx, imageURL, destination, p.headers(false), p.requestTimeout()); err != nil {
		return nil, err
	}

	return &domain.DownloadResult{
		FilePath:  destination,
		Title:     title,
		Ext:       ext,
		MediaType: domain.MediaTypePhoto,
	}, nil
}

// selectIndex honors a requested 1-based carousel index when it is in
// range. Out-of-range requests fall back to the first item, or fail when
// strict index checking is configured.
func (p *InstagramProvider) selectIndex(requested, count int) (int, error) {
	if requested == 0 {
		return 0, nil
	}
	if requested >= 1 && requested <= count {
		return requested - 1, nil
	}
	if p.config.StrictCarouselIndex {
		return 0, domain.NewFetchError(domain.ErrUnsupportedSource,
			fmt.Sprintf("requested carousel index is out of range [1,%d]", count), nil)
	}
	p.logger.Info("Carousel index out of range, using first item",
		zap.Int("requested", requested),
		zap.Int("count", count))
	return 0, nil
}

func carouselNodes(media *igNode) []igNode {
	if media.EdgeSidecarToChildren != nil && len(media.EdgeSidecarToChildren.Edges) > 0 {
		nodes := make([]igNode, 0, len(media.EdgeSidecarToChildren.Edges))
		for _, edge := range media.EdgeSidecarToChildren.Edges {
			nodes = append(nodes, edge.Node)
		}
		return nodes
	}
	return []igNode{*media}
}

func instagramCaption(media *igNode) string {
	for _, edge := range media.EdgeMediaToCaption.Edges {
		if text := strings.TrimSpace(edge.Node.Text); text != "" {
			return text
		}
	}
	return strings.TrimSpace(media.AccessibilityCaption)
}

// parseInstagramPath extracts the shortcode and media kind (p, reel or
// tv) from the URL path.
func parseInstagramPath(rawURL string) (shortcode, kind string, err error) {
	trimmed := rawURL
	if idx := strings.Index(trimmed, "://"); idx >= 0 {
		trimmed = trimmed[idx+3:]
	}
	if idx := strings.IndexAny(trimmed, "?#"); idx >= 0 {
		trimmed = trimmed[:idx]
	}

	parts := strings.Split(trimmed, "/")
	segments := make([]string, 0, len(parts))
	for _, part := range parts[1:] { // parts[0] is the host
		if part != "" {
			segments = append(segments, part)
		}
	}
	if len(segments) == 0 {
		return "", "", domain.NewFetchError(domain.ErrUnsupportedSource, "could not understand Instagram URL", nil)
	}

	kind = strings.ToLower(segments[0])
	if len(segments) > 1 {
		shortcode = segments[1]
	} else {
		shortcode = segments[0]
	}
	if kind != "p" && kind != "reel" && kind != "tv" {
		kind = "p"
	}
	if shortcode == "" {
		return "", "", domain.NewFetchError(domain.ErrUnsupportedSource, "could not understand Instagram URL", nil)
	}

	return shortcode, kind, nil
}

// fetchPayload is phase one: the JSON endpoint for the shortcode. Any
// non-JSON or structurally unexpected answer falls through to the HTML
// page in phase two.
func (p *InstagramProvider) fetchPayload(ctx context.Context, kind, shortcode string) (*igPayload, error) {
	endpoint := fmt.Sprintf("%s/%s/%s/", strings.TrimRight(p.config.BaseURL, "/"), kind, shortcode)

	reqCtx, cancel := context.WithTimeout(ctx, p.requestTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, endpoint+"?__a=1&__d=dis", nil)
	if err != nil {
		return nil, domain.NewFetchError(domain.ErrUnsupportedSource, "could not understand Instagram URL", err)
	}
	applyHeaders(req, p.headers(false))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, domain.NewFetchError(domain.ErrTransientNetwork, "could not reach Instagram", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		body, readErr := io.ReadAll(resp.Body)
		if readErr == nil {
			var payload igPayload
			if json.Unmarshal(body, &payload) == nil {
				if (payload.Graphql != nil && payload.Graphql.ShortcodeMedia != nil) || len(payload.Items) > 0 {
					return &payload, nil
				}
			}
			p.logger.Debug("Instagram JSON endpoint returned unexpected shape, trying HTML",
				zap.String("shortcode", shortcode))
		}
	} else {
		p.logger.Info("Instagram JSON endpoint not usable, trying HTML",
			zap.Int("status", resp.StatusCode),
			zap.String("shortcode", shortcode))
	}

	return p.fetchPayloadFromHTML(ctx, endpoint)
}

// fetchPayloadFromHTML is phase two: scrape the embedded JSON out of the
// post page, first from the __NEXT_DATA__ block, then from the legacy
// per-page script tag.
func (p *InstagramProvider) fetchPayloadFromHTML(ctx context.Context, pageURL string) (*igPayload, error) {
	reqCtx, cancel := context.WithTimeout(ctx, p.requestTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, domain.NewFetchError(domain.ErrUnsupportedSource, "could not understand Instagram URL", err)
	}
	applyHeaders(req, p.headers(true))

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, domain.NewFetchError(domain.ErrTransientNetwork, "could not load Instagram page", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.NewFetchError(domain.ErrNotFound, "Instagram post is missing or removed", nil)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, domain.NewFetchError(domain.ErrTransientNetwork,
			fmt.Sprintf("Instagram page returned status %d", resp.StatusCode), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewFetchError(domain.ErrTransientNetwork, "could not read Instagram page", err)
	}
	page := string(body)

	if match := nextDataPattern.FindStringSubmatch(page); match != nil {
		var data struct {
			Props struct {
				PageProps struct {
					Graphql *igGraphql `json:"graphql"`
				} `json:"pageProps"`
			} `json:"props"`
		}
		if json.Unmarshal([]byte(match[1]), &data) == nil {
			graphql := data.Props.PageProps.Graphql
			if graphql != nil && (graphql.ShortcodeMedia != nil || graphql.Reel != nil) {
				return &igPayload{Graphql: graphql}, nil
			}
		} else {
			p.logger.Debug("Could not parse __NEXT_DATA__ JSON")
		}
	}

	for _, match := range legacyDataPattern.FindAllStringSubmatch(page, -1) {
		var data struct {
			EntryData struct {
				PostPage []struct {
					Graphql *igGraphql `json:"graphql"`
				} `json:"PostPage"`
			} `json:"entry_data"`
		}
		if json.Unmarshal([]byte(match[1]), &data) != nil {
			continue
		}
		for _, page := range data.EntryData.PostPage {
			if page.Graphql != nil && page.Graphql.ShortcodeMedia != nil {
				return &igPayload{Graphql: page.Graphql}, nil
			}
		}
	}

	p.logger.Warn("No media data found in Instagram page", zap.String("url", pageURL))
	return nil, domain.NewFetchError(domain.ErrMalformedResponse, "no media data in Instagram page", nil)
}

func (p *InstagramProvider) headers(html bool) map[string]string {
	headers := map[string]string{
		"User-Agent":       p.download.UserAgent,
		"Accept":           "application/json",
		"Accept-Language":  "en-US,en;q=0.9",
		"Referer":          "https://www.instagram.com/",
		"X-Requested-With": "XMLHttpRequest",
		"X-IG-App-ID":      p.config.AppID,
	}
	if html {
		headers["Accept"] = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	}
	return headers
}

func (p *InstagramProvider) requestTimeout() time.Duration {
	if p.config.RequestTimeout > 0 {
		return time.Duration(p.config.RequestTimeout) * time.Second
	}
	return 20 * time.Second
}

func applyHeaders(req *http.Request, headers map[string]string) {
	for key, value := range headers {
		req.Header.Set(key, value)
	}
}
