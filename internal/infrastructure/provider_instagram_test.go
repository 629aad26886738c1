package infrastructure

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/media-fetch-go/internal/domain"
	"go.uber.org/zap"
)

type instagramFixture struct {
	jsonBody   string
	jsonStatus int
	htmlBody   string
	htmlStatus int
}

// newInstagramServer serves the shortcode JSON endpoint, the HTML post
// page and the media files the payloads point at.
func newInstagramServer(t *testing.T, fixture *instagramFixture) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/media/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("media-bytes-" + filepath.Base(r.URL.Path)))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("__a") == "1" {
			status := fixture.jsonStatus
			if status == 0 {
				status = http.StatusOK
			}
			w.WriteHeader(status)
			w.Write([]byte(fixture.jsonBody))
			return
		}
		status := fixture.htmlStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		w.Write([]byte(fixture.htmlBody))
	})

	return httptest.NewServer(mux)
}

func newInstagramProviderForTest(t *testing.T, baseURL string, strict bool) *InstagramProvider {
	t.Helper()

	download := &domain.DownloadConfig{
		ScratchDir: t.TempDir(),
		UserAgent:  "test-agent",
	}
	fetcher, err := NewFileFetcher(download, zap.NewNop())
	require.NoError(t, err)

	provider, err := NewInstagramProvider(&domain.InstagramConfig{
		BaseURL:             baseURL,
		AppID:               "test-app-id",
		RequestTimeout:      5,
		StrictCarouselIndex: strict,
	}, download, fetcher, zap.NewNop())
	require.NoError(t, err)
	return provider
}

func videoPostJSON(serverURL string) string {
	return fmt.Sprintf(`{"graphql":{"shortcode_media":{
		"id":"1","is_video":true,
		"video_url":"%s/media/clip.mp4",
		"video_duration":12.5,
		"edge_media_to_caption":{"edges":[{"node":{"text":"A nice clip"}}]}
	}}}`, serverURL)
}

func carouselPostJSON(serverURL string) string {
	return fmt.Sprintf(`{"graphql":{"shortcode_media":{
		"id":"1","is_video":false,
		"edge_sidecar_to_children":{"edges":[
			{"node":{"is_video":false,"display_url":"%s/media/one.jpg"}},
			{"node":{"is_video":true,"video_url":"%s/media/two.mp4","video_duration":3.5}},
			{"node":{"is_video":false,"display_url":"%s/media/three.jpg"}}
		]},
		"edge_media_to_caption":{"edges":[{"node":{"text":"Carousel"}}]}
	}}}`, serverURL, serverURL, serverURL)
}

func TestInstagramResolve_VideoPost(t *testing.T) {
	fixture := &instagramFixture{}
	server := newInstagramServer(t, fixture)
	defer server.Close()
	fixture.jsonBody = videoPostJSON(server.URL)

	provider := newInstagramProviderForTest(t, server.URL, false)

	result, err := provider.Resolve(context.Background(),
		domain.NewMediaRequest("https://www.instagram.com/reel/ABC123/"))
	require.NoError(t, err)

	assert.Equal(t, domain.MediaTypeVideo, result.MediaType)
	assert.Equal(t, "mp4", result.Ext)
	assert.Equal(t, 12.5, result.Duration)
	assert.Equal(t, "A nice clip", result.Title)
	assert.Equal(t, "ABC123.mp4", filepath.Base(result.FilePath))
	assert.FileExists(t, result.FilePath)
}

func TestInstagramResolve_CarouselIndexSelectsItem(t *testing.T) {
	fixture := &instagramFixture{}
	server := newInstagramServer(t, fixture)
	defer server.Close()
	fixture.jsonBody = carouselPostJSON(server.URL)

	provider := newInstagramProviderForTest(t, server.URL, false)

	result, err := provider.Resolve(context.Background(),
		domain.NewMediaRequest("https://www.instagram.com/p/ABC123/?img_index=2"))
	require.NoError(t, err)

	// Second item is the video; the file name carries the item suffix
	assert.Equal(t, domain.MediaTypeVideo, result.MediaType)
	assert.Equal(t, "ABC123_2.mp4", filepath.Base(result.FilePath))
}

func TestInstagramResolve_CarouselIndexOutOfRangeFallsBack(t *testing.T) {
	fixture := &instagramFixture{}
	server := newInstagramServer(t, fixture)
	defer server.Close()
	fixture.jsonBody = carouselPostJSON(server.URL)

	provider := newInstagramProviderForTest(t, server.URL, false)

	result, err := provider.Resolve(context.Background(),
		domain.NewMediaRequest("https://www.instagram.com/p/ABC123/?img_index=9"))
	require.NoError(t, err)

	// First item wins when the requested index is out of range
	assert.Equal(t, domain.MediaTypePhoto, result.MediaType)
	assert.Equal(t, "ABC123_1.jpg", filepath.Base(result.FilePath))
}

func TestInstagramResolve_CarouselIndexOutOfRangeStrict(t *testing.T) {
	fixture := &instagramFixture{}
	server := newInstagramServer(t, fixture)
	defer server.Close()
	fixture.jsonBody = carouselPostJSON(server.URL)

	provider := newInstagramProviderForTest(t, server.URL, true)

	_, err := provider.Resolve(context.Background(),
		domain.NewMediaRequest("https://www.instagram.com/p/ABC123/?img_index=9"))
	require.Error(t, err)
	assert.Equal(t, domain.ErrUnsupportedSource, domain.KindOf(err))
}

func TestInstagramResolve_CarouselIndexZeroStrict(t *testing.T) {
	fixture := &instagramFixture{}
	server := newInstagramServer(t, fixture)
	defer server.Close()
	fixture.jsonBody = carouselPostJSON(server.URL)

	provider := newInstagramProviderForTest(t, server.URL, true)

	// Valid indexes start at 1, so an explicit zero must be rejected
	// just like any other out-of-range value.
	_, err := provider.Resolve(context.Background(),
		domain.NewMediaRequest("https://www.instagram.com/p/ABC123/?img_index=0"))
	require.Error(t, err)
	assert.Equal(t, domain.ErrUnsupportedSource, domain.KindOf(err))
}

func TestInstagramResolve_CarouselIndexZeroFallsBack(t *testing.T) {
	fixture := &instagramFixture{}
	server := newInstagramServer(t, fixture)
	defer server.Close()
	fixture.jsonBody = carouselPostJSON(server.URL)

	provider := newInstagramProviderForTest(t, server.URL, false)

	result, err := provider.Resolve(context.Background(),
		domain.NewMediaRequest("https://www.instagram.com/p/ABC123/?img_index=0"))
	require.NoError(t, err)
	assert.Equal(t, "ABC123_1.jpg", filepath.Base(result.FilePath))
}

func TestInstagramResolve_CarouselChildDurationFallback(t *testing.T) {
	fixture := &instagramFixture{}
	server := newInstagramServer(t, fixture)
	defer server.Close()

	// The selected child carries no video_duration; the post-level node
	// does.
	fixture.jsonBody = fmt.Sprintf(`{"graphql":{"shortcode_media":{
		"id":"1","is_video":true,"video_duration":42.5,
		"edge_sidecar_to_children":{"edges":[
			{"node":{"is_video":true,"video_url":"%s/media/lead.mp4"}},
			{"node":{"is_video":false,"display_url":"%s/media/still.jpg"}}
		]}
	}}}`, server.URL, server.URL)

	provider := newInstagramProviderForTest(t, server.URL, false)

	result, err := provider.Resolve(context.Background(),
		domain.NewMediaRequest("https://www.instagram.com/p/ABC123/?img_index=1"))
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeVideo, result.MediaType)
	assert.Equal(t, 42.5, result.Duration)
}

func TestInstagramResolve_HTMLFallback(t *testing.T) {
	fixture := &instagramFixture{
		jsonBody: "for (;;);{}", // anti-scraping junk, not JSON
	}
	server := newInstagramServer(t, fixture)
	defer server.Close()

	fixture.htmlBody = fmt.Sprintf(
		`<html><head></head><body>`+
			`<script type="application/json" data-sjs id="__NEXT_DATA__">`+
			`{"props":{"pageProps":{"graphql":%s}}}`+
			`</script></body></html>`,
		fmt.Sprintf(`{"shortcode_media":{"id":"1","is_video":true,"video_url":"%s/media/clip.mp4","video_duration":8}}`, server.URL))

	provider := newInstagramProviderForTest(t, server.URL, false)

	result, err := provider.Resolve(context.Background(),
		domain.NewMediaRequest("https://www.instagram.com/p/XYZ789/"))
	require.NoError(t, err)
	assert.Equal(t, domain.MediaTypeVideo, result.MediaType)
	assert.Equal(t, "XYZ789.mp4", filepath.Base(result.FilePath))
}

func TestInstagramResolve_NotFound(t *testing.T) {
	fixture := &instagramFixture{
		jsonStatus: http.StatusNotFound,
		htmlStatus: http.StatusNotFound,
	}
	server := newInstagramServer(t, fixture)
	defer server.Close()

	provider := newInstagramProviderForTest(t, server.URL, false)

	_, err := provider.Resolve(context.Background(),
		domain.NewMediaRequest("https://www.instagram.com/p/GONE/"))
	require.Error(t, err)
	assert.Equal(t, domain.ErrNotFound, domain.KindOf(err))
}

func TestInstagramResolve_NoMarkersInPage(t *testing.T) {
	fixture := &instagramFixture{
		jsonBody: "not json",
		htmlBody: "<html><body>nothing embedded</body></html>",
	}
	server := newInstagramServer(t, fixture)
	defer server.Close()

	provider := newInstagramProviderForTest(t, server.URL, false)

	_, err := provider.Resolve(context.Background(),
		domain.NewMediaRequest("https://www.instagram.com/p/EMPTY/"))
	require.Error(t, err)
	assert.Equal(t, domain.ErrMalformedResponse, domain.KindOf(err))
}

func TestParseInstagramPath(t *testing.T) {
	tests := []struct {
		name      string
		url       string
		shortcode string
		kind      string
		wantErr   bool
	}{
		{
			name:      "post URL",
			url:       "https://www.instagram.com/p/ABC123/",
			shortcode: "ABC123",
			kind:      "p",
		},
		{
			name:      "reel URL",
			url:       "https://www.instagram.com/reel/XYZ789/",
			shortcode: "XYZ789",
			kind:      "reel",
		},
		{
			name:      "tv URL",
			url:       "https://www.instagram.com/tv/TV555/",
			shortcode: "TV555",
			kind:      "tv",
		},
		{
			name:      "query string stripped",
			url:       "https://www.instagram.com/p/ABC123/?img_index=2&utm_source=share",
			shortcode: "ABC123",
			kind:      "p",
		},
		{
			name:    "bare host",
			url:     "https://www.instagram.com/",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			shortcode, kind, err := parseInstagramPath(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.shortcode, shortcode)
			assert.Equal(t, tt.kind, kind)
		})
	}
}
