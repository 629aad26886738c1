package domain

import (
	"net/url"
	"strconv"
	"strings"
)

// Platform represents the source platform a URL belongs to
type Platform string

const (
	PlatformInstagram Platform = "instagram"
	PlatformTikTok    Platform = "tiktok"
	PlatformSnapchat  Platform = "snapchat"
	PlatformLikee     Platform = "likee"
	PlatformYouTube   Platform = "youtube"
	PlatformGeneric   Platform = "generic"
)

// MediaType distinguishes the two kinds of media the engine produces
type MediaType string

const (
	MediaTypeVideo MediaType = "video"
	MediaTypePhoto MediaType = "photo"
)

var instagramDomains = []string{"instagram.com", "instagr.am"}

var tiktokDomains = []string{"tiktok.com", "tiktokcdn.com", "vm.tiktok.com", "vt.tiktok.com"}

var snapchatDomains = []string{"snapchat.com", "story.snapchat.com"}

var likeeDomains = []string{"likee.video", "l.likee.video", "like.video"}

var youtubeDomains = []string{
	"youtube.com",
	"youtu.be",
	"m.youtube.com",
	"music.youtube.com",
	"youtube-nocookie.com",
}

var photoExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
}

// DetectPlatform maps a raw URL to the platform that should handle it.
// Matching is on the lower-cased host against fixed domain suffix lists;
// anything unmatched classifies as PlatformGeneric. Never fails.
func DetectPlatform(rawURL string) Platform {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return PlatformGeneric
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return PlatformGeneric
	}

	switch {
	case matchesDomain(host, instagramDomains):
		return PlatformInstagram
	case matchesDomain(host, tiktokDomains):
		return PlatformTikTok
	case matchesDomain(host, snapchatDomains):
		return PlatformSnapchat
	case matchesDomain(host, likeeDomains):
		return PlatformLikee
	case matchesDomain(host, youtubeDomains):
		return PlatformYouTube
	default:
		return PlatformGeneric
	}
}

func matchesDomain(host string, domains []string) bool {
	for _, domain := range domains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

// Known reports whether the platform is one of the recognized families
// (everything except the generic catch-all).
func (p Platform) Known() bool {
	return p != PlatformGeneric && p != ""
}

// MediaRequest is the immutable per-call input: the URL, the platform
// derived from it, and the 1-based carousel item index when the URL
// carries one. CarouselIndex 0 means the URL carried no index; negative
// values mean an explicit out-of-range request (img_index=0 included,
// since valid indexes start at 1).
type MediaRequest struct {
	URL           string
	Platform      Platform
	CarouselIndex int
}

// NewMediaRequest classifies the URL and extracts the requested carousel
// index from the img_index query parameter, if any.
func NewMediaRequest(rawURL string) *MediaRequest {
	req := &MediaRequest{
		URL:      rawURL,
		Platform: DetectPlatform(rawURL),
	}

	if parsed, err := url.Parse(rawURL); err == nil {
		if raw := parsed.Query().Get("img_index"); raw != "" {
			if index, err := strconv.Atoi(raw); err == nil {
				if index == 0 {
					// An explicit 0 is out of range, not unspecified.
					index = -1
				}
				req.CarouselIndex = index
			}
		}
	}

	return req
}

// MediaItem is one resolved candidate inside a provider response: a
// direct byte-source URL plus the metadata needed to fetch and name it.
type MediaItem struct {
	SourceURL string
	Type      MediaType
	Duration  float64
	CodecHint string
}

// DownloadResult is the engine's output contract. The engine creates the
// file; the caller owns it until it calls Release.
type DownloadResult struct {
	FilePath  string    `json:"file_path"`
	Title     string    `json:"title"`
	Duration  float64   `json:"duration,omitempty"`
	Ext       string    `json:"ext"`
	MediaType MediaType `json:"media_type"`

	// VideoCodec carries the extraction-reported codec so the compliance
	// step can skip probing work; not part of the boundary contract.
	VideoCodec string `json:"-"`
}

// MediaTypeForExt decides video vs photo from a file extension
// (without the leading dot).
func MediaTypeForExt(ext string) MediaType {
	if photoExtensions[strings.ToLower(ext)] {
		return MediaTypePhoto
	}
	return MediaTypeVideo
}
