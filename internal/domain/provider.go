package domain

import "context"

// MediaProvider defines the interface for platform-specific resolution
// strategies. Resolve turns a request into exactly one fully-written
// local file, or a *FetchError; no partial file remains on failure.
type MediaProvider interface {
	// Platform returns the platform this provider handles
	Platform() Platform

	// Resolve fetches the media behind the request to local storage
	Resolve(ctx context.Context, req *MediaRequest) (*DownloadResult, error)
}
