package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies fetch failures at the engine boundary
type ErrorKind string

const (
	// ErrUnsupportedSource means the URL did not resolve to usable media
	// after all applicable strategies and fallbacks.
	ErrUnsupportedSource ErrorKind = "unsupported_source"

	// ErrNotFound means the upstream explicitly reported the post or
	// video as missing or removed.
	ErrNotFound ErrorKind = "not_found"

	// ErrTransientNetwork covers connection, timeout and transport
	// failures; retried internally where policy allows.
	ErrTransientNetwork ErrorKind = "transient_network"

	// ErrMalformedResponse means a structurally unexpected provider
	// payload (JSON shape, missing HTML markers).
	ErrMalformedResponse ErrorKind = "malformed_upstream_response"

	// ErrTranscodeFailure means the compliance step could not produce a
	// playable file; fatal, never retried.
	ErrTranscodeFailure ErrorKind = "transcode_failure"

	// ErrEmptyMedia means the downloaded bytes failed a minimum-size or
	// sanity check.
	ErrEmptyMedia ErrorKind = "empty_or_corrupt_media"
)

// Retryable reports whether the engine may retry a failure of this kind
// where retry policy applies.
func (k ErrorKind) Retryable() bool {
	return k == ErrTransientNetwork
}

// FetchError is the only error type that crosses the engine boundary.
// It tags an underlying cause with a kind and a user-facing message; raw
// transport or library errors never escape the strategies.
type FetchError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError wraps cause (which may be nil) as a FetchError
func NewFetchError(kind ErrorKind, message string, cause error) *FetchError {
	return &FetchError{Kind: kind, Message: message, Err: cause}
}

// KindOf extracts the ErrorKind from err, or "" if err is not a
// FetchError.
func KindOf(err error) ErrorKind {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Kind
	}
	return ""
}

// IsKind reports whether err is a FetchError of the given kind
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}
