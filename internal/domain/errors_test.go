package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchError_Error(t *testing.T) {
	err := NewFetchError(ErrNotFound, "post was removed", nil)
	assert.Equal(t, "not_found: post was removed", err.Error())

	cause := errors.New("connection refused")
	err = NewFetchError(ErrTransientNetwork, "could not reach server", cause)
	assert.Contains(t, err.Error(), "transient_network")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestFetchError_Unwrap(t *testing.T) {
	cause := errors.New("underlying")
	err := NewFetchError(ErrMalformedResponse, "bad payload", cause)

	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	err := NewFetchError(ErrEmptyMedia, "too small", nil)
	assert.Equal(t, ErrEmptyMedia, KindOf(err))

	// Kind survives wrapping
	wrapped := fmt.Errorf("while fetching: %w", err)
	assert.Equal(t, ErrEmptyMedia, KindOf(wrapped))

	assert.Equal(t, ErrorKind(""), KindOf(errors.New("plain")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestIsKind(t *testing.T) {
	err := NewFetchError(ErrTranscodeFailure, "encode failed", nil)
	assert.True(t, IsKind(err, ErrTranscodeFailure))
	assert.False(t, IsKind(err, ErrNotFound))
}

func TestRetryable(t *testing.T) {
	assert.True(t, ErrTransientNetwork.Retryable())
	assert.False(t, ErrNotFound.Retryable())
	assert.False(t, ErrUnsupportedSource.Retryable())
	assert.False(t, ErrMalformedResponse.Retryable())
	assert.False(t, ErrTranscodeFailure.Retryable())
	assert.False(t, ErrEmptyMedia.Retryable())
}
