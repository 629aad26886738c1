package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveSocketTimeout_Floor(t *testing.T) {
	config := &DownloadConfig{SocketTimeout: 3}
	assert.Equal(t, 10*time.Second, config.EffectiveSocketTimeout())

	config.SocketTimeout = 0
	assert.Equal(t, 10*time.Second, config.EffectiveSocketTimeout())

	config.SocketTimeout = 45
	assert.Equal(t, 45*time.Second, config.EffectiveSocketTimeout())
}

func TestEffectiveRetries_Minimum(t *testing.T) {
	config := &DownloadConfig{Retries: 0}
	assert.Equal(t, 1, config.EffectiveRetries())

	config.Retries = -5
	assert.Equal(t, 1, config.EffectiveRetries())

	config.Retries = 3
	assert.Equal(t, 3, config.EffectiveRetries())
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	assert.Equal(t, 8080, config.Server.Port)
	assert.NotEmpty(t, config.Download.ScratchDir)
	assert.NotEmpty(t, config.Download.UserAgent)
	assert.Equal(t, "https://ssstik.io", config.TikTok.ResolverURL)
	assert.Equal(t, int64(120*1024), config.TikTok.MinVideoBytes)
	assert.Equal(t, "https://www.instagram.com", config.Instagram.BaseURL)
	assert.False(t, config.Instagram.StrictCarouselIndex)
	assert.Equal(t, "ffmpeg", config.Transcode.FfmpegBinary)
}
