package domain

import "time"

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Download  DownloadConfig  `mapstructure:"download"`
	Instagram InstagramConfig `mapstructure:"instagram"`
	TikTok    TikTokConfig    `mapstructure:"tiktok"`
	Transcode TranscodeConfig `mapstructure:"transcode"`
	History   HistoryConfig   `mapstructure:"history"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// DownloadConfig contains the read-only knobs every fetch consumes:
// scratch directory, socket timeout, retry count, proxy and user agent.
type DownloadConfig struct {
	ScratchDir    string `mapstructure:"scratch_dir"`
	SocketTimeout int    `mapstructure:"socket_timeout"` // seconds
	Retries       int    `mapstructure:"retries"`
	Proxy         string `mapstructure:"proxy"`
	UserAgent     string `mapstructure:"user_agent"`
}

// EffectiveSocketTimeout returns the per-attempt network timeout with
// the 10 second floor enforced.
func (c *DownloadConfig) EffectiveSocketTimeout() time.Duration {
	seconds := c.SocketTimeout
	if seconds < 10 {
		seconds = 10
	}
	return time.Duration(seconds) * time.Second
}

// EffectiveRetries returns the retry count with the minimum of 1 enforced
func (c *DownloadConfig) EffectiveRetries() int {
	if c.Retries < 1 {
		return 1
	}
	return c.Retries
}

// InstagramConfig contains Instagram-specific configuration
type InstagramConfig struct {
	BaseURL             string `mapstructure:"base_url"`
	AppID               string `mapstructure:"app_id"`
	RequestTimeout      int    `mapstructure:"request_timeout"` // seconds
	StrictCarouselIndex bool   `mapstructure:"strict_carousel_index"`
}

// TikTokConfig contains configuration for the external resolver service
type TikTokConfig struct {
	ResolverURL    string `mapstructure:"resolver_url"`
	MinVideoBytes  int64  `mapstructure:"min_video_bytes"`
	RequestTimeout int    `mapstructure:"request_timeout"` // seconds
}

// TranscodeConfig points at the ffmpeg/ffprobe binaries used by the
// compliance step.
type TranscodeConfig struct {
	FfmpegBinary  string `mapstructure:"ffmpeg_binary"`
	FfprobeBinary string `mapstructure:"ffprobe_binary"`
}

// HistoryConfig controls the serving layer's fetch history store. The
// engine itself never persists anything.
type HistoryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	DatabasePath string `mapstructure:"database_path"`
}

// LoggingConfig contains logging-related configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // json, console
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Download: DownloadConfig{
			ScratchDir:    "downloads",
			SocketTimeout: 30,
			Retries:       3,
			Proxy:         "",
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
				"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		},
		Instagram: InstagramConfig{
			BaseURL:             "https://www.instagram.com",
			AppID:               "936619743392459",
			RequestTimeout:      20,
			StrictCarouselIndex: false,
		},
		TikTok: TikTokConfig{
			ResolverURL:    "https://ssstik.io",
			MinVideoBytes:  120 * 1024,
			RequestTimeout: 30,
		},
		Transcode: TranscodeConfig{
			FfmpegBinary:  "ffmpeg",
			FfprobeBinary: "ffprobe",
		},
		History: HistoryConfig{
			Enabled:      true,
			DatabasePath: "downloads/history.db",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "stdout",
		},
	}
}
