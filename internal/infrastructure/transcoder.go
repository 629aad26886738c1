package infrastructure

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/floostack/transcoder/ffmpeg"
	"github.com/yourusername/media-fetch-go/internal/domain"
	"go.uber.org/zap"
)

// ffprobeStream is the slice of the ffprobe JSON output the compliance
// decision needs.
type ffprobeStream struct {
	CodecType string `json:"codec_type"`
	CodecName string `json:"codec_name"`
	Channels  int    `json:"channels"`
}

type ffprobeOutput struct {
	Streams []ffprobeStream `json:"streams"`
}

// Transcoder re-encodes fetched videos into the H.264 baseline profile
// that plays everywhere. Files already carrying a compliant codec pass
// through untouched.
type Transcoder struct {
	config *domain.TranscodeConfig
	logger *zap.Logger
}

// NewTranscoder creates a new transcoder
func NewTranscoder(config *domain.TranscodeConfig, logger *zap.Logger) *Transcoder {
	return &Transcoder{
		config: config,
		logger: logger,
	}
}

// EnsurePlayable returns a path to a playable rendition of the video at
// path. When the source codec is already compliant the original path is
// returned; otherwise the file is re-encoded and the original removed.
// codecHint covers files whose probe reports no video codec.
func (t *Transcoder) EnsurePlayable(ctx context.Context, path, codecHint string) (string, error) {
	streams, err := t.probe(ctx, path)
	if err != nil {
		// Probe failures are not fatal: re-encode with audio assumed
		// present and let ffmpeg decide.
		t.logger.Warn("Probe failed, re-encoding anyway",
			zap.String("path", path),
			zap.Error(err))
		return t.transcode(path, true)
	}

	codec := videoCodecOf(streams)
	if codec == "" {
		codec = codecHint
	}

	if CompliantCodec(codec) {
		t.logger.Debug("Codec already compliant",
			zap.String("path", path),
			zap.String("codec", codec))
		return path, nil
	}

	return t.transcode(path, streamsHaveAudio(streams))
}

// CompliantCodec reports whether a video codec string names an H.264
// stream that needs no re-encode.
func CompliantCodec(codec string) bool {
	normalized := strings.ToLower(strings.TrimSpace(codec))
	return strings.HasPrefix(normalized, "avc") || strings.HasPrefix(normalized, "h264")
}

// probe runs ffprobe and parses its stream listing
func (t *Transcoder) probe(ctx context.Context, path string) ([]ffprobeStream, error) {
	binary := t.ffprobeBinary()
	args := []string{"-v", "error", "-print_format", "json", "-show_streams", path}

	t.logger.Debug("Probing media file",
		zap.String("command", ShellEscapeCommand(binary, args...)))

	output, err := exec.CommandContext(ctx, binary, args...).Output()
	if err != nil {
		return nil, err
	}
	return parseProbeOutput(output)
}

// parseProbeOutput decodes ffprobe's -print_format json stream listing
func parseProbeOutput(data []byte) ([]ffprobeStream, error) {
	var parsed ffprobeOutput
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}
	return parsed.Streams, nil
}

func videoCodecOf(streams []ffprobeStream) string {
	for _, stream := range streams {
		if stream.CodecType == "video" {
			return stream.CodecName
		}
	}
	return ""
}

func streamsHaveAudio(streams []ffprobeStream) bool {
	for _, stream := range streams {
		if stream.CodecType == "audio" && stream.Channels > 0 {
			return true
		}
	}
	return false
}

// transcode re-encodes path into transcodeTarget(path) and removes the
// original on success. The encode blocks until ffmpeg exits.
func (t *Transcoder) transcode(path string, hasAudio bool) (string, error) {
	target := transcodeTarget(path)

	t.logger.Info("Re-encoding video",
		zap.String("input", path),
		zap.String("output", target),
		zap.Bool("audio", hasAudio))

	options := complianceOptions(hasAudio)

	progress, err := ffmpeg.
		New(t.encoderConfig()).
		Input(path).
		Output(target).
		Start(options)
	if err != nil {
		t.discardPartial(target)
		return "", domain.NewFetchError(domain.ErrTranscodeFailure, "video re-encoding failed to start", err)
	}

	// Drain until ffmpeg closes the channel; that is the completion
	// signal. The library swallows the exit status, so a missing or
	// empty target is how a failed encode shows up.
	for range progress {
	}

	info, err := os.Stat(target)
	if err != nil || info.Size() == 0 {
		t.discardPartial(target)
		return "", domain.NewFetchError(domain.ErrTranscodeFailure, "re-encoded file was not produced", err)
	}

	if target != path {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			t.logger.Warn("Failed to remove pre-encode original",
				zap.String("path", path),
				zap.Error(err))
		}
	}

	return target, nil
}

// encoderConfig builds the ffmpeg wrapper configuration. ProgressEnabled
// must stay on: without it the library never closes the progress channel
// and the drain above would block forever.
func (t *Transcoder) encoderConfig() *ffmpeg.Config {
	return &ffmpeg.Config{
		FfmpegBinPath:   t.ffmpegBinary(),
		FfprobeBinPath:  t.ffprobeBinary(),
		ProgressEnabled: true,
	}
}

// discardPartial removes a half-written encode target
func (t *Transcoder) discardPartial(target string) {
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		t.logger.Debug("Failed to remove partial encode output",
			zap.String("path", target),
			zap.Error(err))
	}
}

// complianceOptions builds the ffmpeg options for the baseline H.264
// profile: level 3.1, CRF 23, 48-frame keyframe interval, faststart MP4,
// AAC stereo at 48 kHz when audio is present.
func complianceOptions(hasAudio bool) ffmpeg.Options {
	options := ffmpeg.Options{
		VideoCodec:       strPtr("libx264"),
		VideoProfile:     strPtr("baseline"),
		Crf:              uint32Ptr(23),
		Preset:           strPtr("veryfast"),
		KeyframeInterval: intPtr(48),
		PixFmt:           strPtr("yuv420p"),
		MovFlags:         strPtr("+faststart"),
		Overwrite:        boolPtr(true),
		ExtraArgs: map[string]interface{}{
			"-level": "3.1",
			"-vsync": "vfr",
		},
	}

	if hasAudio {
		options.AudioCodec = strPtr("aac")
		options.AudioBitrate = strPtr("128k")
		options.AudioChannels = intPtr(2)
		options.AudioRate = intPtr(48000)
	} else {
		options.SkipAudio = boolPtr(true)
	}

	return options
}

// transcodeTarget derives the output path: swap the extension for .mp4,
// or append an _h264 suffix when the input is already an .mp4.
func transcodeTarget(path string) string {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, ".mp4") {
		return strings.TrimSuffix(path, ext) + "_h264.mp4"
	}
	if ext == "" {
		return path + ".mp4"
	}
	return strings.TrimSuffix(path, ext) + ".mp4"
}

func (t *Transcoder) ffmpegBinary() string {
	if t.config.FfmpegBinary != "" {
		return t.config.FfmpegBinary
	}
	return "ffmpeg"
}

func (t *Transcoder) ffprobeBinary() string {
	if t.config.FfprobeBinary != "" {
		return t.config.FfprobeBinary
	}
	return "ffprobe"
}

func strPtr(s string) *string    { return &s }
func intPtr(i int) *int          { return &i }
func uint32Ptr(u uint32) *uint32 { return &u }
func boolPtr(b bool) *bool       { return &b }
