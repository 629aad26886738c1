package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/media-fetch-go/internal/domain"
	"go.uber.org/zap"
)

func TestCompliantCodec(t *testing.T) {
	tests := []struct {
		codec    string
		expected bool
	}{
		{"avc1.64001f", true},
		{"avc1", true},
		{"h264", true},
		{"H264", true},
		{"  avc1.42E01E  ", true},
		{"hev1.1.6.L93.B0", false},
		{"hevc", false},
		{"vp9", false},
		{"av01.0.08M.08", false},
		{"none", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.codec, func(t *testing.T) {
			assert.Equal(t, tt.expected, CompliantCodec(tt.codec))
		})
	}
}

func TestTranscodeTarget(t *testing.T) {
	assert.Equal(t, "/tmp/clip_h264.mp4", transcodeTarget("/tmp/clip.mp4"))
	assert.Equal(t, "/tmp/clip_h264.mp4", transcodeTarget("/tmp/clip.MP4"))
	assert.Equal(t, "/tmp/clip.mp4", transcodeTarget("/tmp/clip.webm"))
	assert.Equal(t, "/tmp/clip.mp4", transcodeTarget("/tmp/clip.mkv"))
	assert.Equal(t, "/tmp/clip.mp4", transcodeTarget("/tmp/clip"))
}

func TestParseProbeOutput(t *testing.T) {
	data := []byte(`{
		"streams": [
			{"codec_type": "video", "codec_name": "hevc"},
			{"codec_type": "audio", "codec_name": "aac", "channels": 2}
		]
	}`)

	streams, err := parseProbeOutput(data)
	require.NoError(t, err)
	require.Len(t, streams, 2)

	assert.Equal(t, "hevc", videoCodecOf(streams))
	assert.True(t, streamsHaveAudio(streams))
}

func TestParseProbeOutput_Invalid(t *testing.T) {
	_, err := parseProbeOutput([]byte("not json"))
	assert.Error(t, err)
}

func TestStreamsHaveAudio(t *testing.T) {
	// Zero-channel audio stream does not count
	streams := []ffprobeStream{
		{CodecType: "video", CodecName: "h264"},
		{CodecType: "audio", CodecName: "aac", Channels: 0},
	}
	assert.False(t, streamsHaveAudio(streams))

	streams[1].Channels = 1
	assert.True(t, streamsHaveAudio(streams))

	assert.False(t, streamsHaveAudio(nil))
}

func TestVideoCodecOf(t *testing.T) {
	assert.Equal(t, "", videoCodecOf(nil))
	assert.Equal(t, "vp9", videoCodecOf([]ffprobeStream{
		{CodecType: "audio", CodecName: "opus", Channels: 2},
		{CodecType: "video", CodecName: "vp9"},
	}))
}

func TestEncoderConfig(t *testing.T) {
	transcoder := NewTranscoder(&domain.TranscodeConfig{}, zap.NewNop())

	config := transcoder.encoderConfig()
	assert.Equal(t, "ffmpeg", config.FfmpegBinPath)
	assert.Equal(t, "ffprobe", config.FfprobeBinPath)
	// The encode drains the progress channel until ffmpeg closes it;
	// the library only does that with progress reporting enabled.
	assert.True(t, config.ProgressEnabled)

	custom := NewTranscoder(&domain.TranscodeConfig{
		FfmpegBinary:  "/opt/ffmpeg/bin/ffmpeg",
		FfprobeBinary: "/opt/ffmpeg/bin/ffprobe",
	}, zap.NewNop())
	assert.Equal(t, "/opt/ffmpeg/bin/ffmpeg", custom.encoderConfig().FfmpegBinPath)
	assert.Equal(t, "/opt/ffmpeg/bin/ffprobe", custom.encoderConfig().FfprobeBinPath)
	assert.True(t, custom.encoderConfig().ProgressEnabled)
}

func TestComplianceOptions(t *testing.T) {
	withAudio := complianceOptions(true)
	require.NotNil(t, withAudio.VideoCodec)
	assert.Equal(t, "libx264", *withAudio.VideoCodec)
	assert.Equal(t, "baseline", *withAudio.VideoProfile)
	assert.Equal(t, uint32(23), *withAudio.Crf)
	assert.Equal(t, "yuv420p", *withAudio.PixFmt)
	assert.Equal(t, "+faststart", *withAudio.MovFlags)
	assert.Equal(t, "3.1", withAudio.ExtraArgs["-level"])
	require.NotNil(t, withAudio.AudioCodec)
	assert.Equal(t, "aac", *withAudio.AudioCodec)
	assert.Equal(t, 2, *withAudio.AudioChannels)
	assert.Equal(t, 48000, *withAudio.AudioRate)
	assert.Nil(t, withAudio.SkipAudio)

	silent := complianceOptions(false)
	assert.Nil(t, silent.AudioCodec)
	require.NotNil(t, silent.SkipAudio)
	assert.True(t, *silent.SkipAudio)
}
