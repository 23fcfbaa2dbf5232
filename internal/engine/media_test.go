package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaArgsTrimStreamCopies(t *testing.T) {
	args, ext, err := MediaArgs("trim", Params{"start": "00:00:05", "duration": "00:00:10"}, "/tmp/in.mp4", "clip.mp4")
	require.NoError(t, err)

	assert.Equal(t, []string{"-ss", "00:00:05", "-i", "/tmp/in.mp4", "-t", "00:00:10", "-c", "copy"}, args)
	assert.Equal(t, "mp4", ext, "trim keeps the source container")
}

func TestMediaArgsConvertUsesRequestedFormat(t *testing.T) {
	args, ext, err := MediaArgs("convert", Params{"format": "WEBM"}, "/tmp/in.mp4", "clip.mp4")
	require.NoError(t, err)

	assert.Equal(t, []string{"-i", "/tmp/in.mp4"}, args)
	assert.Equal(t, "webm", ext)
}

func TestMediaArgsSpeed(t *testing.T) {
	t.Run("video gets a filter_complex and lands in mp4", func(t *testing.T) {
		args, ext, err := MediaArgs("speed", Params{"factor": "2"}, "/tmp/in.mov", "clip.mov")
		require.NoError(t, err)
		assert.Equal(t, "mp4", ext)
		assert.Contains(t, args, "-filter_complex")
		assert.Contains(t, args, "[0:v]setpts=PTS/2[v];[0:a]atempo=2[a]")
	})

	t.Run("audio source keeps its container and only retimes audio", func(t *testing.T) {
		args, ext, err := MediaArgs("speed", Params{"factor": "1.5"}, "/tmp/in.mp3", "song.mp3")
		require.NoError(t, err)
		assert.Equal(t, "mp3", ext)
		assert.Contains(t, args, "-filter:a")
		assert.NotContains(t, args, "-filter_complex")
	})

	t.Run("non-positive factor is rejected", func(t *testing.T) {
		_, _, err := MediaArgs("speed", Params{"factor": "0"}, "/tmp/in.mp4", "clip.mp4")
		assert.Error(t, err)
		_, _, err = MediaArgs("speed", Params{"factor": "-2"}, "/tmp/in.mp4", "clip.mp4")
		assert.Error(t, err)
	})
}

func TestAtempoChain(t *testing.T) {
	tests := []struct {
		factor float64
		want   string
	}{
		{2.0, "atempo=2"},
		{0.5, "atempo=0.5"},
		{4.0, "atempo=2.0,atempo=2"},
		{0.25, "atempo=0.5,atempo=0.5"},
		{3.0, "atempo=2.0,atempo=1.5"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, atempoChain(tt.factor), "factor %g", tt.factor)
	}
}

func TestCRFForPreset(t *testing.T) {
	tests := []struct {
		preset  string
		want    int
		wantErr bool
	}{
		{"quality", crfQuality, false},
		{"balanced", crfBalanced, false},
		{"", crfBalanced, false},
		{"size", crfSize, false},
		{"tiny", 0, true},
	}
	for _, tt := range tests {
		crf, err := crfForPreset(tt.preset)
		if tt.wantErr {
			assert.Error(t, err, "preset %q", tt.preset)
			continue
		}
		require.NoError(t, err, "preset %q", tt.preset)
		assert.Equal(t, tt.want, crf)
	}
}

func TestMediaArgsExtractAudio(t *testing.T) {
	args, ext, err := MediaArgs("extract-audio", Params{"format": "flac"}, "/tmp/in.mp4", "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "flac", ext)
	assert.Contains(t, args, "-vn")
	assert.Contains(t, args, "flac")

	// mp3 is the default when no format is given.
	_, ext, err = MediaArgs("extract-audio", Params{}, "/tmp/in.mp4", "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "mp3", ext)

	_, _, err = MediaArgs("extract-audio", Params{"format": "xyz"}, "/tmp/in.mp4", "clip.mp4")
	assert.Error(t, err)
}

func TestMediaArgsGIF(t *testing.T) {
	args, ext, err := MediaArgs("gif", Params{}, "/tmp/in.mp4", "clip.mp4")
	require.NoError(t, err)
	assert.Equal(t, "gif", ext)
	assert.Contains(t, args, "fps=12,scale=480:-1:flags=lanczos")
}

func TestMediaArgsWaveformClipsToShortestStream(t *testing.T) {
	args, ext, err := MediaArgs("waveform", Params{}, "/tmp/in.mp3", "song.mp3")
	require.NoError(t, err)
	assert.Equal(t, "mp4", ext)
	assert.Contains(t, args, "-shortest")
	assert.Contains(t, args, "[0:a]showwaves=s=1280x720:mode=line:colors=white[v]")
}

func TestMediaArgsUnknownTool(t *testing.T) {
	_, _, err := MediaArgs("reverse", Params{}, "/tmp/in.mp4", "clip.mp4")
	assert.Error(t, err)
}
