package engine

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Compression presets mapped to x264 constant-rate factors. Lower CRF keeps
// more detail at a larger size.
const (
	crfQuality  = 23
	crfBalanced = 28
	crfSize     = 33
)

const (
	gifFPS   = 12
	gifWidth = 480
)

var audioCodecByExt = map[string]string{
	"mp3":  "libmp3lame",
	"wav":  "pcm_s16le",
	"ogg":  "libvorbis",
	"opus": "libopus",
	"flac": "flac",
	"aac":  "aac",
	"m4a":  "aac",
}

// MediaAdapter drives every audio/video tool through the ffmpeg process.
// Each invocation binds explicit scratch input/output paths since the
// process cannot share file handles across concurrent requests.
type MediaAdapter struct {
	ffmpeg *FFmpeg
}

func NewMediaAdapter(ffmpeg *FFmpeg) *MediaAdapter {
	return &MediaAdapter{ffmpeg: ffmpeg}
}

func (a *MediaAdapter) Execute(ctx context.Context, req Request) (*Output, error) {
	src := req.Files[0]

	in, err := req.Scratch.Stage(src.Data, src.Name)
	if err != nil {
		return nil, engineErr(req.Tool, err)
	}

	args, ext, err := MediaArgs(req.Tool, req.Params, in, src.Name)
	if err != nil {
		return nil, engineErr(req.Tool, err)
	}

	out := req.Scratch.Alloc("output." + ext)
	args = append(args, out)

	if err := a.ffmpeg.Run(ctx, args); err != nil {
		return nil, engineErr(req.Tool, err)
	}

	data, err := req.Scratch.Read(out)
	if err != nil {
		return nil, engineErr(req.Tool, err)
	}

	result := &Output{Data: data, MimeType: MimeForExtension(ext), Ext: ext}
	return result.validate(req.Tool)
}

// MediaArgs builds the ffmpeg argument list for one tool, minus the output
// path, and returns the output extension. Pure so it can be tested without
// the binary.
func MediaArgs(tool string, p Params, inputPath, sourceName string) ([]string, string, error) {
	srcExt := strings.TrimPrefix(strings.ToLower(extOf(sourceName)), ".")
	if srcExt == "" {
		srcExt = "mp4"
	}

	switch tool {
	case "convert":
		format := strings.ToLower(p.Get("format"))
		return []string{"-i", inputPath}, format, nil

	case "trim":
		// Seek before the input so ffmpeg can keyframe-seek; stream copy
		// avoids re-encoding properties the cut does not touch.
		return []string{
			"-ss", p.Get("start"),
			"-i", inputPath,
			"-t", p.Get("duration"),
			"-c", "copy",
		}, srcExt, nil

	case "speed":
		factor, err := strconv.ParseFloat(p.Get("factor"), 64)
		if err != nil || factor <= 0 {
			return nil, "", fmt.Errorf("speed factor must be > 0, got %q", p.Get("factor"))
		}
		if _, audioOnly := audioCodecByExt[srcExt]; audioOnly {
			return []string{
				"-i", inputPath,
				"-filter:a", atempoChain(factor),
			}, srcExt, nil
		}
		filter := fmt.Sprintf("[0:v]setpts=PTS/%g[v];[0:a]%s[a]", factor, atempoChain(factor))
		return []string{
			"-i", inputPath,
			"-filter_complex", filter,
			"-map", "[v]", "-map", "[a]",
		}, "mp4", nil

	case "normalize":
		return []string{
			"-i", inputPath,
			"-af", "loudnorm",
		}, srcExt, nil

	case "compress":
		crf, err := crfForPreset(p.Get("preset"))
		if err != nil {
			return nil, "", err
		}
		return []string{
			"-i", inputPath,
			"-vcodec", "libx264",
			"-crf", strconv.Itoa(crf),
			"-preset", "medium",
			"-acodec", "aac",
		}, "mp4", nil

	case "extract-audio":
		format := strings.ToLower(p.Get("format"))
		if format == "" {
			format = "mp3"
		}
		codec, ok := audioCodecByExt[format]
		if !ok {
			return nil, "", fmt.Errorf("unsupported audio format %q", format)
		}
		return []string{
			"-i", inputPath,
			"-vn",
			"-acodec", codec,
		}, format, nil

	case "gif":
		filter := fmt.Sprintf("fps=%d,scale=%d:-1:flags=lanczos", gifFPS, gifWidth)
		return []string{
			"-i", inputPath,
			"-vf", filter,
		}, "gif", nil

	case "waveform":
		// Amplitude visualization rendered into a video container; the
		// original audio rides along and -shortest clips to the shorter
		// of the two streams.
		return []string{
			"-i", inputPath,
			"-filter_complex", "[0:a]showwaves=s=1280x720:mode=line:colors=white[v]",
			"-map", "[v]", "-map", "0:a",
			"-c:v", "libx264", "-pix_fmt", "yuv420p",
			"-shortest",
		}, "mp4", nil
	}

	return nil, "", fmt.Errorf("unknown media tool %q", tool)
}

// crfForPreset maps the three public presets to constant-rate factors.
func crfForPreset(preset string) (int, error) {
	switch preset {
	case "quality":
		return crfQuality, nil
	case "balanced", "":
		return crfBalanced, nil
	case "size":
		return crfSize, nil
	}
	return 0, fmt.Errorf("unknown compression preset %q", preset)
}

// atempoChain composes atempo filters so any positive factor is reachable;
// a single atempo only accepts [0.5, 2.0].
func atempoChain(factor float64) string {
	var parts []string
	for factor > 2.0 {
		parts = append(parts, "atempo=2.0")
		factor /= 2.0
	}
	for factor < 0.5 {
		parts = append(parts, "atempo=0.5")
		factor /= 0.5
	}
	parts = append(parts, fmt.Sprintf("atempo=%g", factor))
	return strings.Join(parts, ",")
}
