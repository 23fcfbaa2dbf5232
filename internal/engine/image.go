package engine

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// UpscaleFactors are the only resampling factors the upscale tool accepts.
var UpscaleFactors = []int{2, 4}

// icoSize is the fixed square raster the icon target is forced to, since
// the icon container expects a small fixed-size image.
const icoSize = 256

// processFallbackFormats are raster targets the in-process library cannot
// emit; they are routed through the ffmpeg process instead.
var processFallbackFormats = map[string]bool{
	"webp": true,
	"ico":  true,
	"avif": true,
}

// ImageAdapter transforms raster images in-process, falling back to the
// ffmpeg engine for formats the library cannot encode.
type ImageAdapter struct {
	ffmpeg *FFmpeg
}

func NewImageAdapter(ffmpeg *FFmpeg) *ImageAdapter {
	return &ImageAdapter{ffmpeg: ffmpeg}
}

func (a *ImageAdapter) Execute(ctx context.Context, req Request) (*Output, error) {
	src := req.Files[0]

	if req.Tool == "convert" {
		if format := strings.ToLower(req.Params.Get("format")); processFallbackFormats[format] {
			out, err := a.convertViaProcess(ctx, src, format, req.Scratch)
			if err != nil {
				return nil, engineErr(req.Tool, err)
			}
			return out.validate(req.Tool)
		}
	}

	img, err := imaging.Decode(bytes.NewReader(src.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, engineErr(req.Tool, fmt.Errorf("failed to decode image: %w", err))
	}

	format := imaging.JPEG
	quality := 0
	ext := "jpg"

	switch req.Tool {
	case "convert":
		target := strings.ToLower(req.Params.Get("format"))
		format, err = imaging.FormatFromExtension(target)
		if err != nil {
			return nil, engineErr(req.Tool, fmt.Errorf("unsupported image format %q: %w", target, err))
		}
		ext = target

	case "resize":
		width, _ := strconv.Atoi(req.Params.Get("width"))
		height, _ := strconv.Atoi(req.Params.Get("height"))
		img = imaging.Resize(img, width, height, imaging.Lanczos)
		format, ext = formatForSource(src.Name)

	case "crop":
		x, _ := strconv.Atoi(req.Params.Get("x"))
		y, _ := strconv.Atoi(req.Params.Get("y"))
		width, _ := strconv.Atoi(req.Params.Get("width"))
		height, _ := strconv.Atoi(req.Params.Get("height"))
		img = imaging.Crop(img, image.Rect(x, y, x+width, y+height))
		format, ext = formatForSource(src.Name)

	case "rotate":
		angle, _ := strconv.Atoi(req.Params.Get("angle"))
		switch angle {
		case 90:
			img = imaging.Rotate90(img)
		case 180:
			img = imaging.Rotate180(img)
		case 270:
			img = imaging.Rotate270(img)
		default:
			return nil, engineErr(req.Tool, fmt.Errorf("unsupported rotation angle %d", angle))
		}
		format, ext = formatForSource(src.Name)

	case "flip":
		if req.Params.Get("direction") == "vertical" {
			img = imaging.FlipV(img)
		} else {
			img = imaging.FlipH(img)
		}
		format, ext = formatForSource(src.Name)

	case "compress":
		quality, _ = strconv.Atoi(req.Params.Get("quality"))
		if quality == 0 {
			quality = 75
		}
		format, ext = imaging.JPEG, "jpg"

	case "watermark":
		img = overlayText(img, req.Params.Get("text"))
		format, ext = formatForSource(src.Name)

	case "upscale":
		factor, _ := strconv.Atoi(req.Params.Get("factor"))
		if !allowedFactor(factor) {
			return nil, engineErr(req.Tool, fmt.Errorf("upscale factor must be one of %v, got %d", UpscaleFactors, factor))
		}
		bounds := img.Bounds()
		img = imaging.Resize(img, bounds.Dx()*factor, bounds.Dy()*factor, imaging.Lanczos)
		format, ext = formatForSource(src.Name)

	default:
		return nil, engineErr(req.Tool, fmt.Errorf("unknown image tool"))
	}

	var buf bytes.Buffer
	var opts []imaging.EncodeOption
	if quality > 0 {
		opts = append(opts, imaging.JPEGQuality(quality))
	}
	if err := imaging.Encode(&buf, img, format, opts...); err != nil {
		return nil, engineErr(req.Tool, fmt.Errorf("failed to encode image: %w", err))
	}

	out := &Output{Data: buf.Bytes(), MimeType: MimeForExtension(ext), Ext: ext}
	return out.validate(req.Tool)
}

// convertViaProcess stages the input and lets ffmpeg encode a format the
// in-process library cannot emit.
func (a *ImageAdapter) convertViaProcess(ctx context.Context, src File, format string, sess SessionStager) (*Output, error) {
	in, err := sess.Stage(src.Data, src.Name)
	if err != nil {
		return nil, err
	}
	out := sess.Alloc("output." + format)

	args := []string{"-i", in}
	if format == "ico" {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:%d", icoSize, icoSize))
	}
	args = append(args, out)

	if err := a.ffmpeg.Run(ctx, args); err != nil {
		return nil, err
	}

	data, err := sess.Read(out)
	if err != nil {
		return nil, err
	}
	return &Output{Data: data, MimeType: MimeForExtension(format), Ext: format}, nil
}

// formatForSource keeps the source encoding for geometry-only tools,
// defaulting to PNG when the source extension is not encodable.
func formatForSource(name string) (imaging.Format, string) {
	ext := strings.TrimPrefix(strings.ToLower(extOf(name)), ".")
	format, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return imaging.PNG, "png"
	}
	if ext == "jpeg" {
		ext = "jpg"
	}
	return format, ext
}

func allowedFactor(factor int) bool {
	for _, f := range UpscaleFactors {
		if factor == f {
			return true
		}
	}
	return false
}

// overlayText draws text in the lower-left corner over a copy of img.
func overlayText(img image.Image, text string) image.Image {
	rgba := imaging.Clone(img)
	face := basicfont.Face7x13
	margin := 10

	drawer := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(color.White),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(margin),
			Y: fixed.I(rgba.Bounds().Dy() - margin),
		},
	}
	// Shadow first so the text stays readable on light backgrounds.
	shadow := &font.Drawer{
		Dst:  rgba,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot: fixed.Point26_6{
			X: fixed.I(margin + 1),
			Y: fixed.I(rgba.Bounds().Dy() - margin + 1),
		},
	}
	shadow.DrawString(text)
	drawer.DrawString(text)
	return rgba
}
