package engine

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testPNG encodes a solid-color PNG of the given dimensions.
func testPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: 40, G: 120, B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func imageRequest(tool string, data []byte, params Params) Request {
	return Request{
		Tool:   tool,
		Files:  []File{{Name: "photo.png", Data: data}},
		Params: params,
	}
}

func decodeOutput(t *testing.T, out *Output) image.Image {
	t.Helper()
	img, err := imaging.Decode(bytes.NewReader(out.Data))
	require.NoError(t, err)
	return img
}

func TestImageConvertPNGToJPEG(t *testing.T) {
	a := NewImageAdapter(nil)

	out, err := a.Execute(context.Background(), imageRequest("convert", testPNG(t, 8, 8), Params{"format": "jpg"}))
	require.NoError(t, err)

	assert.Equal(t, "jpg", out.Ext)
	assert.Equal(t, "image/jpeg", out.MimeType)
	assert.True(t, bytes.HasPrefix(out.Data, []byte{0xff, 0xd8}), "output should carry the JPEG magic")
}

func TestImageCropDimensions(t *testing.T) {
	a := NewImageAdapter(nil)

	out, err := a.Execute(context.Background(), imageRequest("crop", testPNG(t, 20, 20),
		Params{"x": "2", "y": "2", "width": "10", "height": "5"}))
	require.NoError(t, err)

	img := decodeOutput(t, out)
	assert.Equal(t, 10, img.Bounds().Dx())
	assert.Equal(t, 5, img.Bounds().Dy())
	assert.Equal(t, "png", out.Ext, "geometry tools keep the source format")
}

func TestImageResize(t *testing.T) {
	a := NewImageAdapter(nil)

	out, err := a.Execute(context.Background(), imageRequest("resize", testPNG(t, 16, 16),
		Params{"width": "4", "height": "4"}))
	require.NoError(t, err)

	img := decodeOutput(t, out)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 4, img.Bounds().Dy())
}

func TestImageUpscaleDoublesBounds(t *testing.T) {
	a := NewImageAdapter(nil)

	out, err := a.Execute(context.Background(), imageRequest("upscale", testPNG(t, 6, 4), Params{"factor": "2"}))
	require.NoError(t, err)

	img := decodeOutput(t, out)
	assert.Equal(t, 12, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestImageUpscaleRejectsFactorOutsideSet(t *testing.T) {
	a := NewImageAdapter(nil)

	_, err := a.Execute(context.Background(), imageRequest("upscale", testPNG(t, 4, 4), Params{"factor": "3"}))

	var eErr *EngineError
	require.ErrorAs(t, err, &eErr)
	assert.Equal(t, "upscale", eErr.Tool)
}

func TestImageRotateRejectsOddAngle(t *testing.T) {
	a := NewImageAdapter(nil)

	_, err := a.Execute(context.Background(), imageRequest("rotate", testPNG(t, 4, 4), Params{"angle": "45"}))

	var eErr *EngineError
	assert.ErrorAs(t, err, &eErr)
}

func TestImageRotateSwapsBounds(t *testing.T) {
	a := NewImageAdapter(nil)

	out, err := a.Execute(context.Background(), imageRequest("rotate", testPNG(t, 10, 4), Params{"angle": "90"}))
	require.NoError(t, err)

	img := decodeOutput(t, out)
	assert.Equal(t, 4, img.Bounds().Dx())
	assert.Equal(t, 10, img.Bounds().Dy())
}

func TestImageWatermarkProducesDecodableOutput(t *testing.T) {
	a := NewImageAdapter(nil)

	out, err := a.Execute(context.Background(), imageRequest("watermark", testPNG(t, 64, 32), Params{"text": "draft"}))
	require.NoError(t, err)
	require.NotEmpty(t, out.Data)

	img := decodeOutput(t, out)
	assert.Equal(t, 64, img.Bounds().Dx())
}

func TestImageCompressEmitsJPEG(t *testing.T) {
	a := NewImageAdapter(nil)

	out, err := a.Execute(context.Background(), imageRequest("compress", testPNG(t, 8, 8), Params{"quality": "50"}))
	require.NoError(t, err)

	assert.Equal(t, "jpg", out.Ext)
	assert.True(t, bytes.HasPrefix(out.Data, []byte{0xff, 0xd8}))
}

func TestImageRejectsUndecodableInput(t *testing.T) {
	a := NewImageAdapter(nil)

	_, err := a.Execute(context.Background(), imageRequest("convert", []byte("not an image"), Params{"format": "jpg"}))

	var eErr *EngineError
	require.ErrorAs(t, err, &eErr)
	assert.False(t, errors.Is(err, ErrUnsupportedTool))
}

func TestFormatForSource(t *testing.T) {
	tests := []struct {
		name    string
		wantExt string
	}{
		{"photo.png", "png"},
		{"photo.JPEG", "jpg"},
		{"photo.gif", "gif"},
		{"photo.heic", "png"},
		{"noext", "png"},
	}
	for _, tt := range tests {
		_, ext := formatForSource(tt.name)
		assert.Equal(t, tt.wantExt, ext, "source %q", tt.name)
	}
}
