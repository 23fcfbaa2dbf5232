package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFProtectIsRecognizedButDisabled(t *testing.T) {
	a := NewPDFAdapter(nil)

	_, err := a.Execute(context.Background(), Request{
		Tool:  "protect",
		Files: []File{{Name: "doc.pdf", Data: []byte("%PDF-1.4")}},
	})

	// Disabled is distinct from malformed and from a generic engine
	// failure.
	assert.ErrorIs(t, err, ErrUnsupportedTool)
	var eErr *EngineError
	assert.False(t, errors.As(err, &eErr))
}

func TestPDFUnknownToolIsEngineError(t *testing.T) {
	a := NewPDFAdapter(nil)

	_, err := a.Execute(context.Background(), Request{
		Tool:  "rotate-pages",
		Files: []File{{Name: "doc.pdf", Data: []byte("%PDF-1.4")}},
	})

	var eErr *EngineError
	require.ErrorAs(t, err, &eErr)
	assert.False(t, errors.Is(err, ErrUnsupportedTool))
}

func TestOutputValidateRejectsEmpty(t *testing.T) {
	var out *Output
	_, err := out.validate("convert")
	assert.ErrorIs(t, err, ErrEmptyOutput)

	_, err = (&Output{MimeType: "image/png", Ext: "png"}).validate("convert")
	assert.ErrorIs(t, err, ErrEmptyOutput)

	got, err := (&Output{Data: []byte("x"), MimeType: "image/png", Ext: "png"}).validate("convert")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), got.Data)
}

func TestMimeForExtension(t *testing.T) {
	assert.Equal(t, "image/png", MimeForExtension("png"))
	assert.Equal(t, "application/pdf", MimeForExtension("pdf"))
	assert.Equal(t, "application/octet-stream", MimeForExtension("noidea"))
}

func TestIsVideoExtension(t *testing.T) {
	assert.True(t, IsVideoExtension("clip.mp4"))
	assert.True(t, IsVideoExtension("CLIP.MKV"))
	assert.False(t, IsVideoExtension("song.mp3"))
	assert.False(t, IsVideoExtension("noext"))
}
