// Package engine contains the adapters that drive the underlying
// transformation engines: the in-process raster library, the ffmpeg
// process, the pdfcpu library and the headless browser. Every adapter
// exposes the same Execute contract regardless of how its engine is
// invoked.
package engine

import (
	"context"
	"errors"
	"fmt"
)

// Adapter executes one validated tool invocation against its engine.
type Adapter interface {
	Execute(ctx context.Context, req Request) (*Output, error)
}

var (
	// ErrUnsupportedTool marks a recognized but intentionally disabled
	// tool, so callers can answer "not yet available" instead of treating
	// the request as malformed.
	ErrUnsupportedTool = errors.New("engine: tool not yet available")

	// ErrEmptyOutput guards against engines reporting success with no
	// bytes; adapters never return a zero-length result.
	ErrEmptyOutput = errors.New("engine: produced empty output")
)

// EngineError wraps any engine-side failure with the tool that triggered
// it. Handlers log the underlying error and surface only a generic
// processing failure.
type EngineError struct {
	Tool string
	Err  error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("engine failure in %q: %v", e.Tool, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }

func engineErr(tool string, err error) error {
	return &EngineError{Tool: tool, Err: err}
}

// File is one uploaded input.
type File struct {
	Name string
	Data []byte
}

// Params is the normalized parameter bag the dispatcher passes to an
// adapter after validation.
type Params map[string]string

func (p Params) Get(key string) string { return p[key] }

// SessionStager is the scratch surface adapters need; satisfied by
// *scratch.Session.
type SessionStager interface {
	Stage(data []byte, name string) (string, error)
	Alloc(name string) string
	Read(path string) ([]byte, error)
}

// Request is one validated adapter invocation.
type Request struct {
	Tool    string
	Files   []File
	Params  Params
	Scratch SessionStager
}

// Output is what an adapter produced: the transformed bytes, the concrete
// media type, and the file extension matching that type. Ext never carries
// a leading dot.
type Output struct {
	Data     []byte
	MimeType string
	Ext      string
}

func (o *Output) validate(tool string) (*Output, error) {
	if o == nil || len(o.Data) == 0 {
		return nil, engineErr(tool, ErrEmptyOutput)
	}
	return o, nil
}
