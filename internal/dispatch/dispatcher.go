// Package dispatch validates transformation requests and routes them to the
// engine adapter registered for their domain. No engine is ever invoked for
// a request that fails validation.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"fileforge-backend/internal/engine"
	"fileforge-backend/internal/models"
)

// ValidationError names the single field that made the request invalid.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid field %q: %s", e.Field, e.Message)
}

func invalid(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Result is the outcome of one successful dispatch.
type Result struct {
	Data          []byte
	MimeType      string
	FileName      string
	TargetType    string
	Kind          string
	UpscaleFactor int
}

// Dispatcher maps (domain, tool) to adapters and owns request validation.
type Dispatcher struct {
	adapters map[string]engine.Adapter
	log      *slog.Logger
}

func New(adapters map[string]engine.Adapter, log *slog.Logger) *Dispatcher {
	return &Dispatcher{adapters: adapters, log: log}
}

// Dispatch validates and executes exactly one adapter invocation. Retries,
// if any, are the adapter's business.
func (d *Dispatcher) Dispatch(ctx context.Context, domain, tool string, files []engine.File, params engine.Params, sess engine.SessionStager) (*Result, error) {
	if err := d.validate(domain, tool, files, params); err != nil {
		d.log.Debug("request rejected", "domain", domain, "tool", tool, "error", err)
		return nil, err
	}

	adapter, ok := d.adapters[domain]
	if !ok {
		return nil, invalid("domain", fmt.Sprintf("no adapter registered for domain %q", domain))
	}

	out, err := adapter.Execute(ctx, engine.Request{
		Tool:    tool,
		Files:   files,
		Params:  params,
		Scratch: sess,
	})
	if err != nil {
		return nil, err
	}

	result := &Result{
		Data:       out.Data,
		MimeType:   out.MimeType,
		FileName:   outputName(sourceName(files, params), tool, out.Ext),
		TargetType: out.Ext,
		Kind:       models.KindConversion,
	}
	if tool == "upscale" {
		result.Kind = models.KindUpscale
		result.UpscaleFactor, _ = strconv.Atoi(params.Get("factor"))
	}
	return result, nil
}

func (d *Dispatcher) validate(domain, tool string, files []engine.File, params engine.Params) error {
	if !knownDomain(domain) {
		return invalid("domain", fmt.Sprintf("unknown domain %q", domain))
	}
	spec, ok := catalog[domain][tool]
	if !ok {
		return invalid("tool", fmt.Sprintf("unknown tool %q for domain %q", tool, domain))
	}

	if spec.minFiles > 0 && len(files) == 0 {
		return invalid("files", "no file uploaded")
	}
	for _, f := range files {
		if len(f.Data) == 0 {
			return invalid("files", fmt.Sprintf("file %q is empty", f.Name))
		}
	}
	if len(files) < spec.minFiles {
		if spec.minFiles == 2 {
			return invalid("files", "at least two files required")
		}
		return invalid("files", fmt.Sprintf("at least %d files required", spec.minFiles))
	}

	for _, p := range spec.params {
		value, present := params[p.name]
		if !present || value == "" {
			if p.optional {
				continue
			}
			return invalid(p.name, "required parameter missing")
		}
		if p.check != nil {
			if err := p.check(value); err != nil {
				return invalid(p.name, err.Error())
			}
		}
	}

	return nil
}

// outputName derives the suggested download name from the source name, the
// tool and the resolved extension. The original extension never survives,
// since it says nothing about the actual output encoding.
func outputName(source, tool, ext string) string {
	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	if base == "" || base == "." {
		base = "output"
	}
	if tool == "convert" {
		return base + "." + ext
	}
	return fmt.Sprintf("%s_%s.%s", base, strings.ReplaceAll(tool, "-", "_"), ext)
}

func sourceName(files []engine.File, params engine.Params) string {
	if len(files) > 0 {
		return files[0].Name
	}
	if url := params.Get("url"); url != "" {
		return captureBaseName(url)
	}
	return "output"
}

// captureBaseName turns a captured URL into a filename-safe stem.
func captureBaseName(url string) string {
	name := strings.TrimPrefix(strings.TrimPrefix(url, "https://"), "http://")
	if i := strings.IndexAny(name, "/?#"); i >= 0 {
		name = name[:i]
	}
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return "capture"
	}
	return name
}
