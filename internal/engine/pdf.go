package engine

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// pdfRasterScale is the fixed device scale pages are rasterized at, so the
// resulting images stay readable when zoomed.
const pdfRasterScale = 2.0

// PDFAdapter handles structural document operations in-process via pdfcpu;
// page rasterization is the one path that needs the headless renderer.
type PDFAdapter struct {
	renderer *Renderer
}

func NewPDFAdapter(renderer *Renderer) *PDFAdapter {
	return &PDFAdapter{renderer: renderer}
}

func (a *PDFAdapter) Execute(ctx context.Context, req Request) (*Output, error) {
	switch req.Tool {
	case "merge":
		return a.merge(req)
	case "extract-page":
		return a.extractPage(req)
	case "compress":
		return a.compress(req)
	case "extract-text":
		return a.extractText(req)
	case "to-images":
		return a.toImages(ctx, req)
	case "protect":
		// Password protection is recognized but not wired up yet; callers
		// get a distinct "not yet available" answer, not a generic failure.
		return nil, ErrUnsupportedTool
	}
	return nil, engineErr(req.Tool, fmt.Errorf("unknown pdf tool"))
}

func (a *PDFAdapter) merge(req Request) (*Output, error) {
	inputs := make([]string, 0, len(req.Files))
	for _, f := range req.Files {
		path, err := req.Scratch.Stage(f.Data, f.Name)
		if err != nil {
			return nil, engineErr(req.Tool, err)
		}
		inputs = append(inputs, path)
	}
	out := req.Scratch.Alloc("merged.pdf")

	// Page order follows input order.
	if err := api.MergeCreateFile(inputs, out, false, nil); err != nil {
		return nil, engineErr(req.Tool, fmt.Errorf("failed to merge documents: %w", err))
	}
	return a.collect(req, out)
}

func (a *PDFAdapter) extractPage(req Request) (*Output, error) {
	page, _ := strconv.Atoi(req.Params.Get("page"))

	in, err := req.Scratch.Stage(req.Files[0].Data, req.Files[0].Name)
	if err != nil {
		return nil, engineErr(req.Tool, err)
	}

	count, err := api.PageCountFile(in)
	if err != nil {
		return nil, engineErr(req.Tool, fmt.Errorf("failed to read document: %w", err))
	}
	if page < 1 || page > count {
		return nil, engineErr(req.Tool, fmt.Errorf("page %d out of range (document has %d pages)", page, count))
	}

	out := req.Scratch.Alloc("page.pdf")
	if err := api.TrimFile(in, out, []string{strconv.Itoa(page)}, nil); err != nil {
		return nil, engineErr(req.Tool, fmt.Errorf("failed to extract page %d: %w", page, err))
	}
	return a.collect(req, out)
}

func (a *PDFAdapter) compress(req Request) (*Output, error) {
	in, err := req.Scratch.Stage(req.Files[0].Data, req.Files[0].Name)
	if err != nil {
		return nil, engineErr(req.Tool, err)
	}
	out := req.Scratch.Alloc("optimized.pdf")

	if err := api.OptimizeFile(in, out, nil); err != nil {
		return nil, engineErr(req.Tool, fmt.Errorf("failed to optimize document: %w", err))
	}
	return a.collect(req, out)
}

func (a *PDFAdapter) extractText(req Request) (*Output, error) {
	in, err := req.Scratch.Stage(req.Files[0].Data, req.Files[0].Name)
	if err != nil {
		return nil, engineErr(req.Tool, err)
	}

	f, reader, err := pdf.Open(in)
	if err != nil {
		return nil, engineErr(req.Tool, fmt.Errorf("failed to open document: %w", err))
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, engineErr(req.Tool, fmt.Errorf("failed to extract text: %w", err))
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return nil, engineErr(req.Tool, fmt.Errorf("failed to read extracted text: %w", err))
	}

	result := &Output{Data: buf.Bytes(), MimeType: MimeForExtension("txt"), Ext: "txt"}
	return result.validate(req.Tool)
}

// toImages rasterizes every page at a fixed scale. One page comes back as a
// single PNG, several as a zip archive of PNGs.
func (a *PDFAdapter) toImages(ctx context.Context, req Request) (*Output, error) {
	in, err := req.Scratch.Stage(req.Files[0].Data, req.Files[0].Name)
	if err != nil {
		return nil, engineErr(req.Tool, err)
	}

	count, err := api.PageCountFile(in)
	if err != nil {
		return nil, engineErr(req.Tool, fmt.Errorf("failed to read document: %w", err))
	}

	pages := make([][]byte, 0, count)
	for i := 1; i <= count; i++ {
		single := req.Scratch.Alloc(fmt.Sprintf("page_%d.pdf", i))
		if err := api.TrimFile(in, single, []string{strconv.Itoa(i)}, nil); err != nil {
			return nil, engineErr(req.Tool, fmt.Errorf("failed to split page %d: %w", i, err))
		}
		img, err := a.renderer.RenderFile(ctx, single, pdfRasterScale)
		if err != nil {
			return nil, engineErr(req.Tool, err)
		}
		pages = append(pages, img)
	}

	if len(pages) == 1 {
		result := &Output{Data: pages[0], MimeType: MimeForExtension("png"), Ext: "png"}
		return result.validate(req.Tool)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, img := range pages {
		w, err := zw.Create(fmt.Sprintf("page_%03d.png", i+1))
		if err != nil {
			return nil, engineErr(req.Tool, err)
		}
		if _, err := w.Write(img); err != nil {
			return nil, engineErr(req.Tool, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, engineErr(req.Tool, err)
	}

	result := &Output{Data: buf.Bytes(), MimeType: MimeForExtension("zip"), Ext: "zip"}
	return result.validate(req.Tool)
}

func (a *PDFAdapter) collect(req Request, path string) (*Output, error) {
	data, err := req.Scratch.Read(path)
	if err != nil {
		return nil, engineErr(req.Tool, err)
	}
	result := &Output{Data: data, MimeType: MimeForExtension("pdf"), Ext: "pdf"}
	return result.validate(req.Tool)
}
