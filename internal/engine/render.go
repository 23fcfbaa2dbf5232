package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

const renderTimeout = 60 * time.Second

// Renderer owns headless-browser sessions. When a devtools websocket URL is
// configured it attaches to that remote browser; otherwise it launches a
// local headless instance per invocation.
type Renderer struct {
	devtoolsURL string
	log         *slog.Logger
}

func NewRenderer(devtoolsURL string, log *slog.Logger) *Renderer {
	return &Renderer{devtoolsURL: devtoolsURL, log: log}
}

func (r *Renderer) newContext(parent context.Context) (context.Context, context.CancelFunc) {
	parent, timeoutCancel := context.WithTimeout(parent, renderTimeout)

	var allocCtx context.Context
	var allocCancel context.CancelFunc
	if r.devtoolsURL != "" {
		allocCtx, allocCancel = chromedp.NewRemoteAllocator(parent, r.devtoolsURL)
	} else {
		allocCtx, allocCancel = chromedp.NewExecAllocator(parent, chromedp.DefaultExecAllocatorOptions[:]...)
	}

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	return browserCtx, func() {
		browserCancel()
		allocCancel()
		timeoutCancel()
	}
}

// Screenshot captures url as a PNG, either the viewport or the full page.
func (r *Renderer) Screenshot(ctx context.Context, url string, fullPage bool) ([]byte, error) {
	ctx, cancel := r.newContext(ctx)
	defer cancel()

	var buf []byte
	actions := []chromedp.Action{chromedp.Navigate(url)}
	if fullPage {
		actions = append(actions, chromedp.FullScreenshot(&buf, 100))
	} else {
		actions = append(actions, chromedp.CaptureScreenshot(&buf))
	}

	if err := chromedp.Run(ctx, actions...); err != nil {
		return nil, fmt.Errorf("failed to screenshot %s: %w", url, err)
	}
	return buf, nil
}

// PrintPDF renders url through the browser's print pipeline.
func (r *Renderer) PrintPDF(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := r.newContext(ctx)
	defer cancel()

	var buf []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate(url),
		chromedp.ActionFunc(func(ctx context.Context) error {
			var err error
			buf, _, err = page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			return err
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to print %s: %w", url, err)
	}
	return buf, nil
}

// RenderFile rasterizes a local document at the given device scale factor.
func (r *Renderer) RenderFile(ctx context.Context, path string, scale float64) ([]byte, error) {
	ctx, cancel := r.newContext(ctx)
	defer cancel()

	var buf []byte
	err := chromedp.Run(ctx,
		chromedp.EmulateViewport(1280, 0, chromedp.EmulateScale(scale)),
		chromedp.Navigate("file://"+path),
		chromedp.FullScreenshot(&buf, 100),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", path, err)
	}
	return buf, nil
}
