package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const mediaFetchTimeout = 5 * time.Minute

// CaptureAdapter turns remote URLs into files: page screenshots and prints
// through the headless browser, and streaming-media URLs through an
// external resolver service. Resolved media is always re-fetched
// server-side; the third-party URL is never handed to the caller.
type CaptureAdapter struct {
	renderer    *Renderer
	resolverURL string
	httpClient  *http.Client
}

func NewCaptureAdapter(renderer *Renderer, resolverURL string) *CaptureAdapter {
	return &CaptureAdapter{
		renderer:    renderer,
		resolverURL: resolverURL,
		httpClient:  &http.Client{Timeout: mediaFetchTimeout},
	}
}

func (a *CaptureAdapter) Execute(ctx context.Context, req Request) (*Output, error) {
	url := req.Params.Get("url")

	switch req.Tool {
	case "screenshot":
		fullPage := req.Params.Get("full_page") == "true"
		data, err := a.renderer.Screenshot(ctx, url, fullPage)
		if err != nil {
			return nil, engineErr(req.Tool, err)
		}
		result := &Output{Data: data, MimeType: MimeForExtension("png"), Ext: "png"}
		return result.validate(req.Tool)

	case "pdf":
		data, err := a.renderer.PrintPDF(ctx, url)
		if err != nil {
			return nil, engineErr(req.Tool, err)
		}
		result := &Output{Data: data, MimeType: MimeForExtension("pdf"), Ext: "pdf"}
		return result.validate(req.Tool)

	case "media":
		out, err := a.fetchMedia(ctx, url)
		if err != nil {
			return nil, engineErr(req.Tool, err)
		}
		return out.validate(req.Tool)
	}

	return nil, engineErr(req.Tool, fmt.Errorf("unknown capture tool"))
}

type mediaResolveRequest struct {
	URL string `json:"url"`
}

type mediaResolveResponse struct {
	DownloadURL string `json:"download_url"`
	Filename    string `json:"filename"`
}

// fetchMedia asks the resolver service for a direct media URL, then pulls
// the bytes itself.
func (a *CaptureAdapter) fetchMedia(ctx context.Context, url string) (*Output, error) {
	if a.resolverURL == "" {
		return nil, fmt.Errorf("media resolver service not configured")
	}

	body, err := json.Marshal(mediaResolveRequest{URL: url})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.resolverURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media resolver request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media resolver returned status %d", resp.StatusCode)
	}

	var resolved mediaResolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&resolved); err != nil {
		return nil, fmt.Errorf("failed to decode resolver response: %w", err)
	}
	if resolved.DownloadURL == "" {
		return nil, fmt.Errorf("media resolver returned no download URL")
	}

	fetchReq, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved.DownloadURL, nil)
	if err != nil {
		return nil, err
	}
	fetchResp, err := a.httpClient.Do(fetchReq)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch resolved media: %w", err)
	}
	defer fetchResp.Body.Close()

	if fetchResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media fetch returned status %d", fetchResp.StatusCode)
	}

	data, err := io.ReadAll(fetchResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read resolved media: %w", err)
	}

	ext := strings.TrimPrefix(strings.ToLower(extOf(resolved.Filename)), ".")
	if ext == "" {
		ext = "mp4"
	}
	return &Output{Data: data, MimeType: MimeForExtension(ext), Ext: ext}, nil
}
