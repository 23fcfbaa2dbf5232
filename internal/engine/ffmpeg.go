package engine

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
)

// FFmpeg runs the configured ffmpeg binary. The path is injected at startup
// and validated once there; nothing in the request path probes for it.
type FFmpeg struct {
	path string
	log  *slog.Logger
}

func NewFFmpeg(path string, log *slog.Logger) *FFmpeg {
	return &FFmpeg{path: path, log: log}
}

// Validate checks that the binary is reachable. Called once at process
// start; a failure there is fatal.
func (f *FFmpeg) Validate() error {
	if _, err := exec.LookPath(f.path); err != nil {
		return fmt.Errorf("ffmpeg binary not reachable at %q: %w", f.path, err)
	}
	return nil
}

// Run executes one ffmpeg invocation. Output always overwrites (-y) and
// stderr is captured for the error message since ffmpeg reports there. The
// context terminates the subprocess if the caller disconnects.
func (f *FFmpeg) Run(ctx context.Context, args []string) error {
	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)

	cmd := exec.CommandContext(ctx, f.path, full...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	f.log.Debug("running ffmpeg", "args", args)
	if err := cmd.Run(); err != nil {
		if msg := stderr.String(); msg != "" {
			return fmt.Errorf("ffmpeg failed: %s: %w", msg, err)
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}
	return nil
}
