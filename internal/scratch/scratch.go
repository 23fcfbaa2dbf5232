// Package scratch manages the temporary on-disk artifacts one request needs
// while an external engine runs. Every staged path is owned by exactly one
// Session and removed at most once; callers defer ReleaseAll so cleanup runs
// on every exit path.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

type Session struct {
	root string

	mu    sync.Mutex
	paths map[string]struct{}
}

// NewSession returns a session whose artifacts live under root. The
// directory is created if missing.
func NewSession(root string) (*Session, error) {
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &Session{
		root:  root,
		paths: make(map[string]struct{}),
	}, nil
}

// Stage writes data to a uniquely named file and tracks it for release.
func (s *Session) Stage(data []byte, name string) (string, error) {
	path := s.Alloc(name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		s.forget(path)
		return "", fmt.Errorf("failed to stage scratch file: %w", err)
	}
	return path, nil
}

// Alloc reserves a unique path without writing it, for engines that create
// their own output file. The path is tracked for release whether or not the
// engine ever writes it.
func (s *Session) Alloc(name string) string {
	unique := fmt.Sprintf("%d_%s_%s", time.Now().UnixNano(), uuid.New().String(), sanitize(name))
	path := filepath.Join(s.root, unique)

	s.mu.Lock()
	s.paths[path] = struct{}{}
	s.mu.Unlock()
	return path
}

// Read returns the contents of a staged path.
func (s *Session) Read(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scratch file: %w", err)
	}
	return data, nil
}

// Release removes the given paths now. Paths not staged by this session are
// ignored.
func (s *Session) Release(paths ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range paths {
		if _, ok := s.paths[p]; !ok {
			continue
		}
		os.Remove(p)
		delete(s.paths, p)
	}
}

// ReleaseAll removes every artifact still tracked by the session. Safe to
// call more than once.
func (s *Session) ReleaseAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.paths {
		os.Remove(p)
		delete(s.paths, p)
	}
}

// Count reports how many artifacts the session still tracks.
func (s *Session) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.paths)
}

func (s *Session) forget(path string) {
	s.mu.Lock()
	delete(s.paths, path)
	s.mu.Unlock()
}

// sanitize keeps only the base name so caller-supplied names can never
// escape the scratch root.
func sanitize(name string) string {
	base := filepath.Base(name)
	if base == "." || base == string(filepath.Separator) || base == "" {
		return "artifact"
	}
	return base
}
