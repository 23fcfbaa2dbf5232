// Package storage persists transformation output into one of two tiers —
// inline database rows for small assets, the external object store for
// large and video payloads — and resolves the resulting opaque references
// back to bytes.
package storage

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"fileforge-backend/internal/database"
	"fileforge-backend/internal/engine"
)

// maxAliasHops bounds alias chains during inline resolution so a cyclic row
// cannot hang a request.
const maxAliasHops = 3

// ObjectStore is the external-tier surface the store needs; satisfied by
// *objstore.Client.
type ObjectStore interface {
	Upload(path, contentType string, data []byte) (string, error)
	Delete(publicURL string) error
}

// BlobStore is the inline-tier surface; satisfied by *database.Client.
type BlobStore interface {
	InsertBlob(ctx context.Context, id uuid.UUID, fileName string, content []byte, targetType string) error
	GetBlob(ctx context.Context, id uuid.UUID) (*database.BlobRow, error)
	DeleteBlob(ctx context.Context, id uuid.UUID) error
}

type Store struct {
	blobs     BlobStore
	objects   ObjectStore // nil when no external store is configured
	inlineMax int64
	log       *slog.Logger
}

func NewStore(blobs BlobStore, objects ObjectStore, inlineMax int64, log *slog.Logger) *Store {
	return &Store{
		blobs:     blobs,
		objects:   objects,
		inlineMax: inlineMax,
		log:       log,
	}
}

// ExternalEligible is the tier decision, deterministic in payload size,
// file name and configuration. The external tier takes a payload only when
// an object store is configured AND the payload is either over the inline
// cutoff or a video container; everything else stays inline, which is also
// the only path when no store is configured.
func (s *Store) ExternalEligible(size int64, fileName string) bool {
	if s.objects == nil {
		return false
	}
	return size > s.inlineMax || engine.IsVideoExtension(fileName)
}

// Persist writes the bytes into the selected tier and returns the opaque
// reference consumers retrieve them by.
func (s *Store) Persist(ctx context.Context, data []byte, fileName, targetType string) (Reference, error) {
	if s.ExternalEligible(int64(len(data)), fileName) {
		now := time.Now()
		path := fmt.Sprintf("results/%d/%02d/%s_%s", now.Year(), now.Month(), uuid.New().String(), sanitizeObjectName(fileName))
		url, err := s.objects.Upload(path, engine.MimeForExtension(targetType), data)
		if err != nil {
			return Reference{}, fmt.Errorf("external tier persist failed: %w", err)
		}
		s.log.Debug("result persisted", "tier", "external", "path", path, "size", len(data))
		return ExternalRef(url), nil
	}

	id := uuid.New()
	if err := s.blobs.InsertBlob(ctx, id, fileName, encodeInline(data), targetType); err != nil {
		return Reference{}, fmt.Errorf("inline tier persist failed: %w", err)
	}
	s.log.Debug("result persisted", "tier", "inline", "blob_id", id.String(), "size", len(data))
	return InlineRef(id), nil
}

// encodeInline writes new rows with the explicit escape marker, so the
// unmarked-hex heuristic in decodeStored only ever applies to legacy rows. A
// raw payload that happens to look like hex ("cafebabe") must survive a
// round trip untouched.
func encodeInline(data []byte) []byte {
	return []byte(`\x` + hex.EncodeToString(data))
}

// Content is a resolved reference: either bytes to serve or a URL to
// redirect to, never both.
type Content struct {
	Data        []byte
	RedirectURL string
	MimeType    string
	FileName    string
}

// Resolve turns a reference back into retrievable content regardless of
// tier. Inline rows go through legacy-encoding normalization and may alias
// another row.
func (s *Store) Resolve(ctx context.Context, ref Reference) (*Content, error) {
	if ref.External() {
		return &Content{RedirectURL: ref.URL}, nil
	}

	id := ref.ID
	for hop := 0; ; hop++ {
		if hop > maxAliasHops {
			return nil, fmt.Errorf("alias chain too long resolving %s", ref)
		}

		row, err := s.blobs.GetBlob(ctx, id)
		if err != nil {
			return nil, err
		}

		if row.AliasOf.Valid {
			id = row.AliasOf.UUID
			continue
		}

		data, err := decodeStored(row.Content)
		if err != nil {
			return nil, fmt.Errorf("failed to decode inline content %s: %w", id, err)
		}

		// A row may also hold a textual pointer at another inline id, the
		// way share links are stored.
		if next, ok := textAlias(data); ok {
			id = next
			continue
		}

		mimeType, fileName := resolveNaming(row.FileName, row.TargetType)
		return &Content{Data: data, MimeType: mimeType, FileName: fileName}, nil
	}
}

// Delete releases the bytes a reference points at, on whichever tier holds
// them.
func (s *Store) Delete(ctx context.Context, ref Reference) error {
	if ref.External() {
		if s.objects == nil {
			return fmt.Errorf("no object store configured to delete %s", ref)
		}
		return s.objects.Delete(ref.URL)
	}
	return s.blobs.DeleteBlob(ctx, ref.ID)
}

func textAlias(data []byte) (uuid.UUID, bool) {
	const maxRefLen = len(inlinePrefix) + 36
	if len(data) > maxRefLen || !strings.HasPrefix(string(data), inlinePrefix) {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(strings.TrimPrefix(strings.TrimSpace(string(data)), inlinePrefix))
	if err != nil {
		return uuid.Nil, false
	}
	return id, true
}

// resolveNaming derives the served media type — stored target type first,
// then filename sniffing, then an untyped stream — and corrects the file
// name's extension when it disagrees with the resolved type.
func resolveNaming(fileName, targetType string) (mimeType, servedName string) {
	servedName = fileName

	switch {
	case targetType != "":
		mimeType = engine.MimeForExtension(targetType)
	case filepath.Ext(fileName) != "":
		mimeType = mime.TypeByExtension(filepath.Ext(fileName))
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	if targetType != "" {
		ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(fileName)), ".")
		if ext != normalizeExt(targetType) {
			base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
			servedName = base + "." + normalizeExt(targetType)
		}
	}
	return mimeType, servedName
}

func normalizeExt(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "jpeg" {
		return "jpg"
	}
	return ext
}

func sanitizeObjectName(name string) string {
	name = filepath.Base(name)
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, name)
}
