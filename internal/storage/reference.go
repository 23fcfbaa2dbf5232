package storage

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const inlinePrefix = "inline:"

// Reference is the opaque handle consumers hold instead of knowing which
// tier stores the bytes. It renders as "inline:<uuid>" or as an absolute
// object-store URL.
type Reference struct {
	ID  uuid.UUID // inline tier
	URL string    // external tier
}

func InlineRef(id uuid.UUID) Reference {
	return Reference{ID: id}
}

func ExternalRef(url string) Reference {
	return Reference{URL: url}
}

func (r Reference) External() bool {
	return r.URL != ""
}

func (r Reference) String() string {
	if r.External() {
		return r.URL
	}
	return inlinePrefix + r.ID.String()
}

// ParseReference accepts the two reference encodings. Anything else —
// including raw filesystem paths, which are never persisted — is rejected.
func ParseReference(s string) (Reference, error) {
	if strings.HasPrefix(s, inlinePrefix) {
		id, err := uuid.Parse(strings.TrimPrefix(s, inlinePrefix))
		if err != nil {
			return Reference{}, fmt.Errorf("invalid inline reference %q: %w", s, err)
		}
		return InlineRef(id), nil
	}
	if strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://") {
		return ExternalRef(s), nil
	}
	return Reference{}, fmt.Errorf("unrecognized storage reference %q", s)
}
