package storage

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Inline rows were written through heterogeneous drivers over the years, so
// a stored value arrives in one of three shapes: raw binary, a hex string
// (with or without the \x escape marker), or a JSON-serialized byte-array
// object. decodeStored normalizes all of them once, at the storage
// boundary.
func decodeStored(content []byte) ([]byte, error) {
	if len(content) == 0 {
		return nil, fmt.Errorf("stored content is empty")
	}

	if len(content) > 2 && content[0] == '\\' && content[1] == 'x' {
		decoded, err := hex.DecodeString(string(content[2:]))
		if err != nil {
			return nil, fmt.Errorf("failed to decode escaped hex content: %w", err)
		}
		return decoded, nil
	}

	if content[0] == '{' {
		var wrapped struct {
			Type string `json:"type"`
			Data []int  `json:"data"`
		}
		if err := json.Unmarshal(content, &wrapped); err == nil && wrapped.Type == "Buffer" {
			return intsToBytes(wrapped.Data), nil
		}
	}
	if content[0] == '[' {
		var values []int
		if err := json.Unmarshal(content, &values); err == nil {
			return intsToBytes(values), nil
		}
	}

	if isHexString(content) {
		if decoded, err := hex.DecodeString(string(content)); err == nil {
			return decoded, nil
		}
	}

	return content, nil
}

func intsToBytes(values []int) []byte {
	out := make([]byte, len(values))
	for i, v := range values {
		out[i] = byte(v)
	}
	return out
}

// isHexString is the heuristic for unmarked hex rows: every byte a hex
// digit and an even count. Real binary payloads fall outside this almost
// immediately.
func isHexString(content []byte) bool {
	if len(content) == 0 || len(content)%2 != 0 {
		return false
	}
	for _, b := range content {
		switch {
		case b >= '0' && b <= '9':
		case b >= 'a' && b <= 'f':
		case b >= 'A' && b <= 'F':
		default:
			return false
		}
	}
	return true
}
