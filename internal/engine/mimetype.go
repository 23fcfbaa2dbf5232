package engine

import (
	"mime"
	"path/filepath"
	"strings"
)

// Media types the stdlib mime table misses or maps inconsistently across
// platforms.
var mimeByExt = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"bmp":  "image/bmp",
	"tif":  "image/tiff",
	"tiff": "image/tiff",
	"ico":  "image/x-icon",
	"avif": "image/avif",

	"mp4":  "video/mp4",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",

	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"ogg":  "audio/ogg",
	"flac": "audio/flac",
	"aac":  "audio/aac",
	"m4a":  "audio/mp4",
	"opus": "audio/opus",

	"pdf": "application/pdf",
	"zip": "application/zip",
	"txt": "text/plain; charset=utf-8",
}

// MimeForExtension resolves a media type from a bare extension (no dot),
// falling back to the platform mime table, then to an untyped stream.
func MimeForExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if mt, ok := mimeByExt[ext]; ok {
		return mt
	}
	if mt := mime.TypeByExtension("." + ext); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

// VideoExtensions are the container types the storage tier always treats as
// external-tier payloads.
var VideoExtensions = map[string]bool{
	"mp4":  true,
	"webm": true,
	"mkv":  true,
	"mov":  true,
	"avi":  true,
}

// IsVideoExtension reports whether name has a known video extension.
func IsVideoExtension(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(extOf(name), "."))
	return VideoExtensions[ext]
}

func extOf(name string) string {
	return filepath.Ext(name)
}
