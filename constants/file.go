package constants

import (
	"path/filepath"
	"strings"
)

// AllowedImageExtensions holds the file extensions the pipeline will process.
// Anything else arriving on the events endpoint is skipped without side effects.
var AllowedImageExtensions = map[string]struct{}{
	"png":  {},
	"jpg":  {},
	"jpeg": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// IsImageKey reports whether the object key names a processable image.
func IsImageKey(key string) bool {
	_, ok := AllowedImageExtensions[NormalizeExt(filepath.Ext(key))]
	return ok
}

// MimeTypeForKey maps an object key extension to the MIME type sent to the
// extraction service. Unknown extensions fall back to JPEG, which is what the
// upload surface produces anyway.
func MimeTypeForKey(key string) string {
	switch NormalizeExt(filepath.Ext(key)) {
	case "png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}
