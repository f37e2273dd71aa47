// Package mimetype infers response content types from file names.
package mimetype

import (
	"mime"
	"path/filepath"
	"strings"
)

// Fallback is returned when nothing better is known about a file.
const Fallback = "application/octet-stream"

// Func infers a content type from a file name.
type Func func(name string) string

// Table maps lower-case extensions (with the leading dot) to media types.
type Table map[string]string

// Default covers everything rustdoc writes into a documentation tree.
var Default = Table{
	".html":  "text/html",
	".htm":   "text/html",
	".css":   "text/css",
	".js":    "application/javascript",
	".mjs":   "application/javascript",
	".json":  "application/json",
	".map":   "application/json",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".gif":   "image/gif",
	".ico":   "image/x-icon",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".txt":   "text/plain",
	".md":    "text/markdown",
	".xml":   "text/xml",
}

// Lookup returns the media type for name, consulting the table first and the
// platform mime database second.
func (t Table) Lookup(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" {
		return Fallback
	}

	if mediaType, ok := t[ext]; ok {
		return mediaType
	}

	if guessed := mime.TypeByExtension(ext); guessed != "" {
		if mediaType, _, err := mime.ParseMediaType(guessed); err == nil {
			return mediaType
		}
	}

	return Fallback
}

// Detect is the default inference function.
func Detect(name string) string {
	return Default.Lookup(name)
}
