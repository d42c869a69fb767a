package middleware

import (
	"path/filepath"

	"github.com/coroserve/coroserve/core/sendfile"
)

// extraMIMETypes covers extensions the shared sendfile table doesn't
// know about but that show up constantly serving a modern static site
// (web fonts, video); it's kept here rather than in core/sendfile since
// only the static-file middleware needs it.
var extraMIMETypes = map[string]string{
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ttf":   "font/ttf",
	".otf":   "font/otf",
	".mp4":   "video/mp4",
	".webm":  "video/webm",
	".webp":  "image/webp",
	".wasm":  "application/wasm",
	".map":   "application/json",
}

// contentTypeFor resolves a static file's Content-Type, checking the
// extra table before falling back to the shared sendfile-package table.
func contentTypeFor(path string) string {
	if ct, ok := extraMIMETypes[filepath.Ext(path)]; ok {
		return ct
	}
	return sendfile.GetContentType(path)
}
