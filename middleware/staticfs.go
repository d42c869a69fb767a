package middleware

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/coroserve/coroserve/core"
)

// StaticFilesConfig configures the StaticFiles middleware.
type StaticFilesConfig struct {
	// Root is the directory served from, e.g. "./public".
	Root string
	// Index is the file served for a request that resolves to a
	// directory, e.g. "index.html". Empty disables directory serving.
	Index string
	// SPAFallback, if set, is served (with a 200, not a redirect) for any
	// GET request that does not match a file under Root and whose path
	// has no file extension, the same rule client-side routers rely on
	// to distinguish "/users/42" from "/logo.png".
	SPAFallback string
}

// StaticFiles serves files from cfg.Root, falling through to next for
// anything it can't resolve so a route-lookup or 404 stage still runs.
// A path ending in "/" is served cfg.Index; a path missing its trailing
// slash but naming a directory is redirected to add one, mirroring how
// net/http.FileServer treats directory requests.
func StaticFiles(cfg StaticFilesConfig) core.MiddlewareFunc {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		root = cfg.Root
	}

	return func(ctx *core.Context, next core.NextFunc) {
		if ctx.Method() != "GET" && ctx.Method() != "HEAD" {
			next()
			return
		}

		reqPath := ctx.Path()
		cleaned := filepath.Clean("/" + reqPath)
		fsPath := filepath.Join(root, cleaned)

		// filepath.Join+Clean already collapses "..", but a symlink or a
		// caller bypassing the router could still land outside root; stay
		// defensive since this path is reachable straight from the wire.
		if !strings.HasPrefix(fsPath, root) {
			ctx.Error(403, "forbidden")
			return
		}

		info, statErr := os.Stat(fsPath)
		switch {
		case statErr == nil && info.IsDir():
			if !strings.HasSuffix(reqPath, "/") {
				ctx.Redirect(301, reqPath+"/")
				return
			}
			if cfg.Index == "" {
				next()
				return
			}
			fsPath = filepath.Join(fsPath, cfg.Index)
			if _, err := os.Stat(fsPath); err != nil {
				next()
				return
			}
			serveFile(ctx, fsPath)
			return

		case statErr == nil:
			serveFile(ctx, fsPath)
			return

		default:
			if cfg.SPAFallback != "" && ctx.Method() == "GET" && filepath.Ext(reqPath) == "" {
				fallback := filepath.Join(root, cfg.SPAFallback)
				if _, err := os.Stat(fallback); err == nil {
					serveFile(ctx, fallback)
					return
				}
			}
			next()
		}
	}
}

func serveFile(ctx *core.Context, fsPath string) {
	if err := ctx.ServeFile(fsPath, contentTypeFor(fsPath)); err != nil && !ctx.Written() {
		ctx.Error(404, "not found")
	}
}
