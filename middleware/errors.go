package middleware

import "github.com/coroserve/coroserve/core"

// NotFound is a terminal pipeline stage that responds 404 to anything
// still unhandled once it runs. Registering it explicitly as the last
// middleware makes the 404 body configurable; Engine.dispatch's own
// fallback (a plain JSON 404) only fires if a chain omits this stage
// entirely.
func NotFound(message string) core.MiddlewareFunc {
	if message == "" {
		message = "not found"
	}
	return func(ctx *core.Context, next core.NextFunc) {
		if ctx.Written() {
			next()
			return
		}
		ctx.Error(404, message)
	}
}
