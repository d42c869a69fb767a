// Package middleware provides the request pipeline stages an Engine chains
// together with Use: request logging, panic recovery, CORS, rate limiting,
// route dispatch, and static file serving. Each stage is a
// core.MiddlewareFunc, the same explicit next-continuation shape the
// original fixed-array Pipeline collapsed into a plain loop over
// non-aborting handlers; here a stage that wants to stop the chain simply
// doesn't call next.
package middleware

import (
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coroserve/coroserve/core"
)

// URIDecode percent-decodes the request path before routing sees it, so
// "/files/a%20b.txt" matches a route or static file named "a b.txt"
// instead of the literal escaped form. ".." is rejected both before and
// after decoding, since "/%2e%2e/etc/passwd" is the same traversal attempt
// as "/../etc/passwd" wearing a disguise the router would otherwise match
// on the decoded form.
func URIDecode() core.MiddlewareFunc {
	return func(ctx *core.Context, next core.NextFunc) {
		path := ctx.Path()
		if strings.Contains(path, "..") {
			ctx.Error(400, "invalid path")
			return
		}
		decoded, err := url.PathUnescape(path)
		if err != nil {
			next()
			return
		}
		if strings.Contains(decoded, "..") {
			ctx.Error(400, "invalid path")
			return
		}
		ctx.SetPath(decoded)
		next()
	}
}

// Recovery guards the rest of the chain against a panicking handler,
// turning it into a 500 instead of taking down the Worker goroutine
// running this Task.
func Recovery() core.MiddlewareFunc {
	return func(ctx *core.Context, next core.NextFunc) {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("panic recovered: %v", r)
				if !ctx.Written() {
					ctx.Error(500, "internal server error")
				}
			}
		}()
		next()
	}
}

// Logger writes one line per request (method, path, elapsed time) after
// the rest of the chain has run, so the logged duration covers the whole
// chain. The response status is not logged.
func Logger() core.MiddlewareFunc {
	return func(ctx *core.Context, next core.NextFunc) {
		start := time.Now()
		method := ctx.Method()
		path := ctx.Path()
		next()
		log.Printf("%s %s %v", method, path, time.Since(start))
	}
}

// CORS short-circuits preflight OPTIONS requests with an empty 204 and
// passes every other request on unchanged. It adds no Access-Control-*
// headers to any response.
func CORS() core.MiddlewareFunc {
	return func(ctx *core.Context, next core.NextFunc) {
		if ctx.Method() == "OPTIONS" {
			ctx.Status(204)
			ctx.String(204, "")
			return
		}
		next()
	}
}

// RequestID stamps every request with a monotonically increasing ID,
// exposed to handlers via ctx.Param("request_id"), since Context has no
// response-header map of its own to stash it in instead.
func RequestID() core.MiddlewareFunc {
	var counter uint64
	return func(ctx *core.Context, next core.NextFunc) {
		id := atomic.AddUint64(&counter, 1)
		ctx.SetParam("request_id", fmt.Sprintf("%d", id))
		next()
	}
}

// RateLimiter enforces a fixed requests-per-second budget shared across
// every connection of every Worker that runs this middleware instance
// (the counter is mutex-guarded), refilling once per second the way the
// original token bucket did.
func RateLimiter(requestsPerSecond int) core.MiddlewareFunc {
	var (
		mu         sync.Mutex
		tokens     = requestsPerSecond
		lastRefill = time.Time{}
	)

	return func(ctx *core.Context, next core.NextFunc) {
		mu.Lock()
		now := time.Now()
		if lastRefill.IsZero() {
			lastRefill = now
		}
		if now.Sub(lastRefill) > time.Second {
			tokens = requestsPerSecond
			lastRefill = now
		}
		if tokens <= 0 {
			mu.Unlock()
			ctx.Error(429, "too many requests")
			return
		}
		tokens--
		mu.Unlock()
		next()
	}
}

// RouteLookup resolves the registered handler for the request's method and
// path against engine and invokes it directly, filling path parameters
// first. When no route matches it calls next so a later stage (typically
// StaticFiles) gets a chance instead.
func RouteLookup(engine *core.Engine) core.MiddlewareFunc {
	return func(ctx *core.Context, next core.NextFunc) {
		handler, params := engine.Lookup(ctx.Method(), ctx.Path())
		if handler == nil {
			next()
			return
		}
		for k, v := range params {
			ctx.SetParam(k, v)
		}
		handler(ctx)
	}
}
