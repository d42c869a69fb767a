/*
Package coroserve provides a high-throughput HTTP/1.1 server built around a
cooperative-task connection engine.

Each worker in a fixed pool pairs an edge-triggered OS readiness notifier
(epoll on Linux, kqueue on BSD/Darwin) with a scheduler of goroutine-backed
tasks: a task appears to perform blocking recv/send/sendfile calls but
actually suspends on EAGAIN and resumes only when its socket is ready,
letting one OS thread serve many connections without a per-connection
goroutine competing for the Go scheduler's own attention.

Features

  - Cooperative per-connection tasks scheduled cooperatively within a
    fixed worker pool, never migrated between workers
  - Edge-triggered readiness notification via core/poller (epoll/kqueue)
  - Zero-copy static file serving via sendfile(2), backed by an
    mtime-invalidated LRU file descriptor cache
  - Incremental HTTP/1.1 request parsing bounded by header count and
    line length, independent of how the bytes arrive off the wire
  - A radix-tree router for registered handlers, plus a middleware
    pipeline covering URI decoding, static files with SPA fallback, and
    error responses
  - Object pooling for per-request Context values and read buffers,
    tuned with a relaxed GC target for high request rates

Quick Start

	package main

	import (
	    "github.com/coroserve/coroserve/app"
	    "github.com/coroserve/coroserve/config"
	    "github.com/coroserve/coroserve/core"
	)

	func main() {
	    cfg := config.New()
	    application := app.New(cfg)

	    engine := application.Engine()
	    engine.GET("/hello", func(ctx *core.Context) {
	        ctx.String(200, "Hello, World!")
	    })

	    engine.GET("/json", func(ctx *core.Context) {
	        ctx.JSON(200, map[string]string{
	            "message": "coroserve",
	            "status":  "running",
	        })
	    })

	    application.Run()
	}

Modules

The repository is organized into the following packages:

  - app: application lifecycle (engine construction, middleware wiring, signals)
  - config: flag- and YAML-driven configuration
  - core: task runtime, scheduler, worker, dispatcher, async I/O, engine, context
  - core/http: incremental request parsing
  - core/router: radix-tree route matching
  - core/sendfile: zero-copy static file cache and MIME mapping
  - core/pools: object pooling and GC tuning
  - core/poller: epoll/kqueue readiness notification
  - middleware: the request pipeline stages Engine.Use chains together
  - cmd/coroserve: the CLI entry point
*/
package coroserve
