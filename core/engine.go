package core

import (
	"log"
	"runtime"

	"github.com/coroserve/coroserve/core/http"
	"github.com/coroserve/coroserve/core/pools"
	"github.com/coroserve/coroserve/core/router"
)

// HandlerFunc is a route handler: given a fully-parsed request, it writes
// a response through ctx.
type HandlerFunc func(ctx *Context)

// NextFunc continues a middleware chain; calling it is optional, letting a
// middleware short-circuit by simply returning without calling next.
type NextFunc func()

// MiddlewareFunc is one stage of the request pipeline. The engine chains
// registered middleware in registration order, ending with an implicit
// 404 responder if nothing in the chain wrote a response.
type MiddlewareFunc func(ctx *Context, next NextFunc)

// Engine wires together the router, the middleware pipeline, and a fixed
// pool of Workers behind a single Dispatcher. The connection-handling half
// of the original engine.go now lives in Worker/scheduler/connection.go;
// Engine here is purely the routing and lifecycle surface.
type Engine struct {
	router      *router.RadixRouter
	middlewares []MiddlewareFunc

	workers    []*Worker
	dispatcher *Dispatcher

	readyPolicy ReadyPolicy
	numWorkers  int

	contextPool *pools.SmartPool
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithWorkers overrides the worker count (default runtime.GOMAXPROCS(0)).
func WithWorkers(n int) Option {
	return func(e *Engine) { e.numWorkers = n }
}

// WithReadyPolicy selects FIFO or LIFO scheduling of woken Tasks.
func WithReadyPolicy(p ReadyPolicy) Option {
	return func(e *Engine) { e.readyPolicy = p }
}

// NewEngine constructs an Engine with an empty router and no middleware
// registered yet; call Use to build the pipeline and GET/POST/etc. to
// register routes before Run.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		router:      router.NewRadixRouter(),
		readyPolicy: ReadyFIFO,
		numWorkers:  runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}

	pools.OptimizeForHighThroughput()

	e.contextPool = pools.NewSmartPool(pools.SmartPoolConfig{
		New: func() any {
			return &Context{responseBuf: make([]byte, 0, 4096)}
		},
		Reset: func(obj any) {
			if ctx, ok := obj.(*Context); ok {
				ctx.Reset(nil, -1, nil)
			}
		},
		WarmupSize:    256,
		TargetHitRate: 0.95,
	})

	return e
}

// Use appends a middleware stage to the pipeline.
func (e *Engine) Use(mw MiddlewareFunc) {
	e.middlewares = append(e.middlewares, mw)
}

func (e *Engine) handle(method, path string, h HandlerFunc) {
	e.router.Add(method, path, func(ctx any) { h(ctx.(*Context)) })
}

func (e *Engine) GET(path string, h HandlerFunc)     { e.handle("GET", path, h) }
func (e *Engine) POST(path string, h HandlerFunc)    { e.handle("POST", path, h) }
func (e *Engine) PUT(path string, h HandlerFunc)     { e.handle("PUT", path, h) }
func (e *Engine) DELETE(path string, h HandlerFunc)  { e.handle("DELETE", path, h) }
func (e *Engine) PATCH(path string, h HandlerFunc)   { e.handle("PATCH", path, h) }
func (e *Engine) HEAD(path string, h HandlerFunc)    { e.handle("HEAD", path, h) }
func (e *Engine) OPTIONS(path string, h HandlerFunc) { e.handle("OPTIONS", path, h) }

// Lookup finds the registered handler for method+path, used by the
// route-lookup middleware stage rather than by Engine itself: routing is
// just one pipeline stage among several, not a privileged final step.
func (e *Engine) Lookup(method, path string) (HandlerFunc, map[string]string) {
	h, params := e.router.Find(method, path)
	if h == nil {
		return nil, params
	}
	return func(ctx *Context) { h(ctx) }, params
}

// acquireContext gets a pooled Context for one request.
func (e *Engine) acquireContext(t *Task, fd int, req *http.Request) *Context {
	ctx := e.contextPool.Get().(*Context)
	ctx.Reset(t, fd, req)
	return ctx
}

func (e *Engine) releaseContext(ctx *Context) {
	e.contextPool.Put(ctx)
}

// dispatch runs the middleware chain for one request, falling back to a
// 404 if the chain never wrote a response. This is the DispatchFunc handed
// to ServeConnection: the engine's entire contribution to a connection's
// Task is this one call, everything upstream (recv, parse, keep-alive) is
// connection.go's concern, and everything downstream is the registered
// pipeline's.
func (e *Engine) dispatch(ctx *Context) {
	idx := -1
	var next NextFunc
	next = func() {
		idx++
		if idx < len(e.middlewares) {
			e.middlewares[idx](ctx, next)
		}
	}
	next()

	if !ctx.Written() {
		ctx.Error(404, "not found")
	}
}

// Run binds addr, starts numWorkers Workers, and blocks accepting
// connections until the dispatcher returns an error.
func (e *Engine) Run(addr string) error {
	e.workers = make([]*Worker, e.numWorkers)
	for i := range e.workers {
		w, err := NewWorker(i, e.readyPolicy, e.taskEntry)
		if err != nil {
			return err
		}
		e.workers[i] = w
		go func(w *Worker) {
			if err := w.Run(); err != nil {
				log.Printf("worker exited: %v", err)
			}
		}(w)
	}

	d, err := NewDispatcher(addr, e.workers)
	if err != nil {
		return err
	}
	e.dispatcher = d

	log.Printf("listening on %s with %d workers", addr, e.numWorkers)
	return d.Run()
}

// taskEntry is the EntryFunc every Task in every Worker runs; it is a
// thin adapter from the Worker/Task machinery to ServeConnection and this
// Engine's own request dispatch and Context pooling.
func (e *Engine) taskEntry(t *Task, fd int) {
	ServeConnection(t, fd, e.acquireContext, e.releaseContext, e.dispatch)
}
