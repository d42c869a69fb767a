// Package app wires a config.Config into a running core.Engine: it builds
// the engine with the requested worker count and ready policy, registers
// the standard middleware chain, and owns process lifecycle (signal
// handling, listen address).
package app

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/coroserve/coroserve/config"
	"github.com/coroserve/coroserve/core"
	"github.com/coroserve/coroserve/middleware"
)

// App is the coroserve process: a Config plus the Engine it drives.
type App struct {
	cfg    *config.Config
	engine *core.Engine
}

// New builds an Engine from cfg's worker count and ready policy, and
// registers the default middleware chain (recovery, logging, request ID,
// CORS, URI decoding, route lookup, static files, 404) ahead of any
// caller-registered routes.
func New(cfg *config.Config) *App {
	opts := []core.Option{core.WithReadyPolicy(readyPolicy(cfg.ReadyPolicy))}
	if cfg.Workers > 0 {
		opts = append(opts, core.WithWorkers(cfg.Workers))
	}
	engine := core.NewEngine(opts...)

	a := &App{cfg: cfg, engine: engine}
	a.registerMiddleware()
	return a
}

// NewWithEngine wraps a pre-configured Engine instead of building one from
// cfg, for callers (tests, embedders) that need full control over engine
// construction and middleware registration.
func NewWithEngine(cfg *config.Config, engine *core.Engine) *App {
	return &App{cfg: cfg, engine: engine}
}

func readyPolicy(name string) core.ReadyPolicy {
	if name == "lifo" {
		return core.ReadyLIFO
	}
	return core.ReadyFIFO
}

func (a *App) registerMiddleware() {
	a.engine.Use(middleware.Recovery())
	a.engine.Use(middleware.Logger())
	a.engine.Use(middleware.RequestID())
	a.engine.Use(middleware.CORS())
	a.engine.Use(middleware.URIDecode())
	a.engine.Use(middleware.RouteLookup(a.engine))
	a.engine.Use(middleware.StaticFiles(middleware.StaticFilesConfig{
		Root:        a.cfg.DocRoot,
		Index:       "index.html",
		SPAFallback: "index.html",
	}))
	a.engine.Use(middleware.NotFound(""))
}

// Engine returns the underlying engine for route registration.
func (a *App) Engine() *core.Engine {
	return a.engine
}

// Run starts the application and blocks until the listener fails or the
// process receives SIGINT/SIGTERM. Shutdown is immediate (os.Exit), not
// graceful: in-flight connections are dropped rather than drained.
func (a *App) Run() {
	go a.awaitSignal()

	addr := fmt.Sprintf(":%d", a.cfg.Port)
	log.Printf("coroserve starting on port %d [%s]", a.cfg.Port, a.cfg.Env)

	if err := a.engine.Run(addr); err != nil {
		log.Fatalf("server startup failed: %v", err)
	}
}

func (a *App) awaitSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Printf("signal received: %v, shutting down", sig)
	os.Exit(0)
}
