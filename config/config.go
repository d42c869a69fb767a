// Package config defines coroserve's runtime configuration and how it is
// assembled from command-line flags and an optional YAML file, with flags
// always winning over the file when both set the same key.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration. Each field's YAML key is
// given by its yaml struct tag.
//
// RecvTimeout and IdleTimeout are parsed from flags and the YAML file but
// are not passed to the engine: every connection uses core's fixed
// 30-second read timeout regardless of their values.
type Config struct {
	Port         int    `yaml:"port"`
	Workers      int    `yaml:"workers"`
	DocRoot      string `yaml:"doc_root"`
	ReadyPolicy  string `yaml:"ready_policy"`
	RecvTimeout  int    `yaml:"recv_timeout_seconds"`
	IdleTimeout  int    `yaml:"idle_timeout_seconds"`
	Env          string `yaml:"env"`

	// TaskStackHint has no effect: Go goroutines grow their stacks
	// on demand and never need a caller-supplied size. LoadFile reads the
	// task_stack_hint_kb key but does not copy it into the Config it
	// updates.
	TaskStackHint int `yaml:"task_stack_hint_kb"`

	// ConfigFile is not itself part of the YAML schema; it names the file
	// LoadFile reads the rest of this struct's overrides from.
	ConfigFile string `yaml:"-"`
}

// Default returns a Config populated with the same values the original
// bare flag.IntVar defaults used, so a Config zero-configured beyond
// RegisterFlags behaves identically to before.
func Default() *Config {
	return &Config{
		Port:        8080,
		Workers:     0, // 0 means runtime.GOMAXPROCS(0), resolved by the caller
		DocRoot:     "./public",
		ReadyPolicy: "fifo",
		RecvTimeout: 30,
		IdleTimeout: 30,
		Env:         "development",
	}
}

// RegisterFlags binds every Config field to a flag on fs, defaulting to
// cfg's current values. Call this on a Config already populated by
// Default so --help shows the real defaults.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.IntVar(&cfg.Port, "port", cfg.Port, "HTTP server port")
	fs.IntVar(&cfg.Workers, "workers", cfg.Workers, "worker count (0 = GOMAXPROCS)")
	fs.StringVar(&cfg.DocRoot, "doc-root", cfg.DocRoot, "static file document root")
	fs.StringVar(&cfg.ReadyPolicy, "ready-policy", cfg.ReadyPolicy, "ready-queue policy: fifo or lifo")
	fs.IntVar(&cfg.RecvTimeout, "recv-timeout", cfg.RecvTimeout, "per-recv idle timeout in seconds (not applied: connections use a fixed 30s read timeout)")
	fs.IntVar(&cfg.IdleTimeout, "idle-timeout", cfg.IdleTimeout, "keep-alive idle timeout in seconds (not applied: connections use a fixed 30s read timeout)")
	fs.StringVar(&cfg.Env, "env", cfg.Env, "environment (development/production)")
	fs.StringVar(&cfg.ConfigFile, "config", "", "path to a YAML config file")
}

// LoadFile applies overrides from a YAML file to cfg, skipping any field
// the caller has already set via an explicit flag (checked through
// fs.Changed) so flags keep precedence over the file regardless of
// which one is applied first.
func LoadFile(path string, fs *pflag.FlagSet, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	var fromFile Config
	if err := yaml.Unmarshal(data, &fromFile); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}

	apply := func(flagName string, set func()) {
		if fs == nil || !fs.Changed(flagName) {
			set()
		}
	}

	if fromFile.Port != 0 {
		apply("port", func() { cfg.Port = fromFile.Port })
	}
	if fromFile.Workers != 0 {
		apply("workers", func() { cfg.Workers = fromFile.Workers })
	}
	if fromFile.DocRoot != "" {
		apply("doc-root", func() { cfg.DocRoot = fromFile.DocRoot })
	}
	if fromFile.ReadyPolicy != "" {
		apply("ready-policy", func() { cfg.ReadyPolicy = fromFile.ReadyPolicy })
	}
	if fromFile.RecvTimeout != 0 {
		apply("recv-timeout", func() { cfg.RecvTimeout = fromFile.RecvTimeout })
	}
	if fromFile.IdleTimeout != 0 {
		apply("idle-timeout", func() { cfg.IdleTimeout = fromFile.IdleTimeout })
	}
	if fromFile.Env != "" {
		apply("env", func() { cfg.Env = fromFile.Env })
	}

	return nil
}

// New builds a Config from command-line flags (os.Args[1:]) alone, with no
// YAML file, matching the original package's flag-only New for callers
// that don't need cobra's subcommand tree.
func New() *Config {
	cfg := Default()
	fs := pflag.NewFlagSet("coroserve", pflag.ContinueOnError)
	RegisterFlags(fs, cfg)
	_ = fs.Parse(os.Args[1:])

	if cfg.ConfigFile != "" {
		if err := LoadFile(cfg.ConfigFile, fs, cfg); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}

	if port := os.Getenv("PORT"); port != "" && !fs.Changed("port") {
		var p int
		if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
			cfg.Port = p
		}
	}

	return cfg
}
