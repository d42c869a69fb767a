// Command coroserve is the process entry point: it parses flags and an
// optional YAML config file, builds an app.App, and runs it until a
// listener error or a termination signal.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/coroserve/coroserve/app"
	"github.com/coroserve/coroserve/config"
)

func main() {
	if err := buildRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildRootCommand() *cobra.Command {
	cfg := config.Default()

	cmd := &cobra.Command{
		Use:   "coroserve",
		Short: "coroserve is a high-throughput HTTP/1.1 server",
		Long: `coroserve serves static content and programmable routes over a
cooperative-task connection engine: a fixed pool of workers, each pairing
an edge-triggered readiness notifier with a scheduler of goroutine-backed
tasks, so one worker thread serves many connections without blocking on
I/O.`,
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.ConfigFile != "" {
				if err := config.LoadFile(cfg.ConfigFile, cmd.Flags(), cfg); err != nil {
					return err
				}
			}
			if port := os.Getenv("PORT"); port != "" && !cmd.Flags().Changed("port") {
				var p int
				if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
					cfg.Port = p
				}
			}
			app.New(cfg).Run()
			return nil
		},
	}

	config.RegisterFlags(cmd.Flags(), cfg)
	return cmd
}

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"
