// wayclipd: Wayland clipboard history daemon.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"go.wayclip.dev/wayclip/internal/config"
	"go.wayclip.dev/wayclip/internal/daemon"
	"go.wayclip.dev/wayclip/internal/logging"
	"go.wayclip.dev/wayclip/internal/paths"
	"go.wayclip.dev/wayclip/internal/wayland"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := newRootCmd()
	if err := root.Execute(); err != nil {
		os.Exit(int(exitCodeFor(err)))
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wayclipd",
		Short: "Wayland clipboard history daemon",
		Long: `wayclipd observes every clipboard selection made under a Wayland
compositor's wlr-data-control protocol, persists deduplicated snapshots to a
local SQLite history, and serves a Unix-socket control channel for wayclipctl
and other front-ends.

Config file location:
  the path supplied via --config, if given; otherwise
  $XDG_CONFIG_HOME/wayclip/config.toml when XDG_CONFIG_HOME is set; otherwise
  $HOME/.config/wayclip/config.toml
A missing config file means the built-in defaults are used.

The flags below are read from the command line only.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         runDaemon,
	}

	f := cmd.Flags()
	f.String("config", "", "config file path (default: XDG config search order)")
	f.String("db", "", "database file path (default: XDG data search order)")
	f.String("log-format", "auto", "log format: auto, text, json")
	f.String("log-level", "", "log level: debug, info, warn, error (default: info)")

	cmd.AddCommand(newVersionCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("wayclipd %s\n", Version)
		},
	}
}

func runDaemon(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	logFormat, _ := f.GetString("log-format")
	logLevel, _ := f.GetString("log-level")
	resolveLogging(logFormat, logLevel)

	configPath, _ := f.GetString("config")
	if configPath == "" {
		configPath = paths.ConfigPath()
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("config load failed", "err", err)
		return exitError{code: daemon.ExitGeneric, err: err}
	}

	dbPath, _ := f.GetString("db")
	if dbPath == "" {
		dbPath = paths.DatabasePath()
	}
	if err := os.MkdirAll(paths.DatabaseDir(), 0o755); err != nil {
		slog.Error("create data dir failed", "err", err)
		return exitError{code: daemon.ExitDatabaseOpenFailure, err: err}
	}

	d, err := daemon.Open(cfg, paths.SocketPath(), dbPath, slog.Default())
	if err != nil {
		if errors.Is(err, daemon.ErrDatabaseOpen) {
			slog.Error("database open failed", "err", err)
			return exitError{code: daemon.ExitDatabaseOpenFailure, err: err}
		}
		slog.Error("daemon init failed", "err", err)
		return exitError{code: daemon.ExitGeneric, err: err}
	}

	slog.Info("wayclipd starting",
		"version", Version,
		"socket", paths.SocketPath(),
		"db", dbPath,
		"max_entries", cfg.Daemon.MaxEntries,
		"max_age_days", cfg.Daemon.MaxAgeDays,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		if errors.Is(err, wayland.ErrProtocolUnsupported) {
			slog.Error("compositor does not support wlr-data-control", "err", err)
			return exitError{code: daemon.ExitProtocolUnsupported, err: err}
		}
		if errors.Is(err, daemon.ErrSocketBind) {
			slog.Error("socket bind failed", "err", err)
			return exitError{code: daemon.ExitSocketBindFailure, err: err}
		}
		slog.Error("daemon exited", "err", err)
		return exitError{code: daemon.ExitGeneric, err: err}
	}

	slog.Info("wayclipd stopped cleanly")
	return nil
}

func resolveLogging(formatStr, levelStr string) {
	logging.Setup(logging.ParseFormat(formatStr), logging.ParseLevel(levelStr))
}

// exitError carries the spec.md §6 process exit code alongside the
// underlying error, so main can os.Exit with the right status while cobra
// still sees a non-nil error (with usage output already silenced).
type exitError struct {
	code daemon.ExitCode
	err  error
}

func (e exitError) Error() string { return e.err.Error() }
func (e exitError) Unwrap() error { return e.err }

func exitCodeFor(err error) daemon.ExitCode {
	var ee exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return daemon.ExitGeneric
}
