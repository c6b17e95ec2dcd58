// Package daemon wires Paths, Store, Observer, Replayer, and the IPC server
// into the running wayclipd process: spec.md describes these five
// components in isolation; this is the supplemented piece translating
// original_source's tokio::select! main loop into this codebase's
// concurrency idiom (a dedicated OS thread for the Wayland dispatch loop,
// a main goroutine draining its snapshot channel, a ticker-driven prune
// loop, and signal-driven shutdown).
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"go.wayclip.dev/wayclip/internal/config"
	"go.wayclip.dev/wayclip/internal/entry"
	"go.wayclip.dev/wayclip/internal/ipc"
	"go.wayclip.dev/wayclip/internal/replay"
	"go.wayclip.dev/wayclip/internal/store"
	"go.wayclip.dev/wayclip/internal/wayland"
)

// ExitCode enumerates the process exit codes spec.md §6 assigns to the
// daemon's possible termination states.
type ExitCode int

const (
	ExitOK                  ExitCode = 0
	ExitGeneric             ExitCode = 1
	ExitProtocolUnsupported ExitCode = 2
	ExitSocketBindFailure   ExitCode = 3
	ExitDatabaseOpenFailure ExitCode = 4
)

// pruneInterval is the recurring age-pruning cadence; spec.md §4.2 only
// requires "once per hour is sufficient; not load-bearing."
const pruneInterval = time.Hour

// Daemon owns every live resource of a running wayclipd process.
type Daemon struct {
	cfg        config.Config
	socketPath string
	dbPath     string
	logger     *slog.Logger

	store    *store.Store
	observer *wayland.Observer
	replayer *replay.Replayer
	server   *ipc.Server
}

// Open constructs a Daemon: opens the store and prepares the observer,
// replayer, and IPC server, but does not yet bind the IPC socket or start
// the Wayland observer or accept loop (Run does that). Callers inspect
// the returned error against the Err* sentinels below to pick the right
// process exit code.
func Open(cfg config.Config, socketPath, dbPath string, logger *slog.Logger) (*Daemon, error) {
	if logger == nil {
		logger = slog.Default()
	}

	st, err := store.Open(dbPath, store.Limits{
		MaxEntries:   cfg.Daemon.MaxEntries,
		MaxEntrySize: cfg.Daemon.MaxEntrySize,
		MinEntrySize: cfg.Daemon.MinEntrySize,
		MaxAgeDays:   cfg.Daemon.MaxAgeDays,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDatabaseOpen, err)
	}

	rep := replay.New()
	if err := rep.CheckAvailable(); err != nil {
		logger.Warn("replay tool unavailable at startup", "err", err)
	}

	obs := wayland.New(cfg.Daemon.MinEntrySize, cfg.Daemon.MaxEntrySize, logger)

	srv := ipc.NewServer(st, rep, cfg.Daemon.MaxEntrySize, logger)

	return &Daemon{
		cfg:        cfg,
		socketPath: socketPath,
		dbPath:     dbPath,
		logger:     logger,
		store:      st,
		observer:   obs,
		replayer:   rep,
		server:     srv,
	}, nil
}

// ErrDatabaseOpen and ErrSocketBind let main.go map a startup failure to
// the exit codes of spec.md §6 without Open needing to know about os.Exit.
var (
	ErrDatabaseOpen = errors.New("daemon: database open failed")
	ErrSocketBind   = errors.New("daemon: socket bind failed")
)

// Run starts the Wayland observer on its own OS thread, the IPC accept
// loop, and the hourly prune ticker, then blocks until ctx is cancelled
// (by a signal handler in cmd/wayclipd) or the observer exits fatally.
// Run always closes the store before returning. Once the socket is bound,
// Run also removes the socket file before returning; if binding fails, the
// existing socket file is left in place.
func (d *Daemon) Run(ctx context.Context) error {
	defer d.store.Close()

	if _, err := d.store.Prune(ctx); err != nil {
		d.logger.Warn("startup prune failed", "err", err)
	}

	ln, err := ipc.Listen()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSocketBind, err)
	}
	defer removeSocket(d.socketPath, d.logger)

	observerErr := make(chan error, 1)
	go func() {
		observerErr <- d.observer.Run()
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- d.server.Serve(ln)
	}()

	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()

	for {
		select {
		case snap := <-d.observer.Snapshots():
			d.ingest(ctx, snap)

		case <-ticker.C:
			if n, err := d.store.Prune(ctx); err != nil {
				d.logger.Warn("periodic prune failed", "err", err)
			} else if n > 0 {
				d.logger.Debug("pruned aged entries", "count", n)
			}

		case err := <-observerErr:
			d.server.Shutdown()
			if errors.Is(err, wayland.ErrProtocolUnsupported) {
				return err
			}
			return fmt.Errorf("daemon: observer exited: %w", err)

		case err := <-serveErr:
			_ = d.observer.Close()
			<-observerErr
			return fmt.Errorf("daemon: ipc server exited: %w", err)

		case <-ctx.Done():
			d.logger.Info("shutting down")
			d.server.Shutdown()
			_ = d.observer.Close()
			<-observerErr
			return nil
		}
	}
}

// ingest hands a drained snapshot to the store, logging but not failing
// the daemon on a per-entry store error — spec.md §7 "Store errors ...
// From observer: logged and the snapshot is dropped."
func (d *Daemon) ingest(ctx context.Context, snap entry.ClipboardSnapshot) {
	id, outcome, err := d.store.Put(ctx, snap)
	switch {
	case errors.Is(err, store.ErrRejected):
		d.logger.Debug("rejected out-of-band snapshot", "size", len(snap.Data))
	case err != nil:
		d.logger.Error("store put failed", "err", err)
	case outcome == store.Inserted:
		d.logger.Debug("stored new entry", "id", id, "mime", snap.MimeType)
	default:
		d.logger.Debug("touched existing entry", "id", id, "mime", snap.MimeType)
	}
}

func removeSocket(path string, logger *slog.Logger) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Warn("remove socket on shutdown", "path", path, "err", err)
	}
}
