package ipc

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"go.wayclip.dev/wayclip/internal/entry"
	"go.wayclip.dev/wayclip/internal/store"
)

// Store is the subset of *store.Store the IPC server consults. Declared as
// an interface so server tests can substitute a fake without touching
// SQLite, mirroring otterclip's adapter-interface pattern for its storage
// layer.
type Store interface {
	List(ctx context.Context, limit int, query string) ([]entry.HistoryEntry, error)
	Get(ctx context.Context, id int64) (entry.HistoryEntry, error)
	Touch(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
	Clear(ctx context.Context) error
}

// Replayer is the subset of *replay.Replayer the IPC server consults.
type Replayer interface {
	Copy(ctx context.Context, mimeType string, data []byte) error
}

// drainTimeout bounds how long Shutdown waits for in-flight connections to
// finish their single exchange before force-closing them, per spec.md §5's
// "waits for in-flight tasks up to a small bound, then force-closes."
const drainTimeout = 2 * time.Second

// Server accepts connections on the control socket and serves one
// request/response exchange per connection, generalized from
// kbuley-suffuse/cmd/suffuse/server.go's serveIPC/handleIPCConn
// goroutine-per-connection loop.
type Server struct {
	store        Store
	replayer     Replayer
	maxEntrySize uint64
	logger       *slog.Logger

	ln net.Listener

	mu      sync.Mutex
	conns   map[net.Conn]struct{}
	closing bool

	wg sync.WaitGroup
}

// NewServer returns a Server dispatching List/Get/Copy/Delete/Clear/Ping
// requests against store and replayer.
func NewServer(store Store, replayer Replayer, maxEntrySize uint64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		store:        store,
		replayer:     replayer,
		maxEntrySize: maxEntrySize,
		logger:       logger,
		conns:        make(map[net.Conn]struct{}),
	}
}

// Serve accepts connections on ln until it is closed by Shutdown, handling
// each on its own goroutine. It returns nil once the listener has been
// closed for shutdown, or the Accept error otherwise.
func (s *Server) Serve(ln net.Listener) error {
	s.ln = ln
	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing {
				return nil
			}
			return err
		}

		s.trackConn(conn)
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.untrackConn(conn)
			s.handleConn(conn)
		}()
	}
}

// Shutdown stops accepting new connections and waits up to drainTimeout for
// in-flight exchanges to finish before force-closing whatever remains.
func (s *Server) Shutdown() {
	s.mu.Lock()
	s.closing = true
	if s.ln != nil {
		_ = s.ln.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(drainTimeout):
		s.closeAllConns()
		<-done
	}
}

func (s *Server) trackConn(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conns[c] = struct{}{}
}

func (s *Server) untrackConn(c net.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, c)
}

func (s *Server) closeAllConns() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.Close()
	}
}

// handleConn reads exactly one request, dispatches it, and writes exactly
// one response — the single-shot baseline spec.md §4.3 calls out as
// sufficient.
func (s *Server) handleConn(nc net.Conn) {
	defer nc.Close()

	wc := NewConn(nc, s.maxEntrySize)
	req, err := wc.ReadRequest()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return
		}
		if errors.Is(err, ErrLineTooLong) || errors.Is(err, ErrBadRequest) {
			_ = wc.WriteResponse(errResponse(KindBadRequest, "%v", err))
			return
		}
		s.logger.Debug("ipc: read request failed", "err", err)
		return
	}

	resp := s.dispatch(context.Background(), req)
	if err := wc.WriteResponse(resp); err != nil {
		s.logger.Debug("ipc: write response failed", "err", err)
	}
}

func (s *Server) dispatch(ctx context.Context, req Request) Response {
	switch req.Kind {
	case "List":
		return s.handleList(ctx, req.List)
	case "Get":
		return s.handleGet(ctx, req.ID.ID)
	case "Copy":
		return s.handleCopy(ctx, req.ID.ID)
	case "Delete":
		return s.handleDelete(ctx, req.ID.ID)
	case "Clear":
		return s.handleClear(ctx)
	case "Ping":
		return pongResponse()
	default:
		return errResponse(KindBadRequest, "unknown request kind %q", req.Kind)
	}
}

func (s *Server) handleList(ctx context.Context, params ListParams) Response {
	entries, err := s.store.List(ctx, params.Limit, params.Query)
	if err != nil {
		return errResponse(KindInternal, "list: %v", err)
	}
	views := make([]EntryView, len(entries))
	for i, e := range entries {
		views[i] = NewEntryView(e)
	}
	return Response{Kind: "History", History: HistoryPayload{Entries: views}}
}

func (s *Server) handleGet(ctx context.Context, id int64) Response {
	e, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errResponse(KindNotFound, "no entry with id %d", id)
	}
	if err != nil {
		return errResponse(KindInternal, "get: %v", err)
	}
	return Response{Kind: "Entry", Entry: EntryPayload{Entry: NewEntryView(e)}}
}

// handleCopy looks up the entry, replays it onto the live clipboard, and —
// only on replay success — bumps its last_accessed_at, per spec.md §4.3
// "Replayer failure ... does NOT update the timestamp."
func (s *Server) handleCopy(ctx context.Context, id int64) Response {
	e, err := s.store.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errResponse(KindNotFound, "no entry with id %d", id)
	}
	if err != nil {
		return errResponse(KindInternal, "get: %v", err)
	}

	if err := s.replayer.Copy(ctx, e.MimeType, e.Data); err != nil {
		return errResponse(KindReplayFailed, "%v", err)
	}

	if err := s.store.Touch(ctx, id); err != nil {
		return errResponse(KindInternal, "touch: %v", err)
	}
	return okResponse()
}

func (s *Server) handleDelete(ctx context.Context, id int64) Response {
	err := s.store.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return errResponse(KindNotFound, "no entry with id %d", id)
	}
	if err != nil {
		return errResponse(KindInternal, "delete: %v", err)
	}
	return okResponse()
}

func (s *Server) handleClear(ctx context.Context) Response {
	if err := s.store.Clear(ctx); err != nil {
		return errResponse(KindInternal, "clear: %v", err)
	}
	return okResponse()
}
