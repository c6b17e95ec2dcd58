// Package ipc implements the local Unix-domain-socket control channel
// between wayclipd and its clients: newline-delimited JSON framing over the
// socket resolved by internal/paths, generalized from
// kbuley-suffuse/internal/ipc's stale-socket-removal and listen/dial
// helpers.
package ipc

import (
	"errors"
	"fmt"
	"net"
	"os"

	"go.wayclip.dev/wayclip/internal/paths"
)

// SocketPath returns the well-known control socket path (see internal/paths).
func SocketPath() string {
	return paths.SocketPath()
}

// ErrAlreadyRunning is returned by Listen when another daemon is already
// listening on the control socket.
var ErrAlreadyRunning = errors.New("ipc: a daemon is already listening on the control socket")

// Listen creates the socket's parent directory with mode 0700, removes any
// stale socket file left by a previous run, and binds a new Unix listener
// at mode 0600 — only the owning user may connect, per spec. If a daemon is
// already live on the socket, Listen refuses to steal it.
func Listen() (net.Listener, error) {
	dir := paths.SocketDir()
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("ipc: create socket dir %s: %w", dir, err)
	}

	path := SocketPath()
	if IsRunning() {
		return nil, ErrAlreadyRunning
	}
	if err := removeStale(path); err != nil {
		return nil, err
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc: listen %s: %w", path, err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("ipc: chmod socket %s: %w", path, err)
	}
	return ln, nil
}

// removeStale deletes a pre-existing socket file, tolerating its absence.
// A leftover socket from a killed daemon would otherwise make net.Listen
// fail with "address already in use".
func removeStale(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ipc: remove stale socket %s: %w", path, err)
	}
	return nil
}

// Dial connects to a running daemon's control socket.
func Dial() (net.Conn, error) {
	path := SocketPath()
	conn, err := net.Dial("unix", path)
	if err != nil {
		return nil, fmt.Errorf("ipc: dial %s: %w", path, err)
	}
	return conn, nil
}

// IsRunning reports whether a daemon appears to be listening on the control
// socket, via a cheap dial-and-close.
func IsRunning() bool {
	conn, err := Dial()
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}
