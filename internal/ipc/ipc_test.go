package ipc

import (
	"net"
	"os"
	"testing"
)

func TestListenRefusesToStealALiveSocket(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	first, err := Listen()
	if err != nil {
		t.Fatalf("first Listen: %v", err)
	}
	defer first.Close()

	if _, err := Listen(); err != ErrAlreadyRunning {
		t.Errorf("second Listen err = %v, want ErrAlreadyRunning", err)
	}
}

func TestListenRemovesStaleSocket(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())

	first, err := Listen()
	if err != nil {
		t.Fatalf("first Listen: %v", err)
	}
	path := SocketPath()

	// A killed daemon never gets to close (and thereby unlink) its own
	// listener, so tell this one to leave the file behind to match.
	first.(*net.UnixListener).SetUnlinkOnClose(false)
	first.Close()

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stale socket should still exist on disk: %v", err)
	}

	second, err := Listen()
	if err != nil {
		t.Fatalf("second Listen should unlink the stale socket: %v", err)
	}
	defer second.Close()
}
