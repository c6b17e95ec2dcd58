package wayland

import (
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
)

func pipeWith(t *testing.T, data string) *os.File {
	t.Helper()
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("Pipe: %v", err)
	}
	if _, err := w.WriteString(data); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Close()
	return r
}

func TestDrainOfferDiscardsUndersizePayload(t *testing.T) {
	o := New(5, 1024, slog.Default())

	done := make(chan struct{})
	go func() {
		defer close(done)
		o.drainOffer(pipeWith(t, "hi"), "text/plain", uuid.New())
	}()

	select {
	case <-o.Snapshots():
		t.Fatal("drainOffer produced a snapshot for an undersize payload")
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("drainOffer did not return")
	}
}

func TestDrainOfferAcceptsInBoundsPayload(t *testing.T) {
	o := New(1, 1024, slog.Default())

	go o.drainOffer(pipeWith(t, "hello"), "text/plain", uuid.New())

	select {
	case snap := <-o.Snapshots():
		if string(snap.Data) != "hello" {
			t.Errorf("snapshot data = %q, want %q", snap.Data, "hello")
		}
	case <-time.After(time.Second):
		t.Fatal("drainOffer never produced a snapshot")
	}
}
