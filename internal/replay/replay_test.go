package replay

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
)

// fakeTool writes a small shell script to act as a stand-in for wl-copy,
// so tests don't depend on wl-clipboard being installed.
func fakeTool(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fakes require a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "wl-copy")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCopySucceeds(t *testing.T) {
	r := &Replayer{Tool: fakeTool(t, "cat >/dev/null\nexit 0\n")}
	if err := r.Copy(context.Background(), "text/plain", []byte("hello")); err != nil {
		t.Fatalf("Copy: %v", err)
	}
}

func TestCopyNonzeroExitIsReplayFailed(t *testing.T) {
	r := &Replayer{Tool: fakeTool(t, "cat >/dev/null\nexit 1\n")}
	err := r.Copy(context.Background(), "text/plain", []byte("hello"))
	if !errors.Is(err, ErrReplayFailed) {
		t.Errorf("Copy err = %v, want ErrReplayFailed", err)
	}
}

func TestCopyMissingToolIsReplayFailed(t *testing.T) {
	r := &Replayer{Tool: filepath.Join(t.TempDir(), "does-not-exist")}
	err := r.Copy(context.Background(), "text/plain", []byte("hello"))
	if !errors.Is(err, ErrReplayFailed) {
		t.Errorf("Copy err = %v, want ErrReplayFailed", err)
	}
}

func TestCheckAvailableFindsRealBinary(t *testing.T) {
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("no sh on PATH")
	}
	r := &Replayer{Tool: sh}
	if err := r.CheckAvailable(); err != nil {
		t.Errorf("CheckAvailable: %v", err)
	}
}

func TestCheckAvailableMissingToolErrors(t *testing.T) {
	r := &Replayer{Tool: filepath.Join(t.TempDir(), "does-not-exist")}
	if err := r.CheckAvailable(); !errors.Is(err, ErrToolMissing) {
		t.Errorf("CheckAvailable err = %v, want ErrToolMissing", err)
	}
}
