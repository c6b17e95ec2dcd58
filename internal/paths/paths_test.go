package paths

import (
	"strings"
	"testing"
)

func TestSocketPathUsesRuntimeDir(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "/run/user/1000")
	got := SocketPath()
	want := "/run/user/1000/wayclip/wayclip.sock"
	if got != want {
		t.Errorf("SocketPath() = %q, want %q", got, want)
	}
}

func TestSocketPathFallsBackToTmp(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", "")
	got := SocketPath()
	if !strings.Contains(got, "wayclip-") || !strings.HasSuffix(got, "wayclip.sock") {
		t.Errorf("SocketPath() fallback = %q", got)
	}
}

func TestDatabasePathUsesDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	got := DatabasePath()
	want := "/data/wayclip/history.db"
	if got != want {
		t.Errorf("DatabasePath() = %q, want %q", got, want)
	}
}

func TestConfigPathUsesConfigHome(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	got := ConfigPath()
	want := "/cfg/wayclip/config.toml"
	if got != want {
		t.Errorf("ConfigPath() = %q, want %q", got, want)
	}
}
