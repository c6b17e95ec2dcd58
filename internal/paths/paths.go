// Package paths resolves the runtime socket, database, and config file
// locations from XDG environment conventions, with the fallbacks documented
// for each.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// SocketPath returns $XDG_RUNTIME_DIR/wayclip/wayclip.sock, falling back to
// /tmp/wayclip-<uid>/wayclip.sock.
func SocketPath() string {
	if dir := os.Getenv("XDG_RUNTIME_DIR"); dir != "" {
		return filepath.Join(dir, "wayclip", "wayclip.sock")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("wayclip-%d", os.Getuid()), "wayclip.sock")
}

// SocketDir returns the parent directory of SocketPath.
func SocketDir() string {
	return filepath.Dir(SocketPath())
}

// DatabasePath returns $XDG_DATA_HOME/wayclip/history.db, falling back to
// $HOME/.local/share/wayclip/history.db.
func DatabasePath() string {
	if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
		return filepath.Join(dir, "wayclip", "history.db")
	}
	return filepath.Join(homeDir(), ".local", "share", "wayclip", "history.db")
}

// DatabaseDir returns the parent directory of DatabasePath.
func DatabaseDir() string {
	return filepath.Dir(DatabasePath())
}

// ConfigPath returns $XDG_CONFIG_HOME/wayclip/config.toml, falling back to
// $HOME/.config/wayclip/config.toml.
func ConfigPath() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "wayclip", "config.toml")
	}
	return filepath.Join(homeDir(), ".config", "wayclip", "config.toml")
}

func homeDir() string {
	if home := os.Getenv("HOME"); home != "" {
		return home
	}
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "/tmp"
}
