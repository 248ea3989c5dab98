// Package paths provides path resolution utilities.
package paths

import (
	"os"
	"path/filepath"
	"strings"
)

// DatabaseFile is the file name used when storage.path names a directory.
const DatabaseFile = "standclock.db"

// DataDir returns $XDG_DATA_HOME/standclock, falling back to
// ~/.local/share/standclock, or "." when no home directory exists.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "standclock")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".local", "share", "standclock")
}

// ConfigDir returns ~/.config/standclock, or "" when no home directory exists.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "standclock")
}

// ResolveDatabasePath resolves storage.path from user input.
//
// Input normalization:
//   - "" -> DataDir()/standclock.db
//   - "/path/to/file.db" -> "/path/to/file.db"
//   - "/path/to/dir" -> "/path/to/dir/standclock.db"
//   - "~/x" -> "$HOME/x"
//
// A directory containing a "redirect" file is replaced by the directory the
// file names, so several checkouts can share one history.
func ResolveDatabasePath(path string) string {
	if path == "" {
		return filepath.Join(DataDir(), DatabaseFile)
	}
	path = filepath.Clean(expandHome(path))

	if filepath.Ext(path) == ".db" {
		return path
	}
	return filepath.Join(followRedirect(path), DatabaseFile)
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// followRedirect checks for a redirect file and follows it if present.
// Relative targets are resolved against dir.
func followRedirect(dir string) string {
	content, err := os.ReadFile(filepath.Join(dir, "redirect")) //nolint:gosec // redirect path is within the data dir
	if err != nil {
		return dir
	}

	target := strings.TrimSpace(string(content))
	if target == "" {
		return dir
	}
	target = expandHome(target)
	if filepath.IsAbs(target) {
		return filepath.Clean(target)
	}
	return filepath.Clean(filepath.Join(dir, target))
}
