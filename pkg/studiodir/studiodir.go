// Package studiodir encapsulates all path knowledge for the .studio/ project
// directory. It provides a Dir value object with accessors for the config
// file and the local runtime state: the persisted settings, the cached model
// list and the log file.
package studiodir

import (
	"os"
	"path/filepath"
)

// DefaultName is the directory name looked up in the working directory.
const DefaultName = ".studio"

// Dir is a value object that resolves paths within a .studio/ directory.
type Dir struct {
	root string
}

// New creates a Dir rooted at the given path. The path is converted to an
// absolute path. No I/O is performed; use EnsureStructure to create the
// directory layout.
func New(root string) Dir {
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = root
	}

	return Dir{root: abs}
}

// Root returns the absolute path to the .studio/ directory.
func (d Dir) Root() string { return d.root }

// ConfigPath returns the path to the main config file.
func (d Dir) ConfigPath() string { return filepath.Join(d.root, "config.yaml") }

// LocalDir returns the path to the local (gitignored) runtime state directory.
func (d Dir) LocalDir() string { return filepath.Join(d.root, "local") }

// StatePath returns the path to the persisted settings inside local/.
func (d Dir) StatePath() string { return filepath.Join(d.root, "local", "state.json") }

// ModelsCachePath returns the path to the last fetched model list.
func (d Dir) ModelsCachePath() string { return filepath.Join(d.root, "local", "models.json") }

// LogPath returns the path to the TUI log file.
func (d Dir) LogPath() string { return filepath.Join(d.root, "local", "studio.log") }

// GitignorePath returns the path to the .gitignore file inside .studio/.
func (d Dir) GitignorePath() string { return filepath.Join(d.root, ".gitignore") }

// Exists reports whether the .studio/ root directory exists on disk.
func (d Dir) Exists() bool {
	info, err := os.Stat(d.root)

	return err == nil && info.IsDir()
}
