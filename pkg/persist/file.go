package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// File stores a Snapshot as a JSON file. Writes go through a temporary file
// in the same directory followed by a rename, so readers never see a
// partially written file. It is safe for concurrent use.
type File struct {
	mu   sync.Mutex
	path string
	log  *slog.Logger
}

// NewFile returns a File for path. The path is made absolute; no I/O is
// performed. Corrections applied while loading are logged to logger, or to
// slog.Default() when it is nil.
func NewFile(path string, logger *slog.Logger) *File {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &File{path: abs, log: logger}
}

// Path returns the absolute file path.
func (f *File) Path() string { return f.path }

// Load reads the snapshot. A missing file returns the default snapshot and
// false without error.
func (f *File) Load() (Snapshot, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), false, nil
		}
		return Snapshot{}, false, fmt.Errorf("persist: read file: %w", err)
	}

	snap, fix, err := Decode(data)
	if err != nil {
		return Snapshot{}, false, err
	}
	if fix.UnknownMode != "" {
		f.log.Warn("persist: unknown mode, using chat", "path", f.path, "mode", fix.UnknownMode)
	}
	if len(fix.SkippedParams) > 0 {
		f.log.Warn("persist: ignoring out-of-range parameters", "path", f.path, "keys", fix.SkippedParams)
	}

	return snap, true, nil
}

// Save writes snap with 0600 permissions, since it holds the API key.
func (f *File) Save(snap Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("persist: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".state-*.tmp")
	if err != nil {
		return fmt.Errorf("persist: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName) //nolint:gosec // tmpName comes from os.CreateTemp in a known directory
		return fmt.Errorf("persist: chmod temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName) //nolint:gosec // tmpName comes from os.CreateTemp in a known directory
		return fmt.Errorf("persist: write temp file: %w", err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName) //nolint:gosec // tmpName comes from os.CreateTemp in a known directory
		return fmt.Errorf("persist: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil { //nolint:gosec // tmpName comes from os.CreateTemp in a known directory
		_ = os.Remove(tmpName) //nolint:gosec // tmpName comes from os.CreateTemp in a known directory
		return fmt.Errorf("persist: rename temp file: %w", err)
	}

	return nil
}
