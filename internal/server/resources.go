package server

import (
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
)

// Resources owns the server's on-disk state: the directory holding every
// buffer FIFO, and the quit flag pipelines poll during shutdown.
//
// quit is an atomic flag rather than a context so the signal handler,
// the dispatch loop, and every pipeline goroutine can consult it without
// plumbing cancellation through blocking FIFO reads.
type Resources struct {
	baseDir string
	quit    atomic.Bool
}

// DefaultBaseDir returns the per-process FIFO directory,
// <tmp>/giallo-kak-<pid>.
func DefaultBaseDir() string {
	return filepath.Join(os.TempDir(), fmt.Sprintf("giallo-kak-%d", os.Getpid()))
}

// NewResources returns Resources rooted at dir.  The directory itself is
// created lazily on the first INIT.
func NewResources(dir string) *Resources {
	return &Resources{baseDir: dir}
}

// BaseDir returns the FIFO directory path.
func (r *Resources) BaseDir() string {
	return r.baseDir
}

// RequestQuit flips the quit flag.  Idempotent.
func (r *Resources) RequestQuit() {
	r.quit.Store(true)
}

// ShouldQuit reports whether shutdown was requested.
func (r *Resources) ShouldQuit() bool {
	return r.quit.Load()
}

// Close removes the FIFO directory and everything in it.  A directory
// that was never created is not an error.
func (r *Resources) Close() error {
	err := os.RemoveAll(r.baseDir)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
