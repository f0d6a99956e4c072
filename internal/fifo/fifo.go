// Package fifo wraps the POSIX named-pipe calls the server needs: creating
// a pipe idempotently, and opening its read end without risking an
// indefinite block when no writer is connected yet.
//
// Opening a FIFO read-only normally blocks until a writer appears.  Open
// therefore opens with O_NONBLOCK and immediately clears the flag again,
// so the open returns at once while subsequent reads block in the kernel
// instead of busy-spinning.  Wait exposes poll(2) so callers can bound
// each read and recheck shutdown state between wakeups.
package fifo

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// Create makes a named pipe at path with mode 0644.  Creation is
// idempotent: an existing pipe (including one racing into existence
// between the stat and the mkfifo) is not an error.
func Create(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := unix.Mkfifo(path, 0o644); err != nil && err != unix.EEXIST {
		return fmt.Errorf("mkfifo %s: %w", path, err)
	}
	return nil
}

// Readiness is the outcome of a Wait call.
type Readiness int

const (
	// NotReady means the poll timed out (or was interrupted) with no data.
	NotReady Readiness = iota
	// Ready means at least one byte can be read without blocking.
	Ready
	// Hangup means no writer currently has the pipe open and no data is
	// pending.  Writers may still reconnect later.
	Hangup
)

// Reader is an open read end of a named pipe.
type Reader struct {
	fd   int
	path string
}

// Open opens the read end of the pipe at path.  It never blocks waiting
// for a writer: the descriptor is opened O_NONBLOCK and the flag is
// cleared via fcntl before returning, leaving reads blocking.
func Open(path string) (*Reader, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open fifo %s: %w", path, err)
	}
	flags, err := unix.FcntlInt(uintptr(fd), unix.F_GETFL, 0)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("get flags %s: %w", path, err)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFL, flags&^unix.O_NONBLOCK); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("clear nonblock %s: %w", path, err)
	}
	return &Reader{fd: fd, path: path}, nil
}

// Wait polls the pipe for readable data for at most timeout.  EINTR is
// reported as NotReady so callers simply loop.
func (r *Reader) Wait(timeout time.Duration) (Readiness, error) {
	fds := []unix.PollFd{{Fd: int32(r.fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, int(timeout.Milliseconds()))
	if err != nil {
		if err == unix.EINTR {
			return NotReady, nil
		}
		return NotReady, fmt.Errorf("poll %s: %w", r.path, err)
	}
	if n == 0 {
		return NotReady, nil
	}
	switch {
	case fds[0].Revents&unix.POLLIN != 0:
		return Ready, nil
	case fds[0].Revents&unix.POLLHUP != 0:
		return Hangup, nil
	}
	return NotReady, nil
}

// Read reads into p, blocking until data arrives.  Errors are returned
// as raw errnos so callers can distinguish EAGAIN from real failures.
func (r *Reader) Read(p []byte) (int, error) {
	n, err := unix.Read(r.fd, p)
	if n < 0 {
		n = 0
	}
	return n, err
}

// Close releases the descriptor.
func (r *Reader) Close() error {
	return unix.Close(r.fd)
}
