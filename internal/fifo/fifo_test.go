package fifo

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCreateIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buf.req.fifo")

	require.NoError(t, Create(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NotZero(t, info.Mode()&os.ModeNamedPipe, "expected a named pipe")

	// Second creation for the same path must be a no-op.
	require.NoError(t, Create(path))
}

func TestCreateBadParent(t *testing.T) {
	err := Create(filepath.Join(t.TempDir(), "missing", "buf.req.fifo"))
	require.Error(t, err)
}

func TestOpenDoesNotBlockWithoutWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buf.req.fifo")
	require.NoError(t, Create(path))

	done := make(chan struct{})
	var r *Reader
	var err error
	go func() {
		r, err = Open(path)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Open blocked waiting for a writer")
	}
	require.NoError(t, err)
	require.NoError(t, r.Close())
}

func TestWaitAndRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "buf.req.fifo")
	require.NoError(t, Create(path))

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	// No writer yet: the poll must time out rather than block forever.
	ready, err := r.Wait(50 * time.Millisecond)
	require.NoError(t, err)
	require.NotEqual(t, Ready, ready)

	w, err := os.OpenFile(path, os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = w.WriteString("fn main() {}")
	require.NoError(t, err)

	ready, err = r.Wait(time.Second)
	require.NoError(t, err)
	require.Equal(t, Ready, ready)

	buf := make([]byte, 64)
	n, err := r.Read(buf)
	require.NoError(t, err)
	require.Equal(t, "fn main() {}", string(buf[:n]))

	// After the last writer disconnects with nothing pending, the poll
	// reports a hangup instead of readable data.
	require.NoError(t, w.Close())
	ready, err = r.Wait(time.Second)
	require.NoError(t, err)
	require.Equal(t, Hangup, ready)
}

func TestOpenMissingPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.fifo"))
	require.Error(t, err)
}
