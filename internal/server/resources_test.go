package server

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResourcesQuitFlag(t *testing.T) {
	res := NewResources(filepath.Join(t.TempDir(), "giallo"))
	require.False(t, res.ShouldQuit())

	res.RequestQuit()
	require.True(t, res.ShouldQuit())

	res.RequestQuit()
	require.True(t, res.ShouldQuit())
}

func TestResourcesClose(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "giallo")
	res := NewResources(dir)
	require.Equal(t, dir, res.BaseDir())

	// Never created: still fine.
	require.NoError(t, res.Close())

	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aa.req.fifo"), []byte("x"), 0o644))
	require.NoError(t, res.Close())

	_, err := os.Stat(dir)
	require.True(t, os.IsNotExist(err))
}

func TestDefaultBaseDir(t *testing.T) {
	dir := DefaultBaseDir()
	require.Equal(t, filepath.Join(os.TempDir(), "giallo-kak-"+strconv.Itoa(os.Getpid())), dir)
}
