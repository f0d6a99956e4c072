package kak

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestQuote(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"it's", "it''s"},
		{"'''", "''''''"},
		{"*scratch*", "*scratch*"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, Quote(tt.in))
	}
}

func TestWrap(t *testing.T) {
	got := Wrap("src/main.rs", "set-face global giallo_0001 %{rgb:ff0000,default}")
	want := "evaluate-commands -no-hooks -buffer 'src/main.rs' -- %[ set-face global giallo_0001 %{rgb:ff0000,default} ]\n"
	require.Equal(t, want, got)

	got = Wrap("it's a buffer", "nop")
	require.Equal(t, "evaluate-commands -no-hooks -buffer 'it''s a buffer' -- %[ nop ]\n", got)
}

// installFakeKak puts a shell script named kak on PATH that copies its
// stdin and arguments into files under dir, then exits with code.
func installFakeKak(t *testing.T, dir string, code int) (stdinFile, argsFile string) {
	t.Helper()
	stdinFile = filepath.Join(dir, "stdin.txt")
	argsFile = filepath.Join(dir, "args.txt")
	script := "#!/bin/sh\n" +
		"cat > " + stdinFile + "\n" +
		"echo \"$@\" > " + argsFile + "\n" +
		"exit " + strconv.Itoa(code) + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "kak"), []byte(script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
	return stdinFile, argsFile
}

func TestSend(t *testing.T) {
	dir := t.TempDir()
	stdinFile, argsFile := installFakeKak(t, dir, 0)

	p := NewPublisher("")
	err := p.Send(context.Background(), "sess", "it's", "nop")
	require.NoError(t, err)

	stdin, rerr := os.ReadFile(stdinFile)
	require.NoError(t, rerr)
	require.Equal(t, Wrap("it's", "nop"), string(stdin))

	args, rerr := os.ReadFile(argsFile)
	require.NoError(t, rerr)
	require.Equal(t, "-p sess\n", string(args))
}

func TestSendNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	installFakeKak(t, dir, 3)

	p := NewPublisher("")
	require.NoError(t, p.Send(context.Background(), "sess", "buf", "nop"))
}

func TestSendNoClient(t *testing.T) {
	t.Setenv("PATH", t.TempDir())

	p := NewPublisher("")
	err := p.Send(context.Background(), "sess", "buf", "nop")
	require.ErrorIs(t, err, ErrClientNotFound)
}

func TestSendDebugFileBeforeLookup(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	debug := filepath.Join(t.TempDir(), "nested", "dir", "last.kak")

	p := NewPublisher(debug)
	err := p.Send(context.Background(), "sess", "buf", "set-face global f %{rgb:ffffff,default}")
	require.ErrorIs(t, err, ErrClientNotFound)

	got, rerr := os.ReadFile(debug)
	require.NoError(t, rerr)
	require.Equal(t, Wrap("buf", "set-face global f %{rgb:ffffff,default}"), string(got))
}
