// Package client provides a client-side library for talking to a
// running giallo-kak server.
//
// The server speaks a line-oriented protocol on its control channel and
// accepts buffer snapshots on per-buffer FIFOs.  Typical usage for an
// editor integration:
//
//	c := client.New(conn)
//	if err := c.Init("mysession", "src/main.rs", token, "rust", ""); err != nil { ... }
//	buf := client.NewBuffer(fifoPath, sentinel)
//	buf.Flush(content)          // stream one snapshot
//
// Tools that want a synchronous render use Highlight, which blocks for
// the length-prefixed reply:
//
//	script, err := c.Highlight("rust", "monokai", source)
package client

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"go.uber.org/multierr"

	"github.com/yukai/giallo-kak/internal/proto"
)

// Conn is a client handle for one control channel to the server.  All
// methods are safe for concurrent use; request/reply exchanges are
// serialised.
type Conn struct {
	mu sync.Mutex
	w  io.Writer
	br *bufio.Reader
}

// New wraps an established control channel (a pipe pair, or the request
// and response FIFOs of a FIFO-mode server).
func New(rw io.ReadWriter) *Conn {
	return &Conn{w: rw, br: bufio.NewReader(rw)}
}

// Ping round-trips a PING and verifies the PONG.
func (c *Conn) Ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := io.WriteString(c.w, proto.VerbPing+"\n"); err != nil {
		return err
	}
	line, err := c.br.ReadString('\n')
	if err != nil {
		return err
	}
	if got := strings.TrimSpace(line); got != "PONG" {
		return fmt.Errorf("unexpected ping reply %q", got)
	}
	return nil
}

// Init registers a buffer with the server.  The server's reply arrives
// out of band through its publisher, so Init returns as soon as the
// command is written.  lang and theme are optional, but the positional
// wire format cannot carry a theme without a language.
func (c *Conn) Init(session, buffer, token, lang, theme string) error {
	if theme != "" && lang == "" {
		return errors.New("init: theme requires a language")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	line := fmt.Sprintf("%s %s %s %s", proto.VerbInit, session, buffer, token)
	if lang != "" {
		line += " " + lang
	}
	if theme != "" {
		line += " " + theme
	}
	_, err := io.WriteString(c.w, line+"\n")
	return err
}

// SetTheme switches the theme used for a buffer's future snapshots.
// Fire-and-forget, like Init.
func (c *Conn) SetTheme(buffer, theme string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := fmt.Fprintf(c.w, "%s %s %s\n", proto.VerbSetTheme, buffer, theme)
	return err
}

// Highlight renders text synchronously and returns the resulting
// command script.
func (c *Conn) Highlight(lang, theme, text string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := fmt.Fprintf(c.w, "%s %s %s %d\n%s", proto.VerbHighlight, lang, theme, len(text), text); err != nil {
		return "", err
	}

	header, err := c.br.ReadString('\n')
	if err != nil {
		return "", err
	}
	var n int
	if _, err := fmt.Sscanf(strings.TrimSpace(header), "OK %d", &n); err != nil {
		return "", fmt.Errorf("bad reply header %q", strings.TrimSpace(header))
	}
	script := make([]byte, n)
	if _, err := io.ReadFull(c.br, script); err != nil {
		return "", fmt.Errorf("read %d-byte reply: %w", n, err)
	}
	return string(script), nil
}

// Buffer streams snapshots into one buffer's request FIFO.  The path and
// sentinel come from the options the server publishes at INIT.
type Buffer struct {
	FIFOPath string
	Sentinel string
}

// NewBuffer returns a Buffer handle.
func NewBuffer(fifoPath, sentinel string) *Buffer {
	return &Buffer{FIFOPath: fifoPath, Sentinel: sentinel}
}

// Flush writes one complete snapshot followed by the sentinel.  The FIFO
// is opened per flush, mirroring how editor hooks stream content; the
// open blocks until the server side has the FIFO open for reading.
func (b *Buffer) Flush(content string) error {
	f, err := os.OpenFile(b.FIFOPath, os.O_WRONLY, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", b.FIFOPath, err)
	}
	_, werr := io.WriteString(f, content+b.Sentinel)
	return multierr.Append(werr, f.Close())
}
