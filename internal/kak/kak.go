// Package kak delivers command scripts to a running Kakoune session by
// piping them into `kak -p <session>`.
package kak

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/yukai/giallo-kak/logger"
)

// DebugFileEnv names the environment variable that, when set, makes the
// publisher persist every wrapped script to that path before sending.
const DebugFileEnv = "GIALLO_DEBUG_FILE"

// ErrClientNotFound reports that no kak binary is on PATH.
var ErrClientNotFound = errors.New("kak command not found in PATH")

// Publisher sends scripts to Kakoune sessions.  The zero value works;
// NewPublisher also wires the optional debug file.
type Publisher struct {
	debugFile string
}

// NewPublisher returns a Publisher.  A non-empty debugFile receives a
// copy of every wrapped script, overwritten per send.
func NewPublisher(debugFile string) *Publisher {
	return &Publisher{debugFile: debugFile}
}

// Quote escapes s for inclusion in a single-quoted Kakoune string.
func Quote(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

// Wrap encloses script in an evaluate-commands block scoped to buffer.
// The %[ ] balanced string keeps the script's own quoting intact, and
// -no-hooks prevents highlight application from retriggering the edit
// hooks that requested it.
func Wrap(buffer, script string) string {
	var sb strings.Builder
	sb.WriteString("evaluate-commands -no-hooks -buffer '")
	sb.WriteString(Quote(buffer))
	sb.WriteString("' -- %[ ")
	sb.WriteString(script)
	sb.WriteString(" ]\n")
	return sb.String()
}

// Send wraps script for buffer and pipes it to `kak -p session`.  A
// missing kak binary returns ErrClientNotFound; a non-zero exit from kak
// is logged and reported as success, matching fire-and-forget publishing.
func (p *Publisher) Send(ctx context.Context, session, buffer, script string) error {
	log := logger.L(ctx)
	cmd := Wrap(buffer, script)
	log.Debug("publishing",
		zap.String("session", session),
		zap.String("buffer", buffer),
		zap.Int("bytes", len(cmd)))

	// The debug copy is written before the PATH lookup so failed sends
	// still leave the script behind for inspection.
	p.persistDebug(log, cmd)

	if _, err := exec.LookPath("kak"); err != nil {
		return ErrClientNotFound
	}

	kak := exec.CommandContext(ctx, "kak", "-p", session)
	stdin, err := kak.StdinPipe()
	if err != nil {
		return err
	}
	if err := kak.Start(); err != nil {
		return err
	}

	_, werr := io.WriteString(stdin, cmd)
	cerr := stdin.Close()

	err = kak.Wait()
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		log.Warn("kak -p exited non-zero",
			zap.String("session", session),
			zap.Int("code", exit.ExitCode()))
		err = nil
	}
	return multierr.Combine(werr, cerr, err)
}

func (p *Publisher) persistDebug(log *zap.Logger, cmd string) {
	if p.debugFile == "" {
		return
	}
	if err := os.MkdirAll(filepath.Dir(p.debugFile), 0o755); err != nil {
		log.Warn("creating debug directory", zap.Error(err))
	}
	if err := os.WriteFile(p.debugFile, []byte(cmd), 0o644); err != nil {
		log.Warn("writing debug file", zap.String("path", p.debugFile), zap.Error(err))
		return
	}
	log.Debug("wrote debug copy", zap.String("path", p.debugFile))
}
