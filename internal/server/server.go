// Package server implements the control-channel dispatch loop, the
// per-buffer FIFO pipelines, and the encoding of highlight results into
// editor command scripts.
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/yukai/giallo-kak/internal/config"
	"github.com/yukai/giallo-kak/internal/engine"
	"github.com/yukai/giallo-kak/internal/proto"
	"github.com/yukai/giallo-kak/logger"
)

// Publisher delivers a command script to an editor session.  Production
// code uses kak.Publisher; tests substitute a recorder.
type Publisher interface {
	Send(ctx context.Context, session, buffer, script string) error
}

// Server is the global service state.
//
// engine, cfg, pub, res, and ctx are read-only after New returns and may
// be used from any goroutine.
//
// mu protects only the sessions map; it is never held while doing any
// I/O.  wg tracks live pipeline goroutines.
type Server struct {
	engine *engine.Engine
	cfg    *config.Config
	pub    Publisher
	res    *Resources

	mu       sync.Mutex
	sessions map[string]*Session

	ctx context.Context
	wg  sync.WaitGroup
}

// New constructs a Server from its collaborators and root context.
func New(ctx context.Context, eng *engine.Engine, cfg *config.Config, pub Publisher, res *Resources) *Server {
	return &Server{
		engine:   eng,
		cfg:      cfg,
		pub:      pub,
		res:      res,
		sessions: make(map[string]*Session),
		ctx:      ctx,
	}
}

// Session returns the tracked session for a buffer, or nil.
func (s *Server) Session(buffer string) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[buffer]
}

// Buffers returns all tracked buffer IDs in ascending order.
func (s *Server) Buffers() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sessions))
	for b := range s.sessions {
		out = append(out, b)
	}
	sort.Strings(out)
	return out
}

func (s *Server) addSession(sess *Session) {
	s.mu.Lock()
	s.sessions[sess.BufferID] = sess
	s.mu.Unlock()
}

// Drain blocks until every pipeline goroutine has exited or timeout
// elapses.  Reports whether they all finished in time.
func (s *Server) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Run services one control transport until EOF, a quit request, or a
// transport error.  In oneshot mode the loop additionally exits after
// answering the first H command.
//
// Command-level failures (parse errors, unknown verbs, failed INITs)
// are logged and the loop continues; only transport errors are returned.
func (s *Server) Run(r io.Reader, w io.Writer, oneshot bool) error {
	log := logger.L(s.ctx)
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)

	for {
		if s.res.ShouldQuit() {
			log.Info("quit requested, leaving control loop")
			return nil
		}

		line, err := br.ReadString('\n')
		eof := err != nil
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read command: %w", err)
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			if eof {
				return nil
			}
			continue
		}
		log.Debug("received command", zap.String("line", trimmed))

		cmd, err := proto.Parse(trimmed)
		if err != nil {
			log.Warn("bad command", zap.String("line", trimmed), zap.Error(err))
			if eof {
				return nil
			}
			continue
		}

		switch cmd.Verb {
		case proto.VerbPing:
			if _, err := bw.WriteString("PONG\n"); err != nil {
				return fmt.Errorf("write PONG: %w", err)
			}
			if err := bw.Flush(); err != nil {
				return fmt.Errorf("flush PONG: %w", err)
			}

		case proto.VerbHighlight:
			done, err := s.handleHighlight(br, bw, cmd, oneshot)
			if err != nil {
				return err
			}
			if done {
				return nil
			}

		case proto.VerbInit:
			s.handleInit(cmd)

		case proto.VerbSetTheme:
			if sess := s.Session(cmd.Buffer); sess != nil {
				sess.SetTheme(cmd.Theme)
				log.Debug("theme updated",
					zap.String("buffer", cmd.Buffer),
					zap.String("theme", cmd.Theme))
			} else {
				log.Warn("SET_THEME for untracked buffer", zap.String("buffer", cmd.Buffer))
			}
		}

		if eof {
			return nil
		}
	}
}

// handleHighlight answers one H command.  The payload is read from the
// same buffered reader that carried the header.  Oneshot replies are the
// raw script; persistent replies carry the OK length prefix.  The bool
// result requests loop exit.
func (s *Server) handleHighlight(br *bufio.Reader, bw *bufio.Writer, cmd proto.Command, oneshot bool) (bool, error) {
	log := logger.L(s.ctx)

	text, err := proto.ReadPayload(br, cmd.Len)
	if err != nil {
		if errors.Is(err, proto.ErrInvalidPayload) {
			log.Warn("rejecting highlight request", zap.Error(err))
			return oneshot, nil
		}
		return false, err
	}

	res, err := s.highlight(s.ctx, text, cmd.Lang, cmd.Theme)
	if err != nil {
		log.Error("highlight failed", zap.String("language", cmd.Lang), zap.Error(err))
		return oneshot, nil
	}
	script := encode(res)

	if oneshot {
		if _, err := bw.WriteString(script); err != nil {
			return false, fmt.Errorf("write reply: %w", err)
		}
		if err := bw.Flush(); err != nil {
			return false, fmt.Errorf("flush reply: %w", err)
		}
		return true, nil
	}

	if err := proto.WriteOK(bw, script); err != nil {
		return false, fmt.Errorf("write reply: %w", err)
	}
	if err := bw.Flush(); err != nil {
		return false, fmt.Errorf("flush reply: %w", err)
	}
	return false, nil
}
