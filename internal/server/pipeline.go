package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
	"unicode/utf8"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/yukai/giallo-kak/internal/fifo"
	"github.com/yukai/giallo-kak/internal/proto"
	"github.com/yukai/giallo-kak/logger"
)

// Pipeline pacing.  The reader wakes from poll at least every
// pollTimeout to notice shutdown; the processor checks the quit flag on
// every tick.  The backoffs throttle the reader's retry loops so a
// wedged FIFO never spins a core.
const (
	pollTimeout     = 250 * time.Millisecond
	tickInterval    = 100 * time.Millisecond
	pollErrBackoff  = 50 * time.Millisecond
	hangupBackoff   = 100 * time.Millisecond
	zeroReadBackoff = 50 * time.Millisecond
	eagainBackoff   = 5 * time.Millisecond
	readErrBackoff  = 50 * time.Millisecond
)

// readChunk is the reader's per-wake read size.  Poll is level
// triggered, so content larger than one chunk is picked up again on the
// next iteration without waiting.
const readChunk = 32 * 1024

// handleInit services one INIT command: derive the buffer's FIFO path
// and sentinel from its token, create the FIFO, register the session,
// start its pipeline, and send the buffer options back through the
// publisher.
//
// A repeated INIT for a live session with the same token only updates
// language and theme and re-sends the options; the existing pipeline
// keeps its FIFO.  Filesystem failures log and drop the INIT so the
// control loop stays alive.
func (s *Server) handleInit(cmd proto.Command) {
	log := logger.L(s.ctx).With(zap.String("buffer", cmd.Buffer))

	hash := fmt.Sprintf("%x", xxhash.Sum64String(cmd.Token))
	fifoPath := filepath.Join(s.res.BaseDir(), hash+".req.fifo")
	sentinel := "giallo-" + hash

	if existing := s.Session(cmd.Buffer); existing != nil && existing.Token == cmd.Token {
		existing.SetLanguage(cmd.Lang)
		existing.SetTheme(cmd.Theme)
		log.Debug("re-init for live session",
			zap.String("language", cmd.Lang),
			zap.String("theme", cmd.Theme))
		s.sendInitOptions(existing)
		return
	}

	if err := os.MkdirAll(s.res.BaseDir(), 0o755); err != nil {
		log.Error("creating fifo directory", zap.String("dir", s.res.BaseDir()), zap.Error(err))
		return
	}
	if err := fifo.Create(fifoPath); err != nil {
		log.Error("creating buffer fifo", zap.String("path", fifoPath), zap.Error(err))
		return
	}

	sess := NewSession(cmd.Session, cmd.Buffer, cmd.Token, fifoPath, sentinel, cmd.Lang, cmd.Theme)
	s.addSession(sess)
	s.startPipeline(sess)
	log.Debug("session registered",
		zap.String("fifo", fifoPath),
		zap.String("sentinel", sentinel))

	s.sendInitOptions(sess)
}

// sendInitOptions publishes the three buffer options the editor needs to
// start streaming content: the FIFO path, the sentinel, and the resolved
// highlighter filetype.
func (s *Server) sendInitOptions(sess *Session) {
	highlighter := s.cfg.ResolveHighlighter(sess.Language())
	script := fmt.Sprintf(
		"set-option buffer giallo_buf_fifo_path %s\nset-option buffer giallo_buf_sentinel %s\nset-option buffer giallo_highlighter %s\n",
		sess.FIFOPath, sess.Sentinel, highlighter)
	if err := s.pub.Send(s.ctx, sess.SessionID, sess.BufferID, script); err != nil {
		logger.L(s.ctx).Error("sending buffer options",
			zap.String("buffer", sess.BufferID),
			zap.Error(err))
	}
}

// startPipeline launches the session's goroutine pair and removes the
// FIFO once the pipeline has fully wound down.
func (s *Server) startPipeline(sess *Session) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx := logger.NewContext(s.ctx, logger.L(s.ctx).With(zap.String("buffer", sess.BufferID)))
		s.runPipeline(ctx, sess)
		if err := os.Remove(sess.FIFOPath); err != nil && !os.IsNotExist(err) {
			logger.L(ctx).Warn("removing buffer fifo", zap.Error(err))
		}
		logger.L(ctx).Debug("pipeline exited")
	}()
}

// runPipeline is the processor side of one buffer's pipeline.  It owns
// teardown: on a quit tick it closes done, then drains msgs until the
// reader closes it, which joins the reader before returning.
//
// Messages are handled strictly in arrival order and one at a time, so
// a buffer's highlights are never published out of order.
func (s *Server) runPipeline(ctx context.Context, sess *Session) {
	log := logger.L(ctx)
	log.Debug("pipeline starting", zap.String("sentinel", sess.Sentinel))

	msgs := make(chan string, 1)
	done := make(chan struct{})
	go s.readFIFO(ctx, sess, msgs, done)

	tick := time.NewTicker(tickInterval)
	defer tick.Stop()

	for {
		select {
		case content, ok := <-msgs:
			if !ok {
				return
			}
			s.flush(ctx, sess, content)
		case <-tick.C:
			if s.res.ShouldQuit() {
				close(done)
				for range msgs {
				}
				return
			}
		}
	}
}

// readFIFO is the reader side: it opens the buffer FIFO, polls it, and
// feeds raw chunks through a sentinel framer, sending each completed
// message to the processor.  It exits when done closes or the FIFO
// cannot be opened, closing msgs on the way out.
func (s *Server) readFIFO(ctx context.Context, sess *Session, msgs chan<- string, done <-chan struct{}) {
	log := logger.L(ctx)
	defer close(msgs)

	r, err := fifo.Open(sess.FIFOPath)
	if err != nil {
		log.Error("opening buffer fifo", zap.Error(err))
		return
	}
	defer r.Close()

	framer := proto.NewFramer(sess.Sentinel)
	buf := make([]byte, readChunk)

	for {
		select {
		case <-done:
			return
		default:
		}

		state, err := r.Wait(pollTimeout)
		if err != nil {
			log.Warn("poll error", zap.Error(err))
			time.Sleep(pollErrBackoff)
			continue
		}
		switch state {
		case fifo.NotReady:
			continue
		case fifo.Hangup:
			time.Sleep(hangupBackoff)
			continue
		}

		n, err := r.Read(buf)
		switch {
		case errors.Is(err, unix.EAGAIN):
			time.Sleep(eagainBackoff)
			continue
		case err != nil:
			log.Warn("read error", zap.Error(err))
			time.Sleep(readErrBackoff)
			continue
		case n == 0:
			time.Sleep(zeroReadBackoff)
			continue
		}

		for _, m := range framer.Feed(buf[:n]) {
			select {
			case msgs <- m:
			case <-done:
				return
			}
		}
	}
}

// flush highlights one complete buffer snapshot and publishes the
// resulting script.  Language and theme are snapshotted per flush so a
// SET_THEME between two writes takes effect on the next one.  Failures
// are logged; the pipeline always survives them.
func (s *Server) flush(ctx context.Context, sess *Session, content string) {
	log := logger.L(ctx)
	lang := sess.Language()
	theme := sess.Theme()

	log.Debug("processing buffer content",
		zap.String("language", lang),
		zap.String("theme", theme),
		zap.Int("bytes", len(content)))

	if lang == "" {
		log.Warn("no language set, skipping highlight")
		return
	}
	if !utf8.ValidString(content) {
		log.Warn("buffer content is not valid UTF-8, skipping")
		return
	}

	res, err := s.highlight(ctx, content, lang, theme)
	if err != nil {
		log.Error("highlight failed", zap.Error(err))
		return
	}
	if err := s.pub.Send(ctx, sess.SessionID, sess.BufferID, encode(res)); err != nil {
		log.Error("publishing highlights", zap.Error(err))
	}
}
