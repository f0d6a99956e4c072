package server

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/yukai/giallo-kak/internal/engine"
	"github.com/yukai/giallo-kak/logger"
)

// highlight resolves lang and theme through the config maps and runs the
// engine, retrying once as plain text when the language fails.  An error
// means even the plain fallback could not highlight.
func (s *Server) highlight(ctx context.Context, text, lang, theme string) (*engine.Result, error) {
	log := logger.L(ctx)
	resolvedLang := s.cfg.ResolveLanguage(lang)
	resolvedTheme := s.cfg.ResolveTheme(theme)

	log.Debug("highlighting",
		zap.String("language", resolvedLang),
		zap.String("theme", resolvedTheme),
		zap.Int("bytes", len(text)))

	res, err := s.engine.Highlight(text, resolvedLang, resolvedTheme)
	if err == nil {
		return res, nil
	}
	log.Warn("highlight failed, retrying as plain text",
		zap.String("language", resolvedLang),
		zap.Error(err))

	res, err = s.engine.Highlight(text, engine.PlainLanguage, resolvedTheme)
	if err != nil {
		return nil, fmt.Errorf("plain fallback: %w", err)
	}
	return res, nil
}
