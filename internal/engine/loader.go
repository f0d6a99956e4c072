package engine

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"go.uber.org/zap"

	"github.com/yukai/giallo-kak/logger"
)

// loadGrammarDir walks dir recursively and registers every XML lexer
// definition it finds.  A file that fails to parse is logged and
// skipped; a missing directory is not an error.
func (e *Engine) loadGrammarDir(ctx context.Context, dir string) {
	log := logger.L(ctx)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".xml") {
			return nil
		}
		lexer, err := chroma.NewXMLLexer(os.DirFS(filepath.Dir(path)), filepath.Base(path))
		if err != nil {
			log.Warn("skipping grammar", zap.String("path", path), zap.Error(err))
			return nil
		}
		e.registerLexer(lexer, path)
		log.Debug("loaded grammar",
			zap.String("path", path),
			zap.String("name", lexer.Config().Name))
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("no custom grammars", zap.String("path", dir))
			return
		}
		log.Warn("walking grammars directory", zap.String("path", dir), zap.Error(err))
	}
}

// loadThemeDir registers every XML style in dir, non-recursively.
// Dotfiles and subdirectories are ignored.
func (e *Engine) loadThemeDir(ctx context.Context, dir string) {
	log := logger.L(ctx)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			log.Debug("no custom themes", zap.String("path", dir))
			return
		}
		log.Warn("reading themes directory", zap.String("path", dir), zap.Error(err))
		return
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !strings.EqualFold(filepath.Ext(name), ".xml") {
			continue
		}
		path := filepath.Join(dir, name)
		style, err := loadTheme(path)
		if err != nil {
			log.Warn("skipping theme", zap.String("path", path), zap.Error(err))
			continue
		}
		e.styles[style.Name] = style
		e.themeNames = append(e.themeNames, style.Name)
		log.Debug("loaded theme", zap.String("path", path), zap.String("name", style.Name))
	}
}

func loadTheme(path string) (*chroma.Style, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return chroma.NewXMLStyle(f)
}

// registerLexer indexes a lexer by its declared name, its aliases, and
// the defining file's stem, all lowercased.  Later files win on
// collision.
func (e *Engine) registerLexer(lexer chroma.Lexer, path string) {
	cfg := lexer.Config()
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return
	}
	e.lexers[strings.ToLower(name)] = lexer
	for _, alias := range cfg.Aliases {
		if alias = strings.TrimSpace(alias); alias != "" {
			e.lexers[strings.ToLower(alias)] = lexer
		}
	}
	if stem := fileStem(path); stem != "" {
		e.lexers[stem] = lexer
	}
	e.grammarNames = append(e.grammarNames, name)
}

func fileStem(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	stem, _, _ = strings.Cut(stem, ".")
	return strings.ToLower(strings.TrimSpace(stem))
}
