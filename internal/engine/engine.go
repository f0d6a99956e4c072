// Package engine wraps the chroma highlighter behind an immutable
// registry.  An Engine is constructed once at startup, loading any
// configured custom grammar and theme directories, and is then shared
// read-only across every buffer pipeline.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/yukai/giallo-kak/face"
	"github.com/yukai/giallo-kak/internal/config"
)

// PlainLanguage names the fallback grammar.  Highlighting with it always
// succeeds and styles every token with the theme default.
const PlainLanguage = "plain"

// Colors used when a theme leaves even its base style unset.
const (
	fallbackFG = "#ffffff"
	fallbackBG = "#000000"
)

// ErrUnknownLanguage reports a language with no registered grammar.
// Callers retry with PlainLanguage.
var ErrUnknownLanguage = errors.New("unknown language")

// Token is one styled span of source text.  Its style is fully resolved:
// colors the theme leaves unset inherit the theme default.
type Token struct {
	Text  string
	Style face.Style
}

// Result is one highlighted buffer: tokens grouped by document line
// (empty lines keep an entry so line numbers stay aligned) and the
// theme's default style for face deduplication.
type Result struct {
	Lines   [][]Token
	Default face.Style
}

// Engine resolves languages and themes and runs the highlighter.  Safe
// for concurrent use once New returns; nothing mutates it afterwards.
type Engine struct {
	lexers       map[string]chroma.Lexer
	styles       map[string]*chroma.Style
	grammarNames []string
	themeNames   []string
}

// New builds an Engine, loading custom grammars and themes from the
// directories named in cfg.  Individual files that fail to load are
// logged and skipped; missing directories are fine.
func New(ctx context.Context, cfg *config.Config) (*Engine, error) {
	e := &Engine{
		lexers: make(map[string]chroma.Lexer),
		styles: make(map[string]*chroma.Style),
	}
	if cfg.GrammarsPath != "" {
		e.loadGrammarDir(ctx, config.ExpandPath(cfg.GrammarsPath))
	}
	if cfg.ThemesPath != "" {
		e.loadThemeDir(ctx, config.ExpandPath(cfg.ThemesPath))
	}
	sort.Strings(e.grammarNames)
	sort.Strings(e.themeNames)
	return e, nil
}

// Highlight tokenises text as lang and resolves each token's style
// against theme.  An unknown language yields ErrUnknownLanguage; an
// unknown theme falls back to chroma's default style and succeeds.
func (e *Engine) Highlight(text, lang, theme string) (*Result, error) {
	lexer := e.lexer(lang)
	if lexer == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLanguage, lang)
	}
	style := e.style(theme)

	it, err := chroma.Coalesce(lexer).Tokenise(nil, text)
	if err != nil {
		return nil, fmt.Errorf("tokenise as %s: %w", lang, err)
	}

	def := resolveStyle(style, chroma.Text, face.Style{FG: fallbackFG, BG: fallbackBG})
	lines := chroma.SplitTokensIntoLines(it.Tokens())

	out := make([][]Token, 0, len(lines))
	for _, line := range lines {
		toks := make([]Token, 0, len(line))
		for i, tok := range line {
			text := tok.Value
			if i == len(line)-1 {
				text = strings.TrimSuffix(text, "\n")
				text = strings.TrimSuffix(text, "\r")
			}
			if text == "" {
				continue
			}
			toks = append(toks, Token{Text: text, Style: resolveStyle(style, tok.Type, def)})
		}
		out = append(out, toks)
	}
	return &Result{Lines: out, Default: def}, nil
}

// Grammars returns every known grammar name, builtin plus custom,
// sorted and deduplicated.
func (e *Engine) Grammars() []string {
	names := append(lexers.Names(false), e.grammarNames...)
	sort.Strings(names)
	return dedupSorted(names)
}

// CustomGrammars returns the grammar names loaded from the configured
// directory, sorted.
func (e *Engine) CustomGrammars() []string {
	return append([]string(nil), e.grammarNames...)
}

// BuiltinGrammars returns the grammar names compiled into the binary,
// sorted.
func (e *Engine) BuiltinGrammars() []string {
	names := lexers.Names(false)
	sort.Strings(names)
	return names
}

// Themes returns every known theme name, builtin plus custom, sorted
// and deduplicated.
func (e *Engine) Themes() []string {
	names := append(styles.Names(), e.themeNames...)
	sort.Strings(names)
	return dedupSorted(names)
}

// CustomThemes returns the theme names loaded from the configured
// directory, sorted.
func (e *Engine) CustomThemes() []string {
	return append([]string(nil), e.themeNames...)
}

// BuiltinThemes returns the theme names compiled into the binary, sorted.
func (e *Engine) BuiltinThemes() []string {
	names := styles.Names()
	sort.Strings(names)
	return names
}

func (e *Engine) lexer(lang string) chroma.Lexer {
	if lang == PlainLanguage {
		return lexers.Fallback
	}
	if l, ok := e.lexers[strings.ToLower(lang)]; ok {
		return l
	}
	return lexers.Get(lang)
}

func (e *Engine) style(theme string) *chroma.Style {
	if s, ok := e.styles[theme]; ok {
		return s
	}
	return styles.Get(theme)
}

// resolveStyle flattens a token type's style entry into a concrete
// Style.  chroma's Get already merges the Background and Text ancestors,
// so a plain-text token resolves exactly equal to the theme default.
func resolveStyle(style *chroma.Style, ttype chroma.TokenType, def face.Style) face.Style {
	entry := style.Get(ttype)
	out := face.Style{
		FG:        def.FG,
		BG:        def.BG,
		Bold:      entry.Bold == chroma.Yes,
		Italic:    entry.Italic == chroma.Yes,
		Underline: entry.Underline == chroma.Yes,
	}
	if entry.Colour.IsSet() {
		out.FG = face.NormalizeHex(entry.Colour.String())
	}
	if entry.Background.IsSet() {
		out.BG = face.NormalizeHex(entry.Background.String())
	}
	return out
}

func dedupSorted(names []string) []string {
	out := names[:0]
	for i, n := range names {
		if i == 0 || n != names[i-1] {
			out = append(out, n)
		}
	}
	return out
}
