// Package config loads the giallo-kak TOML configuration and resolves
// language, highlighter, and theme names through it.
//
// A missing config file is not an error: every lookup falls back to the
// identity mapping and DefaultTheme, so a fresh install works with no
// file at all.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// DefaultTheme is used when neither the request nor the config names one.
const DefaultTheme = "catppuccin-frappe"

// Config is the parsed giallo-kak configuration.
type Config struct {
	// Theme overrides DefaultTheme for requests that carry no theme.
	Theme string `mapstructure:"theme"`
	// LanguageMap rewrites editor filetypes to grammar names.
	LanguageMap map[string]string `mapstructure:"language_map"`
	// HighlighterMap rewrites filetypes to the highlighter id reported
	// back to the editor on INIT.
	HighlighterMap map[string]string `mapstructure:"highlighter_map"`
	// GrammarsPath is an optional directory of extra grammar files.
	GrammarsPath string `mapstructure:"grammars_path"`
	// ThemesPath is an optional directory of extra theme files.
	ThemesPath string `mapstructure:"themes_path"`
}

// Path returns the config file location: $XDG_CONFIG_HOME/giallo.kak/
// config.toml, then ~/.config/giallo.kak/config.toml, then a file in the
// working directory as a last resort.
func Path() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "giallo.kak", "config.toml")
	}
	if home := os.Getenv("HOME"); home != "" {
		return filepath.Join(home, ".config", "giallo.kak", "config.toml")
	}
	return "giallo.kak.toml"
}

// Load reads the TOML file at path.  A missing file yields defaults with
// no error; a malformed file yields defaults plus the parse error so the
// caller can log it and carry on.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return &Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := v.Unmarshal(cfg); err != nil {
		return &Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ResolveLanguage maps an editor filetype through LanguageMap, returning
// it unchanged when absent.
func (c *Config) ResolveLanguage(lang string) string {
	if mapped, ok := c.LanguageMap[lang]; ok {
		return mapped
	}
	return lang
}

// ResolveHighlighter maps a filetype through HighlighterMap, returning
// it unchanged when absent.
func (c *Config) ResolveHighlighter(lang string) string {
	if mapped, ok := c.HighlighterMap[lang]; ok {
		return mapped
	}
	return lang
}

// ResolveTheme substitutes the configured (or default) theme for an
// empty request theme.  Non-empty names pass through untouched.
func (c *Config) ResolveTheme(theme string) string {
	if theme != "" {
		return theme
	}
	if c.Theme != "" {
		return c.Theme
	}
	return DefaultTheme
}

// ExpandPath substitutes $HOME for a leading "~/".
func ExpandPath(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		if home := os.Getenv("HOME"); home != "" {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
