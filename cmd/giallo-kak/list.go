package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yukai/giallo-kak/internal/config"
	"github.com/yukai/giallo-kak/internal/engine"
	"github.com/yukai/giallo-kak/logger"
)

func newListGrammarsCmd(opts *options) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "list-grammars",
		Short: "List available grammars",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, eng, err := loadEngine(cmd, opts)
			if err != nil {
				return err
			}
			printGrammars(cmd.OutOrStdout(), eng, cfg, plain)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "names only, one per line")
	return cmd
}

func newListThemesCmd(opts *options) *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "list-themes",
		Short: "List available themes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, eng, err := loadEngine(cmd, opts)
			if err != nil {
				return err
			}
			printThemes(cmd.OutOrStdout(), eng, cfg, plain)
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "names only, one per line")
	return cmd
}

// loadEngine builds the same config and registry the server runs with,
// so listings match what requests will resolve.
func loadEngine(cmd *cobra.Command, opts *options) (*config.Config, *engine.Engine, error) {
	l, err := initLogging(opts.verbose)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %w", err)
	}
	ctx := logger.NewContext(cmd.Context(), l)

	cfg, err := config.Load(config.Path())
	if err != nil {
		l.Warn("config unreadable, continuing with defaults", zap.Error(err))
	}
	eng, err := engine.New(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init highlighter: %w", err)
	}
	return cfg, eng, nil
}

func printGrammars(w io.Writer, eng *engine.Engine, cfg *config.Config, plain bool) {
	builtin := eng.BuiltinGrammars()
	custom := eng.CustomGrammars()

	if plain {
		for _, g := range builtin {
			fmt.Fprintln(w, g)
		}
		for _, g := range custom {
			fmt.Fprintln(w, g)
		}
		return
	}

	fmt.Fprintln(w, "Available grammars:")
	fmt.Fprintln(w)
	if len(builtin) > 0 {
		fmt.Fprintf(w, "Builtin grammars (%d):\n", len(builtin))
		for _, g := range builtin {
			fmt.Fprintf(w, "  %s\n", g)
		}
		fmt.Fprintln(w)
	}
	if len(custom) > 0 && cfg.GrammarsPath != "" {
		fmt.Fprintf(w, "Custom grammars from %s (%d):\n", cfg.GrammarsPath, len(custom))
		for _, g := range custom {
			fmt.Fprintf(w, "  %s (custom)\n", g)
		}
		fmt.Fprintln(w)
	}
	if len(builtin) == 0 && len(custom) == 0 {
		fmt.Fprintln(w, "  No grammars found.")
	}
	fmt.Fprintln(w, "Use in config.toml:")
	fmt.Fprintln(w, "  [language_map]")
	fmt.Fprintln(w, `  <filetype> = "<grammar_id>"`)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Or in Kakoune:")
	fmt.Fprintln(w, "  set-option buffer giallo_lang <grammar_id>")
}

func printThemes(w io.Writer, eng *engine.Engine, cfg *config.Config, plain bool) {
	builtin := eng.BuiltinThemes()
	custom := eng.CustomThemes()

	if plain {
		for _, t := range builtin {
			fmt.Fprintln(w, t)
		}
		for _, t := range custom {
			fmt.Fprintln(w, t)
		}
		return
	}

	fmt.Fprintln(w, "Available themes:")
	fmt.Fprintln(w)
	if len(builtin) > 0 {
		fmt.Fprintf(w, "Builtin themes (%d):\n", len(builtin))
		for _, t := range builtin {
			fmt.Fprintf(w, "  %s\n", t)
		}
		fmt.Fprintln(w)
	}
	if len(custom) > 0 && cfg.ThemesPath != "" {
		fmt.Fprintf(w, "Custom themes from %s (%d):\n", cfg.ThemesPath, len(custom))
		for _, t := range custom {
			fmt.Fprintf(w, "  %s (custom)\n", t)
		}
		fmt.Fprintln(w)
	}
	if len(builtin) == 0 && len(custom) == 0 {
		fmt.Fprintln(w, "  No themes found.")
	}
	fmt.Fprintln(w, "Use in config.toml:")
	fmt.Fprintln(w, `  theme = "<theme_name>"`)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Or in Kakoune:")
	fmt.Fprintln(w, "  giallo-set-theme <theme_name>")
}
