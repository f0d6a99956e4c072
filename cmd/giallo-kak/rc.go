package main

import (
	_ "embed"
	"io"

	"github.com/spf13/cobra"
)

// kakScript is the editor-side half of the integration: option
// declarations, the per-buffer INIT/flush hooks, and the user-facing
// giallo-enable/disable/set-theme commands.
//
//go:embed giallo.kak
var kakScript string

func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Print the Kakoune integration script",
		Long:  "Print the Kakoune integration script.\n\nAdd to your kakrc:\n  evaluate-commands %sh{ giallo-kak init }",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := io.WriteString(cmd.OutOrStdout(), kakScript)
			return err
		},
	}
}
