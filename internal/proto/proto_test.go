package proto

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    Command
		wantErr string
	}{
		{
			name: "ping",
			line: "PING",
			want: Command{Verb: VerbPing},
		},
		{
			name: "highlight",
			line: "H rust catppuccin-frappe 13",
			want: Command{Verb: VerbHighlight, Lang: "rust", Theme: "catppuccin-frappe", Len: 13},
		},
		{
			name: "highlight zero length",
			line: "H rust catppuccin-frappe 0",
			want: Command{Verb: VerbHighlight, Lang: "rust", Theme: "catppuccin-frappe", Len: 0},
		},
		{
			name:    "highlight missing language",
			line:    "H",
			wantErr: "missing language",
		},
		{
			name:    "highlight missing theme",
			line:    "H rust",
			wantErr: "missing theme",
		},
		{
			name:    "highlight missing length",
			line:    "H rust catppuccin-frappe",
			wantErr: "missing length",
		},
		{
			name:    "highlight non-numeric length",
			line:    "H rust catppuccin-frappe many",
			wantErr: `invalid length "many"`,
		},
		{
			name:    "highlight negative length",
			line:    "H rust catppuccin-frappe -4",
			wantErr: `invalid length "-4"`,
		},
		{
			name: "init full",
			line: "INIT sess main.rs tok123 rust dracula",
			want: Command{Verb: VerbInit, Session: "sess", Buffer: "main.rs", Token: "tok123", Lang: "rust", Theme: "dracula"},
		},
		{
			name: "init without language and theme",
			line: "INIT sess main.rs tok123",
			want: Command{Verb: VerbInit, Session: "sess", Buffer: "main.rs", Token: "tok123"},
		},
		{
			name: "init with language only",
			line: "INIT sess main.rs tok123 rust",
			want: Command{Verb: VerbInit, Session: "sess", Buffer: "main.rs", Token: "tok123", Lang: "rust"},
		},
		{
			name:    "init missing token",
			line:    "INIT sess main.rs",
			wantErr: "missing token",
		},
		{
			name: "set theme",
			line: "SET_THEME main.rs gruvbox-dark-hard",
			want: Command{Verb: VerbSetTheme, Buffer: "main.rs", Theme: "gruvbox-dark-hard"},
		},
		{
			name:    "set theme missing theme",
			line:    "SET_THEME main.rs",
			wantErr: "missing theme",
		},
		{
			name: "extra whitespace tolerated",
			line: "  SET_THEME   main.rs   nord  ",
			want: Command{Verb: VerbSetTheme, Buffer: "main.rs", Theme: "nord"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestParseUnknownCommand(t *testing.T) {
	_, err := Parse("FROB main.rs")
	require.ErrorIs(t, err, ErrUnknownCommand)
	require.ErrorContains(t, err, "FROB")
}

func TestReadPayload(t *testing.T) {
	t.Run("exact read", func(t *testing.T) {
		got, err := ReadPayload(strings.NewReader("fn main() {}tail"), 12)
		require.NoError(t, err)
		require.Equal(t, "fn main() {}", got)
	})

	t.Run("zero length", func(t *testing.T) {
		got, err := ReadPayload(strings.NewReader(""), 0)
		require.NoError(t, err)
		require.Equal(t, "", got)
	})

	t.Run("short stream", func(t *testing.T) {
		_, err := ReadPayload(strings.NewReader("abc"), 10)
		require.ErrorIs(t, err, io.ErrUnexpectedEOF)
	})

	t.Run("invalid utf-8", func(t *testing.T) {
		_, err := ReadPayload(strings.NewReader("\xff\xfe"), 2)
		require.ErrorIs(t, err, ErrInvalidPayload)
	})
}

func TestWriteOK(t *testing.T) {
	var sb strings.Builder
	script := "set-option buffer giallo_hl_ranges %val{timestamp}\n"
	require.NoError(t, WriteOK(&sb, script))
	require.Equal(t, "OK 51\n"+script, sb.String())
	require.Len(t, script, 51)
}
