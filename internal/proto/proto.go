// Package proto implements the line-oriented control protocol spoken on
// the server's command transports, the length-prefixed reply framing,
// and the sentinel framing used on per-buffer FIFO streams.
package proto

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Protocol verbs.
const (
	VerbPing      = "PING"
	VerbHighlight = "H"
	VerbInit      = "INIT"
	VerbSetTheme  = "SET_THEME"
)

// ErrUnknownCommand reports a verb outside the protocol.  Callers log it
// and keep their loop alive; it is never fatal.
var ErrUnknownCommand = errors.New("unknown command")

// ErrInvalidPayload reports H payload bytes that are not valid UTF-8.
// The payload was fully consumed, so the transport stays in sync and the
// dispatch loop may continue.
var ErrInvalidPayload = errors.New("payload is not valid UTF-8")

// Command is one parsed control line.  Fields beyond Verb are populated
// according to the verb.
type Command struct {
	Verb    string
	Session string // INIT
	Buffer  string // INIT, SET_THEME
	Token   string // INIT
	Lang    string // H; INIT (optional)
	Theme   string // H, SET_THEME; INIT (optional)
	Len     int    // H payload byte count
}

// Parse splits one trimmed, non-empty control line into a Command.
// Missing required fields and malformed lengths are local errors; the
// dispatch loop logs them and moves on.
func Parse(line string) (Command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return Command{}, errors.New("empty command")
	}

	switch fields[0] {
	case VerbPing:
		return Command{Verb: VerbPing}, nil

	case VerbHighlight:
		if len(fields) < 2 {
			return Command{}, errors.New("H: missing language")
		}
		if len(fields) < 3 {
			return Command{}, errors.New("H: missing theme")
		}
		if len(fields) < 4 {
			return Command{}, errors.New("H: missing length")
		}
		n, err := strconv.Atoi(fields[3])
		if err != nil || n < 0 {
			return Command{}, fmt.Errorf("H: invalid length %q", fields[3])
		}
		return Command{Verb: VerbHighlight, Lang: fields[1], Theme: fields[2], Len: n}, nil

	case VerbInit:
		if len(fields) < 2 {
			return Command{}, errors.New("INIT: missing session")
		}
		if len(fields) < 3 {
			return Command{}, errors.New("INIT: missing buffer")
		}
		if len(fields) < 4 {
			return Command{}, errors.New("INIT: missing token")
		}
		cmd := Command{Verb: VerbInit, Session: fields[1], Buffer: fields[2], Token: fields[3]}
		if len(fields) > 4 {
			cmd.Lang = fields[4]
		}
		if len(fields) > 5 {
			cmd.Theme = fields[5]
		}
		return cmd, nil

	case VerbSetTheme:
		if len(fields) < 2 {
			return Command{}, errors.New("SET_THEME: missing buffer")
		}
		if len(fields) < 3 {
			return Command{}, errors.New("SET_THEME: missing theme")
		}
		return Command{Verb: VerbSetTheme, Buffer: fields[1], Theme: fields[2]}, nil
	}

	return Command{}, fmt.Errorf("%w: %s", ErrUnknownCommand, fields[0])
}

// ReadPayload reads exactly n raw payload bytes following an H header
// and validates them as UTF-8.  A short read surfaces the underlying
// transport error; invalid UTF-8 fails the request.
func ReadPayload(r io.Reader, n int) (string, error) {
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", fmt.Errorf("read %d-byte payload: %w", n, err)
	}
	if !utf8.Valid(buf) {
		return "", ErrInvalidPayload
	}
	return string(buf), nil
}

// WriteOK writes the length-prefixed reply used on persistent
// transports: "OK <len>\n" followed by the script bytes.
func WriteOK(w io.Writer, script string) error {
	if _, err := fmt.Fprintf(w, "OK %d\n", len(script)); err != nil {
		return err
	}
	_, err := io.WriteString(w, script)
	return err
}
