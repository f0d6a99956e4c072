// Package face defines the vocabulary of the generated Kakoune script:
// resolved visual styles, deduplicated face definitions, highlight ranges,
// and the serialiser that turns them into editor commands.
//
// The server deduplicates token styles through a Table and serialises the
// result with Script; nothing in this package performs I/O.
package face

import (
	"fmt"
	"strings"
)

// Style is one fully resolved visual style.
type Style struct {
	FG        string // "#rrggbb", normalized
	BG        string // "#rrggbb", normalized
	Bold      bool
	Italic    bool
	Underline bool
	Strike    bool
}

// Equal reports whether s and o render identically.
func (s Style) Equal(o Style) bool {
	return s == o
}

// NormalizeHex strips an alpha suffix from a hex color: "#rrggbbaa"
// becomes "#rrggbb".  Shorter values pass through unchanged.
func NormalizeHex(hex string) string {
	if len(hex) == 9 {
		return hex[:7]
	}
	return hex
}

func stripHash(hex string) string {
	return strings.TrimPrefix(hex, "#")
}

// Spec renders s as a Kakoune face spec: "rgb:<fg>,<bg>[+<attrs>]".
// The background collapses to the literal "default" when it matches
// defaultBG, preserving terminal background transparency.  Attributes
// appear as a subset of "bius" in that fixed order.
func Spec(s Style, defaultBG string) string {
	var attrs strings.Builder
	if s.Bold {
		attrs.WriteByte('b')
	}
	if s.Italic {
		attrs.WriteByte('i')
	}
	if s.Underline {
		attrs.WriteByte('u')
	}
	if s.Strike {
		attrs.WriteByte('s')
	}

	fg := stripHash(NormalizeHex(s.FG))
	bg := stripHash(NormalizeHex(s.BG))

	bgSpec := "rgb:" + bg
	if defaultBG != "" && stripHash(NormalizeHex(defaultBG)) == bg {
		bgSpec = "default"
	}

	if attrs.Len() == 0 {
		return fmt.Sprintf("rgb:%s,%s", fg, bgSpec)
	}
	return fmt.Sprintf("rgb:%s,%s+%s", fg, bgSpec, attrs.String())
}

// Def is one emitted face definition.
type Def struct {
	Name string
	Spec string
}

// Range is a highlighted span within one line.  Line, Start, and End are
// 1-indexed; End is inclusive.
type Range struct {
	Line  int
	Start int
	End   int
	Face  string
}

// String renders the range in the form consumed by range-specs options:
// "<line>.<start>,<line>.<end>|<face>".
func (r Range) String() string {
	return fmt.Sprintf("%d.%d,%d.%d|%s", r.Line, r.Start, r.Line, r.End, r.Face)
}

// DefaultName is the face assigned to tokens whose style matches the
// theme default exactly; it is never declared, Kakoune resolves it.
const DefaultName = "default"

// Table allocates deduplicated face names for one highlight call.
//
// Styles equal to the theme default map to DefaultName.  Every other
// distinct style is assigned "giallo_NNNN" in first-seen order and reused
// on subsequent lookups.  A Table is single-use; face numbering restarts
// with each call.
type Table struct {
	def   Style
	faces []Def
	index map[Style]string
}

// NewTable returns a Table keyed against the theme's default style.
func NewTable(def Style) *Table {
	return &Table{
		def:   def,
		index: make(map[Style]string),
	}
}

// Name returns the face name for s, allocating a definition on first
// sight.
func (t *Table) Name(s Style) string {
	if s.Equal(t.def) {
		return DefaultName
	}
	if name, ok := t.index[s]; ok {
		return name
	}
	name := fmt.Sprintf("giallo_%04d", len(t.faces)+1)
	t.faces = append(t.faces, Def{Name: name, Spec: Spec(s, t.def.BG)})
	t.index[s] = name
	return name
}

// Faces returns the allocated definitions in first-seen order.
func (t *Table) Faces() []Def {
	return t.faces
}

// Script serialises face definitions and ranges into the command script
// delivered to the editor: one set-face line per definition, then a
// single set-option line carrying the ranges after a timestamp the editor
// expands at apply time.  With no ranges the option line still carries
// the timestamp so stale highlights are cleared.
func Script(faces []Def, ranges []Range) string {
	var sb strings.Builder
	for _, f := range faces {
		sb.WriteString("set-face global ")
		sb.WriteString(f.Name)
		sb.WriteString(" %{")
		sb.WriteString(f.Spec)
		sb.WriteString("}\n")
	}
	sb.WriteString("set-option buffer giallo_hl_ranges %val{timestamp}")
	for _, r := range ranges {
		sb.WriteByte(' ')
		sb.WriteString(r.String())
	}
	sb.WriteByte('\n')
	return sb.String()
}
