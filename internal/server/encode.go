package server

import (
	"github.com/yukai/giallo-kak/face"
	"github.com/yukai/giallo-kak/internal/engine"
)

// encode serialises a highlight result into the command script that
// applies it: face definitions for each distinct non-default style, then
// the range-specs update covering every token.
//
// Columns are 1-indexed byte offsets with inclusive ends, the range
// format Kakoune expects.  Tokens styled exactly like the theme default
// still produce a range so the built-in default face covers them.
func encode(res *engine.Result) string {
	table := face.NewTable(res.Default)
	var ranges []face.Range

	for i, line := range res.Lines {
		col := 0
		for _, tok := range line {
			n := len(tok.Text)
			if n == 0 {
				continue
			}
			start := col
			col += n
			end := col
			if end < 1 {
				end = 1
			}
			ranges = append(ranges, face.Range{
				Line:  i + 1,
				Start: start + 1,
				End:   end,
				Face:  table.Name(tok.Style),
			})
		}
	}
	return face.Script(table.Faces(), ranges)
}
