package face

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeHex(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "alpha suffix stripped", in: "#11223344", want: "#112233"},
		{name: "plain rgb unchanged", in: "#112233", want: "#112233"},
		{name: "short value unchanged", in: "#123", want: "#123"},
		{name: "empty", in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, NormalizeHex(tt.in))
		})
	}
}

func TestSpec(t *testing.T) {
	tests := []struct {
		name      string
		style     Style
		defaultBG string
		want      string
	}{
		{
			name:      "plain colors",
			style:     Style{FG: "#c6d0f5", BG: "#303446"},
			defaultBG: "#232634",
			want:      "rgb:c6d0f5,rgb:303446",
		},
		{
			name:      "default background collapses",
			style:     Style{FG: "#c6d0f5", BG: "#303446"},
			defaultBG: "#303446",
			want:      "rgb:c6d0f5,default",
		},
		{
			name:      "all attributes in fixed order",
			style:     Style{FG: "#e78284", BG: "#303446", Bold: true, Italic: true, Underline: true, Strike: true},
			defaultBG: "#303446",
			want:      "rgb:e78284,default+bius",
		},
		{
			name:      "subset of attributes",
			style:     Style{FG: "#e78284", BG: "#11111b", Italic: true, Strike: true},
			defaultBG: "#303446",
			want:      "rgb:e78284,rgb:11111b+is",
		},
		{
			name:      "alpha suffix normalized before compare",
			style:     Style{FG: "#c6d0f5ff", BG: "#303446ff"},
			defaultBG: "#303446",
			want:      "rgb:c6d0f5,default",
		},
		{
			name:      "no default background known",
			style:     Style{FG: "#c6d0f5", BG: "#303446"},
			defaultBG: "",
			want:      "rgb:c6d0f5,rgb:303446",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Spec(tt.style, tt.defaultBG))
		})
	}
}

func TestTableDeduplicates(t *testing.T) {
	def := Style{FG: "#c6d0f5", BG: "#303446"}
	tab := NewTable(def)

	keyword := Style{FG: "#ca9ee6", BG: "#303446", Bold: true}
	str := Style{FG: "#a6d189", BG: "#303446"}

	require.Equal(t, "giallo_0001", tab.Name(keyword))
	require.Equal(t, "giallo_0002", tab.Name(str))

	// Identical styles reuse the allocated face regardless of position.
	require.Equal(t, "giallo_0001", tab.Name(keyword))
	require.Equal(t, "giallo_0002", tab.Name(str))

	// The theme default never allocates.
	require.Equal(t, DefaultName, tab.Name(def))
	require.Equal(t, DefaultName, tab.Name(def))

	faces := tab.Faces()
	require.Len(t, faces, 2)
	require.Equal(t, Def{Name: "giallo_0001", Spec: "rgb:ca9ee6,default+b"}, faces[0])
	require.Equal(t, Def{Name: "giallo_0002", Spec: "rgb:a6d189,default"}, faces[1])
}

func TestRangeString(t *testing.T) {
	r := Range{Line: 3, Start: 1, End: 7, Face: "giallo_0001"}
	require.Equal(t, "3.1,3.7|giallo_0001", r.String())
}

func TestScript(t *testing.T) {
	faces := []Def{
		{Name: "giallo_0001", Spec: "rgb:ca9ee6,default+b"},
	}
	ranges := []Range{
		{Line: 1, Start: 1, End: 2, Face: "giallo_0001"},
		{Line: 1, Start: 4, End: 7, Face: "default"},
	}

	got := Script(faces, ranges)
	want := "set-face global giallo_0001 %{rgb:ca9ee6,default+b}\n" +
		"set-option buffer giallo_hl_ranges %val{timestamp} 1.1,1.2|giallo_0001 1.4,1.7|default\n"
	require.Equal(t, want, got)
}

func TestScriptEmpty(t *testing.T) {
	got := Script(nil, nil)
	require.Equal(t, "set-option buffer giallo_hl_ranges %val{timestamp}\n", got)
}
