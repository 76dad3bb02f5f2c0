package references

import (
	"reflect"
	"testing"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Reference
	}{
		{
			name: "empty",
			text: "",
			want: nil,
		},
		{
			name: "no tokens",
			text: "plain prose about folio 78r",
			want: nil,
		},
		{
			name: "single page",
			text: "compare with {page5} please",
			want: []Reference{{Type: RefTypePage, ID: 5}},
		},
		{
			name: "mixed order preserved",
			text: "{symbol9} relates to {page5} and {symbol12}",
			want: []Reference{
				{Type: RefTypeSymbol, ID: 9},
				{Type: RefTypePage, ID: 5},
				{Type: RefTypeSymbol, ID: 12},
			},
		},
		{
			name: "duplicates collapse to first occurrence",
			text: "{page5} then {symbol9} then {page5} again",
			want: []Reference{
				{Type: RefTypePage, ID: 5},
				{Type: RefTypeSymbol, ID: 9},
			},
		},
		{
			name: "same id different types are distinct",
			text: "{page7} and {symbol7}",
			want: []Reference{
				{Type: RefTypePage, ID: 7},
				{Type: RefTypeSymbol, ID: 7},
			},
		},
		{
			name: "malformed tokens ignored",
			text: "{page} {symbol abc} {folio5} {page 5}",
			want: nil,
		},
		{
			name: "braces inside other text",
			text: "json like {\"page\": 5} is not a reference but {page5} is",
			want: []Reference{{Type: RefTypePage, ID: 5}},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Extract(tc.text)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("Extract(%q) = %v, want %v", tc.text, got, tc.want)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := []Reference{{Type: RefTypePage, ID: 5}, {Type: RefTypeSymbol, ID: 9}}
	extra := []Reference{{Type: RefTypeSymbol, ID: 9}, {Type: RefTypePage, ID: 6}}

	got := Merge(base, extra)
	want := []Reference{
		{Type: RefTypePage, ID: 5},
		{Type: RefTypeSymbol, ID: 9},
		{Type: RefTypePage, ID: 6},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Merge = %v, want %v", got, want)
	}
}

func TestSubstituteAtCursor(t *testing.T) {
	ref := Reference{Type: RefTypePage, ID: 5}

	tests := []struct {
		name   string
		text   string
		cursor int
		want   string
	}{
		{name: "middle", text: "see  here", cursor: 4, want: "see {page5} here"},
		{name: "start", text: "tail", cursor: 0, want: "{page5}tail"},
		{name: "end", text: "head", cursor: 4, want: "head{page5}"},
		{name: "negative clamps to start", text: "x", cursor: -3, want: "{page5}x"},
		{name: "past end clamps to end", text: "x", cursor: 99, want: "x{page5}"},
		// "folio ſ" ends in a two-byte rune starting at offset 6; a caret
		// landing on its continuation byte must not split it.
		{name: "inside multi-byte rune rounds down", text: "folio ſ", cursor: 7, want: "folio {page5}ſ"},
		{name: "rune boundary unchanged", text: "folio ſ!", cursor: 8, want: "folio ſ{page5}!"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := SubstituteAtCursor(tc.text, ref, tc.cursor)
			if got != tc.want {
				t.Fatalf("SubstituteAtCursor = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestSubstituteThenExtractRoundTrip(t *testing.T) {
	ref := Reference{Type: RefTypeSymbol, ID: 42}
	text := SubstituteAtCursor("the gallows glyph  appears twice", ref, 18)

	got := Extract(text)
	if len(got) != 1 || got[0] != ref {
		t.Fatalf("round trip recovered %v, want exactly one %v", got, ref)
	}
}
