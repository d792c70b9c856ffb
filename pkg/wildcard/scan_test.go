package wildcard

import (
	"reflect"
	"testing"
)

func TestFindToken(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantFull string
		wantName string
		wantVar  string
		wantOK   bool
	}{
		{"plain wildcard", "a __fruit__ b", "__fruit__", "fruit", "", true},
		{"assignment", "__fruit^f__", "__fruit^f__", "fruit", "f", true},
		{"pure recall", "__^f__", "__^f__", "", "f", true},
		{"star recall", "__^*__", "__^*__", "", "*", true},
		{"nested path", "__colors/warm__", "__colors/warm__", "colors/warm", "", true},
		{"glob name", "__fruit*__", "__fruit*__", "fruit*", "", true},
		{"no token", "plain text", "", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tok, ok := findToken(tt.input, 0)
			if ok != tt.wantOK {
				t.Fatalf("findToken(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if tok.full != tt.wantFull || tok.name != tt.wantName || tok.varPat != tt.wantVar {
				t.Errorf("got full=%q name=%q var=%q, want full=%q name=%q var=%q",
					tok.full, tok.name, tok.varPat, tt.wantFull, tt.wantName, tt.wantVar)
			}
		})
	}
}

func TestSpaceAdjacentTokens(t *testing.T) {
	got := spaceAdjacentTokens("__a____b__")
	if got != "__a__ __b__" {
		t.Errorf("got %q", got)
	}
	if s := spaceAdjacentTokens("__a__ __b__"); s != "__a__ __b__" {
		t.Errorf("already spaced tokens changed: %q", s)
	}
}

func TestFindTopLevelMarkers(t *testing.T) {
	tests := []struct {
		input  string
		marker string
		want   []int
	}{
		{"2$$, $$a|b", "$$", []int{1, 5}},
		{"a|{x$$y}|b", "$$", nil},
		{"3??a|b", "??", []int{1}},
		{"no markers", "$$", nil},
	}
	for _, tt := range tests {
		got := findTopLevelMarkers(tt.input, tt.marker)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("findTopLevelMarkers(%q, %q) = %v, want %v", tt.input, tt.marker, got, tt.want)
		}
	}
}

func TestMarkerIndicesModePick(t *testing.T) {
	tests := []struct {
		input    string
		deckMode bool
		count    int
	}{
		{"2$$a|b", true, 1},
		{"2??a|b", false, 1},
		{"2$$x??y", true, 1},  // $$ occurs first, ?? stays literal
		{"2??x$$y", false, 1}, // ?? occurs first, $$ stays literal
		{"a|b", true, 0},      // no markers defaults to deck mode
	}
	for _, tt := range tests {
		indices, deckMode := markerIndices(tt.input)
		if deckMode != tt.deckMode || len(indices) != tt.count {
			t.Errorf("markerIndices(%q) = (%v, %v), want count %d deckMode %v",
				tt.input, indices, deckMode, tt.count, tt.deckMode)
		}
	}
}

func TestSplitTopLevelPipes(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"a|b|c", []string{"a", "b", "c"}},
		{"a|{x|y}|b", []string{"a", "{x|y}", "b"}},
		{"one", []string{"one"}},
		{"a||b", []string{"a", "b"}},
	}
	for _, tt := range tests {
		got := splitTopLevelPipes(tt.input)
		var nonEmpty []string
		for _, p := range got {
			if p != "" {
				nonEmpty = append(nonEmpty, p)
			}
		}
		if !reflect.DeepEqual(nonEmpty, tt.want) {
			t.Errorf("splitTopLevelPipes(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestFindNextBracketSpan(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantStart int
		wantEnd   int
		wantOK    bool
	}{
		{"single", "a {b} c", 2, 4, true},
		{"innermost first", "{a {b} c}", 3, 5, true},
		{"no span", "plain", 0, 0, false},
		{"unbalanced open", "{never closed", 0, 0, false},
		// A nested bracket inside the separator region keeps the outer span
		// intact so the separator is evaluated per join.
		{"separator region", "{2$${,|;}$$a|b}", 0, 14, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, ok := findNextBracketSpan(tt.input)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && (start != tt.wantStart || end != tt.wantEnd) {
				t.Errorf("span = (%d, %d), want (%d, %d)", start, end, tt.wantStart, tt.wantEnd)
			}
		})
	}
}

func TestDecodeEscapes(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`a\nb`, "a\nb"},
		{`a\tb`, "a\tb"},
		{`a\\b`, `a\b`},
		{`a\qb`, `a\qb`},
		{"plain", "plain"},
		{`trailing\`, `trailing\`},
	}
	for _, tt := range tests {
		if got := decodeEscapes(tt.input); got != tt.want {
			t.Errorf("decodeEscapes(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
