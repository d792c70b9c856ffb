package wildcard

import (
	"regexp"
	"strings"
)

// tokenRE matches the wildcard/variable token grammar: __name__, __name^var__
// and pure recall __^var__. Names may contain path separators and '*'; the
// variable part may carry a trailing '*'.
var tokenRE = regexp.MustCompile(`__(?:([a-zA-Z0-9_\-/*]+?))?(?:\^([a-zA-Z0-9_*\-]+))?__`)

// adjacentRE finds two token-shaped substrings glued together so a space can
// be inserted between them.
var adjacentRE = regexp.MustCompile(`(__[a-zA-Z0-9_\-/*^]+__)(__[a-zA-Z0-9_\-/*^]+__)`)

// varNameRE matches a variable name in a trailing ^name binding chain.
var varNameRE = regexp.MustCompile(`^[A-Za-z0-9_\-]+`)

// escapedTokenRE matches a backslash-escaped token, which is protected from
// resolution for the duration of a call.
var escapedTokenRE = regexp.MustCompile(`\\(__[a-zA-Z0-9_\-/*^]+__)`)

// commentBlockRE matches a ##...## comment block, possibly spanning lines.
var commentBlockRE = regexp.MustCompile(`(?s)##(.*?)##`)

// token is one matched wildcard/variable token within a larger string.
type token struct {
	start, end int
	full       string
	name       string // file name pattern; "" for pure variable recall
	varPat     string // variable name/pattern after '^'; "" when absent
}

// findToken returns the first token at or after position from.
func findToken(s string, from int) (token, bool) {
	loc := tokenRE.FindStringSubmatchIndex(s[from:])
	if loc == nil {
		return token{}, false
	}
	t := token{start: from + loc[0], end: from + loc[1]}
	t.full = s[t.start:t.end]
	if loc[2] >= 0 {
		t.name = s[from+loc[2] : from+loc[3]]
	}
	if loc[4] >= 0 {
		t.varPat = s[from+loc[4] : from+loc[5]]
	}
	return t, true
}

// isTokenShaped reports whether the whole (trimmed) string is a single token.
func isTokenShaped(s string) bool {
	loc := tokenRE.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

func spaceAdjacentTokens(s string) string {
	return adjacentRE.ReplaceAllString(s, "$1 $2")
}

// findTopLevelMarkers returns the indices where marker occurs outside any
// nested {...} group.
func findTopLevelMarkers(s, marker string) []int {
	var indices []int
	depth := 0
	for i := 0; i < len(s); {
		switch {
		case s[i] == '{':
			depth++
			i++
		case s[i] == '}':
			if depth > 0 {
				depth--
			}
			i++
		case depth == 0 && strings.HasPrefix(s[i:], marker):
			indices = append(indices, i)
			i += len(marker)
		default:
			i++
		}
	}
	return indices
}

// markerIndices finds the separator markers governing a bracket's content.
// Both marker families are scanned at top level; whichever occurs first wins
// and fixes the selection mode for the whole bracket. The losing family's
// markers are left as literal text.
func markerIndices(content string) (indices []int, deckMode bool) {
	dollars := findTopLevelMarkers(content, "$$")
	roulette := findTopLevelMarkers(content, "??")
	if len(roulette) > 0 && (len(dollars) == 0 || roulette[0] < dollars[0]) {
		return roulette, false
	}
	return dollars, true
}

// splitTopLevelPipes splits s on '|' characters that are not inside nested
// {...} groups.
func splitTopLevelPipes(s string) []string {
	var parts []string
	var buf strings.Builder
	depth := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '{':
			depth++
			buf.WriteByte(c)
		case c == '}':
			if depth > 0 {
				depth--
			}
			buf.WriteByte(c)
		case c == '|' && depth == 0:
			parts = append(parts, buf.String())
			buf.Reset()
		default:
			buf.WriteByte(c)
		}
	}
	if buf.Len() > 0 {
		parts = append(parts, buf.String())
	}
	return parts
}

type span struct {
	start, end, depth int
}

// findNextBracketSpan picks the balanced {...} span that should be evaluated
// next. An outer span whose top-level separator region contains the start of
// a nested span is preferred, so a separator carrying further bracket
// structure is not pre-resolved out from under it. Otherwise the innermost,
// earliest span wins. end indexes the closing brace.
func findNextBracketSpan(text string) (start, end int, ok bool) {
	var stack []int
	var spans []span
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			stack = append(stack, i)
		case '}':
			if len(stack) > 0 {
				s := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				spans = append(spans, span{start: s, end: i, depth: len(stack) + 1})
			}
		}
	}
	if len(spans) == 0 {
		return 0, 0, false
	}

	// Separator-region preference.
	best := -1
	for _, sp := range spans {
		content := text[sp.start+1 : sp.end]
		markers, _ := markerIndices(content)
		if len(markers) < 2 {
			continue
		}
		idx1, idx2 := markers[0], markers[1]
		for _, nested := range spans {
			if nested.start <= sp.start || nested.end >= sp.end {
				continue
			}
			local := nested.start - (sp.start + 1)
			if local >= idx1+2 && local < idx2 {
				if best == -1 || sp.start < best {
					best = sp.start
				}
				break
			}
		}
	}
	if best >= 0 {
		for _, sp := range spans {
			if sp.start == best {
				return sp.start, sp.end, true
			}
		}
	}

	// Fall back to the innermost span, earliest first.
	maxDepth := 0
	for _, sp := range spans {
		if sp.depth > maxDepth {
			maxDepth = sp.depth
		}
	}
	chosen := span{start: len(text)}
	for _, sp := range spans {
		if sp.depth == maxDepth && sp.start < chosen.start {
			chosen = sp
		}
	}
	return chosen.start, chosen.end, true
}

// findBracketSpanFrom is findNextBracketSpan restricted to text at or after
// position from.
func findBracketSpanFrom(text string, from int) (start, end int, ok bool) {
	if from < 0 {
		from = 0
	}
	if from >= len(text) {
		return 0, 0, false
	}
	start, end, ok = findNextBracketSpan(text[from:])
	if !ok {
		return 0, 0, false
	}
	return start + from, end + from, true
}

// decodeEscapes expands common backslash escapes in a separator segment.
// Unknown sequences are kept verbatim.
func decodeEscapes(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) {
			b.WriteByte(s[i])
			continue
		}
		switch s[i+1] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '\\':
			b.WriteByte('\\')
		default:
			b.WriteByte(s[i])
			b.WriteByte(s[i+1])
		}
		i++
	}
	return b.String()
}
