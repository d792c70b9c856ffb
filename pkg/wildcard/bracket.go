package wildcard

import (
	"math/rand/v2"
	"strconv"
	"strings"
)

type choiceKind int

const (
	choiceLiteral choiceKind = iota
	choiceFile
	choiceRecall
)

// choice is one parsed top-level option of a bracket expression.
type choice struct {
	kind    choiceKind
	key     string // canonical key used for de-duplication
	text    string // original text, re-resolved fresh on every selection
	weight  float64
	binding string // optional ^var binding on a file choice
}

// bracketSpec is the parsed form of one bracket's inner grammar.
type bracketSpec struct {
	count    int
	exhaust  bool // count "*": every unique choice exactly once
	deckMode bool // $$ markers; ?? selects roulette sampling instead
	sep      string
	choices  []choice
}

// parseBracket splits a bracket's content into count, separator, and the
// de-duplicated choice list. Parsing consumes at most one sequence draw (for
// a "lo-hi" count range).
func parseBracket(content string, seq *SeedSequence) bracketSpec {
	spec := bracketSpec{count: 1, sep: ", "}
	choicesStr := content

	markers, deckMode := markerIndices(content)
	spec.deckMode = deckMode

	if len(markers) > 0 {
		countPart := strings.TrimSpace(content[:markers[0]])
		if len(markers) == 1 {
			choicesStr = content[markers[0]+2:]
		} else {
			spec.sep = decodeEscapes(content[markers[0]+2 : markers[1]])
			choicesStr = content[markers[1]+2:]
		}
		spec.count, spec.exhaust = parseCount(countPart, seq)
	}

	var raw []string
	for _, c := range splitTopLevelPipes(choicesStr) {
		// A single-space choice is a deliberate option, not blank filler.
		if c == " " || strings.TrimSpace(c) != "" {
			raw = append(raw, c)
		}
	}

	seen := make(map[[2]string]struct{}, len(raw))
	for _, c := range raw {
		ch := classifyChoice(c)
		dedup := [2]string{strconv.Itoa(int(ch.kind)), ch.key}
		if _, dup := seen[dedup]; dup {
			continue
		}
		seen[dedup] = struct{}{}
		spec.choices = append(spec.choices, ch)
	}
	return spec
}

// parseCount interprets the count segment: a plain integer, an inclusive
// "lo-hi" range sampled with one draw, or "*" for exhaust-all. Anything
// malformed falls back to the default count of 1.
func parseCount(countPart string, seq *SeedSequence) (int, bool) {
	switch {
	case countPart == "*":
		return 0, true
	case strings.Contains(countPart, "-"):
		loS, hiS, _ := strings.Cut(countPart, "-")
		lo, errLo := strconv.Atoi(strings.TrimSpace(loS))
		hi, errHi := strconv.Atoi(strings.TrimSpace(hiS))
		if errLo != nil || errHi != nil || hi < lo {
			return 1, false
		}
		return seq.IntN(lo, hi), false
	case countPart == "":
		return 1, false
	default:
		n, err := strconv.Atoi(countPart)
		if err != nil {
			return 1, false
		}
		return n, false
	}
}

// classifyChoice strips the inline %weight% tag and decides whether the
// choice is a file wildcard, a pure variable recall, or literal text.
func classifyChoice(c string) choice {
	stripped := c
	if c != " " {
		stripped = strings.TrimSpace(c)
	}

	weight := 1.0
	if start, end, w, ok := findWeightTag(stripped); ok {
		weight = w
		stripped = strings.TrimSpace(stripped[:start] + stripped[end:])
	}

	ch := choice{kind: choiceLiteral, key: stripped, text: stripped, weight: weight}
	if !isTokenShaped(stripped) {
		return ch
	}

	tok, ok := findToken(stripped, 0)
	if !ok {
		return ch
	}
	if tok.name == "" && tok.varPat != "" {
		ch.kind = choiceRecall
		ch.key = tok.varPat
		return ch
	}
	if tok.name != "" {
		ch.kind = choiceFile
		ch.key = strings.Trim(tok.name, "/")
		if tok.varPat != "" && !strings.Contains(tok.varPat, "*") {
			ch.binding = tok.varPat
		}
	}
	return ch
}

// evalBracket evaluates one bracket expression and returns its joined
// result. A nil pool marks an outermost bracket: a fresh deck pool is
// created for it and shared by every nested resolution it triggers.
func (r *Resolver) evalBracket(content string, seq *SeedSequence, depth int, vars *VarStore, pool *DeckPool) string {
	if pool == nil {
		pool = newDeckPool(r.overflow)
	}

	spec := parseBracket(content, seq)
	rng := seq.Next()

	var results []string
	switch {
	case spec.exhaust:
		results = r.selectExhaustAll(spec, rng, seq, depth, vars, pool)
	case spec.deckMode:
		results = r.selectDeck(spec, rng, seq, depth, vars, pool)
	default:
		results = r.selectRoulette(spec, rng, seq, depth, vars, pool)
	}

	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString(results[0])
	for _, item := range results[1:] {
		// The separator template is re-resolved per join point under its own
		// derived seed, so repeated separators need not be identical.
		sepSeq := NewSeedSequence(seq.Next().Uint64())
		b.WriteString(r.resolve(spec.sep, sepSeq, depth+1, vars, pool))
		b.WriteString(item)
	}
	return b.String()
}

// selectDeck draws output slots from a shuffled cycle of unique choices,
// reshuffling a new cycle only when overflow is allowed.
func (r *Resolver) selectDeck(spec bracketSpec, rng *rand.Rand, seq *SeedSequence, depth int, vars *VarStore, pool *DeckPool) []string {
	count := spec.count
	if !pool.overflow && count > len(spec.choices) {
		count = len(spec.choices)
	}
	if count <= 0 || len(spec.choices) == 0 {
		return nil
	}

	cycle := shuffledChoices(spec.choices, rng)
	var results []string
	maxIters := max(32, count*8)
	for produced, iter := 0, 0; produced < count && iter < maxIters; iter++ {
		if len(cycle) == 0 {
			if !pool.overflow {
				break
			}
			cycle = shuffledChoices(spec.choices, rng)
		}
		ch := cycle[0]
		cycle = cycle[1:]
		results = append(results, r.resolveChoice(ch, seq, depth, vars, pool))
		produced++
	}
	return results
}

// selectRoulette fills each output slot with an independent weighted pick
// with replacement from the full choice set.
func (r *Resolver) selectRoulette(spec bracketSpec, rng *rand.Rand, seq *SeedSequence, depth int, vars *VarStore, pool *DeckPool) []string {
	if spec.count <= 0 || len(spec.choices) == 0 {
		return nil
	}
	results := make([]string, 0, spec.count)
	for i := 0; i < spec.count; i++ {
		ch := spec.choices[weightedChoiceIndex(spec.choices, rng)]
		results = append(results, r.resolveChoice(ch, seq, depth, vars, pool))
	}
	return results
}

// selectExhaustAll emits every unique choice exactly once in a freshly
// shuffled order, skipping recall choices that currently have nothing bound.
func (r *Resolver) selectExhaustAll(spec bracketSpec, rng *rand.Rand, seq *SeedSequence, depth int, vars *VarStore, pool *DeckPool) []string {
	var results []string
	for _, ch := range shuffledChoices(spec.choices, rng) {
		if ch.kind == choiceRecall && len(vars.Recall(ch.key, "")) == 0 {
			continue
		}
		results = append(results, r.resolveChoice(ch, seq, depth, vars, pool))
	}
	return results
}

// resolveChoice resolves one selected choice instance. Every selection is
// re-resolved fresh, so nested brackets inside the same choice reroll on
// each draw.
func (r *Resolver) resolveChoice(ch choice, seq *SeedSequence, depth int, vars *VarStore, pool *DeckPool) string {
	switch ch.kind {
	case choiceRecall:
		rng := seq.Next()
		candidates := vars.Recall(ch.key, "")
		if len(candidates) == 0 {
			return ""
		}
		return candidates[rng.IntN(len(candidates))]

	case choiceFile:
		rng := seq.Next()
		val := r.drawFileToken(ch.key, rng, pool)
		if val == "" {
			return ""
		}
		out := r.resolve(val, seq, depth+1, vars, pool)
		if ch.binding != "" {
			vars.Bind(ch.binding, ch.key, out)
		}
		return out

	default:
		return r.resolve(ch.text, seq, depth+1, vars, pool)
	}
}

func shuffledChoices(choices []choice, rng *rand.Rand) []choice {
	cycle := append([]choice(nil), choices...)
	rng.Shuffle(len(cycle), func(i, j int) {
		cycle[i], cycle[j] = cycle[j], cycle[i]
	})
	return cycle
}

// weightedChoiceIndex samples a choice index proportionally to the inline
// choice weights, uniform when the total is not positive.
func weightedChoiceIndex(choices []choice, rng *rand.Rand) int {
	var total float64
	for _, ch := range choices {
		total += ch.weight
	}
	if total <= 0 {
		return rng.IntN(len(choices))
	}
	r := rng.Float64() * total
	var acc float64
	for i, ch := range choices {
		acc += ch.weight
		if r <= acc {
			return i
		}
	}
	return len(choices) - 1
}
