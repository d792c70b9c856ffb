package wildcard

import (
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"strings"
)

const (
	defaultMaxPasses = 12
	defaultMaxDepth  = 80
	chainRetryBudget = 12
)

// Resolver expands the templating syntax embedded in free text: __name__
// wildcard tokens, {...} bracket expressions, and ^variable captures. All
// template-content problems degrade softly; Resolve never fails, it only
// produces less text.
type Resolver struct {
	root     string
	fallback string
	source   *LineSource
	logger   *slog.Logger
	overflow bool

	maxPasses int
	maxDepth  int
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger enables logging. By default all logs are discarded.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithFallbackRoot sets a secondary wildcard directory that is consulted when
// a name pattern matches nothing under the primary root.
func WithFallbackRoot(dir string) Option {
	return func(r *Resolver) { r.fallback = dir }
}

// WithOverflow controls whether deck-mode brackets may repeat choices and
// refill exhausted file decks once every unique option has appeared.
// Overflow is allowed by default.
func WithOverflow(allow bool) Option {
	return func(r *Resolver) { r.overflow = allow }
}

// WithMaxPasses sets the iterative pass budget of a resolve call.
func WithMaxPasses(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxPasses = n
		}
	}
}

// WithMaxDepth sets the recursion ceiling that cuts off runaway
// self-referencing templates.
func WithMaxDepth(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxDepth = n
		}
	}
}

// NewResolver returns a Resolver reading wildcard files under root.
func NewResolver(root string, opts ...Option) *Resolver {
	r := &Resolver{
		root:      root,
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		overflow:  true,
		maxPasses: defaultMaxPasses,
		maxDepth:  defaultMaxDepth,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.source = NewLineSource(r.root, r.fallback)
	return r
}

// Resolve expands template into its final text. The same (template, seed,
// file set) always produces the same string and the same variable bindings.
// vars may be nil; pass a store from an earlier call to chain captured
// values across resolutions.
func (r *Resolver) Resolve(template string, seed uint64, vars *VarStore) string {
	if vars == nil {
		vars = NewVarStore()
	}
	seq := NewSeedSequence(seed)
	return r.resolveCall(template, seq, vars)
}

// ResolveDocument handles ##...## comment blocks before resolving the rest
// of the document. Each block is resolved first so that its variable
// assignments (and RNG draws) take effect, then stripped when hideComments
// is set. With hideComments the result is also whitespace-collapsed to clean
// up the holes left by removed blocks.
func (r *Resolver) ResolveDocument(template string, seed uint64, vars *VarStore, hideComments bool) string {
	if vars == nil {
		vars = NewVarStore()
	}
	seq := NewSeedSequence(seed)

	for _, m := range commentBlockRE.FindAllStringSubmatch(template, -1) {
		_ = r.resolveCall(m[1], seq, vars)
	}
	if hideComments {
		template = commentBlockRE.ReplaceAllString(template, "")
	}

	out := r.resolveCall(template, seq, vars)
	if hideComments {
		out = strings.Join(strings.Fields(out), " ")
	}
	return out
}

// resolveCall wraps one top-level resolution with escaped-token protection.
func (r *Resolver) resolveCall(text string, seq *SeedSequence, vars *VarStore) string {
	text, protected := protectEscapedTokens(text)
	out := r.resolve(text, seq, 0, vars, nil)
	return restoreEscapedTokens(out, protected)
}

// resolve runs the fixed-point pass loop followed by the final sweep. pool is
// non-nil only while evaluating inside a bracket, where file draws must share
// that bracket's decks.
func (r *Resolver) resolve(text string, seq *SeedSequence, depth int, vars *VarStore, pool *DeckPool) string {
	if depth > r.maxDepth {
		r.logger.Warn("recursion ceiling reached, returning text as-is", "depth", depth)
		return text
	}

	text = spaceAdjacentTokens(text)

	for passNo := 1; passNo <= r.maxPasses; passNo++ {
		working, changed := r.runPass(text, seq, depth, vars, pool)
		r.logger.Debug("resolver pass finished", "pass", passNo, "depth", depth, "changed", changed)
		text = working
		if !changed {
			break
		}
		text = spaceAdjacentTokens(text)
		if passNo == r.maxPasses {
			r.logger.Warn("pass budget exhausted, returning current text", "passes", r.maxPasses)
		}
	}

	return r.finalSweep(text, seq, depth, vars)
}

// runPass performs one left-to-right sweep. The scan position only moves
// forward, past each substituted result, so a substitution that itself still
// contains tokens cannot stall the sweep; such leftovers are picked up by the
// next pass. Tokens that cannot be resolved yet are swapped for opaque frames
// and restored before the pass returns; only real token substitutions count
// as change.
func (r *Resolver) runPass(text string, seq *SeedSequence, depth int, vars *VarStore, pool *DeckPool) (string, bool) {
	working := text
	changed := false
	pos := 0
	var unresolved []string

	for {
		tok, tokOK := findToken(working, pos)
		brStart, brEnd, brOK := findBracketSpanFrom(working, pos)
		if !tokOK && !brOK {
			break
		}

		takeBracket := brOK && (!tokOK || brStart < tok.start)
		if takeBracket {
			content := working[brStart+1 : brEnd]
			repl := r.evalBracket(content, seq, depth, vars, pool)
			working, pos = r.applyBindingChain(working, brStart, brEnd, content, repl, seq, depth, vars, pool)
			working = spaceAdjacentTokens(working)
			continue
		}

		replacement, resolved := r.resolveToken(tok, seq, depth, vars, pool)
		if !resolved {
			frame := fmt.Sprintf("\x00U%d\x00", len(unresolved))
			unresolved = append(unresolved, tok.full)
			working = working[:tok.start] + frame + working[tok.end:]
			pos = tok.start + len(frame)
			continue
		}
		working = working[:tok.start] + replacement + working[tok.end:]
		pos = tok.start + len(replacement)
		changed = true
		working = spaceAdjacentTokens(working)
	}

	for i, orig := range unresolved {
		working = strings.Replace(working, fmt.Sprintf("\x00U%d\x00", i), orig, 1)
	}
	return working, changed
}

// applyBindingChain substitutes an evaluated bracket back into the document,
// consuming any trailing ^name binding chain. The first suffix binds the
// already-computed result; each further suffix re-evaluates the bracket,
// preferring a value distinct from the chain so far. When a chain is present
// the substituted text is the comma-joined list of all chained values. The
// second return value is the scan position just past the substituted text.
func (r *Resolver) applyBindingChain(working string, brStart, brEnd int, content, repl string, seq *SeedSequence, depth int, vars *VarStore, pool *DeckPool) (string, int) {
	var chain []string
	replaceEnd := brEnd + 1
	pos := brEnd + 1

	for pos < len(working) && working[pos] == '^' {
		name := varNameRE.FindString(working[pos+1:])
		if name == "" {
			break
		}

		var value string
		if len(chain) == 0 {
			value = repl
		} else {
			prev := make(map[string]struct{}, len(chain))
			for _, v := range chain {
				prev[v] = struct{}{}
			}
			found := false
			for attempt := 0; attempt < chainRetryBudget; attempt++ {
				value = r.evalBracket(content, seq, depth, vars, pool)
				if _, dup := prev[value]; !dup {
					found = true
					break
				}
			}
			if !found {
				r.logger.Debug("binding chain retries exhausted, keeping duplicate", "var", name)
			}
		}

		origin := fmt.Sprintf("__bracket_%d", vars.OriginCount(name))
		vars.Bind(name, origin, value)
		chain = append(chain, value)

		replaceEnd = pos + 1 + len(name)
		pos = replaceEnd
	}

	if len(chain) > 0 {
		joined := strings.Join(chain, ", ")
		return working[:brStart] + joined + working[replaceEnd:], brStart + len(joined)
	}
	return working[:brStart] + repl + working[brEnd+1:], brStart + len(repl)
}

// resolveToken handles one wildcard/variable token. It reports false when
// the token cannot be resolved in this pass (so the caller frames it for a
// later attempt).
func (r *Resolver) resolveToken(tok token, seq *SeedSequence, depth int, vars *VarStore, pool *DeckPool) (string, bool) {
	switch {
	case tok.name == "" && tok.varPat != "":
		// Pure variable recall: __^var__, __^prefix*__, __^*__.
		rng := seq.Next()
		candidates := vars.Recall(tok.varPat, "")
		if len(candidates) == 0 {
			return "", false
		}
		return candidates[rng.IntN(len(candidates))], true

	case tok.name != "" && tok.varPat != "":
		if strings.Contains(tok.varPat, "*") {
			// Origin-scoped recall: __origin^var*__ / __origin^*__.
			rng := seq.Next()
			candidates := vars.Recall(tok.varPat, tok.name)
			if len(candidates) == 0 {
				return "", false
			}
			return candidates[rng.IntN(len(candidates))], true
		}
		// Assignment: recall the existing binding or generate it once.
		if val, ok := vars.Lookup(tok.varPat, tok.name); ok {
			return val, true
		}
		rng := seq.Next()
		generated := r.drawFileToken(tok.name, rng, pool)
		if generated == "" || strings.TrimSpace(generated) == tok.full {
			return "", false
		}
		resolved := r.resolve(generated, seq, depth+1, vars, pool)
		vars.Bind(tok.varPat, tok.name, resolved)
		return resolved, true

	default:
		// Plain wildcard: __name__.
		rng := seq.Next()
		generated := r.drawFileToken(tok.name, rng, pool)
		if generated == "" || strings.TrimSpace(generated) == tok.full {
			return "", false
		}
		return r.resolve(generated, seq, depth+1, vars, pool), true
	}
}

// drawFileToken draws one line for a wildcard name pattern. Inside a bracket
// the draw goes through that bracket's deck pool so lines do not repeat until
// the file is exhausted; outside it is a plain weighted draw.
func (r *Resolver) drawFileToken(name string, rng *rand.Rand, pool *DeckPool) string {
	name = strings.Trim(name, "/")
	if name == "" {
		return ""
	}
	path := r.source.ChooseFile(name, rng)
	if path == "" {
		return ""
	}
	if pool == nil {
		return r.source.DrawWeighted(r.source.Load(path), rng)
	}
	item, ok := pool.Draw(pool.Deck(r.source, path), rng)
	if !ok {
		return ""
	}
	return item
}

// finalSweep is the terminal best-effort scan: anything still token-shaped is
// resolved aggressively, generating from a backing file as a last resort for
// unbound variables, and whatever remains unresolvable is removed.
func (r *Resolver) finalSweep(text string, seq *SeedSequence, depth int, vars *VarStore) string {
	i := 0
	for {
		tok, ok := findToken(text, i)
		if !ok {
			break
		}

		var replacement string
		switch {
		case tok.name == "" && tok.varPat != "":
			if candidates := vars.Recall(tok.varPat, ""); len(candidates) > 0 {
				rng := seq.Next()
				replacement = candidates[rng.IntN(len(candidates))]
			}

		case tok.name != "" && tok.varPat != "":
			if strings.Contains(tok.varPat, "*") {
				if candidates := vars.Recall(tok.varPat, tok.name); len(candidates) > 0 {
					rng := seq.Next()
					replacement = candidates[rng.IntN(len(candidates))]
				}
			} else if val, ok := vars.Lookup(tok.varPat, tok.name); ok {
				replacement = val
			} else {
				rng := seq.Next()
				if generated := r.drawFileToken(tok.name, rng, nil); generated != "" && strings.TrimSpace(generated) != tok.full {
					replacement = r.resolve(generated, seq, depth+1, vars, nil)
					vars.Bind(tok.varPat, tok.name, replacement)
				}
			}

		default:
			rng := seq.Next()
			if generated := r.drawFileToken(tok.name, rng, nil); generated != "" && strings.TrimSpace(generated) != tok.full {
				replacement = r.resolve(generated, seq, depth+1, vars, nil)
			}
		}

		text = text[:tok.start] + replacement + text[tok.end:]
		i = tok.start + len(replacement)
	}
	return text
}

// protectEscapedTokens swaps \__name__ sequences for opaque frames so the
// resolver cannot touch them; restoreEscapedTokens puts the token text back
// (without the backslash) at the end of the call.
func protectEscapedTokens(text string) (string, []string) {
	var protected []string
	out := escapedTokenRE.ReplaceAllStringFunc(text, func(m string) string {
		frame := fmt.Sprintf("\x00E%d\x00", len(protected))
		protected = append(protected, m[1:])
		return frame
	})
	return out, protected
}

func restoreEscapedTokens(text string, protected []string) string {
	for i, orig := range protected {
		text = strings.Replace(text, fmt.Sprintf("\x00E%d\x00", i), orig, 1)
	}
	return text
}
