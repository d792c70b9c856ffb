package wildcard

import "math/rand/v2"

// Deck tracks the not-yet-drawn entries of a single wildcard file within one
// bracket evaluation. The full entry list is kept so the deck can refill when
// overflow is allowed.
type Deck struct {
	all    []Entry
	remain []Entry
}

// DeckPool holds the per-bracket draw state: one Deck per backing file,
// keyed by resolved path. A pool is created when an outermost bracket begins
// evaluating and dropped when that bracket returns its joined string, so the
// no-repeat guarantee covers the bracket's entire recursive subtree.
type DeckPool struct {
	overflow bool
	decks    map[string]*Deck
}

func newDeckPool(overflow bool) *DeckPool {
	return &DeckPool{overflow: overflow, decks: make(map[string]*Deck)}
}

// Deck returns the deck for path, loading and snapshotting the file's
// entries on first use.
func (p *DeckPool) Deck(src *LineSource, path string) *Deck {
	if d, ok := p.decks[path]; ok {
		return d
	}
	entries := src.Load(path)
	d := &Deck{
		all:    entries,
		remain: append([]Entry(nil), entries...),
	}
	p.decks[path] = d
	return d
}

// Draw removes one weighted entry from the deck without replacement. An empty
// deck refills from its snapshot when the pool allows overflow; otherwise
// Draw reports exhaustion.
func (p *DeckPool) Draw(d *Deck, rng *rand.Rand) (string, bool) {
	if len(d.remain) == 0 {
		if !p.overflow {
			return "", false
		}
		d.remain = append(d.remain[:0], d.all...)
	}
	if len(d.remain) == 0 {
		return "", false
	}
	idx := weightedIndex(d.remain, rng)
	item := d.remain[idx].Text
	d.remain = append(d.remain[:idx], d.remain[idx+1:]...)
	return item, true
}
