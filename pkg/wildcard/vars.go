package wildcard

import "strings"

// VarStore holds values captured during resolution, keyed by variable name
// and disambiguated by an origin key (a backing file name, or a synthetic
// "__bracket_N" key for bracket binding chains). Insertion order of both
// names and origins is preserved so recall candidates and first-writer-wins
// behavior stay deterministic.
//
// A VarStore is supplied by the caller, mutated in place during resolution,
// and can be threaded into subsequent resolve calls to chain captured values.
type VarStore struct {
	names   []string
	buckets map[string]*bucket
}

type bucket struct {
	origins []string
	values  map[string]string
}

// NewVarStore returns an empty store.
func NewVarStore() *VarStore {
	return &VarStore{buckets: make(map[string]*bucket)}
}

// Bind stores value under (name, origin) and reports whether it was stored.
// An origin already bound for the name is never overwritten; explicit
// re-assignment is expressed by binding under a fresh origin key.
func (v *VarStore) Bind(name, origin, value string) bool {
	b, ok := v.buckets[name]
	if !ok {
		b = &bucket{values: make(map[string]string)}
		v.buckets[name] = b
		v.names = append(v.names, name)
	}
	if _, exists := b.values[origin]; exists {
		return false
	}
	b.origins = append(b.origins, origin)
	b.values[origin] = value
	return true
}

// Lookup returns the value bound under (name, origin).
func (v *VarStore) Lookup(name, origin string) (string, bool) {
	if b, ok := v.buckets[name]; ok {
		val, ok := b.values[origin]
		return val, ok
	}
	return "", false
}

// OriginCount returns how many origins are bound for name.
func (v *VarStore) OriginCount(name string) int {
	if b, ok := v.buckets[name]; ok {
		return len(b.origins)
	}
	return 0
}

// Names returns the variable names in insertion order.
func (v *VarStore) Names() []string {
	return append([]string(nil), v.names...)
}

// Origins returns the origin keys bound for name, in insertion order.
func (v *VarStore) Origins(name string) []string {
	if b, ok := v.buckets[name]; ok {
		return append([]string(nil), b.origins...)
	}
	return nil
}

// Len returns the number of variable names with at least one binding.
func (v *VarStore) Len() int {
	return len(v.names)
}

// Recall collects candidate values for a recall pattern:
//
//	"*"       all values across all names
//	"name*"   values of names starting with "name"
//	"name"    values of exactly "name"
//
// A non-empty originFilter restricts candidates to bindings stored under that
// origin key. Candidates come back in insertion order.
func (v *VarStore) Recall(pattern, originFilter string) []string {
	if pattern == "" || len(v.names) == 0 {
		return nil
	}

	matches := func(name string) bool {
		switch {
		case pattern == "*":
			return true
		case strings.HasSuffix(pattern, "*"):
			return strings.HasPrefix(name, pattern[:len(pattern)-1])
		default:
			return name == pattern
		}
	}

	var candidates []string
	for _, name := range v.names {
		if !matches(name) {
			continue
		}
		b := v.buckets[name]
		if originFilter == "" {
			for _, origin := range b.origins {
				candidates = append(candidates, b.values[origin])
			}
		} else if val, ok := b.values[originFilter]; ok {
			candidates = append(candidates, val)
		}
	}
	return candidates
}
