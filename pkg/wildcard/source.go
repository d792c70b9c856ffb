package wildcard

import (
	"bufio"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

// Entry is a single wildcard file line paired with its sampling weight.
type Entry struct {
	Text   string
	Weight float64
}

// LineSource loads wildcard files into weighted entry lists, cached by
// absolute path. A LineSource may outlive a single resolve call and be shared
// by a caller across calls; the cache is safe for concurrent use.
//
// Lookups consult the primary root first. If the primary root yields nothing
// for a given name pattern, the same relative lookup is retried under the
// fallback root (when one is configured).
type LineSource struct {
	root     string
	fallback string
	mu       sync.RWMutex
	cache    map[string][]Entry
}

// NewLineSource returns a LineSource rooted at root. fallback may be empty to
// disable the secondary lookup.
func NewLineSource(root, fallback string) *LineSource {
	return &LineSource{
		root:     root,
		fallback: fallback,
		cache:    make(map[string][]Entry),
	}
}

// Load returns the weighted entries of the file at path, reading and caching
// it on first use. I/O failures are soft: a missing or unreadable file loads
// as an empty list.
func (ls *LineSource) Load(path string) []Entry {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	ls.mu.RLock()
	entries, ok := ls.cache[abs]
	ls.mu.RUnlock()
	if ok {
		return entries
	}

	entries = readWeightedFile(abs)
	ls.mu.Lock()
	ls.cache[abs] = entries
	ls.mu.Unlock()
	return entries
}

// ChooseFile resolves a wildcard name pattern to a concrete file path.
// Supported patterns:
//
//	fruit          -> <root>/fruit.txt
//	fruit*         -> any root file whose name starts with "fruit"
//	*              -> any root .txt file
//	dir/file       -> <root>/dir/file.txt
//	dir/*          -> any .txt file inside <root>/dir
//	dir/prefix*    -> file in dir whose name starts with prefix
//
// The fallback root is tried with the same pattern when the primary root has
// no match. Returns "" when nothing matches in either location.
func (ls *LineSource) ChooseFile(name string, rng *rand.Rand) string {
	name = strings.Trim(name, "/")
	if name == "" {
		return ""
	}
	if p := chooseFileUnder(ls.root, name, rng); p != "" {
		return p
	}
	if ls.fallback != "" && ls.fallback != ls.root {
		return chooseFileUnder(ls.fallback, name, rng)
	}
	return ""
}

// DrawWeighted performs a single draw with replacement, proportional to entry
// weights. A non-positive total weight falls back to uniform selection.
func (ls *LineSource) DrawWeighted(entries []Entry, rng *rand.Rand) string {
	if len(entries) == 0 {
		return ""
	}
	return entries[weightedIndex(entries, rng)].Text
}

func chooseFileUnder(root, name string, rng *rand.Rand) string {
	dir, last := root, name
	if i := strings.LastIndex(name, "/"); i >= 0 {
		dir = filepath.Join(root, name[:i])
		last = name[i+1:]
	}

	switch {
	case last == "" || last == "*":
		return pickFromDir(dir, "", rng)
	case strings.HasSuffix(last, "*"):
		return pickFromDir(dir, last[:len(last)-1], rng)
	default:
		p := filepath.Join(dir, last+".txt")
		if _, err := os.Stat(p); err == nil {
			return p
		}
		return ""
	}
}

// pickFromDir selects a random .txt file in dir whose base name starts with
// prefix. Directory listing order is sorted, so the pick depends only on the
// rng and the file set.
func pickFromDir(dir, prefix string, rng *rand.Rand) string {
	infos, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var candidates []string
	for _, e := range infos {
		if e.IsDir() {
			continue
		}
		fname := e.Name()
		if !strings.HasSuffix(strings.ToLower(fname), ".txt") {
			continue
		}
		base := fname[:len(fname)-4]
		if prefix == "" || strings.HasPrefix(base, prefix) {
			candidates = append(candidates, filepath.Join(dir, fname))
		}
	}
	if len(candidates) == 0 {
		return ""
	}
	return candidates[rng.IntN(len(candidates))]
}

func readWeightedFile(path string) []Entry {
	file, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer func(f *os.File) {
		_ = f.Close()
	}(file)

	var entries []Entry
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if entry, ok := parseEntry(scanner.Text()); ok {
			entries = append(entries, entry)
		}
	}
	// A scan error partway through degrades to whatever was read so far.
	return entries
}

// parseEntry turns one raw wildcard file line into an Entry. It reports false
// for lines that carry no option: blanks, comment lines starting with '#' or
// '!', lines that are empty after stripping an inline comment, and lines
// whose explicit weight is zero or negative.
func parseEntry(raw string) (Entry, bool) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "!") {
		return Entry{}, false
	}
	line = strings.TrimSpace(cutUnescaped(line, '#'))
	if line == "" {
		return Entry{}, false
	}

	weight := 1.0
	if start, end, w, ok := findWeightTag(line); ok {
		weight = w
		line = strings.TrimSpace(line[:start] + line[end:])
	}
	line = strings.ReplaceAll(line, `\%`, "%")
	line = strings.ReplaceAll(line, `\#`, "#")
	if line == "" || weight <= 0 {
		return Entry{}, false
	}
	return Entry{Text: line, Weight: weight}, true
}

// cutUnescaped returns s truncated at the first occurrence of sep that is not
// preceded by a backslash.
func cutUnescaped(s string, sep byte) string {
	for i := 0; i < len(s); i++ {
		if s[i] == sep && (i == 0 || s[i-1] != '\\') {
			return s[:i]
		}
	}
	return s
}

// findWeightTag locates an unescaped %number% marker in s and returns its
// byte span and parsed value.
func findWeightTag(s string) (start, end int, weight float64, ok bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '%' || (i > 0 && s[i-1] == '\\') {
			continue
		}
		j := i + 1
		digits, dots := 0, 0
		for j < len(s) && (s[j] == '.' || (s[j] >= '0' && s[j] <= '9')) {
			if s[j] == '.' {
				dots++
			} else {
				digits++
			}
			j++
		}
		if digits == 0 || dots > 1 || j >= len(s) || s[j] != '%' {
			continue
		}
		w, err := strconv.ParseFloat(s[i+1:j], 64)
		if err != nil {
			continue
		}
		return i, j + 1, w, true
	}
	return 0, 0, 0, false
}

// weightedIndex samples an index proportionally to entry weights, with a
// uniform fallback when the total weight is not positive.
func weightedIndex(entries []Entry, rng *rand.Rand) int {
	var total float64
	for _, e := range entries {
		total += e.Weight
	}
	if total <= 0 {
		return rng.IntN(len(entries))
	}
	r := rng.Float64() * total
	var acc float64
	for i, e := range entries {
		acc += e.Weight
		if r <= acc {
			return i
		}
	}
	return len(entries) - 1
}
