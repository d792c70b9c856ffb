package wildcard

import (
	"strings"
	"testing"
)

var testFiles = map[string]string{
	"fruit.txt":      "apple\nbanana\ncherry\nkiwi\nmango\nplum\npeach\nfig\n",
	"color.txt":      "red\ngreen\nblue\n",
	"instrument.txt": "drum\n",
}

func TestResolveDeterminism(t *testing.T) {
	r := newTestResolver(t, testFiles)
	template := "__fruit__ __fruit__ __fruit__"

	for seed := uint64(0); seed < 5; seed++ {
		a := r.Resolve(template, seed, nil)
		b := r.Resolve(template, seed, nil)
		if a != b {
			t.Errorf("seed %d: %q != %q", seed, a, b)
		}
	}

	outputs := map[string]bool{}
	for seed := uint64(0); seed < 20; seed++ {
		outputs[r.Resolve(template, seed, nil)] = true
	}
	if len(outputs) < 2 {
		t.Errorf("20 seeds produced %d distinct outputs", len(outputs))
	}
}

func TestResolveWildcardToken(t *testing.T) {
	r := newTestResolver(t, testFiles)
	out := r.Resolve("a __color__ one", 3, nil)

	ok := false
	for _, c := range []string{"red", "green", "blue"} {
		if out == "a "+c+" one" {
			ok = true
		}
	}
	if !ok {
		t.Errorf("unexpected output %q", out)
	}
}

func TestResolveEscapedToken(t *testing.T) {
	r := newTestResolver(t, testFiles)
	if out := r.Resolve(`\__color__`, 1, nil); out != "__color__" {
		t.Errorf("escaped token resolved to %q", out)
	}
	out := r.Resolve(`\__color__ and __instrument__`, 1, nil)
	if out != "__color__ and drum" {
		t.Errorf("mixed escape output %q", out)
	}
}

func TestResolveUnknownTokenRemoved(t *testing.T) {
	r := newTestResolver(t, testFiles)
	if out := r.Resolve("a __missing__ b", 1, nil); out != "a  b" {
		t.Errorf("got %q", out)
	}
}

func TestResolveAdjacentTokensSpaced(t *testing.T) {
	r := newTestResolver(t, testFiles)
	out := r.Resolve("__instrument____instrument__", 1, nil)
	if out != "drum drum" {
		t.Errorf("got %q", out)
	}
}

func TestResolveAssignmentStable(t *testing.T) {
	r := newTestResolver(t, testFiles)
	vars := NewVarStore()
	out := r.Resolve("__fruit^f__ / __fruit^f__", 7, vars)

	parts := strings.Split(out, " / ")
	if len(parts) != 2 || parts[0] != parts[1] || parts[0] == "" {
		t.Fatalf("assignment token changed between uses: %q", out)
	}
	if val, ok := vars.Lookup("f", "fruit"); !ok || val != parts[0] {
		t.Errorf("binding f=%q ok=%v, want %q", val, ok, parts[0])
	}
}

func TestResolveVariableRecall(t *testing.T) {
	r := newTestResolver(t, testFiles)
	out := r.Resolve("__fruit^f__ __^f__", 5, nil)

	parts := strings.Fields(out)
	if len(parts) != 2 || parts[0] != parts[1] {
		t.Errorf("recall diverged from assignment: %q", out)
	}
}

func TestResolveOriginScopedRecall(t *testing.T) {
	r := newTestResolver(t, testFiles)
	out := r.Resolve("__fruit^f__ __fruit^*__", 11, nil)

	parts := strings.Fields(out)
	if len(parts) != 2 || parts[0] != parts[1] {
		t.Errorf("origin-scoped recall diverged: %q", out)
	}
}

func TestResolveRecallBeforeAssignment(t *testing.T) {
	// The recall token appears before any binding exists; the final sweep
	// picks it up once the bracket further right has bound the variable.
	r := newTestResolver(t, testFiles)
	out := r.Resolve("__^pet__ {cat|dog}^pet", 2, nil)

	parts := strings.Fields(out)
	if len(parts) != 2 || parts[0] != parts[1] {
		t.Errorf("late-bound recall output %q", out)
	}
	if parts[0] != "cat" && parts[0] != "dog" {
		t.Errorf("unexpected value %q", parts[0])
	}
}

func TestResolveSelfReferenceTerminates(t *testing.T) {
	r := newTestResolver(t, map[string]string{"loop.txt": "__loop__\n"})
	if out := r.Resolve("__loop__", 1, nil); out != "" {
		t.Errorf("self-referencing wildcard produced %q", out)
	}
}

func TestResolveRunawayGrowthBounded(t *testing.T) {
	r := newTestResolver(t,
		map[string]string{"grow.txt": "x __grow__\n"},
		WithMaxPasses(3), WithMaxDepth(5))
	out := r.Resolve("__grow__", 1, nil)
	if !strings.HasPrefix(out, "x") {
		t.Errorf("got %q", out)
	}
}

func TestResolveFallbackRoot(t *testing.T) {
	fallback := setupWildcardDir(t, map[string]string{"animal.txt": "fox\n"})
	r := newTestResolver(t, testFiles, WithFallbackRoot(fallback))

	if out := r.Resolve("__animal__", 1, nil); out != "fox" {
		t.Errorf("fallback lookup produced %q", out)
	}
	if out := r.Resolve("__instrument__", 1, nil); out != "drum" {
		t.Errorf("primary root should still win: %q", out)
	}
}

func TestResolveDocumentComments(t *testing.T) {
	r := newTestResolver(t, testFiles)
	vars := NewVarStore()

	out := r.ResolveDocument("##{violet}^flower## a __^flower__ here", 4, vars, true)
	if out != "a violet here" {
		t.Errorf("got %q", out)
	}
	if val, ok := vars.Lookup("flower", "__bracket_0"); !ok || val != "violet" {
		t.Errorf("comment block binding = %q ok=%v", val, ok)
	}
}

func TestResolveDocumentCollapsesWhitespace(t *testing.T) {
	r := newTestResolver(t, testFiles)
	out := r.ResolveDocument("## a note ##  __instrument__   solo ", 1, nil, true)
	if out != "drum solo" {
		t.Errorf("got %q", out)
	}
}

func TestResolveSharedVarsAcrossCalls(t *testing.T) {
	r := newTestResolver(t, testFiles)
	vars := NewVarStore()

	first := r.Resolve("__fruit^f__", 9, vars)
	second := r.Resolve("__^f__", 100, vars)
	if first == "" || first != second {
		t.Errorf("cross-call recall: first %q, second %q", first, second)
	}
}
