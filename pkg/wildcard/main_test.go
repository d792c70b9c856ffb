package wildcard

import (
	"os"
	"path/filepath"
	"testing"
)

// setupWildcardDir writes a wildcard file tree into a temp directory and
// returns its root. Keys are paths relative to the root (use forward
// slashes); values are raw file contents.
func setupWildcardDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("failed to create wildcard dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("failed to write wildcard file %s: %v", name, err)
		}
	}
	return dir
}

// newTestResolver builds a Resolver over a freshly written wildcard tree.
func newTestResolver(t *testing.T, files map[string]string, opts ...Option) *Resolver {
	t.Helper()
	return NewResolver(setupWildcardDir(t, files), opts...)
}
