// Package testsupport provides helpers shared by tests across packages.
package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"uptone/internal/items"
)

// NewStore opens a session item store in a temp directory and removes
// it when the test finishes.
func NewStore(t testing.TB) *items.Store {
	t.Helper()
	store, err := items.Open(t.TempDir(), "test")
	if err != nil {
		t.Fatalf("open session store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

// WriteTracks creates empty audio files with the given names under dir.
func WriteTracks(t testing.TB, dir string, names ...string) []string {
	t.Helper()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create track dir: %v", err)
	}
	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write track %s: %v", name, err)
		}
		paths = append(paths, path)
	}
	return paths
}
