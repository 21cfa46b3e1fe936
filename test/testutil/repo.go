package testutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// RepoRoot returns the directory holding go.mod, found by walking up from
// this file.
func RepoRoot(t *testing.T) string {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	for dir := filepath.Dir(thisFile); ; {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatalf("no go.mod above %s", thisFile)
		}
		dir = parent
	}
}

// FixturePath returns test/fixtures/name. The file need not exist.
func FixturePath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(RepoRoot(t), "test", "fixtures", name)
}
