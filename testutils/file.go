// Package testutils holds helpers shared by regsynth tests.
package testutils

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

// TempDir creates a temporary directory that is removed when the test ends and
// fails the test if it cannot.
func TempDir(t *testing.T, pattern string) string {
	t.Helper()
	dir, err := os.MkdirTemp("", pattern)
	test.That(t, err, test.ShouldBeNil)
	t.Cleanup(func() {
		test.That(t, os.RemoveAll(dir), test.ShouldBeNil)
	})
	return dir
}

// WriteFile writes contents to name inside dir and returns the full path.
func WriteFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	test.That(t, os.WriteFile(path, []byte(contents), 0o600), test.ShouldBeNil)
	return path
}

// ListDir returns the names of the entries in dir, sorted.
func ListDir(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	test.That(t, err, test.ShouldBeNil)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}
