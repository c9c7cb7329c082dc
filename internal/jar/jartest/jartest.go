// Package jartest builds small jar archives for tests.
package jartest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
)

// Write creates a jar named name in dir containing the given entries with
// placeholder content and returns its path.
func Write(t testing.TB, dir, name string, entries ...string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck

	zw := zip.NewWriter(f)
	for _, entry := range entries {
		w, err := zw.Create(entry)
		if err != nil {
			t.Fatalf("create entry %s: %v", entry, err)
		}
		if _, err := w.Write([]byte{0xCA, 0xFE, 0xBA, 0xBE}); err != nil {
			t.Fatalf("write entry %s: %v", entry, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close %s: %v", path, err)
	}
	return path
}
