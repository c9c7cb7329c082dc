// Package jar inspects the class entries of Java archives.
package jar

import (
	"fmt"
	"strings"

	"github.com/klauspost/compress/zip"
)

// SpringBootPrefix holds nested jars and classes of repackaged Spring Boot
// applications, which the loader cannot resolve by name.
const SpringBootPrefix = "BOOT-INF"

const classSuffix = ".class"

// ClassNames returns the fully-qualified names of every compiled class in
// the archive at path, skipping entries under skipPrefix when it is set.
// Names are returned in archive order.
func ClassNames(path, skipPrefix string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer func() { _ = r.Close() }() //nolint:errcheck

	var names []string
	for _, f := range r.File {
		if name, ok := ClassName(f.Name, skipPrefix); ok {
			names = append(names, name)
		}
	}
	return names, nil
}

// ClassName converts an archive entry such as "com/acme/App.class" into
// "com.acme.App". It reports false for non-class entries and for entries
// under skipPrefix.
func ClassName(entry, skipPrefix string) (string, bool) {
	if !strings.HasSuffix(entry, classSuffix) {
		return "", false
	}
	if skipPrefix != "" && strings.HasPrefix(entry, skipPrefix) {
		return "", false
	}
	name := strings.TrimSuffix(entry, classSuffix)
	return strings.ReplaceAll(name, "/", "."), true
}

// Verify opens the archive and reads its central directory. It fails when
// the file is missing, truncated or not a zip archive.
func Verify(path string) (entries int, err error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	defer func() { _ = r.Close() }() //nolint:errcheck

	return len(r.File), nil
}
