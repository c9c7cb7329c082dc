// Package version identifies dd-java-agent artifacts by version and maps
// them to cache file names.
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	// ArtifactPrefix is the fixed file name prefix of every agent artifact.
	ArtifactPrefix = "dd-java-agent-"
	// ArtifactSuffix is the file extension of every agent artifact.
	ArtifactSuffix = ".jar"
	// ArtifactGlob matches every file the fetcher writes.
	ArtifactGlob = ArtifactPrefix + "*" + ArtifactSuffix
)

// ErrNotArtifact is returned when a file name does not follow the artifact naming scheme.
var ErrNotArtifact = errors.New("not an agent artifact file name")

// Version is a major.minor.patch agent version.
type Version struct {
	Major int
	Minor int
	Patch int
}

// Release returns the 0.<minor>.0 version the fetcher downloads.
func Release(minor int) Version {
	return Version{Minor: minor}
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// FileName returns the cache file name for v, e.g. dd-java-agent-0.42.0.jar.
func (v Version) FileName() string {
	return ArtifactPrefix + v.String() + ArtifactSuffix
}

// Compare orders versions numerically component by component.
func (v Version) Compare(o Version) int {
	switch {
	case v.Major != o.Major:
		return cmpInt(v.Major, o.Major)
	case v.Minor != o.Minor:
		return cmpInt(v.Minor, o.Minor)
	default:
		return cmpInt(v.Patch, o.Patch)
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// Parse parses a dotted version string such as "0.42.0".
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("invalid version %q: want major.minor.patch", s)
	}

	var nums [3]int
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return Version{}, fmt.Errorf("invalid version %q: component %q is not a number", s, p)
		}
		nums[i] = n
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2]}, nil
}

// Extract returns the version string embedded in an artifact path: the text
// between ArtifactPrefix and the ".jar" suffix of the file name.
func Extract(path string) (string, error) {
	name := path
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}

	start := strings.Index(name, ArtifactPrefix)
	if start < 0 || !strings.HasSuffix(name, ArtifactSuffix) {
		return "", fmt.Errorf("%w: %s", ErrNotArtifact, name)
	}
	start += len(ArtifactPrefix)
	end := len(name) - len(ArtifactSuffix)
	if end <= start {
		return "", fmt.Errorf("%w: %s", ErrNotArtifact, name)
	}

	return name[start:end], nil
}

// FromFileName extracts and parses the version of an artifact path.
func FromFileName(path string) (Version, error) {
	s, err := Extract(path)
	if err != nil {
		return Version{}, err
	}
	return Parse(s)
}

// MinorNumber returns the numeric minor component of a version string,
// e.g. 42 for "0.42.0". Ordering by it avoids lexical misordering of
// "0.9.0" and "0.10.0".
func MinorNumber(s string) (int, error) {
	_, rest, ok := strings.Cut(s, ".")
	if !ok {
		return 0, fmt.Errorf("invalid version %q: no minor component", s)
	}
	minor, _, _ := strings.Cut(rest, ".")
	n, err := strconv.Atoi(minor)
	if err != nil {
		return 0, fmt.Errorf("invalid version %q: %w", s, err)
	}
	return n, nil
}
