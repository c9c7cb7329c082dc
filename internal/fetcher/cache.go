package fetcher

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/bebsworthy/startupbench/internal/debug"
	"github.com/bebsworthy/startupbench/internal/version"
)

// Artifact is an agent jar present in the cache directory.
type Artifact struct {
	Version version.Version
	Path    string
}

// List returns the cached artifacts of dir in ascending version order.
// A missing directory yields no artifacts. Files matching the artifact
// naming pattern whose version cannot be parsed are skipped.
func List(dir string) ([]Artifact, error) {
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	matches, err := doublestar.Glob(os.DirFS(dir), version.ArtifactGlob, doublestar.WithFailOnIOErrors())
	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts in %s: %w", dir, err)
	}

	artifacts := make([]Artifact, 0, len(matches))
	for _, match := range matches {
		v, err := version.FromFileName(match)
		if err != nil {
			debug.Log("Skipping %s: %v", match, err)
			continue
		}
		artifacts = append(artifacts, Artifact{Version: v, Path: filepath.Join(dir, filepath.FromSlash(match))})
	}

	sort.Slice(artifacts, func(i, j int) bool {
		return artifacts[i].Version.Compare(artifacts[j].Version) < 0
	})
	return artifacts, nil
}

// Clean removes every cached artifact and leftover partial download from
// dir and returns how many artifacts were deleted.
func Clean(dir string) (int, error) {
	artifacts, err := List(dir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, a := range artifacts {
		if err := os.Remove(a.Path); err != nil {
			return removed, &CacheError{Op: "remove", Path: a.Path, Err: err}
		}
		removed++
	}

	parts, err := doublestar.Glob(os.DirFS(dir), version.ArtifactGlob+".*.part")
	if err != nil {
		return removed, fmt.Errorf("failed to list partial downloads in %s: %w", dir, err)
	}
	for _, p := range parts {
		path := filepath.Join(dir, filepath.FromSlash(p))
		if err := os.Remove(path); err != nil {
			return removed, &CacheError{Op: "remove", Path: path, Err: err}
		}
	}

	return removed, nil
}
