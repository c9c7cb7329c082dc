package fetcher_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bebsworthy/startupbench/internal/fetcher"
	"github.com/bebsworthy/startupbench/internal/version"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0600))
	}
}

func TestList_SortsNumerically(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"dd-java-agent-0.10.0.jar",
		"dd-java-agent-0.9.0.jar",
		"dd-java-agent-0.42.0.jar",
		"dd-java-agent-0.43.0.jar.123.part",
		"dd-java-agent-latest.jar",
		"notes.txt",
	)

	artifacts, err := fetcher.List(dir)
	require.NoError(t, err)

	got := make([]version.Version, 0, len(artifacts))
	for _, a := range artifacts {
		got = append(got, a.Version)
	}
	assert.Equal(t, []version.Version{version.Release(9), version.Release(10), version.Release(42)}, got)
	assert.Equal(t, filepath.Join(dir, "dd-java-agent-0.9.0.jar"), artifacts[0].Path)
}

func TestList_MissingDir(t *testing.T) {
	artifacts, err := fetcher.List(filepath.Join(t.TempDir(), "tracers"))
	require.NoError(t, err)
	assert.Empty(t, artifacts)
}

func TestClean(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"dd-java-agent-0.40.0.jar",
		"dd-java-agent-0.41.0.jar",
		"dd-java-agent-0.42.0.jar.999.part",
		"keep.txt",
	)

	removed, err := fetcher.Clean(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	left, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "keep.txt", left[0].Name())
}
