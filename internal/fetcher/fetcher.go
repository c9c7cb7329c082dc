// Package fetcher downloads dd-java-agent releases into a local cache
// directory, scanning upward from a minimum version until the repository
// reports that a version does not exist.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bebsworthy/startupbench/internal/debug"
	"github.com/bebsworthy/startupbench/internal/version"
)

// Unbounded lets EnsureArtifacts scan until a version is missing. Any
// negative maximum behaves the same.
const Unbounded = -1

// ErrVersionNotFound is returned by a Source when the requested version
// does not exist. The fetcher takes it as the end of the release series.
var ErrVersionNotFound = errors.New("version not found")

// Source retrieves artifact content. It is the only place that decides
// whether a version is available.
type Source interface {
	// Fetch streams the artifact for v into w. It returns an error wrapping
	// ErrVersionNotFound when the version does not exist.
	Fetch(ctx context.Context, v version.Version, w io.Writer) error
}

//go:generate go tool mockgen -source=fetcher.go -destination=mocks/fetcher.go -package=mocks

// Verifier checks a downloaded artifact before it is admitted to the cache.
type Verifier interface {
	Verify(ctx context.Context, v version.Version, path string) error
}

// StopReason explains why a scan ended.
type StopReason int

const (
	// StopMaxReached means every version up to the bound was satisfied.
	StopMaxReached StopReason = iota
	// StopNotFound means the source reported a missing version.
	StopNotFound
	// StopFetchFailed means a download or verification failed.
	StopFetchFailed
)

func (r StopReason) String() string {
	switch r {
	case StopMaxReached:
		return "max version reached"
	case StopNotFound:
		return "version not found"
	case StopFetchFailed:
		return "download failed"
	}
	return "unknown"
}

// Summary describes the outcome of EnsureArtifacts.
type Summary struct {
	Downloaded  []version.Version
	Cached      []version.Version
	Stop        StopReason
	StopVersion version.Version
	StopErr     error
}

// CacheError is a local file system failure while populating the cache.
// Unlike network failures it aborts the scan with an error.
type CacheError struct {
	Op   string
	Path string
	Err  error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// VerifyError is a downloaded artifact rejected by a Verifier. A missing
// sidecar file surfaces here too, so it is never taken as the end of the
// release series.
type VerifyError struct {
	Version version.Version
	Err     error
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("verification of %s failed: %v", e.Version, e.Err)
}

func (e *VerifyError) Unwrap() error {
	return e.Err
}

// Fetcher populates the artifact cache directory.
type Fetcher struct {
	dir       string
	source    Source
	verifiers []Verifier
	out       io.Writer
}

// New creates a fetcher writing into dir. Progress lines go to out.
func New(dir string, source Source, out io.Writer, verifiers ...Verifier) *Fetcher {
	if out == nil {
		out = io.Discard
	}
	return &Fetcher{
		dir:       dir,
		source:    source,
		verifiers: verifiers,
		out:       out,
	}
}

// Dir returns the cache directory.
func (f *Fetcher) Dir() string {
	return f.dir
}

// EnsureArtifacts makes sure 0.<v>.0 is cached for every v from minVersion
// upward, up to maxVersion inclusive unless it is negative. Cached files
// are never downloaded again. The scan halts at the first version the
// source cannot deliver; that is reported in the Summary, not as an error.
// Only cache directory failures and cancellation are returned as errors.
func (f *Fetcher) EnsureArtifacts(ctx context.Context, minVersion, maxVersion int) (*Summary, error) {
	debug.LogSection("Artifact Fetch")
	debug.Log("Scanning versions %d..%d into %s", minVersion, maxVersion, f.dir)

	if err := os.MkdirAll(f.dir, 0750); err != nil {
		return nil, &CacheError{Op: "create", Path: f.dir, Err: err}
	}

	summary := &Summary{Stop: StopMaxReached}
	for minor := minVersion; maxVersion < 0 || minor <= maxVersion; minor++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		v := version.Release(minor)
		dest := filepath.Join(f.dir, v.FileName())

		if _, err := os.Stat(dest); err == nil {
			fprintf(f.out, "Already downloaded tracer %s\n", v)
			summary.Cached = append(summary.Cached, v)
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return summary, &CacheError{Op: "stat", Path: dest, Err: err}
		}

		fprintf(f.out, "Downloading tracer %s... to %s\n", v, dest)
		err := f.download(ctx, v, dest)

		var cacheErr *CacheError
		var verifyErr *VerifyError
		switch {
		case err == nil:
			summary.Downloaded = append(summary.Downloaded, v)
			continue
		case errors.As(err, &cacheErr):
			return summary, err
		case ctx.Err() != nil:
			return summary, ctx.Err()
		case errors.Is(err, ErrVersionNotFound) && !errors.As(err, &verifyErr):
			fprintf(f.out, "No version %s found, will stop looking as this was probably the latest version\n", v)
			summary.Stop = StopNotFound
		default:
			fprintf(f.out, "No version %s could be downloaded, will stop looking as this was probably the latest version\n", v)
			summary.Stop = StopFetchFailed
		}
		debug.LogError(err, "fetching "+v.String())
		summary.StopVersion = v
		summary.StopErr = err
		return summary, nil
	}

	return summary, nil
}

// download writes v to a temporary file in the cache directory and moves it
// into place only after it was fully received and verified.
func (f *Fetcher) download(ctx context.Context, v version.Version, dest string) error {
	tmp, err := os.CreateTemp(f.dir, v.FileName()+".*.part")
	if err != nil {
		return &CacheError{Op: "create", Path: dest, Err: err}
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpPath) //nolint:errcheck
		}
	}()

	if err := f.source.Fetch(ctx, v, tmp); err != nil {
		_ = tmp.Close() //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		return &CacheError{Op: "write", Path: tmpPath, Err: err}
	}

	for _, verifier := range f.verifiers {
		if err := verifier.Verify(ctx, v, tmpPath); err != nil {
			return &VerifyError{Version: v, Err: err}
		}
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		return &CacheError{Op: "rename", Path: dest, Err: err}
	}
	committed = true
	return nil
}

func fprintf(w io.Writer, format string, a ...interface{}) {
	_, _ = fmt.Fprintf(w, format, a...) //nolint:errcheck
}
