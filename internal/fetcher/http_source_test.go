package fetcher

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bebsworthy/startupbench/internal/version"
)

func newRepository(t *testing.T, files map[string]string) (*httptest.Server, *[]string) {
	t.Helper()
	var requested []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requested = append(requested, r.URL.Path)
		if r.Header.Get("User-Agent") != "startupbench/test" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &requested
}

func TestHTTPSource_URL(t *testing.T) {
	s := NewHTTPSource("https://repo1.maven.org/maven2/", 20*time.Second, "")
	assert.Equal(t,
		"https://repo1.maven.org/maven2/com/datadoghq/dd-java-agent/0.42.0/dd-java-agent-0.42.0.jar",
		s.URL(version.Release(42)))
}

func TestHTTPSource_Fetch(t *testing.T) {
	srv, requested := newRepository(t, map[string]string{
		"/com/datadoghq/dd-java-agent/0.40.0/dd-java-agent-0.40.0.jar": "jar-40",
	})
	s := NewHTTPSource(srv.URL, time.Second, "startupbench/test")

	var buf bytes.Buffer
	require.NoError(t, s.Fetch(context.Background(), version.Release(40), &buf))
	assert.Equal(t, "jar-40", buf.String())

	err := s.Fetch(context.Background(), version.Release(41), &buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrVersionNotFound))
	assert.Len(t, *requested, 2)
}

func TestHTTPSource_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewHTTPSource(srv.URL, time.Second, "").Fetch(context.Background(), version.Release(40), &bytes.Buffer{})
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.False(t, errors.Is(err, ErrVersionNotFound))
}

func TestHTTPSource_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := NewHTTPSource(url, time.Second, "").Fetch(context.Background(), version.Release(40), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP request failed")
	assert.False(t, errors.Is(err, ErrVersionNotFound))
}

func TestHTTPSource_Sidecar(t *testing.T) {
	srv, _ := newRepository(t, map[string]string{
		"/com/datadoghq/dd-java-agent/0.40.0/dd-java-agent-0.40.0.jar.sha1": "abc123  dd-java-agent-0.40.0.jar\n",
	})
	s := NewHTTPSource(srv.URL, time.Second, "startupbench/test")

	data, err := s.Sidecar(context.Background(), version.Release(40), ".sha1")
	require.NoError(t, err)
	assert.Equal(t, "abc123  dd-java-agent-0.40.0.jar\n", string(data))

	_, err = s.Sidecar(context.Background(), version.Release(40), ".asc")
	assert.True(t, errors.Is(err, ErrVersionNotFound))
}

func TestHTTPSource_MissingChecksumStopsAsFetchFailure(t *testing.T) {
	srv, _ := newRepository(t, map[string]string{
		"/com/datadoghq/dd-java-agent/0.40.0/dd-java-agent-0.40.0.jar": "jar-40",
	})
	source := NewHTTPSource(srv.URL, time.Second, "startupbench/test")
	dir := t.TempDir()

	var out bytes.Buffer
	summary, err := New(dir, source, &out, NewChecksumVerifier(source)).EnsureArtifacts(context.Background(), 40, Unbounded)
	require.NoError(t, err)

	assert.Equal(t, StopFetchFailed, summary.Stop)
	assert.Equal(t, version.Release(40), summary.StopVersion)
	var verifyErr *VerifyError
	assert.ErrorAs(t, summary.StopErr, &verifyErr)
	assert.Contains(t, out.String(), "No version 0.40.0 could be downloaded")
	assert.NotContains(t, out.String(), "No version 0.40.0 found")
	assert.NoFileExists(t, filepath.Join(dir, "dd-java-agent-0.40.0.jar"))
}
