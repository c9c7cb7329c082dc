package fetcher

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/bebsworthy/startupbench/internal/debug"
	"github.com/bebsworthy/startupbench/internal/version"
)

// GroupPath is the Maven repository path of the dd-java-agent group and artifact.
const GroupPath = "com/datadoghq/dd-java-agent"

// maxSidecarSize caps .sha1 and .asc downloads.
const maxSidecarSize = 64 << 10

// StatusError is returned for HTTP responses other than 200 and 404.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %s", e.URL, e.Status)
}

// HTTPSource downloads artifacts from a Maven repository.
type HTTPSource struct {
	repository string
	userAgent  string
	client     *http.Client
}

// NewHTTPSource creates a source for the Maven repository at repository.
// connectTimeout bounds connection establishment only; transfers are not
// time limited.
func NewHTTPSource(repository string, connectTimeout time.Duration, userAgent string) *HTTPSource {
	dialer := &net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         dialer.DialContext,
		TLSHandshakeTimeout: connectTimeout,
		MaxIdleConns:        2,
		IdleConnTimeout:     90 * time.Second,
	}

	return &HTTPSource{
		repository: strings.TrimRight(repository, "/"),
		userAgent:  userAgent,
		client:     &http.Client{Transport: transport},
	}
}

// URL returns the download location of v.
func (s *HTTPSource) URL(v version.Version) string {
	return fmt.Sprintf("%s/%s/%s/%s", s.repository, GroupPath, v, v.FileName())
}

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context, v version.Version, w io.Writer) error {
	url := s.URL(v)
	start := time.Now()

	body, err := s.get(ctx, url)
	if err != nil {
		return err
	}
	defer func() { _ = body.Close() }() //nolint:errcheck

	written, err := io.Copy(w, body)
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", url, err)
	}
	debug.Log("Downloaded %s (%d bytes)", url, written)
	debug.LogTiming("download of "+v.String(), time.Since(start))
	return nil
}

// Sidecar fetches a small companion file of v such as ".sha1" or ".asc".
func (s *HTTPSource) Sidecar(ctx context.Context, v version.Version, ext string) ([]byte, error) {
	url := s.URL(v) + ext
	body, err := s.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer func() { _ = body.Close() }() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(body, maxSidecarSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}
	return data, nil
}

func (s *HTTPSource) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return resp.Body, nil
	case http.StatusNotFound:
		_ = resp.Body.Close() //nolint:errcheck
		return nil, fmt.Errorf("GET %s: %w", url, ErrVersionNotFound)
	default:
		_ = resp.Body.Close() //nolint:errcheck
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Status: resp.Status}
	}
}
