package fetcher

import (
	"bytes"
	"context"
	"crypto/sha1" // #nosec G505 - Maven Central publishes SHA-1 sidecars
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"

	"github.com/bebsworthy/startupbench/internal/version"
)

// ErrChecksumMismatch is returned when a download does not match its published digest.
var ErrChecksumMismatch = errors.New("checksum mismatch")

// Sidecars fetches companion files published next to an artifact.
type Sidecars interface {
	Sidecar(ctx context.Context, v version.Version, ext string) ([]byte, error)
}

// ChecksumVerifier compares a download against the repository's .sha1 file.
type ChecksumVerifier struct {
	sidecars Sidecars
}

// NewChecksumVerifier creates a verifier backed by sidecars.
func NewChecksumVerifier(sidecars Sidecars) *ChecksumVerifier {
	return &ChecksumVerifier{sidecars: sidecars}
}

// Verify implements Verifier.
func (c *ChecksumVerifier) Verify(ctx context.Context, v version.Version, path string) error {
	published, err := c.sidecars.Sidecar(ctx, v, ".sha1")
	if err != nil {
		return fmt.Errorf("failed to fetch checksum: %w", err)
	}
	fields := strings.Fields(string(published))
	if len(fields) == 0 {
		return fmt.Errorf("empty checksum file for %s", v)
	}
	expected := strings.ToLower(fields[0])

	actual, err := fileSHA1(path)
	if err != nil {
		return err
	}
	if actual != expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, expected, actual)
	}
	return nil
}

func fileSHA1(path string) (string, error) {
	// #nosec G304 - path is a download in the cache directory
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck

	h := sha1.New() // #nosec G401
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// SignatureVerifier checks the detached OpenPGP signature (.asc) of a
// download against a local keyring.
type SignatureVerifier struct {
	sidecars Sidecars
	keyring  openpgp.EntityList
}

// NewSignatureVerifier loads an armored or binary public keyring from keyringPath.
func NewSignatureVerifier(sidecars Sidecars, keyringPath string) (*SignatureVerifier, error) {
	// #nosec G304 - keyring path is chosen by the user
	data, err := os.ReadFile(keyringPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read keyring: %w", err)
	}

	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		keyring, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to parse keyring %s: %w", keyringPath, err)
		}
	}
	if len(keyring) == 0 {
		return nil, fmt.Errorf("keyring %s contains no keys", keyringPath)
	}

	return &SignatureVerifier{sidecars: sidecars, keyring: keyring}, nil
}

// KeyCount returns the number of keys in the keyring.
func (s *SignatureVerifier) KeyCount() int {
	return len(s.keyring)
}

// Verify implements Verifier.
func (s *SignatureVerifier) Verify(ctx context.Context, v version.Version, path string) error {
	sig, err := s.sidecars.Sidecar(ctx, v, ".asc")
	if err != nil {
		return fmt.Errorf("failed to fetch signature: %w", err)
	}

	// #nosec G304 - path is a download in the cache directory
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck

	if _, err := openpgp.CheckArmoredDetachedSignature(s.keyring, f, bytes.NewReader(sig), nil); err != nil {
		return fmt.Errorf("signature check failed: %w", err)
	}
	return nil
}
