package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"

	"github.com/bebsworthy/startupbench/internal/debug"
	"github.com/bebsworthy/startupbench/pkg/config"
)

// Validator checks a configuration against the local system before a run:
// the JVM tools must be installed and referenced files must exist.
type Validator struct {
	// CheckCommands indicates whether to validate command existence in PATH
	CheckCommands bool

	// LookPath resolves a command name; exec.LookPath when nil.
	LookPath func(file string) (string, error)
}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{
		CheckCommands: true,
		LookPath:      exec.LookPath,
	}
}

// Validate performs config.Validate and the system checks.
func (v *Validator) Validate(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if v.CheckCommands {
		if err := v.checkCommandExists(cfg.Java.Command); err != nil {
			return fmt.Errorf("java: %w", err)
		}
		// javac is only needed to build the embedded loader
		if cfg.Java.LoaderClasspath == "" {
			if err := v.checkCommandExists(cfg.Java.Javac); err != nil {
				return fmt.Errorf("javac: %w", err)
			}
		}
	}

	if cfg.Verify.Keyring != "" {
		if _, err := os.Stat(cfg.Verify.Keyring); err != nil {
			return fmt.Errorf("keyring %q is not readable: %w", cfg.Verify.Keyring, err)
		}
	}

	if info, err := os.Stat(cfg.CacheDir); err == nil && !info.IsDir() {
		return fmt.Errorf("cache directory %q is a file", cfg.CacheDir)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("cache directory %q is not accessible: %w", cfg.CacheDir, err)
	}

	return nil
}

// checkCommandExists verifies that a command exists in PATH
func (v *Validator) checkCommandExists(command string) error {
	// Special handling for commands with paths
	if strings.Contains(command, "/") || strings.Contains(command, "\\") {
		if _, err := os.Stat(command); err == nil {
			return nil
		}
		return fmt.Errorf("command %q not found at specified path", command)
	}

	lookPath := v.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	path, err := lookPath(command)
	if err != nil {
		if runtime.GOOS == "windows" {
			return fmt.Errorf("command %q not found in PATH (did you mean %s.exe?)", command, command)
		}
		return fmt.Errorf("command %q not found in PATH", command)
	}
	debug.Log("Resolved %s to %s", command, path)

	return nil
}

// SuggestFixes provides suggestions for common configuration errors
func (v *Validator) SuggestFixes(err error) []string {
	errStr := err.Error()
	suggestions := []string{}

	if strings.Contains(errStr, "not found in PATH") || strings.Contains(errStr, "not found at specified path") {
		suggestions = append(suggestions,
			"Make sure a JDK is installed and its bin directory is in your PATH",
			"Try running 'which java' (Unix) or 'where java' (Windows) to verify",
		)
		if strings.HasPrefix(errStr, "javac") {
			suggestions = append(suggestions,
				"A JRE has no javac: install a full JDK or set java.loaderClasspath to a prebuilt loader",
			)
		} else {
			suggestions = append(suggestions, "Point java.command at the java binary to benchmark with")
		}
	}

	if strings.Contains(errStr, "keyring") {
		suggestions = append(suggestions,
			"Export the release signing key with 'gpg --export --armor <key id> > keys.asc'",
			"Or remove verify.keyring to skip signature checks",
		)
	}

	if strings.Contains(errStr, "cache directory") {
		suggestions = append(suggestions, "Set cacheDir or --cache-dir to a directory you can write to")
	}

	return suggestions
}
