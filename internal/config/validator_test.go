package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bebsworthy/startupbench/pkg/config"
)

func fakeLookPath(found ...string) func(string) (string, error) {
	return func(file string) (string, error) {
		for _, f := range found {
			if f == file {
				return "/usr/bin/" + file, nil
			}
		}
		return "", errors.New("executable file not found in $PATH")
	}
}

func TestValidator_Validate(t *testing.T) {
	dir := t.TempDir()
	keyring := filepath.Join(dir, "keys.asc")
	if err := os.WriteFile(keyring, []byte("key"), 0600); err != nil {
		t.Fatal(err)
	}
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, nil, 0600); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name    string
		modify  func(cfg *config.Config)
		found   []string
		wantErr bool
		errMsg  string
	}{
		{
			name:  "valid config",
			found: []string{"java", "javac"},
		},
		{
			name:    "java missing",
			found:   []string{"javac"},
			wantErr: true,
			errMsg:  `java: command "java" not found in PATH`,
		},
		{
			name:    "javac missing",
			found:   []string{"java"},
			wantErr: true,
			errMsg:  `javac: command "javac" not found in PATH`,
		},
		{
			name:   "javac not needed with prebuilt loader",
			modify: func(cfg *config.Config) { cfg.Java.LoaderClasspath = "/opt/loader" },
			found:  []string{"java"},
		},
		{
			name:    "java path missing",
			modify:  func(cfg *config.Config) { cfg.Java.Command = filepath.Join(dir, "jdk", "bin", "java") },
			found:   []string{"javac"},
			wantErr: true,
			errMsg:  "not found at specified path",
		},
		{
			name:   "keyring present",
			modify: func(cfg *config.Config) { cfg.Verify.Keyring = keyring },
			found:  []string{"java", "javac"},
		},
		{
			name:    "keyring missing",
			modify:  func(cfg *config.Config) { cfg.Verify.Keyring = filepath.Join(dir, "missing.asc") },
			found:   []string{"java", "javac"},
			wantErr: true,
			errMsg:  "keyring",
		},
		{
			name:    "cache dir is a file",
			modify:  func(cfg *config.Config) { cfg.CacheDir = blocker },
			found:   []string{"java", "javac"},
			wantErr: true,
			errMsg:  "is a file",
		},
		{
			name:    "basic validation runs first",
			modify:  func(cfg *config.Config) { cfg.Trials = 0 },
			wantErr: true,
			errMsg:  "trials must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.CacheDir = filepath.Join(dir, "tracers")
			if tt.modify != nil {
				tt.modify(cfg)
			}

			validator := NewValidator()
			validator.LookPath = fakeLookPath(tt.found...)

			err := validator.Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !strings.Contains(err.Error(), tt.errMsg) {
				t.Errorf("expected error containing %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidator_SkipCommandCheck(t *testing.T) {
	validator := NewValidator()
	validator.CheckCommands = false
	validator.LookPath = fakeLookPath()

	cfg := config.Default()
	cfg.CacheDir = t.TempDir()
	if err := validator.Validate(cfg); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidator_SuggestFixes(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"java", errors.New(`java: command "java" not found in PATH`), "Point java.command"},
		{"javac", errors.New(`javac: command "javac" not found in PATH`), "install a full JDK"},
		{"keyring", errors.New(`keyring "k.asc" is not readable`), "gpg --export"},
		{"cache", errors.New(`cache directory "x" is a file`), "--cache-dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			suggestions := validator.SuggestFixes(tt.err)
			if !strings.Contains(strings.Join(suggestions, "\n"), tt.want) {
				t.Errorf("expected a suggestion containing %q, got %v", tt.want, suggestions)
			}
		})
	}

	if got := validator.SuggestFixes(errors.New("something else")); len(got) != 0 {
		t.Errorf("expected no suggestions, got %v", got)
	}
}
