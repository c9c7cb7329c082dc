package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/AlecAivazis/survey/v2"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/bebsworthy/startupbench/internal/bench"
	"github.com/bebsworthy/startupbench/internal/config"
	"github.com/bebsworthy/startupbench/internal/debug"
	"github.com/bebsworthy/startupbench/internal/executor"
	"github.com/bebsworthy/startupbench/internal/fetcher"
	pkgconfig "github.com/bebsworthy/startupbench/pkg/config"
)

// artifactSource downloads artifacts and their sidecar files.
type artifactSource interface {
	fetcher.Source
	fetcher.Sidecars
}

// commandExecutor runs both captured (javac) and streamed (java) commands.
type commandExecutor interface {
	Execute(ctx context.Context, command string, args []string, options executor.ExecOptions) (*executor.ExecResult, error)
	ExecuteWithStreaming(ctx context.Context, command string, args []string, options executor.ExecOptions, stdout, stderr io.Writer) (*executor.ExecResult, error)
}

// env carries the process level dependencies of the commands. The working
// directory is resolved once at startup and every relative path is taken
// against it.
type env struct {
	stdout     io.Writer
	stderr     io.Writer
	workingDir string
	getenv     func(string) string
	lookPath   func(string) (string, error)

	newSource  func(cfg *pkgconfig.Config) artifactSource
	exec       commandExecutor
	hostLoad   bench.LoadFunc
	isTerminal func() bool
	confirm    func(message string) (bool, error)
}

func newEnv() (*env, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	return &env{
		stdout:     os.Stdout,
		stderr:     os.Stderr,
		workingDir: wd,
		getenv:     os.Getenv,
		lookPath:   exec.LookPath,
		newSource: func(cfg *pkgconfig.Config) artifactSource {
			return fetcher.NewHTTPSource(cfg.Repository, cfg.ConnectTimeoutDuration(), "startupbench/"+Version)
		},
		exec:     executor.NewCommandExecutor(0),
		hostLoad: bench.ReadHostLoad,
		isTerminal: func() bool {
			return term.IsTerminal(int(os.Stdin.Fd()))
		},
		confirm: func(message string) (bool, error) {
			ok := false
			prompt := &survey.Confirm{Message: message, Default: false}
			if err := survey.AskOne(prompt, &ok); err != nil {
				return false, err
			}
			return ok, nil
		},
	}, nil
}

// resolve makes path absolute relative to the working directory.
func (e *env) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(e.workingDir, path)
}

// loadConfig loads the configuration file and applies the global flags.
func loadConfig(e *env, global *globalOptions) (*pkgconfig.Config, error) {
	loader := config.NewLoader(e.workingDir)
	loader.Getenv = e.getenv

	var cfg *pkgconfig.Config
	var err error
	if global.configPath != "" {
		cfg, err = loader.LoadFromPath(e.resolve(global.configPath))
	} else {
		cfg, err = loader.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if global.cacheDir != "" {
		cfg.CacheDir = global.cacheDir
	}
	cfg.CacheDir = e.resolve(cfg.CacheDir)
	cfg.Java.LoaderDir = e.resolve(cfg.Java.LoaderDir)
	cfg.Verify.Keyring = e.resolve(cfg.Verify.Keyring)
	return cfg, nil
}

// preflight checks cfg against the local system and prints suggestions
// when a check fails. needJava enables the JDK tool checks.
func preflight(e *env, cfg *pkgconfig.Config, needJava bool) error {
	validator := config.NewValidator()
	validator.CheckCommands = needJava
	validator.LookPath = e.lookPath

	if err := validator.Validate(cfg); err != nil {
		for _, suggestion := range validator.SuggestFixes(err) {
			_, _ = fmt.Fprintf(e.stderr, "  - %s\n", suggestion) //nolint:errcheck
		}
		return err
	}
	return nil
}

// versionRange holds the optional [min] [max] positional arguments. Absent
// values are left to the configuration.
type versionRange struct {
	min, max       int
	hasMin, hasMax bool
}

func parseVersionRange(args []string) (versionRange, error) {
	var r versionRange
	if len(args) > 2 {
		return r, usagef("%s", usageLine)
	}

	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			return r, usagef("invalid min tracer version %q\n%s", args[0], usageLine)
		}
		r.min, r.hasMin = n, true
	}
	if len(args) > 1 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n < 0 {
			return r, usagef("invalid max tracer version %q\n%s", args[1], usageLine)
		}
		if n < r.min {
			return r, usagef("max tracer version %d is below min tracer version %d", n, r.min)
		}
		r.max, r.hasMax = n, true
	}
	return r, nil
}

// apply overrides the configured range with the positional arguments.
func (r versionRange) apply(cfg *pkgconfig.Config) {
	if r.hasMin {
		cfg.MinVersion = r.min
		if !r.hasMax && cfg.MaxVersion != pkgconfig.Unbounded && cfg.MaxVersion < r.min {
			cfg.MaxVersion = pkgconfig.Unbounded
		}
	}
	if r.hasMax {
		cfg.MaxVersion = r.max
	}
}

// newFetcher builds the fetcher for cfg, including the configured verifiers.
func newFetcher(e *env, cfg *pkgconfig.Config) (*fetcher.Fetcher, error) {
	source := e.newSource(cfg)

	var verifiers []fetcher.Verifier
	if cfg.Verify.Checksums {
		verifiers = append(verifiers, fetcher.NewChecksumVerifier(source))
	}
	if cfg.Verify.Keyring != "" {
		sig, err := fetcher.NewSignatureVerifier(source, cfg.Verify.Keyring)
		if err != nil {
			return nil, err
		}
		debug.Log("Loaded %d signing keys from %s", sig.KeyCount(), cfg.Verify.Keyring)
		verifiers = append(verifiers, sig)
	}

	return fetcher.New(cfg.CacheDir, source, e.stdout, verifiers...), nil
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usagef("usage: %s", usage)
		}
		return nil
	}
}

// maxArgs is cobra.MaximumNArgs reporting a usage error.
func maxArgs(n int, usage string) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) > n {
			return usagef("usage: %s", usage)
		}
		return nil
	}
}
