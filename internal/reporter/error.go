package reporter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bebsworthy/startupbench/internal/bench"
	"github.com/bebsworthy/startupbench/internal/executor"
	"github.com/bebsworthy/startupbench/internal/fetcher"
)

// Exit codes of the CLI.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// ErrorReport is the user-facing rendering of a fatal error.
type ErrorReport struct {
	ExitCode int
	Stderr   string
}

// ErrorReporter formats fatal errors with a hint on how to fix them.
type ErrorReporter struct {
	program string
}

// NewErrorReporter creates an error reporter for the named program.
func NewErrorReporter(program string) *ErrorReporter {
	return &ErrorReporter{program: program}
}

// Report renders err. Context cancellation is reported without a hint.
func (r *ErrorReporter) Report(err error) *ErrorReport {
	if err == nil {
		return &ErrorReport{ExitCode: ExitOK}
	}

	var msg strings.Builder
	fmt.Fprintf(&msg, "[STARTUPBENCH ERROR] %v\n", err) //nolint:errcheck

	if hint := r.hint(err); hint != "" {
		fmt.Fprintf(&msg, "Fix: %s\n", hint) //nolint:errcheck
	}
	fmt.Fprintf(&msg, "\nDebug with: %s --debug ...", r.program) //nolint:errcheck

	return &ErrorReport{ExitCode: ExitError, Stderr: msg.String()}
}

func (r *ErrorReporter) hint(err error) string {
	var execErr *executor.ExecError
	if errors.As(err, &execErr) {
		return execHint(execErr)
	}

	var cacheErr *fetcher.CacheError
	switch {
	case errors.Is(err, bench.ErrNoArtifacts):
		return fmt.Sprintf("download agent versions first with '%s fetch' or drop --skip-fetch", r.program)
	case errors.As(err, &cacheErr):
		return "check that the cache directory is writable, or set cacheDir in the configuration"
	case strings.Contains(err.Error(), "unreadable artifact"):
		return fmt.Sprintf("remove the broken file or run '%s cache clean' and fetch again", r.program)
	}
	return ""
}

func execHint(execErr *executor.ExecError) string {
	switch execErr.Type {
	case executor.ErrorTypeCommandNotFound:
		return fmt.Sprintf("the command '%s' is not installed or not in PATH; install a JDK or set java.command", execErr.Command)
	case executor.ErrorTypePermissionDenied:
		return fmt.Sprintf("check the permissions of '%s'", execErr.Command)
	case executor.ErrorTypeTimeout:
		return "increase trialTimeout in the configuration or pass --timeout"
	case executor.ErrorTypeWorkingDirectory:
		return "ensure the working directory exists and is accessible"
	}
	return ""
}
