// Package executor runs external commands for startupbench.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/bebsworthy/startupbench/internal/debug"
)

// ExecOptions defines options for command execution
type ExecOptions struct {
	// Working directory for the command
	WorkingDir string
	// Environment variables (in KEY=VALUE format)
	Environment []string
	// Timeout for command execution. Zero means the executor default for
	// Execute and no limit for ExecuteWithStreaming.
	Timeout time.Duration
	// Whether to inherit parent process environment
	InheritEnv bool
}

// ExecResult contains the result of command execution
type ExecResult struct {
	// Standard output, empty when streamed
	Stdout string
	// Standard error, empty when streamed
	Stderr string
	// Exit code of the command, -1 when it did not run to completion
	ExitCode int
	// Whether the command timed out
	TimedOut bool
	// Wall-clock time from just before spawn until exit or failure
	Duration time.Duration
	// Error if the command failed to start, was killed, or could not be waited on
	Error error
}

// Failed reports whether the run should count as a failure.
func (r *ExecResult) Failed() bool {
	return r.Error != nil || r.TimedOut || r.ExitCode != 0
}

// CommandExecutor executes external commands
type CommandExecutor struct {
	// Default timeout for Execute if not specified
	defaultTimeout time.Duration
}

// NewCommandExecutor creates a new command executor
func NewCommandExecutor(defaultTimeout time.Duration) *CommandExecutor {
	if defaultTimeout <= 0 {
		defaultTimeout = 2 * time.Minute
	}
	return &CommandExecutor{
		defaultTimeout: defaultTimeout,
	}
}

// Execute runs a command to completion and captures its output
func (e *CommandExecutor) Execute(ctx context.Context, command string, args []string, options ExecOptions) (*ExecResult, error) {
	if options.Timeout <= 0 {
		options.Timeout = e.defaultTimeout
	}

	var stdoutBuf, stderrBuf bytes.Buffer
	result, err := e.run(ctx, command, args, options, &stdoutBuf, &stderrBuf)
	if err != nil {
		return nil, err
	}
	result.Stdout = stdoutBuf.String()
	result.Stderr = stderrBuf.String()
	return result, nil
}

// ExecuteWithStreaming runs a command with its output passed straight
// through to the provided writers. Nothing is captured. A nil writer
// discards that stream.
func (e *CommandExecutor) ExecuteWithStreaming(ctx context.Context, command string, args []string, options ExecOptions, stdoutWriter, stderrWriter io.Writer) (*ExecResult, error) {
	return e.run(ctx, command, args, options, stdoutWriter, stderrWriter)
}

// run returns an error only for invalid input; failures of the command
// itself are reported in ExecResult.
func (e *CommandExecutor) run(ctx context.Context, command string, args []string, options ExecOptions, stdout, stderr io.Writer) (*ExecResult, error) {
	if command == "" {
		return nil, fmt.Errorf("command cannot be empty")
	}

	cancel := func() {}
	if options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
	}
	defer cancel()

	cmd := exec.CommandContext(ctx, command, args...)

	if options.WorkingDir != "" {
		absPath, err := filepath.Abs(options.WorkingDir)
		if err != nil {
			return nil, &ExecError{Type: ErrorTypeWorkingDirectory, Command: command, Args: args, Err: err, Details: err.Error()}
		}
		if _, err := os.Stat(absPath); err != nil {
			return nil, &ExecError{Type: ErrorTypeWorkingDirectory, Command: command, Args: args, Err: err, Details: absPath + " is not accessible"}
		}
		cmd.Dir = absPath
	}

	if env := e.prepareEnvironment(options); len(env) > 0 {
		cmd.Env = env
	}

	cmd.Stdout = stdout
	cmd.Stderr = stderr

	debug.LogCommand(command, args, cmd.Dir)

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return &ExecResult{
			ExitCode: -1,
			Duration: time.Since(start),
			Error:    ClassifyError(err, command, args),
		}, nil
	}

	waitErr := cmd.Wait()
	result := &ExecResult{Duration: time.Since(start)}

	switch {
	case errors.Is(ctx.Err(), context.DeadlineExceeded):
		result.TimedOut = true
		result.ExitCode = -1
		result.Error = &ExecError{Type: ErrorTypeTimeout, Command: command, Args: args, Err: context.DeadlineExceeded}
		return result, nil
	case errors.Is(ctx.Err(), context.Canceled):
		result.ExitCode = -1
		result.Error = &ExecError{Type: ErrorTypeCanceled, Command: command, Args: args, Err: context.Canceled}
		return result, nil
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			result.ExitCode = -1
			result.Error = ClassifyError(waitErr, command, args)
			return result, nil
		}
		result.ExitCode = exitErr.ExitCode()
	}

	return result, nil
}

// prepareEnvironment merges the inherited and explicit environment.
func (e *CommandExecutor) prepareEnvironment(options ExecOptions) []string {
	if !options.InheritEnv && len(options.Environment) == 0 {
		return nil
	}

	var base []string
	if options.InheritEnv {
		base = os.Environ()
	}

	envMap := make(map[string]string)
	order := make([]string, 0, len(base)+len(options.Environment))
	for _, kv := range append(base, options.Environment...) {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		if _, seen := envMap[key]; !seen {
			order = append(order, key)
		}
		envMap[key] = value
	}

	env := make([]string, 0, len(order))
	for _, k := range order {
		env = append(env, k+"="+envMap[k])
	}
	return env
}
