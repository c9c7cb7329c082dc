// Package debug provides the --debug logger for startupbench.
package debug

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// Logger writes timestamped diagnostic lines when enabled.
type Logger struct {
	mu      sync.Mutex
	enabled bool
	writer  io.Writer
	start   time.Time
}

var globalLogger = &Logger{
	writer: os.Stderr,
}

// Enable turns debug logging on and resets the elapsed-time origin.
func Enable() {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.enabled = true
	globalLogger.start = time.Now()
}

// Disable turns debug logging off.
func Disable() {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.enabled = false
}

// IsEnabled returns whether debug logging is enabled
func IsEnabled() bool {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	return globalLogger.enabled
}

// SetWriter sets the output writer for debug logs
func SetWriter(w io.Writer) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	globalLogger.writer = w
}

// Log writes a debug message if debugging is enabled
func Log(format string, args ...interface{}) {
	globalLogger.mu.Lock()
	defer globalLogger.mu.Unlock()
	if !globalLogger.enabled {
		return
	}

	prefix := fmt.Sprintf("[DEBUG %s] ", formatDuration(time.Since(globalLogger.start)))
	message := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(message, "\n") {
		message += "\n"
	}

	_, _ = fmt.Fprint(globalLogger.writer, prefix+message)
}

// LogSection writes a section header
func LogSection(title string) {
	Log("=== %s ===", title)
}

// LogCommand logs a subprocess command line before it is spawned.
func LogCommand(command string, args []string, workingDir string) {
	if !IsEnabled() {
		return
	}

	Log("Command: %s", command)
	if len(args) > 0 {
		Log("Arguments: %v", args)
	}
	if workingDir != "" {
		Log("Working Directory: %s", workingDir)
	}
}

// LogTiming logs timing information
func LogTiming(operation string, duration time.Duration) {
	Log("Timing: %s took %s", operation, formatDuration(duration))
}

// LogTrial logs the outcome of one benchmark trial.
func LogTrial(version string, index int, duration time.Duration, failed bool) {
	if !IsEnabled() {
		return
	}

	status := "ok"
	if failed {
		status = "failed"
	}
	Log("Trial %d for %s: %s (%s)", index+1, version, formatDuration(duration), status)
}

// LogError logs error details
func LogError(err error, context string) {
	Log("Error in %s: %v", context, err)
}

func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return fmt.Sprintf("%dµs", d.Microseconds())
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.2fs", d.Seconds())
}
