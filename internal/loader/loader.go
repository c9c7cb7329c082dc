// Package loader prepares the Java entry point that force-loads the
// classes of the target jar inside each benchmark subprocess.
package loader

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bebsworthy/startupbench/internal/debug"
	"github.com/bebsworthy/startupbench/internal/executor"
)

// MainClass is the fully-qualified name of the embedded entry point.
const MainClass = "startupbench.LoadClasses"

//go:embed java/LoadClasses.java
var source []byte

// Source returns the Java source of the entry point.
func Source() []byte {
	return bytes.Clone(source)
}

// Executor runs a command to completion and captures its output.
type Executor interface {
	Execute(ctx context.Context, command string, args []string, options executor.ExecOptions) (*executor.ExecResult, error)
}

// Loader compiles the embedded entry point into a cache directory.
type Loader struct {
	javac string
	dir   string
	exec  Executor
}

// New creates a loader that compiles with javac into dir.
func New(javac, dir string, exec Executor) *Loader {
	return &Loader{javac: javac, dir: dir, exec: exec}
}

func (l *Loader) sourcePath() string {
	return filepath.Join(l.dir, "src", filepath.FromSlash(classPath(".java")))
}

func (l *Loader) classesDir() string {
	return filepath.Join(l.dir, "classes")
}

func (l *Loader) classFile() string {
	return filepath.Join(l.classesDir(), filepath.FromSlash(classPath(".class")))
}

func classPath(ext string) string {
	return strings.ReplaceAll(MainClass, ".", "/") + ext
}

// Prepare makes sure the compiled entry point exists and returns the
// class path directory that contains it. Compilation is skipped when the
// class file is present and was built from the current source.
func (l *Loader) Prepare(ctx context.Context) (string, error) {
	debug.LogSection("Loader Preparation")

	if l.upToDate() {
		debug.Log("Loader already compiled at %s", l.classFile())
		return l.classesDir(), nil
	}

	if err := os.MkdirAll(filepath.Dir(l.sourcePath()), 0750); err != nil {
		return "", fmt.Errorf("failed to create loader source directory: %w", err)
	}
	if err := os.MkdirAll(l.classesDir(), 0750); err != nil {
		return "", fmt.Errorf("failed to create loader classes directory: %w", err)
	}
	if err := os.WriteFile(l.sourcePath(), source, 0600); err != nil {
		return "", fmt.Errorf("failed to write loader source: %w", err)
	}

	args := []string{"-d", l.classesDir(), l.sourcePath()}
	result, err := l.exec.Execute(ctx, l.javac, args, executor.ExecOptions{InheritEnv: true})
	if err != nil {
		return "", fmt.Errorf("failed to compile loader: %w", err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("failed to compile loader: %w", result.Error)
	}
	if result.ExitCode != 0 {
		return "", fmt.Errorf("failed to compile loader: %s exited with %d: %s",
			l.javac, result.ExitCode, strings.TrimSpace(result.Stderr))
	}
	debug.LogTiming("loader compilation", result.Duration)

	if _, err := os.Stat(l.classFile()); err != nil {
		return "", fmt.Errorf("loader compiled but %s is missing: %w", l.classFile(), err)
	}
	return l.classesDir(), nil
}

func (l *Loader) upToDate() bool {
	if _, err := os.Stat(l.classFile()); err != nil {
		return false
	}
	existing, err := os.ReadFile(l.sourcePath())
	if err != nil {
		return false
	}
	return bytes.Equal(existing, source)
}
