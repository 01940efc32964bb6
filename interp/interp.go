// Package interp runs K source through an external K interpreter and parses its output. The interpreter is treated
// as a black box: sources are handed to it as files and errors are recovered from its stderr.
package interp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// DefaultPath is where a K interpreter is conventionally installed.
const DefaultPath = "/usr/local/bin/k"

const defaultTimeout = 5 * time.Second

// Interpreter invokes a K interpreter binary.
type Interpreter struct {
	path    string
	timeout time.Duration
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithTimeout sets how long a single interpreter invocation may run before it's killed.
func WithTimeout(timeout time.Duration) Option {
	return func(i *Interpreter) {
		i.timeout = timeout
	}
}

// New returns an Interpreter which invokes the binary at path. If path is empty, DefaultPath is used.
func New(path string, opts ...Option) *Interpreter {
	if path == "" {
		path = DefaultPath
	}
	i := &Interpreter{path: path, timeout: defaultTimeout}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Path returns the path of the interpreter binary.
func (i *Interpreter) Path() string {
	return i.path
}

// Issue is a problem that the interpreter reported in a source file.
type Issue struct {
	// Line is the zero-based line of the issue.
	Line int
	// Col is the zero-based column of the issue, in bytes.
	Col int
	Msg string
}

// Check runs src through the interpreter and returns the issues it reported. A clean exit returns no issues. An
// error is only returned when the interpreter couldn't be invoked at all.
func (i *Interpreter) Check(ctx context.Context, src string) ([]Issue, error) {
	_, stderr, exitCode, err := i.exec(ctx, src)
	if err != nil {
		return nil, err
	}
	if exitCode == 0 {
		return nil, nil
	}
	return []Issue{ParseStderr(src, stderr)}, nil
}

// Run evaluates src and returns the interpreter's stdout and stderr.
func (i *Interpreter) Run(ctx context.Context, src string) (stdout, stderr string, err error) {
	stdout, stderr, _, err = i.exec(ctx, src)
	return stdout, stderr, err
}

// exec writes src to a temporary file and invokes the interpreter on it. err is only non-nil when the interpreter
// couldn't be run, not when it exits non-zero.
func (i *Interpreter) exec(ctx context.Context, src string) (stdout, stderr string, exitCode int, err error) {
	f, err := os.CreateTemp("", "klsp-*.k")
	if err != nil {
		return "", "", 0, fmt.Errorf("running %s: %w", i.path, err)
	}
	defer os.Remove(f.Name())
	if _, err := f.WriteString(src); err != nil {
		f.Close()
		return "", "", 0, fmt.Errorf("running %s: %w", i.path, err)
	}
	if err := f.Close(); err != nil {
		return "", "", 0, fmt.Errorf("running %s: %w", i.path, err)
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	cmd := exec.CommandContext(ctx, i.path, f.Name())
	var outBuf, errBuf strings.Builder
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", "", 0, fmt.Errorf("running %s: %w", i.path, ctx.Err())
		}
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return "", "", 0, fmt.Errorf("running %s: %w", i.path, err)
		}
		exitCode = exitErr.ExitCode()
	}
	return outBuf.String(), errBuf.String(), exitCode, nil
}

// ParseStderr recovers a position from the interpreter's error output. The interpreter echoes the offending source
// line followed by a caret line marking the column, so the line is found by matching the echo against src and the
// column by the caret's offset. Either may be missing, in which case it stays 0.
func ParseStderr(src, stderr string) Issue {
	issue := Issue{Msg: "Syntax error at: " + strings.TrimRight(stderr, "\n")}
	srcLines := strings.Split(src, "\n")
	for _, errLine := range strings.Split(stderr, "\n") {
		if col := strings.Index(errLine, "^"); col >= 0 && strings.TrimRight(errLine[:col], " ") == "" {
			issue.Col = col
			continue
		}
		trimmed := strings.TrimSpace(errLine)
		if trimmed == "" || strings.HasPrefix(trimmed, "'parse") {
			continue
		}
		for n, srcLine := range srcLines {
			if strings.TrimSpace(srcLine) == trimmed {
				issue.Line = n
				break
			}
		}
	}
	return issue
}
