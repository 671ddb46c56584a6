// Package executor runs user-supplied Python snippets in a subprocess with
// a hard timeout.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const defaultTimeout = 5 * time.Second

// Result captures one execution.
type Result struct {
	Output  string
	Error   string
	Success bool
}

// Executor shells out to a Python interpreter with bounded run time.
type Executor struct {
	interpreter string
	timeout     time.Duration
}

// New builds an executor. Zero or negative timeout falls back to the default,
// an empty interpreter falls back to python3.
func New(interpreter string, timeout time.Duration) *Executor {
	if interpreter == "" {
		interpreter = "python3"
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Executor{interpreter: interpreter, timeout: timeout}
}

// Available reports whether the configured interpreter can be found.
func (e *Executor) Available() bool {
	_, err := exec.LookPath(e.interpreter)
	return err == nil
}

// Execute runs the snippet and returns its captured output. A timeout or a
// non-zero exit is reported in Result.Error with Success false; err is
// reserved for failures to launch the interpreter at all.
func (e *Executor) Execute(ctx context.Context, snippet string) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.interpreter, "-c", snippet)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{Output: stdout.String()}
	switch {
	case err == nil:
		result.Error = stderr.String()
		result.Success = true
	case ctx.Err() == context.DeadlineExceeded:
		result.Error = fmt.Sprintf("Execution Timeout: Code took too long to run (> %s)", e.timeout)
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.Error = stderr.String()
			if result.Error == "" {
				result.Error = err.Error()
			}
		} else {
			return result, fmt.Errorf("launch %s: %w", e.interpreter, err)
		}
	}
	return result, nil
}
