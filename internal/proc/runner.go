// Package proc runs external commands (the build tool, compiler probes) and
// captures their output as ordered, stream-tagged chunks. Failures carry the
// partial result so callers can match known diagnostics even when the
// command exited non-zero.
package proc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/FractalBrew/geckocpp/internal/errdefs"
	"github.com/FractalBrew/geckocpp/internal/fspath"
)

// Options controls one command run.
type Options struct {
	// Cwd is the working directory. Zero means inherit.
	Cwd fspath.Path
	// Env entries are overlaid on the inherited process environment.
	Env map[string]string
	// LoginShell is the MozillaBuild install root. When set on Windows the
	// command runs through the MozillaBuild login shell and the shell's
	// install-directory banner is stripped from captured stdout.
	LoginShell fspath.Path
}

// Runner executes external commands. The interface exists so folder probing
// and build-tool invocation can be exercised in tests without real binaries.
type Runner interface {
	Run(ctx context.Context, argv []fspath.Arg, opts Options) (*Result, error)
}

// Exec is the Runner backed by os/exec.
type Exec struct{}

// Run executes argv, honoring ctx for cancellation. No timeout is imposed.
// On spawn failure or non-zero exit it returns the partial Result together
// with a *ProcessError carrying the same Result.
func (Exec) Run(ctx context.Context, argv []fspath.Arg, opts Options) (*Result, error) {
	if len(argv) == 0 {
		return nil, errdefs.New(errdefs.InternalError, "empty command line", nil)
	}

	name, args, extraEnv, wrapped := loginShellInvocation(argv, opts.LoginShell)

	cmd := exec.CommandContext(ctx, name, args...)
	if !opts.Cwd.IsZero() {
		cmd.Dir = opts.Cwd.String()
	}

	env := os.Environ()
	for k, v := range opts.Env {
		env = append(env, k+"="+v)
	}
	env = append(env, extraEnv...)
	cmd.Env = env

	out := &capture{}
	cmd.Stdout = &streamWriter{sink: out, stream: Stdout}
	cmd.Stderr = &streamWriter{sink: out, stream: Stderr}

	runErr := cmd.Run()

	chunks := out.chunks
	if wrapped {
		chunks = stripBanner(chunks)
	}

	res := &Result{
		chunks:  chunks,
		cmdline: printable(fspath.RenderAll(argv)),
	}
	if runErr != nil {
		res.exitCode = exitCode(runErr)
		return res, &ProcessError{Result: res, Err: runErr}
	}
	return res, nil
}

// ProcessError reports a command that could not be spawned or exited
// non-zero. Result is always populated with whatever output was captured.
type ProcessError struct {
	Result *Result
	Err    error
}

// Error implements the error interface
func (e *ProcessError) Error() string {
	return fmt.Sprintf("command failed: %s (exit %d): %v", e.Result.Printable(), e.Result.ExitCode(), e.Err)
}

// Unwrap returns the underlying exec error
func (e *ProcessError) Unwrap() error {
	return e.Err
}

// ErrorCode returns the stable code, satisfying the coded-error interface.
func (e *ProcessError) ErrorCode() errdefs.ErrorCode {
	return errdefs.ProcessFailed
}

// exitCode extracts the exit status from an exec error, -1 when the
// process never ran.
func exitCode(err error) int {
	var eerr *exec.ExitError
	if errors.As(err, &eerr) {
		return eerr.ExitCode()
	}
	return -1
}

type capture struct {
	mu     sync.Mutex
	chunks []Chunk
}

type streamWriter struct {
	sink   *capture
	stream Stream
}

func (w *streamWriter) Write(p []byte) (int, error) {
	w.sink.mu.Lock()
	defer w.sink.mu.Unlock()
	w.sink.chunks = append(w.sink.chunks, Chunk{Stream: w.stream, Text: string(p)})
	return len(p), nil
}
