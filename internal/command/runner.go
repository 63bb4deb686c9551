package command

//go:generate mockgen -source=runner.go -destination=mock_runner.go -package=command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

var (
	// ErrScriptNotFound is returned when a script path does not resolve to a file.
	ErrScriptNotFound = errors.New("script not found")
	// ErrScriptTimeout is returned when a child process outlives its timeout.
	ErrScriptTimeout = errors.New("script timed out")
	// ErrScriptSpawn is returned when a child process cannot be started.
	ErrScriptSpawn = errors.New("script failed to start")
)

// waitDelay bounds how long Run waits for output pipes after the child is killed.
const waitDelay = 500 * time.Millisecond

// Request describes one child process invocation.
type Request struct {
	// Name is the executable path or a name looked up in PATH.
	Name string
	Args []string
	// Dir is the working directory; empty means the current directory.
	Dir string
	// Stdin is written to the child's standard input.
	Stdin []byte
	// Env is appended to the parent environment for the child only.
	Env []string
	// Timeout bounds Run; zero means no timeout beyond ctx.
	Timeout time.Duration
}

// Result is the outcome of a completed child process.
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Runner abstracts child process execution for testability.
type Runner interface {
	// Run executes the request and waits for it to exit.
	// A non-zero exit status is reported in Result, not as an error.
	Run(ctx context.Context, req Request) (*Result, error)
	// Start spawns the request detached and returns without waiting.
	// The child's output is discarded.
	Start(req Request) error
}

type execRunner struct{}

// NewRunner creates a Runner backed by os/exec.
func NewRunner() Runner {
	return &execRunner{}
}

// Run executes the request and waits for it to exit.
func (r *execRunner) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, req.Name, req.Args...)
	cmd.Dir = req.Dir
	cmd.WaitDelay = waitDelay
	if len(req.Env) > 0 {
		cmd.Env = append(os.Environ(), req.Env...)
	}
	if req.Stdin != nil {
		cmd.Stdin = bytes.NewReader(req.Stdin)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := &Result{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		// A child that exited on its own keeps its status even when the
		// deadline passed before Run returned. Signal deaths report -1.
		var exitErr *exec.ExitError
		isExit := errors.As(err, &exitErr)
		if isExit && exitErr.ExitCode() >= 0 {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}

		if ctxErr := ctx.Err(); ctxErr != nil {
			if errors.Is(ctxErr, context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: %s after %s", ErrScriptTimeout, req.Name, req.Timeout)
			}
			return nil, fmt.Errorf("%s: %w", req.Name, ctxErr)
		}

		if isExit {
			result.ExitCode = exitErr.ExitCode()
			return result, nil
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrScriptSpawn, req.Name, err)
	}

	return result, nil
}

// Start spawns the request detached and returns without waiting.
func (r *execRunner) Start(req Request) error {
	cmd := exec.Command(req.Name, req.Args...)
	cmd.Dir = req.Dir
	if len(req.Env) > 0 {
		cmd.Env = append(os.Environ(), req.Env...)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrScriptSpawn, req.Name, err)
	}

	return cmd.Process.Release()
}
