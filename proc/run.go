package proc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// Kind classifies why an invocation failed.
type Kind string

const (
	// KindNotFound means the command could not be located on the filesystem or PATH.
	KindNotFound Kind = "not_found"
	// KindTimeout means the process was still running when the deadline expired.
	KindTimeout Kind = "timeout"
	// KindExit means the process exited with a non-zero status.
	KindExit Kind = "exit"
	// KindSpawn covers any other process creation or wait failure.
	KindSpawn Kind = "spawn"
)

// waitDelay bounds how long Wait may block on the output pipes after the
// deadline, in case a subprocess escaped the process group.
const waitDelay = time.Second

// Options control a single invocation.
type Options struct {
	// Timeout is the overall deadline for the process; it must be positive.
	Timeout time.Duration
	// Dir is the working directory the process starts in.
	Dir string
}

// Result holds the output of an invocation that exited with status zero.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Error describes a failed invocation. It carries whatever stdout/stderr was
// captured before the failure.
type Error struct {
	Kind     Kind
	Command  string
	ExitCode int
	Stdout   string
	Stderr   string
	Timeout  time.Duration
	cause    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindNotFound:
		return fmt.Sprintf("command %q not found: %v", e.Command, e.cause)
	case KindTimeout:
		return fmt.Sprintf("command %q timed out after %s", e.Command, e.Timeout)
	case KindExit:
		return fmt.Sprintf("command %q exited with code %d: %s", e.Command, e.ExitCode, strings.TrimSpace(e.Stderr))
	default:
		return fmt.Sprintf("failed to start command %q: %v", e.Command, e.cause)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// Run executes command with args as a literal argument vector (no shell
// interpretation) in opts.Dir, enforcing opts.Timeout. It returns a Result on
// a zero exit status and a *Error classifying the failure otherwise. Exactly
// one subprocess is spawned per call; nothing is retried.
func Run(ctx context.Context, command string, args []string, opts Options) (*Result, error) {
	if opts.Timeout <= 0 {
		return nil, fmt.Errorf("proc: timeout must be positive, got %s", opts.Timeout)
	}
	ctx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = opts.Dir
	// The command runs in its own process group and the whole group is
	// killed on cancellation. Killing only the direct child would let its
	// subprocesses hold the output pipes open past the deadline.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return os.ErrProcessDone
		}
		return err
	}
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		kind := KindSpawn
		if errors.Is(err, exec.ErrNotFound) {
			kind = KindNotFound
		}
		return nil, &Error{Kind: kind, Command: command, ExitCode: -1, cause: err}
	}
	err := cmd.Wait()
	if ctx.Err() == context.DeadlineExceeded {
		return nil, &Error{
			Kind:    KindTimeout,
			Command: command, ExitCode: -1,
			Stdout: stdout.String(), Stderr: stderr.String(),
			Timeout: opts.Timeout,
			cause:   ctx.Err(),
		}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, &Error{
				Kind:    KindExit,
				Command: command, ExitCode: exitErr.ExitCode(),
				Stdout: stdout.String(), Stderr: stderr.String(),
				cause: err,
			}
		}
		return nil, &Error{
			Kind:    KindSpawn,
			Command: command, ExitCode: -1,
			Stdout: stdout.String(), Stderr: stderr.String(),
			cause: err,
		}
	}
	return &Result{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: 0}, nil
}
