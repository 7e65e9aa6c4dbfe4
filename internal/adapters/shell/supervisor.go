package shell

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/creack/pty"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/term"
)

var _ ports.Supervisor = (*Supervisor)(nil)

// DefaultGracePeriod is how long an interrupted backend gets to exit before it is killed.
const DefaultGracePeriod = 5 * time.Second

// Supervisor runs the backend process in the foreground of a dev session.
type Supervisor struct {
	stdout io.Writer
	stderr io.Writer
	useTTY bool
	grace  time.Duration
}

// SupervisorOption configures a Supervisor.
type SupervisorOption func(*Supervisor)

// WithOutput sets where the backend's output goes and disables the pty.
func WithOutput(stdout, stderr io.Writer) SupervisorOption {
	return func(s *Supervisor) {
		s.stdout = stdout
		s.stderr = stderr
		s.useTTY = false
	}
}

// WithGracePeriod sets how long to wait after the interrupt before killing.
func WithGracePeriod(d time.Duration) SupervisorOption {
	return func(s *Supervisor) {
		s.grace = d
	}
}

// NewSupervisor creates a Supervisor writing to the process's own stdout and
// stderr. When stdout is a terminal the backend runs inside a pty so it keeps
// its colors.
func NewSupervisor(opts ...SupervisorOption) *Supervisor {
	s := &Supervisor{
		stdout: os.Stdout,
		stderr: os.Stderr,
		useTTY: term.IsTerminal(int(os.Stdout.Fd())), //nolint:gosec // fd fits in int
		grace:  DefaultGracePeriod,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run starts command in dir and blocks until it exits. Cancelling ctx sends
// an interrupt and, after the grace period, kills the process. A non-zero
// exit that was not caused by cancellation is reported as ErrBackendExited
// carrying the exit code.
func (s *Supervisor) Run(ctx context.Context, command []string, dir string) (int, error) {
	if len(command) == 0 {
		return -1, zerr.With(domain.ErrInvalidConfig, "field", "backend.cmd")
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...) //nolint:gosec // user provided command
	cmd.Dir = dir
	cmd.Env = os.Environ()
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = s.grace

	var waitErr error
	if s.useTTY {
		ptmx, err := pty.Start(cmd)
		if err != nil {
			return -1, zerr.With(zerr.Wrap(err, domain.ErrBackendStartFailed.Error()), "command", command[0])
		}
		_ = pty.InheritSize(os.Stdin, ptmx)

		ioDone := make(chan struct{})
		go func() {
			defer close(ioDone)
			_, _ = io.Copy(s.stdout, ptmx)
		}()

		waitErr = cmd.Wait()
		_ = ptmx.Close()
		<-ioDone
	} else {
		cmd.Stdout = s.stdout
		cmd.Stderr = s.stderr
		if err := cmd.Start(); err != nil {
			return -1, zerr.With(zerr.Wrap(err, domain.ErrBackendStartFailed.Error()), "command", command[0])
		}
		waitErr = cmd.Wait()
	}

	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	if ctx.Err() != nil {
		return exitCode, nil
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(waitErr, &exitErr) {
			return exitCode, zerr.Wrap(waitErr, domain.ErrBackendExited.Error())
		}
		return exitCode, zerr.With(domain.ErrBackendExited, "exit_code", exitCode)
	}

	return exitCode, nil
}
