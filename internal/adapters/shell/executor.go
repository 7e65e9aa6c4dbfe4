// Package shell runs external commands: stdin-to-stdout filters used by
// asset processors and the long-running backend process.
package shell

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
	"go.trai.ch/zerr"
)

// maxStderrLines bounds how much of a failing command's stderr ends up in its error.
const maxStderrLines = 20

// Executor runs commands as filters over a byte stream.
type Executor struct {
	logger ports.Logger
}

// NewExecutor creates a new Executor.
func NewExecutor(logger ports.Logger) *Executor {
	return &Executor{
		logger: logger,
	}
}

// Filter runs command in dir, feeds it stdin and returns what it wrote to stdout.
// On success anything written to stderr is logged as warnings. On failure the
// stderr text becomes the cause of the returned error.
func (e *Executor) Filter(ctx context.Context, command []string, dir string, stdin []byte) ([]byte, error) {
	if len(command) == 0 {
		return nil, zerr.With(domain.ErrInvalidConfig, "reason", "empty command")
	}

	cmd := exec.CommandContext(ctx, command[0], command[1:]...) //nolint:gosec // user provided command
	cmd.Dir = dir
	cmd.Stdin = bytes.NewReader(stdin)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}

		cause := err
		if msg := tail(stderr.String(), maxStderrLines); msg != "" {
			cause = errors.New(msg)
		}
		wrapped := zerr.Wrap(cause, domain.ErrProcessFailed.Error())
		wrapped = zerr.With(wrapped, "command", command[0])
		return nil, zerr.With(wrapped, "exit_code", exitCode)
	}

	if e.logger != nil {
		for line := range strings.Lines(stderr.String()) {
			if line = strings.TrimRight(line, "\r\n"); line != "" {
				e.logger.Warn(command[0] + ": " + line)
			}
		}
	}

	return stdout.Bytes(), nil
}

// tail returns the last n non-empty lines of s.
func tail(s string, n int) string {
	var lines []string
	for line := range strings.Lines(s) {
		if line = strings.TrimRight(line, "\r\n"); strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
