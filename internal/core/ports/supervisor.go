package ports

import "context"

// Supervisor runs the backend process for the length of a dev session.
//
//go:generate mockgen -source=supervisor.go -destination=mocks/mock_supervisor.go -package=mocks
type Supervisor interface {
	// Run starts cmd in dir and blocks until it exits or ctx is cancelled.
	// It returns the process exit code.
	Run(ctx context.Context, cmd []string, dir string) (int, error)
}
