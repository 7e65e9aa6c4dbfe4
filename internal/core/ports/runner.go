package ports

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
)

// TaskRunner executes a task tree.
//
//go:generate mockgen -source=runner.go -destination=mocks/mock_runner.go -package=mocks
type TaskRunner interface {
	Run(ctx context.Context, task *domain.Task) domain.BuildResult
}
