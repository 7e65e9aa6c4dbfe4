package ports

import "go.trai.ch/kiln/internal/core/domain"

// PathResolver derives the PathSet for an application.
//
//go:generate mockgen -source=paths.go -destination=mocks/mock_paths.go -package=mocks
type PathResolver interface {
	// Resolve validates the application layout and returns its paths.
	Resolve(cfg *domain.Config) (*domain.PathSet, error)
}
