package ports

import "go.trai.ch/kiln/internal/core/domain"

// ConfigLoader defines the interface for loading the pipeline configuration.
//
//go:generate mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the configuration. When path is empty the loader searches
	// upwards from cwd and falls back to defaults if no file is found.
	Load(cwd, path string) (*domain.Config, error)
}
