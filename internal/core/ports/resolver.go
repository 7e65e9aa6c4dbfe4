package ports

import "go.trai.ch/kiln/internal/core/domain"

// Matcher reports whether a path matches a compiled pattern set.
type Matcher func(path string) bool

// SourceResolver expands source patterns into concrete items.
//
//go:generate mockgen -source=resolver.go -destination=mocks/mock_resolver.go -package=mocks
type SourceResolver interface {
	// Resolve expands patterns relative to root. The returned items carry
	// Source and Rel but no content. Order is pattern order, then lexical.
	Resolve(root string, patterns []string, base string) ([]domain.Item, error)

	// Matcher compiles patterns relative to root into a path predicate.
	Matcher(root string, patterns []string) (Matcher, error)
}
