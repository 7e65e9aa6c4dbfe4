package ports

import (
	"context"

	"go.trai.ch/kiln/internal/core/domain"
)

// Processor is an opaque transform applied to one item at a time.
//
//go:generate mockgen -source=processor.go -destination=mocks/mock_processor.go -package=mocks
type Processor interface {
	// Process returns the transformed item. Implementations may change
	// the item's Rel, for example to swap its extension.
	Process(ctx context.Context, item domain.Item) (domain.Item, error)
}

// ProcessorRegistry looks processors up by the name a TransformStep uses.
type ProcessorRegistry interface {
	Lookup(name string) (Processor, bool)
}
