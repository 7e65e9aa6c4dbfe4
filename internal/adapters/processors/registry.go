// Package processors implements the opaque per-item transforms used by
// pipeline steps: Sass compilation, PostCSS, minification, image compression
// and plain copying.
package processors

import (
	"context"
	"path/filepath"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/kiln/internal/core/ports"
)

// Registry keys used by pipeline steps.
const (
	Sass      = "sass"
	PostCSS   = "postcss"
	MinifyCSS = "minify-css"
	MinifyJS  = "minify-js"
	Image     = "image"
	Copy      = "copy"
)

// Filterer runs an external command over a byte stream.
type Filterer interface {
	Filter(ctx context.Context, command []string, dir string, stdin []byte) ([]byte, error)
}

var _ ports.ProcessorRegistry = (*Registry)(nil)

// Registry implements ports.ProcessorRegistry.
type Registry struct {
	processors map[string]ports.Processor
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{processors: make(map[string]ports.Processor)}
}

// NewDefaultRegistry returns a registry with every built-in processor
// configured from cfg and ps. PostCSS is a pass-through unless a command is configured.
func NewDefaultRegistry(runner Filterer, cfg *domain.Config, ps *domain.PathSet) *Registry {
	r := NewRegistry()
	m := NewMinifier()

	loadPaths := []string{
		filepath.Join(ps.Root, filepath.FromSlash(ps.SCSS)),
		filepath.Join(ps.Root, filepath.FromSlash(ps.VendorRoot)),
	}
	r.Register(Sass, NewSassProcessor(runner, cfg.SassCmd, ps.Root, loadPaths))

	if len(cfg.PostCSSCmd) > 0 {
		r.Register(PostCSS, NewCommandProcessor(runner, cfg.PostCSSCmd, ps.Root))
	} else {
		r.Register(PostCSS, CopyProcessor{})
	}

	r.Register(MinifyCSS, m.Processor(MediaCSS))
	r.Register(MinifyJS, m.Processor(MediaJS))
	r.Register(Image, NewImageProcessor(m))
	r.Register(Copy, CopyProcessor{})
	return r
}

// Register adds or replaces the processor for name.
func (r *Registry) Register(name string, p ports.Processor) {
	r.processors[name] = p
}

// Lookup returns the processor registered for name.
func (r *Registry) Lookup(name string) (ports.Processor, bool) {
	p, ok := r.processors[name]
	return p, ok
}

// CopyProcessor returns items unchanged.
type CopyProcessor struct{}

// Process implements ports.Processor.
func (CopyProcessor) Process(_ context.Context, item domain.Item) (domain.Item, error) {
	return item, nil
}
