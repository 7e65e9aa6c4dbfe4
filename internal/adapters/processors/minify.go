package processors

import (
	"context"

	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// Media types understood by the minifier.
const (
	MediaCSS = "text/css"
	MediaJS  = "application/javascript"
	MediaSVG = "image/svg+xml"
)

// Minifier wraps a tdewolff minifier configured for stylesheets, scripts and SVG.
type Minifier struct {
	m *minify.M
}

// NewMinifier creates a Minifier.
func NewMinifier() *Minifier {
	m := minify.New()
	m.AddFunc(MediaCSS, css.Minify)
	m.AddFunc(MediaJS, js.Minify)
	m.AddFunc(MediaSVG, svg.Minify)
	return &Minifier{m: m}
}

// Bytes minifies b as mediatype.
func (m *Minifier) Bytes(mediatype string, b []byte) ([]byte, error) {
	out, err := m.m.Bytes(mediatype, b)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to minify"), "media_type", mediatype)
	}
	return out, nil
}

// Processor returns a ports.Processor minifying items as mediatype.
func (m *Minifier) Processor(mediatype string) *MinifyProcessor {
	return &MinifyProcessor{minifier: m, mediatype: mediatype}
}

// MinifyProcessor minifies every item as one media type.
type MinifyProcessor struct {
	minifier  *Minifier
	mediatype string
}

// Process implements ports.Processor.
func (p *MinifyProcessor) Process(_ context.Context, item domain.Item) (domain.Item, error) {
	out, err := p.minifier.Bytes(p.mediatype, item.Content)
	if err != nil {
		return domain.Item{}, err
	}
	item.Content = out
	return item, nil
}
