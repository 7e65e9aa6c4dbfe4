package processors

import (
	"bytes"
	"context"
	"image/jpeg"
	"image/png"
	"path"
	"strings"

	"go.trai.ch/kiln/internal/core/domain"
	"go.trai.ch/zerr"
)

// jpegQuality is the quality JPEGs are re-encoded at.
const jpegQuality = 85

// ImageProcessor recompresses PNG, JPEG and SVG images. The smaller of the
// original and the recompressed bytes is kept. Other formats pass through.
type ImageProcessor struct {
	minifier *Minifier
}

// NewImageProcessor creates an ImageProcessor.
func NewImageProcessor(m *Minifier) *ImageProcessor {
	return &ImageProcessor{minifier: m}
}

// Process implements ports.Processor.
func (p *ImageProcessor) Process(_ context.Context, item domain.Item) (domain.Item, error) {
	var (
		out []byte
		err error
	)

	switch strings.ToLower(path.Ext(item.Rel)) {
	case ".png":
		out, err = recompressPNG(item.Content)
	case ".jpg", ".jpeg":
		out, err = recompressJPEG(item.Content)
	case ".svg":
		out, err = p.minifier.Bytes(MediaSVG, item.Content)
	default:
		return item, nil
	}
	if err != nil {
		return domain.Item{}, err
	}

	if len(out) < len(item.Content) {
		item.Content = out
	}
	return item, nil
}

func recompressPNG(b []byte) ([]byte, error) {
	img, err := png.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to decode png")
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, zerr.Wrap(err, "failed to encode png")
	}
	return buf.Bytes(), nil
}

func recompressJPEG(b []byte) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(b))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to decode jpeg")
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, zerr.Wrap(err, "failed to encode jpeg")
	}
	return buf.Bytes(), nil
}
