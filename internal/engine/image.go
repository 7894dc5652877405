package engine

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/pixelwanderer/server/internal/tile"
)

// imageAttributes are derived from generated bytes, never supplied by the
// caller.
type imageAttributes struct {
	dimensions  tile.Dimensions
	format      string
	contentType string
}

// probeImage measures width, height and encoding format. Bytes that cannot
// be decoded as an image fail with tile.ErrImageDecodingFailed and the tile
// is not persisted.
func probeImage(data []byte) (*imageAttributes, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image", tile.ErrImageDecodingFailed)
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return nil, fmt.Errorf("%w: detected %s, not an image", tile.ErrImageDecodingFailed, mt.String())
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", tile.ErrImageDecodingFailed, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: no dimensions", tile.ErrImageDecodingFailed)
	}

	return &imageAttributes{
		dimensions:  tile.Dimensions{Width: cfg.Width, Height: cfg.Height},
		format:      format,
		contentType: mt.String(),
	}, nil
}
