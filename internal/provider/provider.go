// Package provider wraps the upstream generative-image services behind one
// capability contract. Variants differ only in transport, auth header and
// response decoding; every upstream failure surfaces as
// tile.ErrGenerationFailed.
package provider

import (
	"context"
	"fmt"

	"github.com/pixelwanderer/server/internal/tile"
)

// GenerateRequest carries everything a provider needs for one generation.
type GenerateRequest struct {
	Prompt string

	// ConditioningImages are raw neighbor bitmaps for image-to-image
	// guidance. Only meaningful in continuation mode; providers that do
	// not support conditioning may ignore them.
	ConditioningImages [][]byte

	Mode tile.Mode
}

// Meta is the normalized metadata bag returned with every generation.
// Service and Mode are guaranteed; Seed is present when the upstream reports
// one; everything else is provider-specific and passed through opaquely in
// Extra.
type Meta struct {
	Service string
	Mode    tile.Mode
	Seed    string
	Extra   map[string]any
}

// GenerateResult is a provider's normalized response.
type GenerateResult struct {
	Image []byte
	Meta  Meta
}

// Provider is the image-generation capability.
type Provider interface {
	// Name is the registry key, e.g. "dalle".
	Name() string

	// Generate renders one image for the prompt. Any transport, auth or
	// unexpected-response-shape error wraps tile.ErrGenerationFailed.
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error)
}

// generationError wraps an upstream failure into the common taxonomy.
func generationError(service string, stage string, err error) error {
	return fmt.Errorf("%w: %s: %s: %v", tile.ErrGenerationFailed, service, stage, err)
}
