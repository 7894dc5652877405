package testutil

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync/atomic"

	"github.com/pixelwanderer/server/internal/provider"
)

// PNGBytes returns a valid encoded PNG of the given size, suitable for
// feeding through image probing and the filesystem store.
func PNGBytes(width, height int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 16), B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

// StubProvider is a test double for the image generation capability. It
// counts calls and records the last request it saw.
type StubProvider struct {
	ProviderName string
	Image        []byte
	Seed         string
	Err          error

	calls       atomic.Int32
	LastRequest provider.GenerateRequest
}

// NewStubProvider returns a stub named "dalle" that serves a small PNG.
func NewStubProvider() *StubProvider {
	return &StubProvider{
		ProviderName: "dalle",
		Image:        PNGBytes(8, 8),
	}
}

// Name implements provider.Provider.
func (s *StubProvider) Name() string { return s.ProviderName }

// Generate implements provider.Provider.
func (s *StubProvider) Generate(_ context.Context, req provider.GenerateRequest) (*provider.GenerateResult, error) {
	s.calls.Add(1)
	s.LastRequest = req
	if s.Err != nil {
		return nil, s.Err
	}
	return &provider.GenerateResult{
		Image: s.Image,
		Meta: provider.Meta{
			Service: "Stub",
			Mode:    req.Mode,
			Seed:    s.Seed,
		},
	}, nil
}

// Calls returns how many times Generate was invoked.
func (s *StubProvider) Calls() int {
	return int(s.calls.Load())
}
