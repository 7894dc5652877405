package provider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pixelwanderer/server/internal/config"
	"github.com/pixelwanderer/server/internal/tile"
)

const stableDiffusionServiceName = "Stable Diffusion"

// StableDiffusion posts a multipart form (prompt plus optional reference
// images) and receives raw image bytes back. Informational response headers
// (seed, timing, billing) are folded into the metadata bag.
type StableDiffusion struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *zap.Logger
}

// NewStableDiffusion creates the Stable Diffusion provider from its upstream
// configuration.
func NewStableDiffusion(cfg config.ProviderConfig, log *zap.Logger) *StableDiffusion {
	return &StableDiffusion{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// Name implements Provider.
func (s *StableDiffusion) Name() string { return "stable-diffusion" }

// Generate implements Provider.
func (s *StableDiffusion) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	if err := form.WriteField("prompt", req.Prompt); err != nil {
		return nil, generationError(stableDiffusionServiceName, "build form", err)
	}
	if req.Mode == tile.ModeContinuation {
		for i, image := range req.ConditioningImages {
			part, err := form.CreateFormFile(fmt.Sprintf("image%d", i), fmt.Sprintf("input%d.png", i))
			if err != nil {
				return nil, generationError(stableDiffusionServiceName, "build form", err)
			}
			if _, err := part.Write(image); err != nil {
				return nil, generationError(stableDiffusionServiceName, "build form", err)
			}
		}
	}
	if err := form.Close(); err != nil {
		return nil, generationError(stableDiffusionServiceName, "build form", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/v1/generate", &buf)
	if err != nil {
		return nil, generationError(stableDiffusionServiceName, "create request", err)
	}
	httpReq.Header.Set("Content-Type", form.FormDataContentType())
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)

	start := time.Now()
	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, generationError(stableDiffusionServiceName, "generation request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, generationError(stableDiffusionServiceName, "generation request",
			fmt.Errorf("status %d: %s", resp.StatusCode, detail))
	}

	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, generationError(stableDiffusionServiceName, "read image", err)
	}
	if len(image) == 0 {
		return nil, generationError(stableDiffusionServiceName, "read image",
			fmt.Errorf("empty response body"))
	}

	meta := Meta{
		Service: stableDiffusionServiceName,
		Mode:    req.Mode,
		Seed:    resp.Header.Get("X-Seed"),
		Extra: map[string]any{
			"totalRequestRuntimeMs": time.Since(start).Milliseconds(),
		},
	}
	// Informational headers vary by deployment; fold in the ones present.
	if v := resp.Header.Get("Server-Timing"); v != "" {
		meta.Extra["serverTiming"] = v
	}
	if v := resp.Header.Get("X-Model"); v != "" {
		meta.Extra["modelName"] = v
	}
	if v := resp.Header.Get("X-Billing-Idempotency-Id"); v != "" {
		meta.Extra["billingIdempotencyId"] = v
	}

	s.log.Info("stable diffusion generation complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(image)),
		zap.Int("conditioning_images", len(req.ConditioningImages)))

	return &GenerateResult{Image: image, Meta: meta}, nil
}
