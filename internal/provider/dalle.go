package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/pixelwanderer/server/internal/config"
	"github.com/pixelwanderer/server/internal/tile"
)

const dalleServiceName = "DALL·E"

// Dalle calls the OpenAI image generation API: a JSON prompt payload returns
// a URL, and a second request fetches the rendered image.
//
// The upstream has no image-to-image endpoint, so in continuation mode
// conditioning images are ignored and generation proceeds in plain text
// mode. This is a documented provider-specific degradation, not a failure.
type Dalle struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     *zap.Logger
}

// NewDalle creates the DALL·E provider from its upstream configuration.
func NewDalle(cfg config.ProviderConfig, log *zap.Logger) *Dalle {
	return &Dalle{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// Name implements Provider.
func (d *Dalle) Name() string { return "dalle" }

type dalleRequest struct {
	Prompt string `json:"prompt"`
	N      int    `json:"n"`
	Size   string `json:"size"`
}

type dalleResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
}

// Generate implements Provider.
func (d *Dalle) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if req.Mode == tile.ModeContinuation && len(req.ConditioningImages) > 0 {
		d.log.Debug("dalle does not support conditioning images, proceeding in text mode",
			zap.Int("dropped_images", len(req.ConditioningImages)))
	}

	body, err := json.Marshal(dalleRequest{Prompt: req.Prompt, N: 1, Size: "512x512"})
	if err != nil {
		return nil, generationError(dalleServiceName, "marshal request", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		d.baseURL+"/v1/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, generationError(dalleServiceName, "create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+d.apiKey)

	start := time.Now()
	resp, err := d.client.Do(httpReq)
	if err != nil {
		return nil, generationError(dalleServiceName, "generation request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, generationError(dalleServiceName, "generation request",
			fmt.Errorf("status %d: %s", resp.StatusCode, detail))
	}

	var decoded dalleResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, generationError(dalleServiceName, "decode response", err)
	}
	if len(decoded.Data) == 0 || decoded.Data[0].URL == "" {
		return nil, generationError(dalleServiceName, "decode response",
			fmt.Errorf("response contains no image URL"))
	}

	image, err := d.fetchImage(ctx, decoded.Data[0].URL)
	if err != nil {
		return nil, err
	}

	d.log.Info("dalle generation complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("bytes", len(image)))

	return &GenerateResult{
		Image: image,
		Meta: Meta{
			Service: dalleServiceName,
			Mode:    req.Mode,
			Extra: map[string]any{
				"totalRequestRuntimeMs": time.Since(start).Milliseconds(),
			},
		},
	}, nil
}

// fetchImage downloads the rendered image from the URL the API returned.
func (d *Dalle) fetchImage(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, generationError(dalleServiceName, "create image fetch", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, generationError(dalleServiceName, "fetch image", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, generationError(dalleServiceName, "fetch image",
			fmt.Errorf("status %d", resp.StatusCode))
	}
	image, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, generationError(dalleServiceName, "read image", err)
	}
	return image, nil
}
