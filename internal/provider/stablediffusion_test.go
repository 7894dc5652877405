package provider

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pixelwanderer/server/internal/config"
	"github.com/pixelwanderer/server/internal/tile"
)

func newStableDiffusionTest(t *testing.T, handler http.HandlerFunc) *StableDiffusion {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewStableDiffusion(config.ProviderConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	}, zap.NewNop())
}

func TestStableDiffusionGenerateSeed(t *testing.T) {
	var gotAuth, gotPrompt string
	var gotFiles int

	sd := newStableDiffusionTest(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
			return
		}
		gotPrompt = r.FormValue("prompt")
		gotFiles = len(r.MultipartForm.File)

		w.Header().Set("X-Seed", "424242")
		w.Header().Set("X-Model", "sd-xl")
		w.Write([]byte("raw-image"))
	})

	result, err := sd.Generate(context.Background(), GenerateRequest{
		Prompt: "a forest",
		Mode:   tile.ModeSeed,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if gotAuth != "Bearer test-key" {
		t.Errorf("Expected bearer auth header, got %q", gotAuth)
	}
	if gotPrompt != "a forest" {
		t.Errorf("Expected prompt to be forwarded, got %q", gotPrompt)
	}
	if gotFiles != 0 {
		t.Errorf("Seed mode must not send reference images, got %d", gotFiles)
	}
	if string(result.Image) != "raw-image" {
		t.Errorf("Unexpected image bytes: %q", result.Image)
	}
	if result.Meta.Seed != "424242" {
		t.Errorf("Expected seed from X-Seed header, got %q", result.Meta.Seed)
	}
	if result.Meta.Extra["modelName"] != "sd-xl" {
		t.Errorf("Expected model name in metadata, got %v", result.Meta.Extra["modelName"])
	}
}

func TestStableDiffusionGenerateContinuation(t *testing.T) {
	var gotImages [][]byte

	sd := newStableDiffusionTest(t, func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
			return
		}
		for i := 0; ; i++ {
			headers, ok := r.MultipartForm.File[fmt.Sprintf("image%d", i)]
			if !ok || len(headers) == 0 {
				break
			}
			f, err := headers[0].Open()
			if err != nil {
				t.Errorf("Failed to open form file: %v", err)
				return
			}
			data, _ := io.ReadAll(f)
			f.Close()
			gotImages = append(gotImages, data)
		}
		w.Write([]byte("raw-image"))
	})

	_, err := sd.Generate(context.Background(), GenerateRequest{
		Prompt:             "the forest continues",
		ConditioningImages: [][]byte{[]byte("left"), []byte("right")},
		Mode:               tile.ModeContinuation,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if len(gotImages) != 2 {
		t.Fatalf("Expected 2 reference images, got %d", len(gotImages))
	}
	if string(gotImages[0]) != "left" || string(gotImages[1]) != "right" {
		t.Errorf("Reference images out of order: %q, %q", gotImages[0], gotImages[1])
	}
}

func TestStableDiffusionUpstreamError(t *testing.T) {
	sd := newStableDiffusionTest(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	})

	_, err := sd.Generate(context.Background(), GenerateRequest{Prompt: "a forest", Mode: tile.ModeSeed})
	if !errors.Is(err, tile.ErrGenerationFailed) {
		t.Fatalf("Expected ErrGenerationFailed, got %v", err)
	}
}

func TestStableDiffusionEmptyBody(t *testing.T) {
	sd := newStableDiffusionTest(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := sd.Generate(context.Background(), GenerateRequest{Prompt: "a forest", Mode: tile.ModeSeed})
	if !errors.Is(err, tile.ErrGenerationFailed) {
		t.Fatalf("Expected ErrGenerationFailed, got %v", err)
	}
}
