package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/pixelwanderer/server/internal/engine"
	"github.com/pixelwanderer/server/internal/tile"
)

// defaultWorldName backs the legacy GET path, which predates multi-world
// support and may omit the world parameter.
const defaultWorldName = "default_world"

// BackgroundHandlers serves the tile fetch-or-generate endpoints.
type BackgroundHandlers struct {
	engine    *engine.Engine
	validator *validator.Validate
	log       *zap.Logger
}

// NewBackgroundHandlers creates a new instance of BackgroundHandlers.
func NewBackgroundHandlers(e *engine.Engine, log *zap.Logger) *BackgroundHandlers {
	return &BackgroundHandlers{
		engine:    e,
		validator: validator.New(),
		log:       log,
	}
}

// Generate handles POST /background requests.
// Resolves the tile at (x,y) in the named world, generating it on first
// request, and returns the image as a base64 data URI with its metadata.
func (h *BackgroundHandlers) Generate(w http.ResponseWriter, r *http.Request) {
	var req BackgroundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "InvalidRequest", "Invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "InvalidRequest", validationMessage(err))
		return
	}
	if !tile.ValidWorldName(req.WorldName) {
		respondWithError(w, http.StatusBadRequest, "InvalidRequest",
			"worldName may only contain letters, digits, underscores and hyphens")
		return
	}

	h.resolve(w, r, engine.ResolveRequest{
		World:      req.WorldName,
		X:          *req.X,
		Y:          *req.Y,
		UserPrompt: req.UserPrompt,
		Provider:   req.AIService,
	})
}

// Fetch handles GET /background requests, the legacy query-parameter path.
// Same pipeline as Generate; the world defaults to "default_world".
func (h *BackgroundHandlers) Fetch(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	x, err := strconv.Atoi(query.Get("x"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "InvalidRequest", "Invalid x parameter")
		return
	}
	y, err := strconv.Atoi(query.Get("y"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "InvalidRequest", "Invalid y parameter")
		return
	}

	world := query.Get("world")
	if world == "" {
		world = defaultWorldName
	}
	if !tile.ValidWorldName(world) {
		respondWithError(w, http.StatusBadRequest, "InvalidRequest", "Invalid world parameter")
		return
	}

	aiService := query.Get("aiService")
	switch aiService {
	case "", "dalle", "stable-diffusion":
	default:
		respondWithError(w, http.StatusBadRequest, "InvalidRequest",
			"Invalid aiService parameter. Supported services are: dalle, stable-diffusion")
		return
	}

	h.resolve(w, r, engine.ResolveRequest{
		World:      world,
		X:          x,
		Y:          y,
		UserPrompt: query.Get("userPrompt"),
		Provider:   aiService,
	})
}

// resolve runs the engine and writes the shared response shape.
func (h *BackgroundHandlers) resolve(w http.ResponseWriter, r *http.Request, req engine.ResolveRequest) {
	resolved, err := h.engine.ResolveTile(r.Context(), req)
	if err != nil {
		status, code := mapResolveError(err)
		message := err.Error()
		if status >= http.StatusInternalServerError {
			// Server-side failure detail (storage paths, upstream URLs)
			// stays in the log; clients get a curated message.
			h.log.Error("tile resolution failed",
				zap.String("world", req.World),
				zap.Int("x", req.X),
				zap.Int("y", req.Y),
				zap.Error(err))
			message = clientMessage(code)
		}
		respondWithError(w, status, code, message)
		return
	}

	response := BackgroundResponse{
		ImageData: "data:" + resolved.ContentType + ";base64," +
			base64.StdEncoding.EncodeToString(resolved.Image),
		Metadata: resolved.Meta,
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Warn("failed to encode background response", zap.Error(err))
	}
}

// mapResolveError translates the engine error taxonomy onto HTTP statuses.
func mapResolveError(err error) (int, string) {
	switch {
	case errors.Is(err, tile.ErrInvalidRequest):
		return http.StatusBadRequest, "InvalidRequest"
	case errors.Is(err, tile.ErrUnsupportedProvider):
		return http.StatusBadRequest, "UnsupportedProvider"
	case errors.Is(err, tile.ErrWorldNotBootstrapped):
		return http.StatusConflict, "WorldNotBootstrapped"
	case errors.Is(err, tile.ErrGenerationFailed):
		return http.StatusBadGateway, "GenerationFailed"
	case errors.Is(err, tile.ErrImageDecodingFailed):
		return http.StatusBadGateway, "ImageDecodingFailed"
	case errors.Is(err, tile.ErrTileAlreadyExists):
		return http.StatusConflict, "TileAlreadyExists"
	default:
		return http.StatusInternalServerError, "InternalError"
	}
}

// clientMessage is the response body for 5xx error codes.
func clientMessage(code string) string {
	switch code {
	case "GenerationFailed":
		return "Image generation failed"
	case "ImageDecodingFailed":
		return "Generated image could not be processed"
	default:
		return "Internal server error"
	}
}

// validationMessage flattens a validator error into a single client message.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		first := verrs[0]
		switch first.Tag() {
		case "required":
			return "Missing required field: " + first.Field()
		case "oneof":
			return "Invalid aiService parameter. Supported services are: dalle, stable-diffusion"
		default:
			return "Invalid value for field: " + first.Field()
		}
	}
	return "Invalid request"
}

// respondWithError sends the uniform {error, message} body.
func respondWithError(w http.ResponseWriter, statusCode int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{Error: errCode, Message: message})
}
