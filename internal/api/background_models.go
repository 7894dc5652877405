package api

import "github.com/pixelwanderer/server/internal/tile"

// BackgroundRequest is the POST /background payload. X and Y are pointers so
// the zero coordinate still satisfies the required check.
type BackgroundRequest struct {
	X          *int   `json:"x" validate:"required"`
	Y          *int   `json:"y" validate:"required"`
	WorldName  string `json:"worldName" validate:"required,max=64"`
	UserPrompt string `json:"userPrompt,omitempty" validate:"omitempty,max=500"`
	AIService  string `json:"aiService,omitempty" validate:"omitempty,oneof=dalle stable-diffusion"`
}

// BackgroundResponse returns the tile as a data URI plus its persisted
// metadata record.
type BackgroundResponse struct {
	ImageData string        `json:"imageData"`
	Metadata  tile.Metadata `json:"metadata"`
}

// ErrorResponse is the uniform error body for every failure.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
