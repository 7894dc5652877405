package tile

import "time"

// Coordinate identifies a tile position within a world.
// The origin (0,0) is special: it is the world's seed tile and must be
// generated before any other coordinate in the same world.
type Coordinate struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// IsOrigin reports whether the coordinate is the world's seed tile.
func (c Coordinate) IsOrigin() bool {
	return c.X == 0 && c.Y == 0
}

// Neighbors returns the four adjacent coordinates in left, right, up, down
// order. Prompt composition and image conditioning both depend on this order.
func (c Coordinate) Neighbors() [4]Coordinate {
	return [4]Coordinate{
		{X: c.X - 1, Y: c.Y},
		{X: c.X + 1, Y: c.Y},
		{X: c.X, Y: c.Y - 1},
		{X: c.X, Y: c.Y + 1},
	}
}

// Mode describes how a tile was generated.
type Mode string

const (
	// ModeSeed generates the origin tile from the world theme alone.
	ModeSeed Mode = "seed"
	// ModeContinuation generates a non-origin tile conditioned on
	// whatever neighbor tiles already exist.
	ModeContinuation Mode = "continuation"
)

// ModeFor returns the generation mode for a coordinate.
func ModeFor(c Coordinate) Mode {
	if c.IsOrigin() {
		return ModeSeed
	}
	return ModeContinuation
}

// Dimensions holds pixel dimensions derived from the generated image.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Metadata is the sidecar record persisted next to each tile image.
// Prompt is the exact string sent to the provider; neighbor tiles read it
// back for visual continuity, so it must never be rewritten after creation.
type Metadata struct {
	Prompt          string         `json:"prompt"`
	UserPrompt      string         `json:"userPrompt,omitempty"`
	CreatedAt       time.Time      `json:"createdAt"`
	Coordinates     Coordinate     `json:"coordinates"`
	Service         string         `json:"service"`
	Mode            Mode           `json:"mode"`
	Seed            string         `json:"seed,omitempty"`
	GenerationMeta  map[string]any `json:"generationMeta,omitempty"`
	ImageSize       int            `json:"imageSize"`
	ImageDimensions Dimensions     `json:"imageDimensions"`
	Format          string         `json:"format,omitempty"`
}

// Tile is the unit of persisted state: one generated background image plus
// its metadata. Tiles are immutable once written.
type Tile struct {
	World string
	Coord Coordinate
	Image []byte
	Meta  Metadata
}
