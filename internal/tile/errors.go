package tile

import (
	"errors"
	"regexp"
)

// Sentinel errors for tile resolution. Handlers map these onto HTTP status
// codes; everything else is an internal error.
var (
	// ErrInvalidRequest covers malformed coordinates or world names.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrWorldNotBootstrapped is returned when a non-origin tile is
	// requested before the world's (0,0) tile exists.
	ErrWorldNotBootstrapped = errors.New("world not bootstrapped")

	// ErrUnsupportedProvider is returned for provider names outside the
	// registered set.
	ErrUnsupportedProvider = errors.New("unsupported provider")

	// ErrGenerationFailed wraps any upstream provider failure (transport,
	// auth, malformed response). Never retried.
	ErrGenerationFailed = errors.New("image generation failed")

	// ErrTileNotFound is returned by stores for missing tiles.
	ErrTileNotFound = errors.New("tile not found")

	// ErrTileAlreadyExists signals a duplicate-write attempt. Tiles are
	// immutable, so this is an orchestration defect and is always surfaced.
	ErrTileAlreadyExists = errors.New("tile already exists")

	// ErrImageDecodingFailed means generated bytes could not be measured
	// for width/height/format; the tile is not persisted.
	ErrImageDecodingFailed = errors.New("image decoding failed")
)

var worldNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidWorldName reports whether name is a legal world namespace.
func ValidWorldName(name string) bool {
	return worldNamePattern.MatchString(name)
}
