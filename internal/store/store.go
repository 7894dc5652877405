package store

import "github.com/pixelwanderer/server/internal/tile"

// WorldInfo summarizes one world namespace for the operator endpoints.
type WorldInfo struct {
	Name      string `json:"name"`
	TileCount int    `json:"tileCount"`
}

// Store is the durable keyed-blob repository of generated tiles.
//
// Put is create-only: tiles are immutable once written, so a duplicate write
// is an orchestration defect and fails with tile.ErrTileAlreadyExists rather
// than silently overwriting.
type Store interface {
	// WorldExists reports whether the world namespace has been created.
	WorldExists(world string) bool

	// CreateWorld creates the world namespace. Creating an existing world
	// is a no-op.
	CreateWorld(world string) error

	// Exists reports whether a tile has been persisted at the coordinate.
	// Side-effect free.
	Exists(world string, c tile.Coordinate) bool

	// Get returns the persisted tile, or tile.ErrTileNotFound.
	Get(world string, c tile.Coordinate) (*tile.Tile, error)

	// GetMetadata returns only the sidecar metadata record, or
	// tile.ErrTileNotFound.
	GetMetadata(world string, c tile.Coordinate) (*tile.Metadata, error)

	// GetImage returns only the raw image bytes, or tile.ErrTileNotFound.
	GetImage(world string, c tile.Coordinate) ([]byte, error)

	// Put persists a new tile exactly once.
	Put(t *tile.Tile) error

	// Worlds lists all world namespaces with their tile counts.
	Worlds() ([]WorldInfo, error)
}
