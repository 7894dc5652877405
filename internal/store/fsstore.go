package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/pixelwanderer/server/internal/tile"
)

// FSStore persists tiles on the local filesystem: one directory per world,
// one image file plus one sidecar JSON metadata file per tile.
//
// Layout: <root>/<world>/background_x<X>_y<Y>.png
//
//	<root>/<world>/background_x<X>_y<Y>.json
type FSStore struct {
	root string
	log  *zap.Logger
}

// NewFSStore creates a filesystem store rooted at dir. The root directory is
// created if it does not exist; world directories are created on demand.
func NewFSStore(dir string, log *zap.Logger) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage root: %w", err)
	}
	return &FSStore{root: dir, log: log}, nil
}

// imageName returns the deterministic image filename for a coordinate.
func imageName(c tile.Coordinate) string {
	return fmt.Sprintf("background_x%d_y%d.png", c.X, c.Y)
}

// metadataName returns the deterministic sidecar filename for a coordinate.
func metadataName(c tile.Coordinate) string {
	return fmt.Sprintf("background_x%d_y%d.json", c.X, c.Y)
}

func (s *FSStore) worldDir(world string) string {
	return filepath.Join(s.root, world)
}

// WorldExists reports whether the world directory exists.
func (s *FSStore) WorldExists(world string) bool {
	info, err := os.Stat(s.worldDir(world))
	return err == nil && info.IsDir()
}

// CreateWorld creates the world directory.
func (s *FSStore) CreateWorld(world string) error {
	if !tile.ValidWorldName(world) {
		return fmt.Errorf("%w: bad world name %q", tile.ErrInvalidRequest, world)
	}
	if err := os.MkdirAll(s.worldDir(world), 0o755); err != nil {
		return fmt.Errorf("create world %q: %w", world, err)
	}
	return nil
}

// Exists reports whether the tile image file is present.
func (s *FSStore) Exists(world string, c tile.Coordinate) bool {
	_, err := os.Stat(filepath.Join(s.worldDir(world), imageName(c)))
	return err == nil
}

// Get reads the tile image and its sidecar metadata.
func (s *FSStore) Get(world string, c tile.Coordinate) (*tile.Tile, error) {
	image, err := s.GetImage(world, c)
	if err != nil {
		return nil, err
	}
	meta, err := s.GetMetadata(world, c)
	if err != nil {
		return nil, err
	}
	return &tile.Tile{World: world, Coord: c, Image: image, Meta: *meta}, nil
}

// GetImage reads only the raw image bytes.
func (s *FSStore) GetImage(world string, c tile.Coordinate) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.worldDir(world), imageName(c)))
	if os.IsNotExist(err) {
		return nil, tile.ErrTileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read tile image %s/%s: %w", world, imageName(c), err)
	}
	return data, nil
}

// GetMetadata reads only the sidecar metadata record.
func (s *FSStore) GetMetadata(world string, c tile.Coordinate) (*tile.Metadata, error) {
	data, err := os.ReadFile(filepath.Join(s.worldDir(world), metadataName(c)))
	if os.IsNotExist(err) {
		return nil, tile.ErrTileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read tile metadata %s/%s: %w", world, metadataName(c), err)
	}
	var meta tile.Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("decode tile metadata %s/%s: %w", world, metadataName(c), err)
	}
	return &meta, nil
}

// Put persists a new tile. The image file is created with O_EXCL so a
// concurrent duplicate write loses with tile.ErrTileAlreadyExists; tiles are
// never overwritten.
func (s *FSStore) Put(t *tile.Tile) error {
	dir := s.worldDir(t.World)
	imagePath := filepath.Join(dir, imageName(t.Coord))

	f, err := os.OpenFile(imagePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if os.IsExist(err) {
		return fmt.Errorf("%w: %s/%s", tile.ErrTileAlreadyExists, t.World, imageName(t.Coord))
	}
	if err != nil {
		return fmt.Errorf("create tile image %s: %w", imagePath, err)
	}
	if _, err := f.Write(t.Image); err != nil {
		f.Close()
		os.Remove(imagePath)
		return fmt.Errorf("write tile image %s: %w", imagePath, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(imagePath)
		return fmt.Errorf("close tile image %s: %w", imagePath, err)
	}

	data, err := json.MarshalIndent(t.Meta, "", "  ")
	if err != nil {
		os.Remove(imagePath)
		return fmt.Errorf("encode tile metadata: %w", err)
	}
	metaPath := filepath.Join(dir, metadataName(t.Coord))
	if err := os.WriteFile(metaPath, data, 0o644); err != nil {
		// Roll back the image so the tile never exists half-written.
		os.Remove(imagePath)
		return fmt.Errorf("write tile metadata %s: %w", metaPath, err)
	}

	s.log.Debug("tile persisted",
		zap.String("world", t.World),
		zap.Int("x", t.Coord.X),
		zap.Int("y", t.Coord.Y),
		zap.Int("bytes", len(t.Image)))
	return nil
}

// Worlds lists world directories with the number of tile images in each.
func (s *FSStore) Worlds() ([]WorldInfo, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("list worlds: %w", err)
	}
	var worlds []WorldInfo
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		files, err := os.ReadDir(filepath.Join(s.root, entry.Name()))
		if err != nil {
			s.log.Warn("skipping unreadable world directory",
				zap.String("world", entry.Name()), zap.Error(err))
			continue
		}
		count := 0
		for _, f := range files {
			if strings.HasSuffix(f.Name(), ".png") {
				count++
			}
		}
		worlds = append(worlds, WorldInfo{Name: entry.Name(), TileCount: count})
	}
	return worlds, nil
}
