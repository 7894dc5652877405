package prompt

import (
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/pixelwanderer/server/internal/store"
	"github.com/pixelwanderer/server/internal/tile"
)

func newTestComposer(t *testing.T) (*Composer, *store.FSStore) {
	t.Helper()
	s, err := store.NewFSStore(t.TempDir(), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	return NewComposer(s), s
}

func putTile(t *testing.T, s *store.FSStore, world string, x, y int, promptUsed string) {
	t.Helper()
	if !s.WorldExists(world) {
		if err := s.CreateWorld(world); err != nil {
			t.Fatalf("Failed to create world: %v", err)
		}
	}
	coord := tile.Coordinate{X: x, Y: y}
	err := s.Put(&tile.Tile{
		World: world,
		Coord: coord,
		Image: []byte("img"),
		Meta: tile.Metadata{
			Prompt:      promptUsed,
			CreatedAt:   time.Now().UTC(),
			Coordinates: coord,
			Service:     "Stub",
			Mode:        tile.ModeFor(coord),
		},
	})
	if err != nil {
		t.Fatalf("Failed to put tile: %v", err)
	}
}

func TestSeedPromptDefaultTheme(t *testing.T) {
	c, _ := newTestComposer(t)

	// No origin tile recorded: the fixed default theme, never empty.
	got := c.ComposeSeedPrompt("forest", "")
	if got != DefaultTheme {
		t.Errorf("Expected default theme %q, got %q", DefaultTheme, got)
	}
}

func TestSeedPromptAppendsUserRequest(t *testing.T) {
	c, _ := newTestComposer(t)

	got := c.ComposeSeedPrompt("forest", "add a waterfall")
	if !strings.HasPrefix(got, DefaultTheme) {
		t.Errorf("Expected prompt to start with the theme, got %q", got)
	}
	if !strings.Contains(got, "User request: add a waterfall.") {
		t.Errorf("Expected user request clause, got %q", got)
	}
}

func TestThemeReusesOriginPrompt(t *testing.T) {
	c, s := newTestComposer(t)
	putTile(t, s, "forest", 0, 0, "A neon cyberpunk skyline")

	got := c.ComposeSeedPrompt("forest", "")
	if got != "A neon cyberpunk skyline" {
		t.Errorf("Expected origin prompt to be reused as theme, got %q", got)
	}
}

func TestContinuationPromptNeighborOrder(t *testing.T) {
	c, s := newTestComposer(t)
	putTile(t, s, "forest", 0, 0, "origin theme")
	putTile(t, s, "forest", 1, 0, "A") // left of (2,0)
	putTile(t, s, "forest", 3, 0, "B") // right of (2,0)

	got := c.ComposeContinuationPrompt("forest", tile.Coordinate{X: 2, Y: 0}, "")
	if !strings.Contains(got, "Adjacent areas feature: A, B.") {
		t.Errorf("Expected neighbors joined in left-then-right order, got %q", got)
	}
}

func TestContinuationPromptAllFourNeighbors(t *testing.T) {
	c, s := newTestComposer(t)
	putTile(t, s, "forest", 0, 0, "origin theme")
	putTile(t, s, "forest", -1, 0, "left")
	putTile(t, s, "forest", 1, 0, "right")
	putTile(t, s, "forest", 0, -1, "up")
	putTile(t, s, "forest", 0, 1, "down")

	got := c.ComposeContinuationPrompt("forest", tile.Coordinate{X: 0, Y: 0}, "")
	if !strings.Contains(got, "Adjacent areas feature: left, right, up, down.") {
		t.Errorf("Expected all four neighbors in order, got %q", got)
	}
}

func TestContinuationPromptZeroNeighborFallback(t *testing.T) {
	c, s := newTestComposer(t)
	putTile(t, s, "forest", 0, 0, "origin theme")

	got := c.ComposeContinuationPrompt("forest", tile.Coordinate{X: 10, Y: 10}, "")
	if !strings.Contains(got, continuationFallback) {
		t.Errorf("Expected generic continuity clause, got %q", got)
	}
	// Never render an empty neighbor list literally.
	if strings.Contains(got, "feature: .") {
		t.Errorf("Prompt rendered an empty neighbor list: %q", got)
	}
}

func TestContinuationPromptUserRequest(t *testing.T) {
	c, s := newTestComposer(t)
	putTile(t, s, "forest", 0, 0, "origin theme")

	got := c.ComposeContinuationPrompt("forest", tile.Coordinate{X: 1, Y: 0}, "more rivers")
	if !strings.HasSuffix(got, "User request: more rivers.") {
		t.Errorf("Expected trailing user request clause, got %q", got)
	}
}

func TestNeighborImagesOnlyExisting(t *testing.T) {
	c, s := newTestComposer(t)
	putTile(t, s, "forest", 0, 0, "origin theme")
	putTile(t, s, "forest", 1, 0, "right of origin")

	// Neighbors of (1,1): left (0,1), right (2,1), up (1,0), down (1,2).
	// Only (1,0) exists.
	images := c.NeighborImages("forest", tile.Coordinate{X: 1, Y: 1})
	if len(images) != 1 {
		t.Fatalf("Expected 1 neighbor image, got %d", len(images))
	}
	if string(images[0]) != "img" {
		t.Errorf("Unexpected neighbor image bytes: %q", images[0])
	}
}
