// Package prompt builds generation prompts that keep neighboring tiles
// visually continuous: every tile's prompt starts from the world theme and
// folds in the recorded prompts of whichever adjacent tiles already exist.
package prompt

import (
	"fmt"
	"strings"

	"github.com/pixelwanderer/server/internal/store"
	"github.com/pixelwanderer/server/internal/tile"
)

const (
	// DefaultTheme seeds a world whose origin tile has no recorded prompt.
	DefaultTheme = "A detailed pixel art landscape of a mystical forest"

	// neighborPromptFallback stands in for a neighbor whose metadata
	// carries no prompt.
	neighborPromptFallback = "continuation of the mystical forest"

	// continuationFallback keeps the adjacency clause grammatically
	// well-formed when no neighbor tiles exist yet.
	continuationFallback = "the mystical forest continues"
)

// Composer resolves world themes and neighbor prompts through a tile store.
type Composer struct {
	store store.Store
}

// NewComposer creates a prompt composer backed by the given store.
func NewComposer(s store.Store) *Composer {
	return &Composer{store: s}
}

// Theme returns the world's thematic sentence: the origin tile's recorded
// prompt when one exists, DefaultTheme otherwise.
func (c *Composer) Theme(world string) string {
	meta, err := c.store.GetMetadata(world, tile.Coordinate{})
	if err != nil || meta.Prompt == "" {
		return DefaultTheme
	}
	return meta.Prompt
}

// ComposeSeedPrompt builds the origin tile's prompt: the world theme with an
// optional trailing user request. No neighbor conditioning.
func (c *Composer) ComposeSeedPrompt(world, userPrompt string) string {
	prompt := c.Theme(world)
	if userPrompt != "" {
		prompt += fmt.Sprintf(" User request: %s.", userPrompt)
	}
	return prompt
}

// ComposeContinuationPrompt builds a non-origin tile's prompt from the world
// theme plus the recorded prompts of existing neighbors in left, right, up,
// down order.
func (c *Composer) ComposeContinuationPrompt(world string, coord tile.Coordinate, userPrompt string) string {
	neighbors := c.neighborPrompts(world, coord)
	prompt := fmt.Sprintf("%s. Adjacent areas feature: %s.", c.Theme(world), strings.Join(neighbors, ", "))
	if userPrompt != "" {
		prompt += fmt.Sprintf(" User request: %s.", userPrompt)
	}
	return prompt
}

// neighborPrompts gathers recorded prompts of whichever neighbor tiles exist.
// Never returns an empty slice: with zero neighbors the generic continuity
// clause is substituted so the composed prompt stays semantically non-empty.
func (c *Composer) neighborPrompts(world string, coord tile.Coordinate) []string {
	var prompts []string
	for _, n := range coord.Neighbors() {
		meta, err := c.store.GetMetadata(world, n)
		if err != nil {
			continue
		}
		if meta.Prompt == "" {
			prompts = append(prompts, neighborPromptFallback)
			continue
		}
		prompts = append(prompts, meta.Prompt)
	}
	if len(prompts) == 0 {
		prompts = append(prompts, continuationFallback)
	}
	return prompts
}

// NeighborImages collects raw image bytes of existing neighbor tiles in
// left, right, up, down order, for image-to-image conditioning.
func (c *Composer) NeighborImages(world string, coord tile.Coordinate) [][]byte {
	var images [][]byte
	for _, n := range coord.Neighbors() {
		data, err := c.store.GetImage(world, n)
		if err != nil {
			continue
		}
		images = append(images, data)
	}
	return images
}
