// Package streaming coordinates server-driven tile prefetch subscriptions.
// A scrolling client subscribes with its current tile coordinate and a
// radius; the manager computes the surrounding window, reports which tiles
// are already persisted, and emits add/remove deltas as the player moves.
// Subscriptions are read-only: they never trigger generation.
package streaming

import (
	"fmt"
	"sync"
	"time"

	"github.com/pixelwanderer/server/internal/store"
	"github.com/pixelwanderer/server/internal/tile"
)

// MaxPrefetchRadius bounds the window so one subscription cannot request an
// unbounded square of tiles.
const MaxPrefetchRadius = 8

// Manager tracks active prefetch subscriptions.
type Manager struct {
	mu            sync.RWMutex
	store         store.Store
	subscriptions map[string]*Subscription
}

// Subscription tracks one client's prefetch window.
type Subscription struct {
	ID        string
	World     string
	Center    tile.Coordinate
	Radius    int
	Coords    []tile.Coordinate
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SubscriptionRequest is sent by clients to begin receiving prefetch plans.
type SubscriptionRequest struct {
	World  string          `json:"world"`
	Center tile.Coordinate `json:"center"`
	Radius int             `json:"radius"`
}

// SubscriptionPlan is the initial response: the full window plus the subset
// that already exists on disk (clients should fetch those first, they are
// cheap).
type SubscriptionPlan struct {
	SubscriptionID string            `json:"subscription_id"`
	Coords         []tile.Coordinate `json:"coords"`
	Available      []tile.Coordinate `json:"available,omitempty"`
}

// TileDelta describes window changes after a pose update.
type TileDelta struct {
	SubscriptionID string            `json:"subscription_id"`
	Added          []tile.Coordinate `json:"added,omitempty"`
	Removed        []tile.Coordinate `json:"removed,omitempty"`
	Current        []tile.Coordinate `json:"current"`
	Available      []tile.Coordinate `json:"available,omitempty"`
}

// NewManager builds a streaming manager. The store is used only for
// side-effect-free existence checks.
func NewManager(s store.Store) *Manager {
	return &Manager{
		store:         s,
		subscriptions: make(map[string]*Subscription),
	}
}

// ComputeTileWindow returns every coordinate within the square Chebyshev
// radius around center, in row-major order.
func ComputeTileWindow(center tile.Coordinate, radius int) []tile.Coordinate {
	coords := make([]tile.Coordinate, 0, (2*radius+1)*(2*radius+1))
	for dy := -radius; dy <= radius; dy++ {
		for dx := -radius; dx <= radius; dx++ {
			coords = append(coords, tile.Coordinate{X: center.X + dx, Y: center.Y + dy})
		}
	}
	return coords
}

// Subscribe validates the request and registers a prefetch subscription.
func (m *Manager) Subscribe(req SubscriptionRequest) (*SubscriptionPlan, error) {
	if !tile.ValidWorldName(req.World) {
		return nil, fmt.Errorf("invalid world name %q", req.World)
	}
	if req.Radius <= 0 {
		return nil, fmt.Errorf("radius must be positive")
	}
	if req.Radius > MaxPrefetchRadius {
		return nil, fmt.Errorf("radius cannot exceed %d", MaxPrefetchRadius)
	}

	coords := ComputeTileWindow(req.Center, req.Radius)
	now := time.Now()
	sub := &Subscription{
		ID:        fmt.Sprintf("sub_%s_%d", req.World, now.UnixNano()),
		World:     req.World,
		Center:    req.Center,
		Radius:    req.Radius,
		Coords:    coords,
		CreatedAt: now,
		UpdatedAt: now,
	}

	m.mu.Lock()
	m.subscriptions[sub.ID] = sub
	m.mu.Unlock()

	return &SubscriptionPlan{
		SubscriptionID: sub.ID,
		Coords:         coords,
		Available:      m.available(req.World, coords),
	}, nil
}

// UpdatePose recomputes the window around a new center and returns the
// delta against the previous window.
func (m *Manager) UpdatePose(id string, center tile.Coordinate) (*TileDelta, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sub, ok := m.subscriptions[id]
	if !ok {
		return nil, fmt.Errorf("unknown subscription %q", id)
	}

	next := ComputeTileWindow(center, sub.Radius)
	prev := make(map[tile.Coordinate]bool, len(sub.Coords))
	for _, c := range sub.Coords {
		prev[c] = true
	}
	current := make(map[tile.Coordinate]bool, len(next))

	var added []tile.Coordinate
	for _, c := range next {
		current[c] = true
		if !prev[c] {
			added = append(added, c)
		}
	}
	var removed []tile.Coordinate
	for _, c := range sub.Coords {
		if !current[c] {
			removed = append(removed, c)
		}
	}

	sub.Center = center
	sub.Coords = next
	sub.UpdatedAt = time.Now()

	return &TileDelta{
		SubscriptionID: id,
		Added:          added,
		Removed:        removed,
		Current:        next,
		Available:      m.available(sub.World, added),
	}, nil
}

// Unsubscribe removes a subscription. Unknown IDs are a no-op.
func (m *Manager) Unsubscribe(id string) {
	m.mu.Lock()
	delete(m.subscriptions, id)
	m.mu.Unlock()
}

// Count returns the number of active subscriptions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subscriptions)
}

// available filters coords down to the tiles already persisted.
func (m *Manager) available(world string, coords []tile.Coordinate) []tile.Coordinate {
	if m.store == nil || !m.store.WorldExists(world) {
		return nil
	}
	var out []tile.Coordinate
	for _, c := range coords {
		if m.store.Exists(world, c) {
			out = append(out, c)
		}
	}
	return out
}
