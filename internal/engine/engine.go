// Package engine orchestrates tile resolution: for any requested coordinate
// it decides whether to serve cached bytes, read the persisted tile, or
// synthesize a new one conditioned on already-generated neighbors.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pixelwanderer/server/internal/cache"
	"github.com/pixelwanderer/server/internal/ledger"
	"github.com/pixelwanderer/server/internal/performance"
	"github.com/pixelwanderer/server/internal/prompt"
	"github.com/pixelwanderer/server/internal/provider"
	"github.com/pixelwanderer/server/internal/store"
	"github.com/pixelwanderer/server/internal/tile"
)

// ResolveRequest identifies the tile a client wants.
type ResolveRequest struct {
	World      string
	X, Y       int
	UserPrompt string
	// Provider is the requested service name; empty picks the default.
	Provider string
}

// ResolvedTile is the engine's answer: the encoded image plus its persisted
// metadata and the detected content type for transport framing.
type ResolvedTile struct {
	Image       []byte
	ContentType string
	Meta        tile.Metadata
}

// Engine is the world-streaming orchestrator. All collaborators are
// injected so tests can substitute in-memory fakes; cache, ledger and
// profiler tolerate nil.
type Engine struct {
	store    store.Store
	cache    *cache.Cache
	registry *provider.Registry
	composer *prompt.Composer
	ledger   *ledger.Ledger
	profiler *performance.Profiler
	log      *zap.Logger
}

// New wires an engine from its collaborators.
func New(s store.Store, c *cache.Cache, r *provider.Registry, pc *prompt.Composer,
	l *ledger.Ledger, prof *performance.Profiler, log *zap.Logger) *Engine {
	return &Engine{
		store:    s,
		cache:    c,
		registry: r,
		composer: pc,
		ledger:   l,
		profiler: prof,
		log:      log,
	}
}

// ResolveTile serves the tile at (req.World, req.X, req.Y), generating and
// persisting it on first request.
//
// Two concurrent calls for the same missing coordinate may both generate;
// the store's create-only Put makes the loser fail with ErrTileAlreadyExists
// and its generation work is discarded. There is no per-key in-flight
// de-duplication.
func (e *Engine) ResolveTile(ctx context.Context, req ResolveRequest) (*ResolvedTile, error) {
	if !tile.ValidWorldName(req.World) {
		return nil, fmt.Errorf("%w: bad world name %q", tile.ErrInvalidRequest, req.World)
	}
	coord := tile.Coordinate{X: req.X, Y: req.Y}

	// World bootstrap rule: only the origin tile may implicitly create the
	// namespace; everything else requires it to exist already.
	if !e.store.WorldExists(req.World) {
		if !coord.IsOrigin() {
			return nil, fmt.Errorf("%w: world %q has no origin tile yet", tile.ErrWorldNotBootstrapped, req.World)
		}
		if err := e.store.CreateWorld(req.World); err != nil {
			return nil, fmt.Errorf("bootstrap world %q: %w", req.World, err)
		}
	}

	key := cache.Key(req.World, req.X, req.Y, req.Provider)

	op := e.profiler.Start("cache_lookup")
	cached, hit := e.cache.Get(key)
	op.End()
	if hit {
		// Only bytes are cached; the metadata record always comes from
		// the store.
		meta, err := e.store.GetMetadata(req.World, coord)
		if err != nil {
			return nil, fmt.Errorf("cached tile %s: %w", key, err)
		}
		return e.resolved(cached, *meta)
	}

	op = e.profiler.Start("store_read")
	existing, err := e.store.Get(req.World, coord)
	op.End()
	if err == nil {
		e.cache.Set(key, existing.Image)
		return e.resolved(existing.Image, existing.Meta)
	}
	if !errors.Is(err, tile.ErrTileNotFound) {
		return nil, err
	}

	return e.generate(ctx, req, coord, key)
}

// generate runs the full miss path: compose the prompt, call the provider,
// derive image attributes, persist exactly once, populate the cache.
func (e *Engine) generate(ctx context.Context, req ResolveRequest, coord tile.Coordinate, key string) (*ResolvedTile, error) {
	mode := tile.ModeFor(coord)

	prov, err := e.registry.Resolve(req.Provider)
	if err != nil {
		return nil, err
	}

	op := e.profiler.Start("prompt_compose")
	var composed string
	var conditioning [][]byte
	if mode == tile.ModeSeed {
		composed = e.composer.ComposeSeedPrompt(req.World, req.UserPrompt)
	} else {
		composed = e.composer.ComposeContinuationPrompt(req.World, coord, req.UserPrompt)
		conditioning = e.composer.NeighborImages(req.World, coord)
	}
	op.End()

	e.log.Info("generating tile",
		zap.String("world", req.World),
		zap.Int("x", coord.X),
		zap.Int("y", coord.Y),
		zap.String("provider", prov.Name()),
		zap.String("mode", string(mode)),
		zap.Int("conditioning_images", len(conditioning)))

	requestID := uuid.NewString()
	start := time.Now()

	op = e.profiler.Start("provider_generate")
	result, err := prov.Generate(ctx, provider.GenerateRequest{
		Prompt:             composed,
		ConditioningImages: conditioning,
		Mode:               mode,
	})
	op.End()
	if err != nil {
		if !errors.Is(err, tile.ErrGenerationFailed) {
			err = fmt.Errorf("%w: %v", tile.ErrGenerationFailed, err)
		}
		e.recordGeneration(req, coord, prov.Name(), mode, requestID, start, 0, ledger.OutcomeFailed, err)
		return nil, err
	}

	attrs, err := probeImage(result.Image)
	if err != nil {
		e.recordGeneration(req, coord, prov.Name(), mode, requestID, start, len(result.Image), ledger.OutcomeFailed, err)
		return nil, err
	}

	meta := tile.Metadata{
		Prompt:          composed,
		UserPrompt:      req.UserPrompt,
		CreatedAt:       time.Now().UTC(),
		Coordinates:     coord,
		Service:         result.Meta.Service,
		Mode:            mode,
		Seed:            result.Meta.Seed,
		GenerationMeta:  result.Meta.Extra,
		ImageSize:       len(result.Image),
		ImageDimensions: attrs.dimensions,
		Format:          attrs.format,
	}

	op = e.profiler.Start("store_put")
	err = e.store.Put(&tile.Tile{World: req.World, Coord: coord, Image: result.Image, Meta: meta})
	op.End()
	if err != nil {
		e.recordGeneration(req, coord, prov.Name(), mode, requestID, start, len(result.Image), ledger.OutcomeFailed, err)
		return nil, err
	}

	e.cache.Set(key, result.Image)
	e.recordGeneration(req, coord, prov.Name(), mode, requestID, start, len(result.Image), ledger.OutcomeGenerated, nil)

	return &ResolvedTile{Image: result.Image, ContentType: attrs.contentType, Meta: meta}, nil
}

// resolved re-derives the content type for tiles served from cache or store.
func (e *Engine) resolved(image []byte, meta tile.Metadata) (*ResolvedTile, error) {
	attrs, err := probeImage(image)
	if err != nil {
		return nil, err
	}
	return &ResolvedTile{Image: image, ContentType: attrs.contentType, Meta: meta}, nil
}

// recordGeneration writes the audit entry; failures are logged, never
// propagated.
func (e *Engine) recordGeneration(req ResolveRequest, coord tile.Coordinate, providerName string,
	mode tile.Mode, requestID string, start time.Time, imageBytes int, outcome string, cause error) {
	entry := ledger.Entry{
		RequestID:  requestID,
		World:      req.World,
		X:          coord.X,
		Y:          coord.Y,
		Provider:   providerName,
		Mode:       string(mode),
		Outcome:    outcome,
		LatencyMS:  time.Since(start).Milliseconds(),
		ImageBytes: imageBytes,
	}
	if cause != nil {
		entry.Detail = cause.Error()
	}
	// The ledger is best-effort; use a fresh context so a cancelled
	// request still gets its audit row.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.ledger.Record(ctx, entry); err != nil {
		e.log.Warn("failed to record generation in ledger",
			zap.String("request_id", requestID), zap.Error(err))
	}
}

// Metrics exposes profiler data for the operator endpoints.
func (e *Engine) Metrics() map[string]performance.Metric {
	return e.profiler.Snapshot()
}
