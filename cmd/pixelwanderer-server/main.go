package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pixelwanderer/server/internal/api"
	"github.com/pixelwanderer/server/internal/auth"
	"github.com/pixelwanderer/server/internal/cache"
	"github.com/pixelwanderer/server/internal/config"
	"github.com/pixelwanderer/server/internal/engine"
	"github.com/pixelwanderer/server/internal/ledger"
	"github.com/pixelwanderer/server/internal/logging"
	"github.com/pixelwanderer/server/internal/performance"
	"github.com/pixelwanderer/server/internal/prompt"
	"github.com/pixelwanderer/server/internal/provider"
	"github.com/pixelwanderer/server/internal/store"
	"github.com/pixelwanderer/server/internal/streaming"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// run wires the server from configuration and blocks until shutdown.
func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer log.Sync()

	tileStore, err := store.NewFSStore(cfg.Storage.Root, log)
	if err != nil {
		return err
	}

	var genLedger *ledger.Ledger
	if cfg.Ledger.Enabled {
		genLedger, err = ledger.Open(cfg.Ledger.Path, log)
		if err != nil {
			return err
		}
		defer genLedger.Close()
	}

	registry, err := provider.NewRegistry(cfg.Providers.Default,
		provider.NewDalle(cfg.Providers.Dalle, log),
		provider.NewStableDiffusion(cfg.Providers.StableDiffusion, log),
	)
	if err != nil {
		return err
	}

	tileEngine := engine.New(
		tileStore,
		cache.New(cfg.Cache.TTL),
		registry,
		prompt.NewComposer(tileStore),
		genLedger,
		performance.NewProfiler(true),
		log,
	)

	jwtService := auth.NewJWTService(cfg)
	authHandlers := auth.NewHandlers(cfg, jwtService, log)
	streamManager := streaming.NewManager(tileStore)

	mux := http.NewServeMux()
	api.SetupHealthRoute(mux)
	api.SetupBackgroundRoutes(mux, tileEngine, log)
	api.SetupStreamRoute(mux, streamManager, log)
	api.SetupAuthRoutes(mux, authHandlers)
	api.SetupAdminRoutes(mux, tileStore, genLedger, tileEngine, authHandlers, log)

	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      api.CORSMiddleware(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("pixelwanderer server starting",
			zap.String("addr", server.Addr),
			zap.String("storage_root", cfg.Storage.Root),
			zap.Strings("providers", registry.Names()),
			zap.String("environment", cfg.Server.Environment))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		log.Info("shutting down", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
