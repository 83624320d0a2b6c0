package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/config"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/gamemap"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/httpapi"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/lobby"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/logging"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/server"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/tankconfig"
	"github.com/Zwazel-Teaching-Projects/tank-coding-battle-sub000/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize structured logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	registry := lobby.NewRegistry(mapLookup(cfg.MapDir, logger), tankconfig.DefaultCatalog(), cfg.TickRate, cfg.MaxLobbies)

	reg := prometheus.NewRegistry()
	metrics := httpapi.NewMetrics(reg)
	limiter := httpapi.NewFirstContactLimiter(cfg.FirstContactRate, cfg.FirstContactBurst)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ln, err := transport.Listen(cfg.Address, cfg.FirstContactTimeout, transport.DefaultMaxFrameBytes)
	if err != nil {
		logger.Fatal("failed to bind game listener", logging.String("addr", cfg.Address), logging.Error(err))
	}
	defer ln.Close()
	logger.Info("tank battle server listening", logging.String("addr", cfg.Address), logging.Int("tickRate", cfg.TickRate))

	srv := server.New(server.Options{
		Registry:            registry,
		Log:                 logger,
		Metrics:             metrics,
		FirstContactTimeout: cfg.FirstContactTimeout,
		FirstContactLimiter: limiter,
	})
	go srv.Serve(ctx, ln)

	handlers := httpapi.NewHandlerSet(httpapi.Options{
		Logger:    logger,
		Registry:  registry,
		Metrics:   metrics,
		Gatherer:  reg,
		StartedAt: time.Now(),
	})
	mux := http.NewServeMux()
	handlers.Register(mux)
	httpSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("ops HTTP server stopped", logging.Error(err))
		}
	}()
	logger.Info("ops HTTP surface listening", logging.String("addr", cfg.MetricsAddr))

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(shutdownCtx)
}

// mapLookup returns a lobby.MapLookup that reads a pre-parsed
// MapDefinition JSON file named <mapName>.json out of dir. Parsing the
// asset itself (geometry authoring, validation beyond basic JSON
// decoding) remains an external collaborator's job; this only resolves
// an already-valid file by name.
func mapLookup(dir string, logger *logging.Logger) lobby.MapLookup {
	return func(mapName string) (*gamemap.Definition, error) {
		path := filepath.Join(dir, mapName+".json")
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading map file %q: %w", path, err)
		}
		var def gamemap.Definition
		if err := json.Unmarshal(data, &def); err != nil {
			return nil, fmt.Errorf("parsing map file %q: %w", path, err)
		}
		logger.Debug("loaded map definition", logging.String("map", mapName), logging.String("path", path))
		return &def, nil
	}
}
