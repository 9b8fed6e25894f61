// Command indexer runs the ingestion pipeline: the discovery loops
// feed profile requests through the broker to the dispatcher, which
// profiles datasets and writes the catalog.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"tablehub/adapters/broker"
	"tablehub/adapters/materialize"
	"tablehub/adapters/memory"
	"tablehub/adapters/postgres"
	"tablehub/adapters/sketch"
	"tablehub/adapters/source"
	"tablehub/internal/config"
	"tablehub/internal/discovery"
	"tablehub/internal/dispatcher"
	"tablehub/internal/logging"
	"tablehub/internal/profiler"
	"tablehub/ports"
)

func main() {
	godotenv.Load()
	log := logging.NewDefaultLogger("indexer")

	cfg, err := config.Load()
	if err != nil {
		log.Error("configuration error: %v", err)
		os.Exit(1)
	}

	db, err := postgres.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Error("database error: %v", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := postgres.EnsureSchema(context.Background(), db); err != nil {
		log.Error("schema error: %v", err)
		os.Exit(1)
	}

	var sketchIndex ports.SketchIndex
	if cfg.SketchHost != "" {
		sketchIndex = sketch.NewClient(cfg.SketchHost, cfg.SketchPort)
	} else {
		log.Warn("no sketch server configured, using in-memory index")
		sketchIndex = memory.NewSketchIndex()
	}

	bulk, incremental, err := buildSources(cfg)
	if err != nil {
		log.Error("source configuration error: %v", err)
		os.Exit(1)
	}
	if len(bulk)+len(incremental) == 0 {
		log.Error("no sources configured, set SOURCES_FILE")
		os.Exit(1)
	}

	catalog := postgres.NewCatalog(db)
	pending := postgres.NewPendingStore(db)
	bus := broker.NewInProcess()
	prof := profiler.New(sketchIndex, nil)
	worker := dispatcher.NewWorker(bus, catalog, materialize.New(), prof)
	runner := discovery.NewRunner(bus, catalog, pending, nil)

	ctx, cancel := context.WithCancel(context.Background())
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Info("shutting down")
		cancel()
	}()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return worker.Run(ctx) })
	g.Go(func() error { return runner.RunAll(ctx, bulk, incremental) })
	if err := g.Wait(); err != nil && err != context.Canceled {
		log.Error("pipeline stopped: %v", err)
		os.Exit(1)
	}
}

func buildSources(cfg *config.Config) ([]ports.BulkSource, []ports.IncrementalSource, error) {
	entries, err := cfg.LoadSources()
	if err != nil {
		return nil, nil, err
	}
	var bulk []ports.BulkSource
	var incremental []ports.IncrementalSource
	for _, e := range entries {
		interval := e.Interval(cfg.DefaultCheckInterval)
		switch e.Type {
		case "bulk":
			bulk = append(bulk, source.NewBulkHTTP(e.URL, e.URL, e.ListURL, interval))
		case "socrata":
			incremental = append(incremental, source.NewSocrata(e.URL, e.Auth, interval))
		}
	}
	return bulk, incremental, nil
}
