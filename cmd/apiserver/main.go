// Command apiserver runs the HTTP query service: search, augmentation
// probes, metadata and download.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tablehub/adapters/materialize"
	"tablehub/adapters/memory"
	"tablehub/adapters/postgres"
	"tablehub/adapters/sketch"
	"tablehub/api"
	"tablehub/internal/augment"
	"tablehub/internal/config"
	"tablehub/internal/logging"
	"tablehub/internal/profiler"
	"tablehub/ports"
)

func main() {
	godotenv.Load()
	log := logging.NewDefaultLogger("apiserver")

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

	catalog := postgres.NewCatalog(db)
	materializer := materialize.New()
	prof := profiler.New(sketchIndex, nil)
	matcher := augment.New(catalog, sketchIndex)

	server := api.NewServer(cfg.APIPort, catalog, matcher, prof, materializer)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		log.Info("shutting down")
		server.Shutdown(context.Background())
	}()

	if err := server.ListenAndServe(); err != nil {
		log.Info("server stopped: %v", err)
	}
}
