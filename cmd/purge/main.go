// Command purge removes every indexed dataset of one source from the
// catalog and the sketch index.
//
// Usage: purge <source-identifier>
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"tablehub/adapters/memory"
	"tablehub/adapters/postgres"
	"tablehub/adapters/sketch"
	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/internal/config"
	"tablehub/internal/logging"
	"tablehub/ports"
)

func main() {
	godotenv.Load()
	log := logging.NewDefaultLogger("purge")

	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: purge <source-identifier>")
		os.Exit(2)
	}
	identifier := os.Args[1]

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

	var sketchIndex ports.SketchIndex
	if cfg.SketchHost != "" {
		sketchIndex = sketch.NewClient(cfg.SketchHost, cfg.SketchPort)
	} else {
		sketchIndex = memory.NewSketchIndex()
	}

	ctx := context.Background()
	catalog := postgres.NewCatalog(db)

	var ids []core.DatasetID
	err = catalog.Scan(ctx, ports.ScanFilter{SourceIdentifier: identifier}, func(p *profile.Profile) error {
		ids = append(ids, p.ID)
		return nil
	})
	if err != nil {
		log.Error("failed to enumerate %s: %v", identifier, err)
		os.Exit(1)
	}

	for _, id := range ids {
		if err := catalog.Delete(ctx, id); err != nil {
			log.Error("failed to delete %s: %v", id, err)
			continue
		}
		if err := sketchIndex.DeleteDataset(ctx, id); err != nil {
			log.Warn("failed to remove sketches of %s: %v", id, err)
		}
		log.Info("purged %s", id)
	}
	log.Info("purged %d datasets for %s", len(ids), identifier)
}
