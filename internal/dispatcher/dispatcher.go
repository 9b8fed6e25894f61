// Package dispatcher consumes profile requests from the broker,
// materializes and profiles each dataset under a bounded ticket count,
// and writes the results to the catalog.
package dispatcher

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/internal/logging"
	"tablehub/internal/profiler"
	"tablehub/ports"
)

// MaxConcurrent bounds in-flight profiling work per worker process.
const MaxConcurrent = 2

// Worker is the profile-queue consumer.
type Worker struct {
	broker       ports.Broker
	catalog      ports.Catalog
	materializer ports.Materializer
	profiler     *profiler.Profiler
	tickets      *semaphore.Weighted
	log          *logging.Logger
}

// NewWorker creates a worker
func NewWorker(broker ports.Broker, catalog ports.Catalog, materializer ports.Materializer, prof *profiler.Profiler) *Worker {
	return &Worker{
		broker:       broker,
		catalog:      catalog,
		materializer: materializer,
		profiler:     prof,
		tickets:      semaphore.NewWeighted(MaxConcurrent),
		log:          logging.NewDefaultLogger("dispatcher"),
	}
}

// Run consumes until ctx is done. In-flight profiles complete before
// Run returns.
func (w *Worker) Run(ctx context.Context) error {
	deliveries, err := w.broker.ConsumeProfileRequests(ctx)
	if err != nil {
		return fmt.Errorf("failed to start consumer: %w", err)
	}
	w.log.Info("consuming profile requests, %d tickets", MaxConcurrent)

	var wg sync.WaitGroup
	for delivery := range deliveries {
		if err := w.tickets.Acquire(ctx, 1); err != nil {
			delivery.Ack()
			break
		}
		wg.Add(1)
		go func(d ports.Delivery) {
			defer wg.Done()
			defer w.tickets.Release(1)
			w.handle(ctx, d)
		}(delivery)
	}
	wg.Wait()
	return ctx.Err()
}

// handle settles one delivery: catalog write and topic publish on
// success, dead-queue move on failure. Either way the message is acked;
// profiling failures are assumed deterministic, so redelivery would
// loop.
func (w *Worker) handle(ctx context.Context, d ports.Delivery) {
	defer d.Ack()

	id := core.DatasetID(d.Request.ID)
	prof, err := w.process(ctx, d)
	if err != nil {
		w.log.Error("profiling %s failed: %v", id, err)
		if pubErr := w.broker.PublishFailed(ctx, d.Body); pubErr != nil {
			w.log.Error("failed to dead-letter %s: %v", id, pubErr)
		}
		return
	}

	prof.IndexedAt = core.Now()
	if err := w.catalog.Put(ctx, prof); err != nil {
		w.log.Error("failed to store profile %s: %v", id, err)
		if pubErr := w.broker.PublishFailed(ctx, d.Body); pubErr != nil {
			w.log.Error("failed to dead-letter %s: %v", id, pubErr)
		}
		return
	}
	if err := w.broker.PublishDataset(ctx, string(id), prof); err != nil {
		w.log.Warn("failed to broadcast profile %s: %v", id, err)
	}
	w.log.Info("profiled %s: %d rows, %d columns", id, prof.NbRows, len(prof.Columns))
}

func (w *Worker) process(ctx context.Context, d ports.Delivery) (*profile.Profile, error) {
	id := core.DatasetID(d.Request.ID)
	path, cleanup, err := w.materializer.Materialize(ctx, id, d.Request.Metadata.Materialize)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProfileFailed, err)
	}
	defer cleanup()

	prof, err := w.profiler.ProfileFile(ctx, path, profiler.Options{
		ID:       id,
		Metadata: &d.Request.Metadata,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrProfileFailed, err)
	}
	return prof, nil
}
