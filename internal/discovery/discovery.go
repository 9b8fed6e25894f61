// Package discovery reconciles external catalogs with the internal
// index: it lists each source on a fixed interval, submits new or
// changed datasets for profiling, and purges datasets the source no
// longer returns.
package discovery

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/internal/logging"
	"tablehub/ports"
)

// Runner drives the per-source reconciliation loops.
type Runner struct {
	broker  ports.Broker
	catalog ports.Catalog
	pending ports.PendingStore
	sink    ports.ErrorSink
	log     *logging.Logger
}

// NewRunner creates a runner. sink may be nil.
func NewRunner(broker ports.Broker, catalog ports.Catalog, pending ports.PendingStore, sink ports.ErrorSink) *Runner {
	return &Runner{
		broker:  broker,
		catalog: catalog,
		pending: pending,
		sink:    sink,
		log:     logging.NewDefaultLogger("discovery"),
	}
}

// RunAll runs every source loop until ctx is done
func (r *Runner) RunAll(ctx context.Context, bulk []ports.BulkSource, incremental []ports.IncrementalSource) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, src := range bulk {
		src := src
		g.Go(func() error { return r.RunBulk(ctx, src) })
	}
	for _, src := range incremental {
		src := src
		g.Go(func() error { return r.RunIncremental(ctx, src) })
	}
	return g.Wait()
}

// RunBulk loops one bulk source forever. Pass errors are captured and
// the loop retries on the next interval; it only stops with ctx.
func (r *Runner) RunBulk(ctx context.Context, src ports.BulkSource) error {
	for {
		if err := r.BulkPass(ctx, src); err != nil {
			r.capture(src.Identifier(), err)
		}
		if err := sleep(ctx, src.CheckInterval()); err != nil {
			return err
		}
	}
}

// RunIncremental loops one incremental source forever
func (r *Runner) RunIncremental(ctx context.Context, src ports.IncrementalSource) error {
	for {
		if err := r.IncrementalPass(ctx, src); err != nil {
			r.capture(src.Identifier(), err)
		}
		if err := sleep(ctx, src.CheckInterval()); err != nil {
			return err
		}
	}
}

func (r *Runner) capture(identifier string, err error) {
	r.log.Error("discovery pass for %s failed: %v", identifier, err)
	if r.sink != nil {
		r.sink.CaptureException(err)
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IncrementalPass lists the source once and submits datasets that are
// new or were modified since their last profile.
func (r *Runner) IncrementalPass(ctx context.Context, src ports.IncrementalSource) error {
	descriptors, err := src.ListDatasets(ctx)
	if err != nil {
		return fmt.Errorf("failed to list %s: %w", src.Identifier(), err)
	}

	submitted := 0
	for _, d := range descriptors {
		id := core.NewDatasetID(src.Identifier(), d.SourceLocalID)
		if r.upToDate(ctx, id, d.LastModified) {
			continue
		}
		if err := r.submit(ctx, id, d); err != nil {
			r.log.Warn("failed to submit %s: %v", id, err)
			continue
		}
		submitted++
	}
	r.log.Info("%s: %d listed, %d submitted", src.Identifier(), len(descriptors), submitted)
	return nil
}

// upToDate reports whether the indexed profile is at least as fresh as
// the listing's last-modified stamp.
func (r *Runner) upToDate(ctx context.Context, id core.DatasetID, lastModified *time.Time) bool {
	if lastModified == nil {
		return false
	}
	existing, err := r.catalog.Get(ctx, id)
	if err != nil {
		return false
	}
	stored := existing.Materialize.GetString(profile.MaterializeUpdated)
	if stored == "" {
		return false
	}
	updated, err := time.Parse(time.RFC3339, stored)
	if err != nil {
		return false
	}
	return !lastModified.After(updated)
}

func (r *Runner) submit(ctx context.Context, id core.DatasetID, d profile.DatasetDescriptor) error {
	req := profile.Request{
		ID: string(id),
		Metadata: profile.RequestMetadata{
			Materialize: d.Materialize,
			Name:        d.Name,
			Description: d.Description,
			Columns:     d.Columns,
		},
	}
	return r.broker.PublishProfileRequest(ctx, req, ports.PriorityNormal)
}

// purgeUnseen deletes every catalog document of the source whose
// source-local id was not part of the current listing.
func (r *Runner) purgeUnseen(ctx context.Context, identifier string, seen map[string]bool) error {
	var stale []core.DatasetID
	err := r.catalog.Scan(ctx, ports.ScanFilter{SourceIdentifier: identifier}, func(p *profile.Profile) error {
		localID := p.Materialize.GetString(profile.MaterializeSourceLocalID)
		if !seen[localID] {
			stale = append(stale, p.ID)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan %s for purge: %w", identifier, err)
	}
	for _, id := range stale {
		if err := r.catalog.Delete(ctx, id); err != nil {
			r.log.Warn("failed to purge %s: %v", id, err)
			continue
		}
		r.log.Info("purged %s: gone from source listing", id)
	}
	return nil
}
