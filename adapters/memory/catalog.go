// Package memory provides in-process adapter implementations backed by
// maps. They serve tests and single-node deployments without external
// services.
package memory

import (
	"context"
	"sort"
	"sync"

	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/domain/search"
	"tablehub/ports"
)

// Catalog is a map-backed profile store.
type Catalog struct {
	mu   sync.RWMutex
	docs map[core.DatasetID]*profile.Profile
}

// NewCatalog creates an empty in-memory catalog
func NewCatalog() *Catalog {
	return &Catalog{docs: map[core.DatasetID]*profile.Profile{}}
}

// Put implements ports.Catalog
func (c *Catalog) Put(_ context.Context, p *profile.Profile) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	copied := *p
	c.docs[p.ID] = &copied
	return nil
}

// Get implements ports.Catalog
func (c *Catalog) Get(_ context.Context, id core.DatasetID) (*profile.Profile, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.docs[id]
	if !ok {
		return nil, core.NewNotFoundError("dataset", string(id))
	}
	copied := *p
	return &copied, nil
}

// Delete implements ports.Catalog
func (c *Catalog) Delete(_ context.Context, id core.DatasetID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.docs, id)
	return nil
}

// Scan implements ports.Catalog
func (c *Catalog) Scan(_ context.Context, filter ports.ScanFilter, fn func(*profile.Profile) error) error {
	c.mu.RLock()
	snapshot := make([]*profile.Profile, 0, len(c.docs))
	for _, p := range c.docs {
		if filter.SourceIdentifier != "" && p.SourceIdentifier() != filter.SourceIdentifier {
			continue
		}
		copied := *p
		snapshot = append(snapshot, &copied)
	}
	c.mu.RUnlock()

	sort.Slice(snapshot, func(i, j int) bool { return snapshot[i].ID < snapshot[j].ID })
	for _, p := range snapshot {
		if err := fn(p); err != nil {
			return err
		}
	}
	return nil
}

// Search implements ports.Catalog by evaluating the query tree against
// every document.
func (c *Catalog) Search(ctx context.Context, q *search.Query, limit int) ([]ports.Hit, error) {
	var hits []ports.Hit
	err := c.Scan(ctx, ports.ScanFilter{}, func(p *profile.Profile) error {
		score, ok := search.Evaluate(q, p)
		if !ok {
			return nil
		}
		hits = append(hits, ports.Hit{
			ID:      p.ID,
			Score:   score,
			Source:  p.SourceIdentifier(),
			Profile: p,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

// PendingStore is a map-backed dump digest store.
type PendingStore struct {
	mu      sync.Mutex
	digests map[string]core.Digest
}

// NewPendingStore creates an empty pending store
func NewPendingStore() *PendingStore {
	return &PendingStore{digests: map[string]core.Digest{}}
}

// GetDigest implements ports.PendingStore
func (s *PendingStore) GetDigest(_ context.Context, identifier string) (core.Digest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.digests[identifier]
	if !ok {
		return "", core.NewNotFoundError("pending digest", identifier)
	}
	return d, nil
}

// PutDigest implements ports.PendingStore
func (s *PendingStore) PutDigest(_ context.Context, identifier string, digest core.Digest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.digests[identifier] = digest
	return nil
}
