package ports

import (
	"context"

	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/domain/search"
)

// ScanFilter narrows a catalog scan.
type ScanFilter struct {
	// SourceIdentifier restricts the scan to documents discovered by
	// one source. Empty means all documents.
	SourceIdentifier string
}

// Hit is one search result from the catalog.
type Hit struct {
	ID      core.DatasetID
	Score   float64
	Source  string
	Profile *profile.Profile
}

// Catalog is the persistent document store of dataset profiles.
// Consistency is last-writer-wins by id; there are no cross-document
// transactions.
type Catalog interface {
	// Put upserts a profile, fully replacing the document with the
	// same id.
	Put(ctx context.Context, p *profile.Profile) error

	// Get returns the profile for id, or core.ErrNotFound.
	Get(ctx context.Context, id core.DatasetID) (*profile.Profile, error)

	// Delete removes the document for id.
	Delete(ctx context.Context, id core.DatasetID) error

	// Scan streams documents matching the filter to fn. A non-nil
	// error from fn aborts the scan.
	Scan(ctx context.Context, filter ScanFilter, fn func(*profile.Profile) error) error

	// Search evaluates a compiled query tree and returns scored hits,
	// best first.
	Search(ctx context.Context, q *search.Query, limit int) ([]Hit, error)
}

// PendingStore keeps the per-source record of the last successfully
// ingested bulk dump, keyed by source identifier.
type PendingStore interface {
	// GetDigest returns the stored digest, or core.ErrNotFound.
	GetDigest(ctx context.Context, identifier string) (core.Digest, error)

	// PutDigest records the digest of the dump just ingested.
	PutDigest(ctx context.Context, identifier string, digest core.Digest) error
}
