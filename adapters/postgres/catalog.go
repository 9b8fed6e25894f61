// Package postgres persists the catalog in PostgreSQL. Profiles are
// stored as JSONB documents keyed by dataset id, with the source
// identifier denormalized for scans.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/domain/search"
	"tablehub/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS profiles (
    id                TEXT PRIMARY KEY,
    source_identifier TEXT NOT NULL,
    document          JSONB NOT NULL,
    indexed_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_profiles_source ON profiles (source_identifier);

CREATE TABLE IF NOT EXISTS pending_dumps (
    identifier TEXT PRIMARY KEY,
    sha1       TEXT NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);
`

// Connect opens a pooled connection and verifies it
func Connect(databaseURL string) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	return db, nil
}

// EnsureSchema creates the catalog tables if they do not exist
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// Catalog is the PostgreSQL-backed ports.Catalog.
type Catalog struct {
	db *sqlx.DB
}

// NewCatalog creates a catalog over an open connection pool
func NewCatalog(db *sqlx.DB) *Catalog {
	return &Catalog{db: db}
}

// Put implements ports.Catalog
func (c *Catalog) Put(ctx context.Context, p *profile.Profile) error {
	document, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO profiles (id, source_identifier, document, indexed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			source_identifier = EXCLUDED.source_identifier,
			document = EXCLUDED.document,
			indexed_at = EXCLUDED.indexed_at`,
		string(p.ID), p.SourceIdentifier(), document, p.IndexedAt.Time())
	if err != nil {
		return fmt.Errorf("failed to upsert profile %s: %w", p.ID, err)
	}
	return nil
}

// Get implements ports.Catalog
func (c *Catalog) Get(ctx context.Context, id core.DatasetID) (*profile.Profile, error) {
	var document []byte
	err := c.db.GetContext(ctx, &document,
		`SELECT document FROM profiles WHERE id = $1`, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, core.NewNotFoundError("dataset", string(id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile %s: %w", id, err)
	}
	var p profile.Profile
	if err := json.Unmarshal(document, &p); err != nil {
		return nil, fmt.Errorf("failed to decode profile %s: %w", id, err)
	}
	return &p, nil
}

// Delete implements ports.Catalog
func (c *Catalog) Delete(ctx context.Context, id core.DatasetID) error {
	if _, err := c.db.ExecContext(ctx,
		`DELETE FROM profiles WHERE id = $1`, string(id)); err != nil {
		return fmt.Errorf("failed to delete profile %s: %w", id, err)
	}
	return nil
}

// Scan implements ports.Catalog
func (c *Catalog) Scan(ctx context.Context, filter ports.ScanFilter, fn func(*profile.Profile) error) error {
	query := `SELECT document FROM profiles ORDER BY id`
	args := []interface{}{}
	if filter.SourceIdentifier != "" {
		query = `SELECT document FROM profiles WHERE source_identifier = $1 ORDER BY id`
		args = append(args, filter.SourceIdentifier)
	}

	rows, err := c.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to scan profiles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var document []byte
		if err := rows.Scan(&document); err != nil {
			return fmt.Errorf("failed to read profile row: %w", err)
		}
		var p profile.Profile
		if err := json.Unmarshal(document, &p); err != nil {
			return fmt.Errorf("failed to decode profile row: %w", err)
		}
		if err := fn(&p); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Search implements ports.Catalog. Candidates are streamed from the
// table and the compiled query tree is evaluated in-process.
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

// PendingStore is the PostgreSQL-backed ports.PendingStore.
type PendingStore struct {
	db *sqlx.DB
}

// NewPendingStore creates a pending store over an open connection pool
func NewPendingStore(db *sqlx.DB) *PendingStore {
	return &PendingStore{db: db}
}

// GetDigest implements ports.PendingStore
func (s *PendingStore) GetDigest(ctx context.Context, identifier string) (core.Digest, error) {
	var sha1 string
	err := s.db.GetContext(ctx, &sha1,
		`SELECT sha1 FROM pending_dumps WHERE identifier = $1`, identifier)
	if errors.Is(err, sql.ErrNoRows) {
		return "", core.NewNotFoundError("pending digest", identifier)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get pending digest for %s: %w", identifier, err)
	}
	return core.Digest(sha1), nil
}

// PutDigest implements ports.PendingStore
func (s *PendingStore) PutDigest(ctx context.Context, identifier string, digest core.Digest) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pending_dumps (identifier, sha1, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (identifier) DO UPDATE SET
			sha1 = EXCLUDED.sha1,
			updated_at = NOW()`,
		identifier, string(digest))
	if err != nil {
		return fmt.Errorf("failed to store pending digest for %s: %w", identifier, err)
	}
	return nil
}
