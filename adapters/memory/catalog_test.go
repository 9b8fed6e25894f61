package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/domain/search"
	"tablehub/ports"
)

func storedProfile(id, source, name string) *profile.Profile {
	return &profile.Profile{
		ID:   core.DatasetID(id),
		Name: name,
		Materialize: profile.Materialize{
			profile.MaterializeIdentifier: source,
		},
	}
}

func TestCatalogPutIsUpsert(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()

	require.NoError(t, c.Put(ctx, storedProfile("s.a", "s", "first")))
	require.NoError(t, c.Put(ctx, storedProfile("s.a", "s", "second")))

	got, err := c.Get(ctx, "s.a")
	require.NoError(t, err)
	assert.Equal(t, "second", got.Name)
}

func TestCatalogGetUnknown(t *testing.T) {
	c := NewCatalog()
	_, err := c.Get(context.Background(), "nope")
	assert.True(t, core.IsNotFound(err))
}

func TestCatalogScanFiltersBySource(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()
	require.NoError(t, c.Put(ctx, storedProfile("s1.a", "s1", "a")))
	require.NoError(t, c.Put(ctx, storedProfile("s1.b", "s1", "b")))
	require.NoError(t, c.Put(ctx, storedProfile("s2.c", "s2", "c")))

	var seen []string
	err := c.Scan(ctx, ports.ScanFilter{SourceIdentifier: "s1"}, func(p *profile.Profile) error {
		seen = append(seen, string(p.ID))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"s1.a", "s1.b"}, seen)
}

func TestCatalogSearchScoresAndLimits(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()
	require.NoError(t, c.Put(ctx, storedProfile("s.taxi", "s", "taxi trips")))
	require.NoError(t, c.Put(ctx, storedProfile("s.bikes", "s", "bike lanes")))
	require.NoError(t, c.Put(ctx, storedProfile("s.cabs", "s", "taxi fares")))

	q := &search.Query{Must: []search.Clause{search.TextMatch{Field: "name", Query: "taxi"}}}
	hits, err := c.Search(ctx, q, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Contains(t, h.Profile.Name, "taxi")
		assert.Equal(t, "s", h.Source)
	}

	limited, err := c.Search(ctx, q, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestCatalogDelete(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()
	require.NoError(t, c.Put(ctx, storedProfile("s.a", "s", "a")))
	require.NoError(t, c.Delete(ctx, "s.a"))
	_, err := c.Get(ctx, "s.a")
	assert.True(t, core.IsNotFound(err))
}

func TestPendingStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewPendingStore()

	_, err := s.GetDigest(ctx, "src")
	assert.True(t, core.IsNotFound(err))

	require.NoError(t, s.PutDigest(ctx, "src", "abc123"))
	d, err := s.GetDigest(ctx, "src")
	require.NoError(t, err)
	assert.Equal(t, core.Digest("abc123"), d)
}
