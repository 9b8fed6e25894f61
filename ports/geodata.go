package ports

import (
	"context"
)

// GeoData resolves administrative area names (countries, states,
// cities). The classifier uses it to tag Admin columns; a nil GeoData
// simply disables that tagging.
type GeoData interface {
	// ResolveNames returns, for each sample value, the resolved
	// canonical name or "" when the value is not a known area.
	ResolveNames(ctx context.Context, sample []string) ([]string, error)
}
