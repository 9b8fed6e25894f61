package ports

import (
	"context"

	"tablehub/domain/core"
	"tablehub/domain/profile"
)

// Materializer re-fetches the raw bytes of a dataset from its opaque
// materialize record and exposes them as a local CSV file.
type Materializer interface {
	// Materialize returns the path of a readable CSV for the dataset
	// and a cleanup func releasing any temporary resources. Cleanup is
	// safe to call on every exit path.
	Materialize(ctx context.Context, id core.DatasetID, m profile.Materialize) (path string, cleanup func(), err error)
}
