package ports

import (
	"context"

	"tablehub/domain/core"
	"tablehub/domain/profile"
)

// ColumnOverlap is one join candidate proposed by the sketch index: a
// catalog column whose value set approximately overlaps the probe.
type ColumnOverlap struct {
	DatasetID  core.DatasetID
	ColumnName string
	// Score is the estimated Jaccard containment in [0,1].
	Score float64
}

// SketchIndex is the external similarity-sketch index for text
// columns. Callers treat its errors as non-fatal warnings.
type SketchIndex interface {
	// IndexColumn pushes the full values of a text column under
	// (dataset, column).
	IndexColumn(ctx context.Context, id core.DatasetID, column string, values []string) error

	// Sketch computes a sketch for a value set without indexing it.
	Sketch(ctx context.Context, column string, values []string) (profile.ColumnSketch, error)

	// Query returns indexed columns overlapping the given sketch.
	Query(ctx context.Context, sketch profile.ColumnSketch) ([]ColumnOverlap, error)

	// DeleteDataset removes every column indexed under the dataset.
	DeleteDataset(ctx context.Context, id core.DatasetID) error
}
