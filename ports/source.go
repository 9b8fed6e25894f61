package ports

import (
	"context"
	"io"
	"time"

	"tablehub/domain/profile"
)

// BulkSource is an external catalog that publishes a single dump
// containing every dataset, plus a metadata listing.
type BulkSource interface {
	// Identifier names this source ("<prefix>.<name>").
	Identifier() string

	// FetchDump streams the bulk tarball.
	FetchDump(ctx context.Context) (io.ReadCloser, error)

	// ListDatasets fetches the metadata listing for the current dump.
	ListDatasets(ctx context.Context) ([]profile.DatasetDescriptor, error)

	// CheckInterval is the reconciliation period.
	CheckInterval() time.Duration
}

// IncrementalSource is an external catalog that can be listed
// per-dataset with last-modified information.
type IncrementalSource interface {
	Identifier() string
	ListDatasets(ctx context.Context) ([]profile.DatasetDescriptor, error)
	CheckInterval() time.Duration
}

// ErrorSink captures per-pass discovery errors for a crash-reporting
// collaborator. The loop itself never terminates on error.
type ErrorSink interface {
	CaptureException(err error)
}
