package profile

import (
	"time"
)

// DatasetDescriptor is what a source returns for one dataset before it
// is profiled.
type DatasetDescriptor struct {
	SourceLocalID string      `json:"source_local_id"`
	Name          string      `json:"name"`
	Description   string      `json:"description,omitempty"`
	SourceURL     string      `json:"source_url,omitempty"`
	LastModified  *time.Time  `json:"last_modified,omitempty"`
	Materialize   Materialize `json:"materialize"`

	// Columns optionally carries column slots supplied by the
	// discoverer. The CSV header wins on width mismatch.
	Columns []ColumnProfile `json:"columns,omitempty"`
}

// RequestMetadata is the metadata section of a profile request message.
type RequestMetadata struct {
	Materialize Materialize     `json:"materialize"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Columns     []ColumnProfile `json:"columns,omitempty"`
}

// Request is the discoverer-to-profiler message submitted on the
// profile exchange.
type Request struct {
	ID       string          `json:"id"`
	Metadata RequestMetadata `json:"metadata"`
}
