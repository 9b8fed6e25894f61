// Package source implements external catalog adapters: a bulk-dump
// publisher exposing one tarball of every dataset, and a Socrata-style
// API listed incrementally per dataset.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tablehub/domain/core"
	"tablehub/domain/profile"
)

// DefaultCheckInterval is how often sources are reconciled when the
// configuration does not say otherwise.
const DefaultCheckInterval = 24 * time.Hour

// BulkHTTP is a ports.BulkSource over a site publishing a dump tarball
// and a JSON metadata listing.
type BulkHTTP struct {
	identifier string
	dumpURL    string
	listURL    string
	interval   time.Duration
	http       *http.Client
}

// NewBulkHTTP creates a bulk source. name is encoded into the source
// identifier; interval 0 means DefaultCheckInterval.
func NewBulkHTTP(name, dumpURL, listURL string, interval time.Duration) *BulkHTTP {
	if interval <= 0 {
		interval = DefaultCheckInterval
	}
	return &BulkHTTP{
		identifier: core.EncodeSourceName(name),
		dumpURL:    dumpURL,
		listURL:    listURL,
		interval:   interval,
		http:       &http.Client{Timeout: 30 * time.Minute},
	}
}

// Identifier implements ports.BulkSource
func (s *BulkHTTP) Identifier() string {
	return s.identifier
}

// CheckInterval implements ports.BulkSource
func (s *BulkHTTP) CheckInterval() time.Duration {
	return s.interval
}

// FetchDump implements ports.BulkSource
func (s *BulkHTTP) FetchDump(ctx context.Context) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.dumpURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build dump request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch dump: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: status %d from %s", core.ErrSourceProtocol, resp.StatusCode, s.dumpURL)
	}
	return resp.Body, nil
}

type bulkListing struct {
	Datasets []struct {
		ID          string `json:"id"`
		Name        string `json:"name"`
		Description string `json:"description"`
		SourceURL   string `json:"source_url"`
	} `json:"datasets"`
}

// ListDatasets implements ports.BulkSource
func (s *BulkHTTP) ListDatasets(ctx context.Context) ([]profile.DatasetDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.listURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build listing request: %w", err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d from %s", core.ErrSourceProtocol, resp.StatusCode, s.listURL)
	}

	var listing bulkListing
	if err := json.NewDecoder(resp.Body).Decode(&listing); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrSourceProtocol, err)
	}

	descriptors := make([]profile.DatasetDescriptor, 0, len(listing.Datasets))
	for _, d := range listing.Datasets {
		descriptors = append(descriptors, profile.DatasetDescriptor{
			SourceLocalID: d.ID,
			Name:          d.Name,
			Description:   d.Description,
			SourceURL:     d.SourceURL,
			Materialize: profile.Materialize{
				profile.MaterializeIdentifier:    s.identifier,
				profile.MaterializeSourceLocalID: d.ID,
			},
		})
	}
	return descriptors, nil
}
