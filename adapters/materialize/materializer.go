// Package materialize re-fetches dataset bytes from their opaque
// materialize records: a local path from a dump extraction, or a direct
// download URL, with XLSX payloads converted to CSV on the way.
package materialize

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"tablehub/adapters/excel"
	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/internal/logging"
)

// Materializer implements ports.Materializer.
type Materializer struct {
	http *http.Client
	log  *logging.Logger
}

// New creates a materializer
func New() *Materializer {
	return &Materializer{
		http: &http.Client{Timeout: 5 * time.Minute},
		log:  logging.NewDefaultLogger("materialize"),
	}
}

// Materialize implements ports.Materializer
func (m *Materializer) Materialize(ctx context.Context, id core.DatasetID, record profile.Materialize) (string, func(), error) {
	noop := func() {}

	if path := record.GetString(profile.MaterializePath); path != "" {
		if record.GetString(profile.MaterializeFormat) == "xlsx" {
			return m.convertXLSX(path)
		}
		return path, noop, nil
	}

	directURL := record.GetString(profile.MaterializeDirectURL)
	if directURL == "" {
		return "", noop, fmt.Errorf("%w: no path or direct_url for %s", core.ErrMaterializeFailed, id)
	}

	path, cleanup, err := m.download(ctx, directURL)
	if err != nil {
		return "", noop, err
	}
	if record.GetString(profile.MaterializeFormat) == "xlsx" {
		converted, convCleanup, err := m.convertXLSX(path)
		if err != nil {
			cleanup()
			return "", noop, err
		}
		return converted, func() { convCleanup(); cleanup() }, nil
	}
	return path, cleanup, nil
}

func (m *Materializer) download(ctx context.Context, directURL string) (string, func(), error) {
	noop := func() {}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, directURL, nil)
	if err != nil {
		return "", noop, fmt.Errorf("failed to build download request: %w", err)
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return "", noop, fmt.Errorf("%w: %v", core.ErrMaterializeFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", noop, fmt.Errorf("%w: status %d from %s", core.ErrMaterializeFailed, resp.StatusCode, directURL)
	}

	f, err := os.CreateTemp("", "tablehub-data-*.csv")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() {
		if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
			m.log.Warn("failed to remove temp file %s: %v", f.Name(), err)
		}
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		f.Close()
		cleanup()
		return "", noop, fmt.Errorf("failed to download dataset: %w", err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("failed to close temp file: %w", err)
	}
	return f.Name(), cleanup, nil
}

func (m *Materializer) convertXLSX(path string) (string, func(), error) {
	noop := func() {}
	f, err := os.CreateTemp("", "tablehub-xlsx-*.csv")
	if err != nil {
		return "", noop, fmt.Errorf("failed to create temp file: %w", err)
	}
	cleanup := func() {
		if err := os.Remove(f.Name()); err != nil && !os.IsNotExist(err) {
			m.log.Warn("failed to remove temp file %s: %v", f.Name(), err)
		}
	}
	if err := excel.ToCSV(path, f); err != nil {
		f.Close()
		cleanup()
		return "", noop, fmt.Errorf("%w: %v", core.ErrMaterializeFailed, err)
	}
	if err := f.Close(); err != nil {
		cleanup()
		return "", noop, fmt.Errorf("failed to close temp file: %w", err)
	}
	return f.Name(), cleanup, nil
}
