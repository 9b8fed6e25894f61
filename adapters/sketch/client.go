// Package sketch is an HTTP client for the external similarity-sketch
// server indexing text columns.
package sketch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/ports"
)

// Client talks to a sketch server over JSON HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the server at host:port
func NewClient(host string, port int) *Client {
	return &Client{
		baseURL: fmt.Sprintf("http://%s:%d", host, port),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

type indexRequest struct {
	DatasetID string   `json:"dataset_id"`
	Column    string   `json:"column"`
	Values    []string `json:"values"`
}

type sketchRequest struct {
	Column string   `json:"column"`
	Values []string `json:"values"`
}

type queryResponse struct {
	Results []struct {
		DatasetID  string  `json:"dataset_id"`
		ColumnName string  `json:"column_name"`
		Score      float64 `json:"score"`
	} `json:"results"`
}

// IndexColumn implements ports.SketchIndex
func (c *Client) IndexColumn(ctx context.Context, id core.DatasetID, column string, values []string) error {
	body := indexRequest{DatasetID: string(id), Column: column, Values: values}
	return c.post(ctx, "/sketch/index", body, nil)
}

// Sketch implements ports.SketchIndex
func (c *Client) Sketch(ctx context.Context, column string, values []string) (profile.ColumnSketch, error) {
	var sk profile.ColumnSketch
	err := c.post(ctx, "/sketch/compute", sketchRequest{Column: column, Values: values}, &sk)
	return sk, err
}

// Query implements ports.SketchIndex
func (c *Client) Query(ctx context.Context, sketch profile.ColumnSketch) ([]ports.ColumnOverlap, error) {
	var resp queryResponse
	if err := c.post(ctx, "/sketch/query", sketch, &resp); err != nil {
		return nil, err
	}
	overlaps := make([]ports.ColumnOverlap, 0, len(resp.Results))
	for _, r := range resp.Results {
		overlaps = append(overlaps, ports.ColumnOverlap{
			DatasetID:  core.DatasetID(r.DatasetID),
			ColumnName: r.ColumnName,
			Score:      r.Score,
		})
	}
	return overlaps, nil
}

// DeleteDataset implements ports.SketchIndex
func (c *Client) DeleteDataset(ctx context.Context, id core.DatasetID) error {
	endpoint := c.baseURL + "/sketch/dataset/" + url.PathEscape(string(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build sketch request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrSketchUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", core.ErrSketchUnavailable, resp.StatusCode)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode sketch request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build sketch request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrSketchUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d from %s", core.ErrSketchUnavailable, resp.StatusCode, path)
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode sketch response: %w", err)
	}
	return nil
}
