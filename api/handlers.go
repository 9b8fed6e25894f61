package api

import (
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/domain/search"
	"tablehub/internal/augment"
	"tablehub/internal/profiler"
	"tablehub/internal/querycompiler"
)

// maxResults caps one search response.
const maxResults = 50

// maxDescription is the hit description length before truncation.
const maxDescription = 100

type searchRequest struct {
	Query *querycompiler.QuerySpec `json:"query,omitempty"`
	// Data is the raw CSV of a probe dataset for augmentation search.
	Data string `json:"data,omitempty"`
	// DataID references an indexed dataset as the probe instead.
	DataID string `json:"data_id,omitempty"`
}

type searchResult struct {
	ID           core.DatasetID       `json:"id"`
	Score        float64              `json:"score"`
	Metadata     *profile.Profile     `json:"metadata"`
	JoinColumns  []augment.ColumnPair `json:"join_columns,omitempty"`
	UnionColumns []augment.ColumnPair `json:"union_columns,omitempty"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Query == nil && req.Data == "" && req.DataID == "" {
		writeError(w, http.StatusBadRequest, "one of query or data is required")
		return
	}

	query, err := querycompiler.Compile(req.Query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Data != "" || req.DataID != "" {
		s.searchAugment(w, r, req, query)
		return
	}

	hits, err := s.catalog.Search(r.Context(), query, maxResults)
	if err != nil {
		s.log.Error("search failed: %v", err)
		writeError(w, http.StatusInternalServerError, "search failed")
		return
	}
	results := make([]searchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, searchResult{
			ID:       h.ID,
			Score:    h.Score,
			Metadata: truncated(h.Profile),
		})
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

// searchAugment resolves the probe profile (indexed dataset or raw
// bytes profiled in search mode, never persisted) and matches it.
func (s *Server) searchAugment(w http.ResponseWriter, r *http.Request, req searchRequest, query *search.Query) {
	var probe *profile.Profile
	var err error
	if req.DataID != "" {
		probe, err = s.catalog.Get(r.Context(), core.DatasetID(req.DataID))
		if core.IsNotFound(err) {
			writeError(w, http.StatusNotFound, "unknown dataset")
			return
		}
	} else {
		probe, err = s.profiler.ProfileBytes(r.Context(), []byte(req.Data), profiler.Options{Search: true})
	}
	if err != nil {
		s.log.Error("probe profiling failed: %v", err)
		writeError(w, http.StatusBadRequest, "failed to profile data")
		return
	}

	candidates, err := s.matcher.Match(r.Context(), probe, query)
	if err != nil {
		s.log.Error("augmentation match failed: %v", err)
		writeError(w, http.StatusInternalServerError, "match failed")
		return
	}
	if len(candidates) > maxResults {
		candidates = candidates[:maxResults]
	}
	results := make([]searchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, searchResult{
			ID:           c.ID,
			Score:        c.Score,
			Metadata:     truncated(c.Profile),
			JoinColumns:  c.JoinColumns,
			UnionColumns: c.UnionColumns,
		})
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

func (s *Server) handleMetadata(w http.ResponseWriter, r *http.Request) {
	id := core.DatasetID(chi.URLParam(r, "id"))
	p, err := s.catalog.Get(r.Context(), id)
	if core.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "unknown dataset")
		return
	}
	if err != nil {
		s.log.Error("metadata lookup for %s failed: %v", id, err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id := core.DatasetID(chi.URLParam(r, "id"))
	p, err := s.catalog.Get(r.Context(), id)
	if core.IsNotFound(err) {
		writeError(w, http.StatusNotFound, "unknown dataset")
		return
	}
	if err != nil {
		s.log.Error("download lookup for %s failed: %v", id, err)
		writeError(w, http.StatusInternalServerError, "lookup failed")
		return
	}

	format := r.URL.Query().Get("format")
	directURL := p.Materialize.GetString(profile.MaterializeDirectURL)
	if directURL != "" && (format == "" || format == "csv") {
		http.Redirect(w, r, directURL, http.StatusFound)
		return
	}

	path, cleanup, err := s.materializer.Materialize(r.Context(), id, p.Materialize)
	if err != nil {
		s.log.Error("materialization of %s failed: %v", id, err)
		writeError(w, http.StatusInternalServerError, "failed to materialize dataset")
		return
	}
	defer cleanup()

	f, err := os.Open(path)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to open dataset")
		return
	}
	defer f.Close()
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	io.Copy(w, f)
}

func (s *Server) handleAugment(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotImplemented, "augment execution is not implemented")
}

// truncated returns a copy with a search-hit-sized description.
func truncated(p *profile.Profile) *profile.Profile {
	if p == nil || len(p.Description) <= maxDescription {
		return p
	}
	copied := *p
	copied.Description = copied.Description[:maxDescription] + "..."
	return &copied
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
