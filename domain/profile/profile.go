package profile

import (
	"github.com/paulmach/orb"

	"tablehub/domain/core"
)

// Interval is a numeric or temporal coverage range. Temporal intervals
// hold epoch seconds.
type Interval struct {
	Gte float64 `json:"gte"`
	Lte float64 `json:"lte"`
}

// Intersects reports whether two intervals overlap
func (iv Interval) Intersects(other Interval) bool {
	return iv.Gte <= other.Lte && other.Gte <= iv.Lte
}

// Envelope is a geographic bounding box stored as NW and SE corners,
// each [lon, lat].
type Envelope struct {
	NW [2]float64 `json:"nw"`
	SE [2]float64 `json:"se"`
}

// Bound converts the envelope to an orb.Bound
func (e Envelope) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{e.NW[0], e.SE[1]},
		Max: orb.Point{e.SE[0], e.NW[1]},
	}
}

// Intersects reports whether two envelopes overlap
func (e Envelope) Intersects(other Envelope) bool {
	return e.Bound().Intersects(other.Bound())
}

// Area returns the envelope surface in square degrees
func (e Envelope) Area() float64 {
	b := e.Bound()
	return (b.Max[0] - b.Min[0]) * (b.Max[1] - b.Min[1])
}

// ColumnProfile describes one column of a dataset.
type ColumnProfile struct {
	Name               string             `json:"name"`
	StructuralType     StructuralType     `json:"structural_type"`
	SemanticTypes      []SemanticType     `json:"semantic_types"`
	UncleanValuesRatio float64            `json:"unclean_values_ratio"`
	MissingValuesRatio *float64           `json:"missing_values_ratio,omitempty"`
	NumDistinctValues  *int               `json:"num_distinct_values,omitempty"`
	Mean               *float64           `json:"mean,omitempty"`
	Stddev             *float64           `json:"stddev,omitempty"`
	Coverage           []Interval         `json:"coverage,omitempty"`
	TemporalResolution TemporalResolution `json:"temporal_resolution,omitempty"`
}

// HasSemantic reports whether the column carries the given semantic type
func (c *ColumnProfile) HasSemantic(t SemanticType) bool {
	for _, st := range c.SemanticTypes {
		if st == t {
			return true
		}
	}
	return false
}

// AddSemantic adds a semantic type if not already present
func (c *ColumnProfile) AddSemantic(t SemanticType) {
	if !c.HasSemantic(t) {
		c.SemanticTypes = append(c.SemanticTypes, t)
	}
}

// SpatialCoverage ties a latitude/longitude column pair to the bounding
// boxes their points cluster into.
type SpatialCoverage struct {
	LatColumn string     `json:"lat"`
	LonColumn string     `json:"lon"`
	Ranges    []Envelope `json:"ranges"`
}

// ColumnSketch is a fixed-width similarity sketch of a text column,
// produced by the sketch index.
type ColumnSketch struct {
	Name          string   `json:"name"`
	NPermutations int      `json:"n_permutations"`
	HashValues    []uint64 `json:"hash_values"`
	Cardinality   int64    `json:"cardinality"`
}

// Materialize is the opaque record carrying enough information for the
// catalog to re-fetch the raw bytes of a dataset. The "identifier" key
// names the source that discovered it.
type Materialize map[string]interface{}

// Well-known materialize keys.
const (
	MaterializeIdentifier    = "identifier"
	MaterializeSourceLocalID = "source_local_id"
	MaterializeDirectURL     = "direct_url"
	MaterializePath          = "path"
	MaterializeUpdated       = "updated"
	MaterializeFormat        = "format"
)

// GetString returns a string-valued materialize key, or ""
func (m Materialize) GetString(key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

// Identifier returns the source identifier
func (m Materialize) Identifier() string {
	return m.GetString(MaterializeIdentifier)
}

// Profile is the catalog document describing a dataset.
type Profile struct {
	ID              core.DatasetID    `json:"id"`
	Name            string            `json:"name"`
	Description     string            `json:"description,omitempty"`
	NbRows          int64             `json:"nb_rows"`
	SizeBytes       int64             `json:"size"`
	Columns         []ColumnProfile   `json:"columns"`
	SpatialCoverage []SpatialCoverage `json:"spatial_coverage,omitempty"`
	Materialize     Materialize       `json:"materialize"`
	Sketches        []ColumnSketch    `json:"sketches,omitempty"`
	IndexedAt       core.Timestamp    `json:"date"`
}

// Column returns the column with the given name, or nil
func (p *Profile) Column(name string) *ColumnProfile {
	for i := range p.Columns {
		if p.Columns[i].Name == name {
			return &p.Columns[i]
		}
	}
	return nil
}

// SourceIdentifier returns the identifier of the source that discovered
// the dataset
func (p *Profile) SourceIdentifier() string {
	return p.Materialize.Identifier()
}
