// Package querycompiler translates JSON search requests into the query
// tree the catalog evaluates.
package querycompiler

import (
	"time"

	"github.com/araddon/dateparse"

	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/domain/search"
)

// Variable kinds understood by the compiler. Unknown kinds are skipped.
const (
	KindTemporal   = "temporal_entity"
	KindGeospatial = "geospatial_entity"
	KindGeneric    = "generic_entity"
)

// QuerySpec is the query section of a search request.
type QuerySpec struct {
	Dataset           *DatasetSpec `json:"dataset,omitempty"`
	RequiredVariables []Variable   `json:"required_variables,omitempty"`
	DesiredVariables  []Variable   `json:"desired_variables,omitempty"`
}

// DatasetSpec holds descriptive criteria over the document itself.
type DatasetSpec struct {
	About       string   `json:"about,omitempty"`
	Name        []string `json:"name,omitempty"`
	Description []string `json:"description,omitempty"`
}

// BoundingBox is a raw user-supplied box; corner order is normalized
// during compilation.
type BoundingBox struct {
	Latitude1  float64 `json:"latitude1"`
	Longitude1 float64 `json:"longitude1"`
	Latitude2  float64 `json:"latitude2"`
	Longitude2 float64 `json:"longitude2"`
}

// Variable is one required or desired variable.
type Variable struct {
	Type string `json:"type"`

	// temporal_entity
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`

	// geospatial_entity
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`

	// generic_entity facets
	VariableName           []string `json:"variable_name,omitempty"`
	VariableStructuralType []string `json:"variable_structural_type,omitempty"`
	VariableSemanticType   []string `json:"variable_semantic_type,omitempty"`
}

// Compile turns a query spec into an evaluable tree. A nil spec
// compiles to match-all.
func Compile(spec *QuerySpec) (*search.Query, error) {
	q := &search.Query{}
	if spec == nil {
		return q, nil
	}

	if spec.Dataset != nil {
		compileDataset(spec.Dataset, q)
	}

	for _, v := range spec.RequiredVariables {
		clause, err := compileVariable(v)
		if err != nil {
			return nil, err
		}
		if clause != nil {
			q.Must = append(q.Must, clause)
		}
	}

	if len(spec.DesiredVariables) > 0 {
		// Desired variables only contribute score over a match-all base.
		q.Should = append(q.Should, search.MatchAll{})
		for _, v := range spec.DesiredVariables {
			clause, err := compileVariable(v)
			if err != nil {
				return nil, err
			}
			if clause != nil {
				q.Should = append(q.Should, clause)
			}
		}
	}
	return q, nil
}

func compileDataset(d *DatasetSpec, q *search.Query) {
	if d.About != "" {
		q.Must = append(q.Must, search.Bool{
			Should: []search.Clause{
				search.TextMatch{Field: "name", Query: d.About},
				search.TextMatch{Field: "description", Query: d.About},
				search.ColumnMatch{Pred: search.ColumnName{Query: d.About}},
			},
			MinimumShouldMatch: 1,
		})
	}
	for _, term := range d.Name {
		q.Must = append(q.Must, search.TextMatch{Field: "name", Query: term})
	}
	for _, term := range d.Description {
		q.Must = append(q.Must, search.TextMatch{Field: "description", Query: term})
	}
}

func compileVariable(v Variable) (search.Clause, error) {
	switch v.Type {
	case KindTemporal:
		return compileTemporal(v)
	case KindGeospatial:
		return compileGeospatial(v)
	case KindGeneric:
		return compileGeneric(v), nil
	default:
		return nil, nil
	}
}

func compileTemporal(v Variable) (search.Clause, error) {
	preds := []search.ColumnPredicate{
		search.ColumnSemantic{Type: profile.SemanticDateTime},
	}
	if v.Start != "" || v.End != "" {
		start := time.Unix(0, 0).UTC()
		end := time.Now().UTC()
		if v.Start != "" {
			t, err := dateparse.ParseIn(v.Start, time.UTC)
			if err != nil {
				return nil, core.NewInvalidQueryError("unparsable start date")
			}
			start = t
		}
		if v.End != "" {
			t, err := dateparse.ParseIn(v.End, time.UTC)
			if err != nil {
				return nil, core.NewInvalidQueryError("unparsable end date")
			}
			end = t
		}
		preds = append(preds, search.CoverageIntersects{
			Gte: float64(start.Unix()),
			Lte: float64(end.Unix()),
		})
	}
	return search.ColumnMatch{Pred: search.AllPredicate{Preds: preds}}, nil
}

func compileGeospatial(v Variable) (search.Clause, error) {
	if v.BoundingBox == nil {
		return nil, nil
	}
	b := v.BoundingBox
	minLon, maxLon := b.Longitude1, b.Longitude2
	if minLon > maxLon {
		minLon, maxLon = maxLon, minLon
	}
	minLat, maxLat := b.Latitude1, b.Latitude2
	if minLat > maxLat {
		minLat, maxLat = maxLat, minLat
	}
	if minLat == maxLat && minLon == maxLon {
		return nil, core.NewInvalidQueryError("degenerate bounding box")
	}
	return search.SpatialIntersects{
		Envelope: profile.Envelope{
			NW: [2]float64{minLon, maxLat},
			SE: [2]float64{maxLon, minLat},
		},
	}, nil
}

// compileGeneric builds a per-column conjunction of facet disjunctions.
func compileGeneric(v Variable) search.Clause {
	var facets []search.ColumnPredicate
	if len(v.VariableName) > 0 {
		var names []search.ColumnPredicate
		for _, n := range v.VariableName {
			names = append(names, search.ColumnName{Query: n})
		}
		facets = append(facets, search.AnyPredicate{Preds: names})
	}
	if len(v.VariableStructuralType) > 0 {
		var types []search.ColumnPredicate
		for _, t := range v.VariableStructuralType {
			types = append(types, search.ColumnStructural{Type: profile.StructuralType(t)})
		}
		facets = append(facets, search.AnyPredicate{Preds: types})
	}
	if len(v.VariableSemanticType) > 0 {
		var types []search.ColumnPredicate
		for _, t := range v.VariableSemanticType {
			types = append(types, search.ColumnSemantic{Type: profile.SemanticType(t)})
		}
		facets = append(facets, search.AnyPredicate{Preds: types})
	}
	if len(facets) == 0 {
		return nil
	}
	return search.ColumnMatch{Pred: search.AllPredicate{Preds: facets}}
}
