package search

import (
	"strings"

	"tablehub/domain/profile"
)

// Query is a compiled search request the catalog can evaluate against
// each profile document. Must clauses filter, should clauses only
// contribute score.
type Query struct {
	Must   []Clause
	Should []Clause
}

// Clause matches one profile document, returning a relevance
// contribution when it matches.
type Clause interface {
	Match(p *profile.Profile) (float64, bool)
}

// Evaluate applies the query to a profile. The document matches when
// every must clause matches; should clauses add to the score.
func Evaluate(q *Query, p *profile.Profile) (float64, bool) {
	score := 0.0
	for _, c := range q.Must {
		s, ok := c.Match(p)
		if !ok {
			return 0, false
		}
		score += s
	}
	for _, c := range q.Should {
		if s, ok := c.Match(p); ok {
			score += s
		}
	}
	if len(q.Must) == 0 && len(q.Should) == 0 {
		// match_all
		return 1, true
	}
	return score, true
}

// MatchAll matches every document with a baseline score.
type MatchAll struct{}

// Match implements Clause
func (MatchAll) Match(*profile.Profile) (float64, bool) {
	return 1, true
}

// Bool groups clauses: all musts, plus at least MinimumShouldMatch of
// the shoulds, must hold.
type Bool struct {
	Must               []Clause
	Should             []Clause
	MinimumShouldMatch int
}

// Match implements Clause
func (b Bool) Match(p *profile.Profile) (float64, bool) {
	score := 0.0
	for _, c := range b.Must {
		s, ok := c.Match(p)
		if !ok {
			return 0, false
		}
		score += s
	}
	matched := 0
	shouldScore := 0.0
	for _, c := range b.Should {
		if s, ok := c.Match(p); ok {
			matched++
			shouldScore += s
		}
	}
	if matched < b.MinimumShouldMatch {
		return 0, false
	}
	return score + shouldScore, true
}

// TextMatch matches free text against a top-level document field
// ("name" or "description") by token overlap, any-term semantics.
type TextMatch struct {
	Field string
	Query string
}

// Match implements Clause
func (t TextMatch) Match(p *profile.Profile) (float64, bool) {
	var field string
	switch t.Field {
	case "name":
		field = p.Name
	case "description":
		field = p.Description
	default:
		return 0, false
	}
	return matchTokens(t.Query, field)
}

// ColumnMatch matches when any single column satisfies the predicate.
// This gives nested per-column semantics: facets inside one predicate
// must hold on the same column, not across columns.
type ColumnMatch struct {
	Pred ColumnPredicate
}

// Match implements Clause
func (cm ColumnMatch) Match(p *profile.Profile) (float64, bool) {
	for i := range p.Columns {
		if cm.Pred.Match(&p.Columns[i]) {
			return 1, true
		}
	}
	return 0, false
}

// ColumnPredicate matches one column of a document.
type ColumnPredicate interface {
	Match(c *profile.ColumnProfile) bool
}

// ColumnName matches a column by name token overlap.
type ColumnName struct {
	Query string
}

// Match implements ColumnPredicate
func (cn ColumnName) Match(c *profile.ColumnProfile) bool {
	_, ok := matchTokens(cn.Query, c.Name)
	return ok
}

// ColumnStructural matches a column by structural type.
type ColumnStructural struct {
	Type profile.StructuralType
}

// Match implements ColumnPredicate
func (cs ColumnStructural) Match(c *profile.ColumnProfile) bool {
	return c.StructuralType == cs.Type
}

// ColumnSemantic matches a column carrying a semantic type.
type ColumnSemantic struct {
	Type profile.SemanticType
}

// Match implements ColumnPredicate
func (cs ColumnSemantic) Match(c *profile.ColumnProfile) bool {
	return c.HasSemantic(cs.Type)
}

// CoverageIntersects matches a column whose coverage intersects the
// given interval.
type CoverageIntersects struct {
	Gte float64
	Lte float64
}

// Match implements ColumnPredicate
func (ci CoverageIntersects) Match(c *profile.ColumnProfile) bool {
	want := profile.Interval{Gte: ci.Gte, Lte: ci.Lte}
	for _, iv := range c.Coverage {
		if iv.Intersects(want) {
			return true
		}
	}
	return false
}

// AnyPredicate matches when any inner predicate matches the column.
type AnyPredicate struct {
	Preds []ColumnPredicate
}

// Match implements ColumnPredicate
func (a AnyPredicate) Match(c *profile.ColumnProfile) bool {
	for _, p := range a.Preds {
		if p.Match(c) {
			return true
		}
	}
	return false
}

// AllPredicate matches when every inner predicate matches the column.
type AllPredicate struct {
	Preds []ColumnPredicate
}

// Match implements ColumnPredicate
func (a AllPredicate) Match(c *profile.ColumnProfile) bool {
	for _, p := range a.Preds {
		if !p.Match(c) {
			return false
		}
	}
	return true
}

// SpatialIntersects matches documents with a spatial range overlapping
// the envelope.
type SpatialIntersects struct {
	Envelope profile.Envelope
}

// Match implements Clause
func (si SpatialIntersects) Match(p *profile.Profile) (float64, bool) {
	for _, sc := range p.SpatialCoverage {
		for _, env := range sc.Ranges {
			if env.Intersects(si.Envelope) {
				return 1, true
			}
		}
	}
	return 0, false
}

// MatchNames reports whether two identifiers share tokens, scoring by
// the fraction of query tokens found in field.
func MatchNames(query, field string) (float64, bool) {
	return matchTokens(strings.Join(strings.FieldsFunc(strings.ToLower(query), isSeparator), " "), field)
}

// matchTokens performs any-term matching of query tokens against field
// tokens, scoring by the fraction of query tokens found.
func matchTokens(query, field string) (float64, bool) {
	qTokens := strings.Fields(strings.ToLower(query))
	if len(qTokens) == 0 {
		return 0, false
	}
	fieldLower := strings.ToLower(field)
	fTokens := map[string]bool{}
	for _, tok := range strings.FieldsFunc(fieldLower, isSeparator) {
		fTokens[tok] = true
	}
	matched := 0
	for _, tok := range qTokens {
		if fTokens[tok] || strings.Contains(fieldLower, tok) {
			matched++
		}
	}
	if matched == 0 {
		return 0, false
	}
	return float64(matched) / float64(len(qTokens)), true
}

func isSeparator(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '_', '-', '.', ',', ';', ':', '/', '(', ')':
		return true
	}
	return false
}
