// Package augment proposes datasets joinable or unionable with a probe
// dataset: joins by value overlap (coverage intervals, similarity
// sketches), unions by schema alignment.
package augment

import (
	"context"
	"sort"

	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/domain/search"
	"tablehub/internal/logging"
	"tablehub/ports"
)

// MinScore is the relevance cutoff below which candidates are dropped.
const MinScore = 0.4

// ColumnPair aligns one probe column with one candidate column.
type ColumnPair struct {
	ProbeColumn     string  `json:"probe_column"`
	CandidateColumn string  `json:"candidate_column"`
	Score           float64 `json:"score"`
}

// Candidate is one augmentation proposal.
type Candidate struct {
	ID           core.DatasetID   `json:"id"`
	Score        float64          `json:"score"`
	Profile      *profile.Profile `json:"metadata"`
	JoinColumns  []ColumnPair     `json:"join_columns,omitempty"`
	UnionColumns []ColumnPair     `json:"union_columns,omitempty"`
}

// Matcher finds augmentation candidates in the catalog.
type Matcher struct {
	catalog ports.Catalog
	sketch  ports.SketchIndex
	log     *logging.Logger
}

// New creates a matcher. sketch may be nil, which disables text joins.
func New(catalog ports.Catalog, sketch ports.SketchIndex) *Matcher {
	return &Matcher{
		catalog: catalog,
		sketch:  sketch,
		log:     logging.NewDefaultLogger("augment"),
	}
}

// Match returns join and union candidates for the probe, best first.
// prefilter, when non-nil, conjunctively restricts the candidate set.
func (m *Matcher) Match(ctx context.Context, probe *profile.Profile, prefilter *search.Query) ([]Candidate, error) {
	candidates, err := m.candidateSet(ctx, probe, prefilter)
	if err != nil {
		return nil, err
	}

	sketchHits := m.querySketches(ctx, probe)

	var results []Candidate
	for _, cand := range candidates {
		if join := m.joinCandidate(probe, cand, sketchHits); join != nil {
			results = append(results, *join)
		}
		if union := unionCandidate(probe, cand); union != nil {
			results = append(results, *union)
		}
	}

	sort.SliceStable(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	return results, nil
}

func (m *Matcher) candidateSet(ctx context.Context, probe *profile.Profile, prefilter *search.Query) ([]*profile.Profile, error) {
	var candidates []*profile.Profile
	add := func(p *profile.Profile) error {
		if p.ID != probe.ID {
			candidates = append(candidates, p)
		}
		return nil
	}
	if prefilter != nil && (len(prefilter.Must) > 0 || len(prefilter.Should) > 0) {
		hits, err := m.catalog.Search(ctx, prefilter, 0)
		if err != nil {
			return nil, err
		}
		for _, h := range hits {
			if err := add(h.Profile); err != nil {
				return nil, err
			}
		}
		return candidates, nil
	}
	if err := m.catalog.Scan(ctx, ports.ScanFilter{}, add); err != nil {
		return nil, err
	}
	return candidates, nil
}

// querySketches resolves text-column overlaps once per probe and groups
// them by candidate dataset.
func (m *Matcher) querySketches(ctx context.Context, probe *profile.Profile) map[core.DatasetID][]ColumnPair {
	if m.sketch == nil || len(probe.Sketches) == 0 {
		return nil
	}
	hits := map[core.DatasetID][]ColumnPair{}
	for _, sk := range probe.Sketches {
		overlaps, err := m.sketch.Query(ctx, sk)
		if err != nil {
			m.log.Warn("sketch query for column %q failed: %v", sk.Name, err)
			continue
		}
		for _, o := range overlaps {
			hits[o.DatasetID] = append(hits[o.DatasetID], ColumnPair{
				ProbeColumn:     sk.Name,
				CandidateColumn: o.ColumnName,
				Score:           o.Score,
			})
		}
	}
	return hits
}

// joinCandidate scores value overlap between probe columns and one
// candidate dataset. The dataset score is the best pair score.
func (m *Matcher) joinCandidate(probe, cand *profile.Profile, sketchHits map[core.DatasetID][]ColumnPair) *Candidate {
	var pairs []ColumnPair

	for i := range probe.Columns {
		pc := &probe.Columns[i]
		if len(pc.Coverage) == 0 {
			continue
		}
		temporal := pc.HasSemantic(profile.SemanticDateTime)
		for j := range cand.Columns {
			cc := &cand.Columns[j]
			if len(cc.Coverage) == 0 {
				continue
			}
			if temporal != cc.HasSemantic(profile.SemanticDateTime) {
				continue
			}
			score := coverageOverlap(pc.Coverage, cc.Coverage)
			if score >= MinScore {
				pairs = append(pairs, ColumnPair{
					ProbeColumn:     pc.Name,
					CandidateColumn: cc.Name,
					Score:           score,
				})
			}
		}
	}

	for _, pair := range sketchHits[cand.ID] {
		if pair.Score >= MinScore {
			pairs = append(pairs, pair)
		}
	}

	if len(pairs) == 0 {
		return nil
	}
	best := 0.0
	for _, p := range pairs {
		if p.Score > best {
			best = p.Score
		}
	}
	return &Candidate{ID: cand.ID, Score: best, Profile: cand, JoinColumns: pairs}
}

// unionCandidate aligns schemas: a probe column is covered when some
// candidate column shares its structural type and either its name
// tokens or a semantic type. The score is the fraction of probe
// columns covered.
func unionCandidate(probe, cand *profile.Profile) *Candidate {
	if len(probe.Columns) == 0 {
		return nil
	}
	var pairs []ColumnPair
	covered := 0
	for i := range probe.Columns {
		pc := &probe.Columns[i]
		for j := range cand.Columns {
			cc := &cand.Columns[j]
			if cc.StructuralType != pc.StructuralType {
				continue
			}
			if !namesAlign(pc.Name, cc.Name) && !semanticsOverlap(pc, cc) {
				continue
			}
			covered++
			pairs = append(pairs, ColumnPair{
				ProbeColumn:     pc.Name,
				CandidateColumn: cc.Name,
				Score:           1,
			})
			break
		}
	}
	score := float64(covered) / float64(len(probe.Columns))
	if score < MinScore {
		return nil
	}
	return &Candidate{ID: cand.ID, Score: score, Profile: cand, UnionColumns: pairs}
}

func namesAlign(a, b string) bool {
	_, ok := search.MatchNames(a, b)
	return ok
}

func semanticsOverlap(a, b *profile.ColumnProfile) bool {
	for _, t := range a.SemanticTypes {
		if b.HasSemantic(t) {
			return true
		}
	}
	return false
}

// coverageOverlap estimates how much of the probe's coverage falls
// inside the candidate's, as overlapped length over probe length.
func coverageOverlap(probe, cand []profile.Interval) float64 {
	var total, overlapped float64
	for _, p := range probe {
		length := p.Lte - p.Gte
		if length <= 0 {
			length = 1
		}
		total += length
		for _, c := range cand {
			lo, hi := p.Gte, p.Lte
			if c.Gte > lo {
				lo = c.Gte
			}
			if c.Lte < hi {
				hi = c.Lte
			}
			if lo <= hi {
				if hi == lo {
					overlapped += 1
				} else {
					overlapped += hi - lo
				}
			}
		}
	}
	if total == 0 {
		return 0
	}
	score := overlapped / total
	if score > 1 {
		score = 1
	}
	return score
}
