package memory

import (
	"context"
	"hash/fnv"
	"sync"

	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/ports"
)

// defaultPermutations is the sketch width.
const defaultPermutations = 128

// SketchIndex is an in-process MinHash index over text columns. It
// approximates set overlap by the fraction of matching hash slots,
// which estimates the Jaccard similarity of the underlying value sets.
type SketchIndex struct {
	mu            sync.RWMutex
	nPermutations int
	columns       map[core.DatasetID]map[string]profile.ColumnSketch
}

// NewSketchIndex creates an empty index
func NewSketchIndex() *SketchIndex {
	return &SketchIndex{
		nPermutations: defaultPermutations,
		columns:       map[core.DatasetID]map[string]profile.ColumnSketch{},
	}
}

// IndexColumn implements ports.SketchIndex
func (s *SketchIndex) IndexColumn(ctx context.Context, id core.DatasetID, column string, values []string) error {
	sk, err := s.Sketch(ctx, column, values)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.columns[id] == nil {
		s.columns[id] = map[string]profile.ColumnSketch{}
	}
	s.columns[id][column] = sk
	return nil
}

// Sketch implements ports.SketchIndex
func (s *SketchIndex) Sketch(_ context.Context, column string, values []string) (profile.ColumnSketch, error) {
	slots := make([]uint64, s.nPermutations)
	for i := range slots {
		slots[i] = ^uint64(0)
	}
	distinct := map[string]bool{}
	for _, v := range values {
		if v == "" || distinct[v] {
			continue
		}
		distinct[v] = true
		base := hash64(v)
		// Each permutation is a distinct affine transform of the base
		// hash; min over values is the slot signature.
		for i := range slots {
			h := base*uint64(2*i+1) + uint64(i)*0x9e3779b97f4a7c15
			if h < slots[i] {
				slots[i] = h
			}
		}
	}
	return profile.ColumnSketch{
		Name:          column,
		NPermutations: s.nPermutations,
		HashValues:    slots,
		Cardinality:   int64(len(distinct)),
	}, nil
}

// Query implements ports.SketchIndex
func (s *SketchIndex) Query(_ context.Context, sketch profile.ColumnSketch) ([]ports.ColumnOverlap, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var overlaps []ports.ColumnOverlap
	for id, cols := range s.columns {
		for name, indexed := range cols {
			score := slotAgreement(sketch.HashValues, indexed.HashValues)
			if score <= 0 {
				continue
			}
			overlaps = append(overlaps, ports.ColumnOverlap{
				DatasetID:  id,
				ColumnName: name,
				Score:      score,
			})
		}
	}
	return overlaps, nil
}

// DeleteDataset implements ports.SketchIndex
func (s *SketchIndex) DeleteDataset(_ context.Context, id core.DatasetID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.columns, id)
	return nil
}

func slotAgreement(a, b []uint64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if n == 0 {
		return 0
	}
	matched := 0
	for i := 0; i < n; i++ {
		if a[i] == b[i] {
			matched++
		}
	}
	return float64(matched) / float64(n)
}

func hash64(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
