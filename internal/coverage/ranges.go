// Package coverage summarizes a column's value distribution as a small
// set of intervals or bounding boxes, by clustering and trimming the
// 5%/95% tails of each cluster.
package coverage

import (
	"sort"

	"tablehub/domain/profile"
)

// maxRanges caps the number of emitted intervals per column.
const maxRanges = 3

// maxMagnitude drops values that would overflow a 32-bit float in the
// backing index.
const maxMagnitude = 3.4e38

// NumericalRanges clusters a numeric vector (k = min(3, N),
// deterministic) and emits one 5th-to-95th percentile interval per
// nonempty cluster, in cluster order.
func NumericalRanges(values []float64) []profile.Interval {
	filtered := make([]float64, 0, len(values))
	for _, v := range values {
		if v > -maxMagnitude && v < maxMagnitude {
			filtered = append(filtered, v)
		}
	}
	if len(filtered) == 0 {
		return nil
	}

	k := maxRanges
	if len(filtered) < k {
		k = len(filtered)
	}

	var intervals []profile.Interval
	for _, cluster := range cluster1D(filtered, k) {
		if len(cluster) == 0 {
			continue
		}
		sort.Float64s(cluster)
		minIdx := int(0.05 * float64(len(cluster)))
		maxIdx := int(0.95 * float64(len(cluster)))
		intervals = append(intervals, profile.Interval{
			Gte: cluster[minIdx],
			Lte: cluster[maxIdx],
		})
	}
	return intervals
}
