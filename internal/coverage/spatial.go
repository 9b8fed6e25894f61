package coverage

import (
	"sort"

	"tablehub/domain/profile"
)

// spatialDelta inflates degenerate envelope axes so every emitted box
// has area (the index cannot tessellate points or lines).
const spatialDelta = 0.0001

// SpatialRanges clusters (lat, lon) points and emits one bounding box
// per nonempty cluster. Each axis is trimmed to its 5th/95th
// percentile independently; collapsed axes are inflated by
// spatialDelta on both sides, keeping the NW/SE corner invariant.
func SpatialRanges(points [][2]float64) []profile.Envelope {
	if len(points) == 0 {
		return nil
	}

	k := maxRanges
	if len(points) < k {
		k = len(points)
	}

	var envelopes []profile.Envelope
	for _, cluster := range cluster2D(points, k) {
		if len(cluster) == 0 {
			continue
		}
		minIdx := int(0.05 * float64(len(cluster)))
		maxIdx := int(0.95 * float64(len(cluster)))

		sort.Slice(cluster, func(i, j int) bool { return cluster[i][0] < cluster[j][0] })
		minLat := cluster[minIdx][0]
		maxLat := cluster[maxIdx][0]

		sort.Slice(cluster, func(i, j int) bool { return cluster[i][1] < cluster[j][1] })
		minLon := cluster[minIdx][1]
		maxLon := cluster[maxIdx][1]

		if minLon == maxLon {
			minLon -= spatialDelta
			maxLon += spatialDelta
		}
		if minLat == maxLat {
			maxLat += spatialDelta
			minLat -= spatialDelta
		}

		envelopes = append(envelopes, profile.Envelope{
			NW: [2]float64{minLon, maxLat},
			SE: [2]float64{maxLon, minLat},
		})
	}
	return envelopes
}
