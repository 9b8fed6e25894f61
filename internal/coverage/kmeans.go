package coverage

import (
	"sort"

	"gonum.org/v1/gonum/floats"
)

const kmeansMaxIterations = 25

// cluster1D partitions values into at most k clusters with Lloyd's
// algorithm. Initial centers are spread over the sorted value range,
// which makes the result deterministic for a given input.
func cluster1D(values []float64, k int) [][]float64 {
	if len(values) == 0 {
		return nil
	}
	if k > len(values) {
		k = len(values)
	}
	if k <= 1 {
		return [][]float64{append([]float64(nil), values...)}
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	centers := make([]float64, k)
	for i := 0; i < k; i++ {
		centers[i] = sorted[i*(len(sorted)-1)/(k-1)]
	}

	assign := make([]int, len(values))
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, v := range values {
			best := nearestCenter(v, centers)
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		// Recompute centers as cluster means
		for c := 0; c < k; c++ {
			var members []float64
			for i, a := range assign {
				if a == c {
					members = append(members, values[i])
				}
			}
			if len(members) > 0 {
				centers[c] = floats.Sum(members) / float64(len(members))
			}
		}
	}

	clusters := make([][]float64, k)
	for i, a := range assign {
		clusters[a] = append(clusters[a], values[i])
	}
	return clusters
}

func nearestCenter(v float64, centers []float64) int {
	best := 0
	bestDist := (v - centers[0]) * (v - centers[0])
	for c := 1; c < len(centers); c++ {
		d := (v - centers[c]) * (v - centers[c])
		if d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

// cluster2D partitions points into at most k clusters. Initial centers
// are spread over the points sorted by their first coordinate.
func cluster2D(points [][2]float64, k int) [][][2]float64 {
	if len(points) == 0 {
		return nil
	}
	if k > len(points) {
		k = len(points)
	}
	if k <= 1 {
		return [][][2]float64{append([][2]float64(nil), points...)}
	}

	sorted := append([][2]float64(nil), points...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})
	centers := make([][2]float64, k)
	for i := 0; i < k; i++ {
		centers[i] = sorted[i*(len(sorted)-1)/(k-1)]
	}

	assign := make([]int, len(points))
	for iter := 0; iter < kmeansMaxIterations; iter++ {
		changed := false
		for i, p := range points {
			best := nearestCenter2D(p, centers)
			if assign[i] != best {
				assign[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}
		for c := 0; c < k; c++ {
			var lats, lons []float64
			for i, a := range assign {
				if a == c {
					lats = append(lats, points[i][0])
					lons = append(lons, points[i][1])
				}
			}
			if len(lats) > 0 {
				centers[c] = [2]float64{
					floats.Sum(lats) / float64(len(lats)),
					floats.Sum(lons) / float64(len(lons)),
				}
			}
		}
	}

	clusters := make([][][2]float64, k)
	for i, a := range assign {
		clusters[a] = append(clusters[a], points[i])
	}
	return clusters
}

func nearestCenter2D(p [2]float64, centers [][2]float64) int {
	best := 0
	bestDist := sqDist(p, centers[0])
	for c := 1; c < len(centers); c++ {
		if d := sqDist(p, centers[c]); d < bestDist {
			best = c
			bestDist = d
		}
	}
	return best
}

func sqDist(a, b [2]float64) float64 {
	d0 := a[0] - b[0]
	d1 := a[1] - b[1]
	return d0*d0 + d1*d1
}
