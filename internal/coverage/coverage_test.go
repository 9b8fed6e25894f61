package coverage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablehub/domain/profile"
)

func TestNumericalRangesBounds(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i + 1)
	}
	intervals := NumericalRanges(values)

	require.NotEmpty(t, intervals)
	assert.LessOrEqual(t, len(intervals), 3)
	for _, iv := range intervals {
		assert.LessOrEqual(t, iv.Gte, iv.Lte)
		assert.GreaterOrEqual(t, iv.Gte, 1.0)
		assert.LessOrEqual(t, iv.Lte, 100.0)
	}
}

func TestNumericalRangesDeterministic(t *testing.T) {
	values := []float64{3, 1, 4, 1, 5, 9, 2, 6, 5, 3, 5, 8, 9, 7, 9}
	first := NumericalRanges(values)
	second := NumericalRanges(values)
	assert.Equal(t, first, second)
}

func TestNumericalRangesSmallVector(t *testing.T) {
	intervals := NumericalRanges([]float64{42})
	require.Len(t, intervals, 1)
	assert.Equal(t, 42.0, intervals[0].Gte)
	assert.Equal(t, 42.0, intervals[0].Lte)
}

func TestNumericalRangesDropsOverflow(t *testing.T) {
	intervals := NumericalRanges([]float64{1, 2, 3, 1e39, -1e39})
	for _, iv := range intervals {
		assert.LessOrEqual(t, iv.Lte, 3.0)
		assert.GreaterOrEqual(t, iv.Gte, 1.0)
	}
}

func TestNumericalRangesEmpty(t *testing.T) {
	assert.Nil(t, NumericalRanges(nil))
	assert.Nil(t, NumericalRanges([]float64{1e40}))
}

func TestSpatialRangesEnvelopes(t *testing.T) {
	points := [][2]float64{
		{40.7, -74.0},
		{40.8, -73.9},
		{40.75, -73.95},
	}
	envelopes := SpatialRanges(points)

	require.NotEmpty(t, envelopes)
	assert.LessOrEqual(t, len(envelopes), 3)
	for _, env := range envelopes {
		// NW is the upper-left corner: smaller lon, larger lat.
		assert.Less(t, env.NW[0], env.SE[0])
		assert.Greater(t, env.NW[1], env.SE[1])
		assert.Greater(t, env.Area(), 0.0)
	}

	// Every input point falls inside some envelope.
	for _, p := range points {
		contained := false
		for _, env := range envelopes {
			if p[1] >= env.NW[0] && p[1] <= env.SE[0] && p[0] <= env.NW[1] && p[0] >= env.SE[1] {
				contained = true
				break
			}
		}
		assert.True(t, contained, "point %v not covered", p)
	}
}

func TestSpatialRangesInflatesDegenerate(t *testing.T) {
	envelopes := SpatialRanges([][2]float64{{40.7, -74.0}, {40.7, -74.0}})
	require.NotEmpty(t, envelopes)
	for _, env := range envelopes {
		assert.Greater(t, env.Area(), 0.0)
		assert.InDelta(t, -74.0, (env.NW[0]+env.SE[0])/2, 1e-9)
		assert.InDelta(t, 40.7, (env.NW[1]+env.SE[1])/2, 1e-9)
	}
}

func TestEnvelopeIntersects(t *testing.T) {
	a := profile.Envelope{NW: [2]float64{-74.1, 40.9}, SE: [2]float64{-73.8, 40.6}}
	b := profile.Envelope{NW: [2]float64{-74.0, 40.8}, SE: [2]float64{-73.9, 40.7}}
	c := profile.Envelope{NW: [2]float64{10, 51}, SE: [2]float64{11, 50}}

	assert.True(t, a.Intersects(b))
	assert.True(t, b.Intersects(a))
	assert.False(t, a.Intersects(c))
}
