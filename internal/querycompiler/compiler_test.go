package querycompiler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablehub/domain/profile"
	"tablehub/domain/search"
)

func taxiProfile() *profile.Profile {
	return &profile.Profile{
		ID:          "socrata-data-city.taxi",
		Name:        "Yellow Taxi Trips",
		Description: "Trip records for yellow taxis",
		Columns: []profile.ColumnProfile{
			{
				Name:           "pickup_datetime",
				StructuralType: profile.StructuralText,
				SemanticTypes:  []profile.SemanticType{profile.SemanticDateTime},
				Coverage: []profile.Interval{{
					Gte: float64(time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC).Unix()),
					Lte: float64(time.Date(2019, 12, 31, 0, 0, 0, 0, time.UTC).Unix()),
				}},
			},
			{
				Name:           "fare_amount",
				StructuralType: profile.StructuralFloat,
				SemanticTypes:  []profile.SemanticType{},
			},
		},
		SpatialCoverage: []profile.SpatialCoverage{{
			LatColumn: "pickup_latitude",
			LonColumn: "pickup_longitude",
			Ranges: []profile.Envelope{{
				NW: [2]float64{-74.1, 40.9},
				SE: [2]float64{-73.7, 40.5},
			}},
		}},
	}
}

func TestCompileNilSpecMatchesAll(t *testing.T) {
	q, err := Compile(nil)
	require.NoError(t, err)
	score, ok := search.Evaluate(q, taxiProfile())
	assert.True(t, ok)
	assert.Equal(t, 1.0, score)
}

func TestCompileAbout(t *testing.T) {
	q, err := Compile(&QuerySpec{Dataset: &DatasetSpec{About: "taxi"}})
	require.NoError(t, err)

	_, ok := search.Evaluate(q, taxiProfile())
	assert.True(t, ok)

	other := &profile.Profile{Name: "Air Quality", Description: "Sensor readings"}
	_, ok = search.Evaluate(q, other)
	assert.False(t, ok)
}

func TestCompileAboutMatchesColumnNames(t *testing.T) {
	q, err := Compile(&QuerySpec{Dataset: &DatasetSpec{About: "fare"}})
	require.NoError(t, err)
	_, ok := search.Evaluate(q, taxiProfile())
	assert.True(t, ok)
}

func TestCompileNameTermsAreConjunctive(t *testing.T) {
	q, err := Compile(&QuerySpec{Dataset: &DatasetSpec{Name: []string{"yellow", "taxi"}}})
	require.NoError(t, err)
	_, ok := search.Evaluate(q, taxiProfile())
	assert.True(t, ok)

	q, err = Compile(&QuerySpec{Dataset: &DatasetSpec{Name: []string{"yellow", "bus"}}})
	require.NoError(t, err)
	_, ok = search.Evaluate(q, taxiProfile())
	assert.False(t, ok)
}

func TestCompileTemporalVariable(t *testing.T) {
	spec := &QuerySpec{RequiredVariables: []Variable{{
		Type:  KindTemporal,
		Start: "2019-06-01",
		End:   "2019-07-01",
	}}}
	q, err := Compile(spec)
	require.NoError(t, err)
	_, ok := search.Evaluate(q, taxiProfile())
	assert.True(t, ok)

	// Outside the indexed coverage.
	spec.RequiredVariables[0].Start = "2030-01-01"
	spec.RequiredVariables[0].End = "2031-01-01"
	q, err = Compile(spec)
	require.NoError(t, err)
	_, ok = search.Evaluate(q, taxiProfile())
	assert.False(t, ok)
}

func TestCompileTemporalDefaultsEndToNow(t *testing.T) {
	q, err := Compile(&QuerySpec{RequiredVariables: []Variable{{
		Type:  KindTemporal,
		Start: "2019-01-15",
	}}})
	require.NoError(t, err)
	_, ok := search.Evaluate(q, taxiProfile())
	assert.True(t, ok)
}

func TestCompileTemporalBadDate(t *testing.T) {
	_, err := Compile(&QuerySpec{RequiredVariables: []Variable{{
		Type:  KindTemporal,
		Start: "not a date at all",
	}}})
	assert.Error(t, err)
}

func TestCompileGeospatialNormalizesCorners(t *testing.T) {
	// Corners given in the "wrong" order still form the same box.
	q, err := Compile(&QuerySpec{RequiredVariables: []Variable{{
		Type: KindGeospatial,
		BoundingBox: &BoundingBox{
			Latitude1:  40.6,
			Longitude1: -73.8,
			Latitude2:  40.8,
			Longitude2: -74.0,
		},
	}}})
	require.NoError(t, err)
	_, ok := search.Evaluate(q, taxiProfile())
	assert.True(t, ok)
}

func TestCompileGeospatialNoOverlap(t *testing.T) {
	q, err := Compile(&QuerySpec{RequiredVariables: []Variable{{
		Type: KindGeospatial,
		BoundingBox: &BoundingBox{
			Latitude1:  51.0,
			Longitude1: 10.0,
			Latitude2:  50.0,
			Longitude2: 11.0,
		},
	}}})
	require.NoError(t, err)
	_, ok := search.Evaluate(q, taxiProfile())
	assert.False(t, ok)
}

func TestCompileGenericEntityFacets(t *testing.T) {
	q, err := Compile(&QuerySpec{RequiredVariables: []Variable{{
		Type:                   KindGeneric,
		VariableName:           []string{"fare"},
		VariableStructuralType: []string{"float"},
	}}})
	require.NoError(t, err)
	_, ok := search.Evaluate(q, taxiProfile())
	assert.True(t, ok)

	// Facets are conjunctive on the same column.
	q, err = Compile(&QuerySpec{RequiredVariables: []Variable{{
		Type:                   KindGeneric,
		VariableName:           []string{"fare"},
		VariableStructuralType: []string{"integer"},
	}}})
	require.NoError(t, err)
	_, ok = search.Evaluate(q, taxiProfile())
	assert.False(t, ok)
}

func TestCompileUnknownKindSkipped(t *testing.T) {
	q, err := Compile(&QuerySpec{RequiredVariables: []Variable{{Type: "audio_entity"}}})
	require.NoError(t, err)
	assert.Empty(t, q.Must)
}

func TestCompileDesiredVariablesOnlyScore(t *testing.T) {
	q, err := Compile(&QuerySpec{DesiredVariables: []Variable{{
		Type:                 KindGeneric,
		VariableSemanticType: []string{"date_time"},
	}}})
	require.NoError(t, err)

	withTemporal, ok := search.Evaluate(q, taxiProfile())
	require.True(t, ok)

	plain := &profile.Profile{Name: "plain"}
	withoutTemporal, ok := search.Evaluate(q, plain)
	require.True(t, ok, "desired variables must not filter")
	assert.Greater(t, withTemporal, withoutTemporal)
}
