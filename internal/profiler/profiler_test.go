package profiler

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablehub/adapters/memory"
	"tablehub/domain/profile"
)

func profileCSV(t *testing.T, csv string, opts Options) *profile.Profile {
	t.Helper()
	p := New(nil, nil)
	prof, err := p.ProfileBytes(context.Background(), []byte(csv), opts)
	require.NoError(t, err)
	return prof
}

func TestProfileIntegerColumn(t *testing.T) {
	var sb strings.Builder
	sb.WriteString("x\n")
	for i := 1; i <= 100; i++ {
		fmt.Fprintf(&sb, "%d\n", i)
	}
	prof := profileCSV(t, sb.String(), Options{ID: "test.ints"})

	require.Len(t, prof.Columns, 1)
	col := prof.Columns[0]
	assert.Equal(t, "x", col.Name)
	assert.Equal(t, profile.StructuralInteger, col.StructuralType)
	assert.Zero(t, col.UncleanValuesRatio)
	require.NotNil(t, col.Mean)
	assert.InDelta(t, 50.5, *col.Mean, 1e-9)
	require.NotNil(t, col.Stddev)
	assert.InDelta(t, 28.866, *col.Stddev, 0.001)
	require.NotEmpty(t, col.Coverage)
	assert.LessOrEqual(t, len(col.Coverage), 3)
	for _, iv := range col.Coverage {
		assert.LessOrEqual(t, iv.Gte, iv.Lte)
		assert.GreaterOrEqual(t, iv.Gte, 1.0)
		assert.LessOrEqual(t, iv.Lte, 100.0)
	}
	assert.Equal(t, int64(100), prof.NbRows)
}

func TestProfileYearColumn(t *testing.T) {
	prof := profileCSV(t, "year\n2001\n2002\n2003\n2004\n", Options{ID: "test.years"})

	require.Len(t, prof.Columns, 1)
	col := prof.Columns[0]
	assert.Equal(t, profile.StructuralInteger, col.StructuralType)
	assert.True(t, col.HasSemantic(profile.SemanticDateTime))
	assert.Equal(t, profile.ResolutionYear, col.TemporalResolution)
	require.NotEmpty(t, col.Coverage)
	// Temporal coverage replaces the numeric one: epochs, not years.
	assert.Greater(t, col.Coverage[0].Gte, 1e8)
}

func TestProfileCompactDateColumn(t *testing.T) {
	prof := profileCSV(t, "date\n20200101\n20200201\n20200301\n", Options{ID: "test.dates"})

	require.Len(t, prof.Columns, 1)
	col := prof.Columns[0]
	assert.Equal(t, profile.StructuralText, col.StructuralType)
	assert.True(t, col.HasSemantic(profile.SemanticDateTime))
	assert.NotEmpty(t, col.Coverage)
}

func TestProfileLatLonPairing(t *testing.T) {
	csv := "pickup_latitude,pickup_longitude\n" +
		"40.7,-74.0\n" +
		"40.8,-73.9\n" +
		"40.75,-73.95\n"
	prof := profileCSV(t, csv, Options{ID: "test.taxi"})

	require.Len(t, prof.SpatialCoverage, 1)
	sc := prof.SpatialCoverage[0]
	assert.Equal(t, "pickup_latitude", sc.LatColumn)
	assert.Equal(t, "pickup_longitude", sc.LonColumn)
	require.NotEmpty(t, sc.Ranges)
	for _, env := range sc.Ranges {
		assert.Greater(t, env.Area(), 0.0)
	}

	// Paired columns get no numeric coverage of their own.
	assert.Empty(t, prof.Column("pickup_latitude").Coverage)
}

func TestProfileUnpairedLatitudeDiscarded(t *testing.T) {
	csv := "pickup_latitude,fare\n40.7,10\n40.8,12\n40.75,9\n"
	prof := profileCSV(t, csv, Options{ID: "test.unpaired"})

	assert.Empty(t, prof.SpatialCoverage)
}

func TestProfileLatLonValidityFilter(t *testing.T) {
	// Only one valid row after dropping (0,0) and out-of-range pairs.
	csv := "latitude,longitude\n0,0\n95.0,-74.0\n40.7,-74.0\n"
	prof := profileCSV(t, csv, Options{ID: "test.invalid"})

	assert.Empty(t, prof.SpatialCoverage)
}

func TestProfileColumnCountMatchesHeader(t *testing.T) {
	csv := "a,b,c\n1,2\nx,y,z,w\n,,\n"
	prof := profileCSV(t, csv, Options{ID: "test.ragged"})
	assert.Len(t, prof.Columns, 3)
}

func TestProfileHeaderWinsOverHint(t *testing.T) {
	meta := &profile.RequestMetadata{
		Name: "hinted",
		Columns: []profile.ColumnProfile{
			{Name: "old_a"}, {Name: "old_b"},
		},
	}
	prof := profileCSV(t, "a,b\n1,x\n2,y\n", Options{ID: "test.hint", Metadata: meta})

	require.Len(t, prof.Columns, 2)
	assert.Equal(t, "a", prof.Columns[0].Name)
	assert.Equal(t, "b", prof.Columns[1].Name)
	assert.Equal(t, "hinted", prof.Name)
}

func TestProfileHintedTypesRespected(t *testing.T) {
	meta := &profile.RequestMetadata{
		Columns: []profile.ColumnProfile{{
			Name:           "code",
			StructuralType: profile.StructuralText,
			SemanticTypes:  []profile.SemanticType{profile.SemanticCategorical},
		}},
	}
	prof := profileCSV(t, "code\n1\n2\n3\n", Options{ID: "test.hinted", Metadata: meta})

	col := prof.Columns[0]
	assert.Equal(t, profile.StructuralText, col.StructuralType)
	assert.True(t, col.HasSemantic(profile.SemanticCategorical))
}

func TestProfileSearchModeAttachesSketches(t *testing.T) {
	index := memory.NewSketchIndex()
	p := New(index, nil)
	csv := "city\nnew york city area\nlos angeles county\nchicago lake side\nhouston gulf coast\n"
	prof, err := p.ProfileBytes(context.Background(), []byte(csv), Options{ID: "test.cities", Search: true})
	require.NoError(t, err)

	require.Len(t, prof.Sketches, 1)
	assert.Equal(t, "city", prof.Sketches[0].Name)
	assert.Equal(t, int64(4), prof.Sketches[0].Cardinality)
}

func TestProfileIndexModePushesColumns(t *testing.T) {
	index := memory.NewSketchIndex()
	p := New(index, nil)
	csv := "city\nnew york city area\nlos angeles county\nchicago lake side\nhouston gulf coast\n"
	prof, err := p.ProfileBytes(context.Background(), []byte(csv), Options{ID: "test.cities"})
	require.NoError(t, err)
	assert.Empty(t, prof.Sketches)

	// The pushed column is queryable by its own sketch.
	sk, err := index.Sketch(context.Background(), "probe", []string{
		"new york city area", "los angeles county", "chicago lake side", "houston gulf coast",
	})
	require.NoError(t, err)
	overlaps, err := index.Query(context.Background(), sk)
	require.NoError(t, err)
	require.NotEmpty(t, overlaps)
	assert.Equal(t, prof.ID, overlaps[0].DatasetID)
	assert.Equal(t, "city", overlaps[0].ColumnName)
	assert.InDelta(t, 1.0, overlaps[0].Score, 1e-9)
}

func TestWriteCSVNormalized(t *testing.T) {
	table := &Table{
		Columns: []string{"idx", "name"},
		Rows:    [][]string{{"0", "alpha"}, {"1", "beta"}},
	}
	var buf bytes.Buffer
	require.NoError(t, table.WriteCSV(&buf))

	out := buf.String()
	assert.Equal(t, "idx,name\r\n0,alpha\r\n1,beta\r\n", out)
}

func TestLoadCSVBytesRowCount(t *testing.T) {
	table, nbRows, size, err := LoadCSVBytes([]byte("a,b\n1,2\n3,4\n"), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(2), nbRows)
	assert.Equal(t, int64(12), size)
	assert.Equal(t, []string{"a", "b"}, table.Columns)
	assert.Len(t, table.Rows, 2)
}
