package classify

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablehub/domain/profile"
)

func classifyPlain(t *testing.T, sample []string, name string) Result {
	t.Helper()
	return New(nil).Classify(context.Background(), sample, name, nil)
}

func TestClassifyIntegerColumn(t *testing.T) {
	sample := make([]string, 100)
	for i := range sample {
		sample[i] = fmt.Sprintf("%d", i+1)
	}
	res := classifyPlain(t, sample, "x")

	assert.Equal(t, profile.StructuralInteger, res.Structural)
	assert.Zero(t, res.UncleanValuesRatio)
	assert.NotContains(t, res.Semantic, profile.SemanticDateTime)
	require.NotNil(t, res.NumDistinctValues)
	assert.Equal(t, 100, *res.NumDistinctValues)
}

func TestClassifyYearColumn(t *testing.T) {
	res := classifyPlain(t, []string{"2001", "2002", "2003", "2004"}, "year")

	assert.Equal(t, profile.StructuralInteger, res.Structural)
	assert.Contains(t, res.Semantic, profile.SemanticDateTime)
	assert.Equal(t, profile.ResolutionYear, res.TemporalResolution)
	require.Len(t, res.ParsedDates, 4)
	// 2001-01-01T00:00:00Z
	assert.Equal(t, int64(978307200), res.ParsedDates[0])
}

func TestClassifyCompactDateDowngrade(t *testing.T) {
	res := classifyPlain(t, []string{"20200101", "20200201", "20200301"}, "date")

	assert.Equal(t, profile.StructuralText, res.Structural)
	assert.Contains(t, res.Semantic, profile.SemanticDateTime)
	assert.Len(t, res.ParsedDates, 3)
}

func TestClassifyBareIntegersAreNotDates(t *testing.T) {
	res := classifyPlain(t, []string{"2001", "2002", "2003"}, "count")

	assert.Equal(t, profile.StructuralInteger, res.Structural)
	assert.NotContains(t, res.Semantic, profile.SemanticDateTime)
}

func TestClassifyFloatWithUncleanValues(t *testing.T) {
	sample := make([]string, 100)
	for i := range sample {
		sample[i] = fmt.Sprintf("%d.5", i)
	}
	sample[0] = "oops"
	res := classifyPlain(t, sample, "amount")

	assert.Equal(t, profile.StructuralFloat, res.Structural)
	assert.InDelta(t, 0.01, res.UncleanValuesRatio, 1e-9)
}

func TestClassifyMissingData(t *testing.T) {
	res := classifyPlain(t, []string{"", "  ", ""}, "empty")

	assert.Equal(t, profile.StructuralMissingData, res.Structural)
	assert.Nil(t, res.MissingValuesRatio)
}

func TestClassifyMissingRatio(t *testing.T) {
	res := classifyPlain(t, []string{"1", "", "3", ""}, "x")

	require.NotNil(t, res.MissingValuesRatio)
	assert.InDelta(t, 0.5, *res.MissingValuesRatio, 1e-9)
	assert.GreaterOrEqual(t, *res.MissingValuesRatio, 0.0)
	assert.LessOrEqual(t, *res.MissingValuesRatio, 1.0)
}

func TestClassifyBooleanColumn(t *testing.T) {
	sample := []string{"true", "false", "true", "false", "true", "true", "false", "true", "false", "false"}
	res := classifyPlain(t, sample, "flag")

	assert.Equal(t, profile.StructuralText, res.Structural)
	assert.Contains(t, res.Semantic, profile.SemanticBoolean)
	assert.Contains(t, res.Semantic, profile.SemanticCategorical)
	assert.Zero(t, res.UncleanValuesRatio)
	assert.ElementsMatch(t, []string{"true", "false"}, res.CategoricalValues)
}

func TestClassifyCategoricalColumn(t *testing.T) {
	sample := make([]string, 100)
	for i := range sample {
		sample[i] = []string{"red", "green", "blue"}[i%3]
	}
	res := classifyPlain(t, sample, "color")

	assert.Equal(t, profile.StructuralText, res.Structural)
	assert.Contains(t, res.Semantic, profile.SemanticCategorical)
	require.NotNil(t, res.NumDistinctValues)
	assert.Equal(t, 3, *res.NumDistinctValues)
}

func TestClassifyFreeTextColumn(t *testing.T) {
	sample := make([]string, 20)
	for i := range sample {
		sample[i] = "the quick brown fox jumps over it"
	}
	res := classifyPlain(t, sample, "comment")

	assert.Equal(t, profile.StructuralText, res.Structural)
	assert.Contains(t, res.Semantic, profile.SemanticFreeText)
	assert.NotContains(t, res.Semantic, profile.SemanticCategorical)
}

func TestClassifyIdentifierByName(t *testing.T) {
	for _, name := range []string{"id", "user_id", "identifier", "index"} {
		res := classifyPlain(t, []string{"1", "2", "3", "4", "5"}, name)
		assert.Contains(t, res.Semantic, profile.SemanticIdentifier, "column %q", name)
	}
	res := classifyPlain(t, []string{"1", "2", "3", "4", "5"}, "amount")
	assert.NotContains(t, res.Semantic, profile.SemanticIdentifier)
}

func TestClassifyLatitudeLongitude(t *testing.T) {
	lat := classifyPlain(t, []string{"40.7", "40.8", "40.75"}, "pickup_latitude")
	assert.Contains(t, lat.Semantic, profile.SemanticLatitude)
	assert.NotContains(t, lat.Semantic, profile.SemanticLongitude)

	lon := classifyPlain(t, []string{"-74.0", "-73.9", "-73.95"}, "pickup_longitude")
	assert.Contains(t, lon.Semantic, profile.SemanticLongitude)
	assert.NotContains(t, lon.Semantic, profile.SemanticLatitude)

	// Range fits latitude but the name gives no hint.
	plain := classifyPlain(t, []string{"40.7", "40.8", "40.75"}, "value")
	assert.NotContains(t, plain.Semantic, profile.SemanticLatitude)
	assert.NotContains(t, plain.Semantic, profile.SemanticLongitude)
}

func TestClassifyGeoPoint(t *testing.T) {
	sample := []string{
		"POINT (-73.9 40.7)",
		"POINT (-74.0 40.8)",
		"POINT (-73.95 40.75)",
	}
	res := classifyPlain(t, sample, "location")
	assert.Equal(t, profile.StructuralGeoPoint, res.Structural)
}

type fakeGeoData struct {
	names []string
	err   error
}

func (f fakeGeoData) ResolveNames(_ context.Context, sample []string) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.names[:len(sample)], nil
}

func TestClassifyAdminAreas(t *testing.T) {
	sample := []string{"berlin", "hamburg", "munich", "cologne"}
	geo := fakeGeoData{names: []string{"Berlin", "Hamburg", "Munich", "Cologne"}}
	res := New(geo).Classify(context.Background(), sample, "city", nil)

	assert.Contains(t, res.Semantic, profile.SemanticAdmin)
	assert.Contains(t, res.Semantic, profile.SemanticCategorical)
	assert.Equal(t, []string{"Berlin", "Hamburg", "Munich", "Cologne"}, res.AdminNames)
}

func TestClassifyAdminBelowThreshold(t *testing.T) {
	sample := []string{"berlin", "foo", "bar", "baz"}
	geo := fakeGeoData{names: []string{"Berlin", "", "", ""}}
	res := New(geo).Classify(context.Background(), sample, "city", nil)

	assert.NotContains(t, res.Semantic, profile.SemanticAdmin)
}

func TestClassifyHintOverride(t *testing.T) {
	hint := &Hint{
		StructuralType: profile.StructuralText,
		SemanticTypes:  []profile.SemanticType{profile.SemanticCategorical},
	}
	res := classifyHint(t, []string{"1", "2", "3"}, hint)

	assert.Equal(t, profile.StructuralText, res.Structural)
	assert.Equal(t, []profile.SemanticType{profile.SemanticCategorical}, res.Semantic)
	require.NotNil(t, res.NumDistinctValues)
	assert.Equal(t, 3, *res.NumDistinctValues)
}

func classifyHint(t *testing.T, sample []string, hint *Hint) Result {
	t.Helper()
	return New(nil).Classify(context.Background(), sample, "col", hint)
}

func TestThresholdNeverBelowOne(t *testing.T) {
	c := patternCounts{total: 1, empty: 0}
	assert.Equal(t, 1.0, c.threshold())
}
