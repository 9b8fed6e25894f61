package classify

import (
	"context"
	"strconv"
	"strings"

	"tablehub/domain/profile"
)

// augmentSemantic layers semantic types on top of the structural
// decision, mutating res in place.
func (c *Classifier) augmentSemantic(ctx context.Context, sample []string, name string, counts patternCounts, res *Result) {
	t := counts.threshold()

	if float64(counts.boolean) >= t {
		res.addSemantic(profile.SemanticBoolean)
		res.UncleanValuesRatio = counts.uncleanRatio(res.Structural, true)
	}

	switch res.Structural {
	case profile.StructuralText:
		c.augmentText(ctx, sample, counts, res)
	case profile.StructuralInteger:
		c.augmentInteger(sample, name, counts, res)
	case profile.StructuralFloat:
		c.augmentFloat(sample, name, counts, res)
	}

	// Generic date detection runs regardless of structural type.
	if !res.hasSemantic(profile.SemanticDateTime) {
		dates, resolution := parseGenericDates(sample)
		if float64(len(dates)) >= t {
			res.addSemantic(profile.SemanticDateTime)
			res.ParsedDates = dates
			res.TemporalResolution = resolution
			if res.Structural == profile.StructuralInteger {
				// 'YYYYMMDD' values parse as integers, but that is
				// not what they are.
				res.Structural = profile.StructuralText
			}
		}
	}
}

func (c *Classifier) augmentText(ctx context.Context, sample []string, counts patternCounts, res *Result) {
	t := counts.threshold()
	categorical := false

	if names, ok := c.resolveAdmin(ctx, sample); ok {
		res.addSemantic(profile.SemanticAdmin)
		res.AdminNames = names
		categorical = true
	}

	if !categorical && float64(counts.text) >= t {
		res.addSemantic(profile.SemanticFreeText)
		return
	}

	values := distinctValues(sample)
	n := len(values)
	res.NumDistinctValues = &n
	maxCategorical := maxCategoricalRatio * float64(counts.total-counts.empty)
	if categorical || float64(n) <= maxCategorical || res.hasSemantic(profile.SemanticBoolean) {
		res.addSemantic(profile.SemanticCategorical)
		res.CategoricalValues = values
	}
}

func (c *Classifier) augmentInteger(sample []string, name string, counts patternCounts, res *Result) {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, affix := range []string{"id", "identifier", "index"} {
		if strings.HasPrefix(lower, affix) || strings.HasSuffix(lower, affix) {
			res.addSemantic(profile.SemanticIdentifier)
			break
		}
	}

	n := len(distinctValues(sample))
	res.NumDistinctValues = &n

	if lower == "year" {
		dates := parseWithResolution(sample, profile.ResolutionYear)
		if float64(len(dates)) >= counts.threshold() {
			res.addSemantic(profile.SemanticDateTime)
			res.ParsedDates = dates
			res.TemporalResolution = profile.ResolutionYear
		}
	}
}

func (c *Classifier) augmentFloat(sample []string, name string, counts patternCounts, res *Result) {
	numLat, numLon := 0, 0
	for _, v := range sample {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			continue
		}
		if f >= -180 && f <= 180 {
			numLon++
			if f >= -90 && f <= 90 {
				numLat++
			}
		}
	}

	t := counts.threshold()
	lower := strings.ToLower(name)
	// A column is never both latitude and longitude; latitude wins on
	// ambiguous names.
	if float64(numLat) >= t && strings.Contains(lower, "lat") {
		res.addSemantic(profile.SemanticLatitude)
	} else if float64(numLon) >= t && strings.Contains(lower, "lon") {
		res.addSemantic(profile.SemanticLongitude)
	}
}

// resolveAdmin asks the GeoData collaborator to resolve the sample as
// administrative area names. ok is true when enough values resolved.
func (c *Classifier) resolveAdmin(ctx context.Context, sample []string) ([]string, bool) {
	if c.geo == nil || len(sample) == 0 {
		return nil, false
	}
	resolved, err := c.geo.ResolveNames(ctx, sample)
	if err != nil {
		c.log.Warn("admin name resolution failed: %v", err)
		return nil, false
	}
	hits := 0
	for _, r := range resolved {
		if r != "" {
			hits++
		}
	}
	if float64(hits) <= minAdminResolved*float64(len(sample)) {
		return nil, false
	}
	return resolved, true
}
