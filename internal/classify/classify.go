package classify

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"tablehub/domain/profile"
	"tablehub/internal/logging"
	"tablehub/ports"
)

// Tolerable ratio of unclean data before a column loses its type.
const maxUnclean = 0.02

// Maximum distinct-to-total ratio for categorical columns.
const maxCategoricalRatio = 0.10

// Fraction of values that must resolve as administrative areas.
const minAdminResolved = 0.7

var (
	// 4.0 and 7.000 are integers
	reInt   = regexp.MustCompile(`^[+-]?[0-9]+(?:\.0*)?$`)
	reFloat = regexp.MustCompile(`^[+-]?(?:[0-9]+\.[0-9]*|\.[0-9]+)(?:[Ee][0-9]+)?$`)
	rePoint = regexp.MustCompile(
		`^POINT ?\(-?[0-9]{1,3}\.[0-9]{1,15} -?[0-9]{1,3}\.[0-9]{1,15}\)$`)
	rePolygon = regexp.MustCompile(
		`^POLYGON ?\((?:\([0-9 .]+\), ?)*\([0-9 .]+\)\)$`)
	// "Place Name (40.7, -74.0)" style combined geo values
	reGeoCombined = regexp.MustCompile(
		`^[\p{Lu}\p{Po}0-9 ]+ \(-?[0-9]{1,3}\.[0-9]{1,15}, ?-?[0-9]{1,3}\.[0-9]{1,15}\)$`)
)

var boolValues = map[string]bool{
	"0": true, "1": true, "true": true, "false": true,
	"y": true, "n": true, "yes": true, "no": true,
}

// patternCounts tallies how many sample values match each structural
// pattern. Matching is first-match-wins except booleans, which are
// counted independently (a "1" is both integer and boolean).
type patternCounts struct {
	total       int
	empty       int
	integer     int
	float       int
	point       int
	polygon     int
	geoCombined int
	text        int
	boolean     int
}

func countPatterns(sample []string) patternCounts {
	c := patternCounts{total: len(sample)}
	for _, v := range sample {
		trimmed := strings.TrimSpace(v)
		switch {
		case trimmed == "":
			c.empty++
		case reInt.MatchString(v):
			c.integer++
		case reFloat.MatchString(v):
			c.float++
		case rePoint.MatchString(v):
			c.point++
		case reGeoCombined.MatchString(v):
			c.geoCombined++
		case rePolygon.MatchString(v):
			c.polygon++
		case countWhitespace(v) >= 4:
			c.text++
		}
		if boolValues[strings.ToLower(v)] {
			c.boolean++
		}
	}
	return c
}

func countWhitespace(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			n++
		}
	}
	return n
}

// threshold returns the match count a pattern needs to claim the
// column: all non-empty values minus the unclean tolerance, at least 1.
func (c patternCounts) threshold() float64 {
	t := (1.0 - maxUnclean) * float64(c.total-c.empty)
	if t < 1 {
		return 1
	}
	return t
}

func (c patternCounts) structuralType() profile.StructuralType {
	t := c.threshold()
	switch {
	case c.empty == c.total:
		return profile.StructuralMissingData
	case float64(c.integer) >= t:
		return profile.StructuralInteger
	case float64(c.integer+c.float) >= t:
		return profile.StructuralFloat
	case float64(c.point) >= t || float64(c.geoCombined) >= t:
		return profile.StructuralGeoPoint
	case float64(c.polygon) >= t:
		return profile.StructuralGeoPolygon
	default:
		return profile.StructuralText
	}
}

// uncleanRatio computes the fraction of values not matching the chosen
// type. Boolean is accepted as a pseudo-type for the semantic override.
func (c patternCounts) uncleanRatio(t profile.StructuralType, boolean bool) float64 {
	if c.total == 0 {
		return 0
	}
	n := float64(c.total)
	if boolean {
		return float64(c.total-c.empty-c.boolean) / n
	}
	switch t {
	case profile.StructuralInteger:
		return float64(c.total-c.empty-c.integer) / n
	case profile.StructuralFloat:
		return float64(c.total-c.empty-c.integer-c.float) / n
	case profile.StructuralGeoPoint:
		return float64(c.total-c.empty-c.point) / n
	case profile.StructuralGeoPolygon:
		return float64(c.total-c.empty-c.polygon) / n
	default:
		return 0
	}
}

// Result is the outcome of classifying one column sample.
type Result struct {
	Structural         profile.StructuralType
	Semantic           []profile.SemanticType
	UncleanValuesRatio float64
	MissingValuesRatio *float64
	NumDistinctValues  *int
	TemporalResolution profile.TemporalResolution

	// ParsedDates carries the parsed instants when DateTime applies.
	ParsedDates []int64 // epoch seconds
	// AdminNames carries resolved area names when Admin applies.
	AdminNames []string
	// CategoricalValues carries the distinct value set when
	// Categorical applies.
	CategoricalValues []string
}

func (r *Result) hasSemantic(t profile.SemanticType) bool {
	for _, st := range r.Semantic {
		if st == t {
			return true
		}
	}
	return false
}

func (r *Result) addSemantic(t profile.SemanticType) {
	if !r.hasSemantic(t) {
		r.Semantic = append(r.Semantic, t)
	}
}

// Hint is an externally provided column override (human in the loop).
// When present, type inference is skipped and only metadata consistent
// with the provided types is computed.
type Hint struct {
	StructuralType     profile.StructuralType
	SemanticTypes      []profile.SemanticType
	TemporalResolution profile.TemporalResolution
}

// Classifier infers the structural and semantic types of a column from
// an ordered sample of its string values.
type Classifier struct {
	geo ports.GeoData
	log *logging.Logger
}

// New creates a classifier. geo may be nil, which disables
// administrative-area tagging.
func New(geo ports.GeoData) *Classifier {
	return &Classifier{
		geo: geo,
		log: logging.NewDefaultLogger("classify"),
	}
}

// Classify runs the single counting pass, picks the structural type,
// and layers semantic types on top. With a hint the structural and
// semantic decisions are taken verbatim from it.
func (c *Classifier) Classify(ctx context.Context, sample []string, name string, hint *Hint) Result {
	counts := countPatterns(sample)

	var res Result
	if hint != nil {
		res = c.applyHint(ctx, sample, counts, hint)
	} else {
		res.Structural = counts.structuralType()
		res.UncleanValuesRatio = counts.uncleanRatio(res.Structural, false)
		c.augmentSemantic(ctx, sample, name, counts, &res)
	}

	if res.Structural != profile.StructuralMissingData && counts.empty > 0 {
		ratio := float64(counts.empty) / float64(counts.total)
		res.MissingValuesRatio = &ratio
	}
	return res
}

// applyHint trusts the caller-provided types and only fills in the
// metadata they imply.
func (c *Classifier) applyHint(ctx context.Context, sample []string, counts patternCounts, hint *Hint) Result {
	res := Result{
		Structural:         hint.StructuralType,
		Semantic:           append([]profile.SemanticType(nil), hint.SemanticTypes...),
		UncleanValuesRatio: counts.uncleanRatio(hint.StructuralType, false),
	}
	for _, sem := range hint.SemanticTypes {
		switch sem {
		case profile.SemanticBoolean:
			res.UncleanValuesRatio = counts.uncleanRatio(hint.StructuralType, true)
		case profile.SemanticDateTime:
			if hint.TemporalResolution != "" {
				res.ParsedDates = parseWithResolution(sample, hint.TemporalResolution)
				res.TemporalResolution = hint.TemporalResolution
			} else {
				res.ParsedDates, _ = parseGenericDates(sample)
			}
		case profile.SemanticAdmin:
			if names, ok := c.resolveAdmin(ctx, sample); ok {
				res.AdminNames = names
			}
		case profile.SemanticCategorical, profile.SemanticIdentifier:
			values := distinctValues(sample)
			n := len(values)
			res.NumDistinctValues = &n
			if sem == profile.SemanticCategorical {
				res.CategoricalValues = values
			}
		}
	}
	if hint.StructuralType == profile.StructuralInteger && res.NumDistinctValues == nil {
		n := len(distinctValues(sample))
		res.NumDistinctValues = &n
	}
	return res
}

func distinctValues(sample []string) []string {
	seen := map[string]bool{}
	var values []string
	for _, v := range sample {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values
}
