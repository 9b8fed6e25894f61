// Package profiler turns raw dataset bytes into a catalog profile:
// per-column types, distribution summaries, coverage ranges and
// similarity sketches.
package profiler

import (
	"context"
	"math"
	"strconv"
	"strings"

	"github.com/montanaflynn/stats"

	"tablehub/domain/core"
	"tablehub/domain/profile"
	"tablehub/internal/classify"
	"tablehub/internal/coverage"
	"tablehub/internal/logging"
	"tablehub/ports"
)

// Options controls one profiling run.
type Options struct {
	ID       core.DatasetID
	Metadata *profile.RequestMetadata

	// Search profiles a user-supplied table: text columns get sketches
	// attached to the result instead of being pushed to the index.
	Search bool

	// Seed drives row sampling of oversized files.
	Seed int64
}

// Profiler computes dataset profiles. The sketch index and the geo
// resolver are both optional.
type Profiler struct {
	classifier *classify.Classifier
	sketch     ports.SketchIndex
	log        *logging.Logger
}

// New creates a profiler
func New(sketch ports.SketchIndex, geo ports.GeoData) *Profiler {
	return &Profiler{
		classifier: classify.New(geo),
		sketch:     sketch,
		log:        logging.NewDefaultLogger("profiler"),
	}
}

// ProfileFile profiles a CSV file on disk
func (p *Profiler) ProfileFile(ctx context.Context, path string, opts Options) (*profile.Profile, error) {
	table, nbRows, size, err := LoadCSVFile(path, opts.Seed)
	if err != nil {
		return nil, err
	}
	if size > MaxSize {
		p.log.Info("sampled %s: %d bytes, %d of %d rows kept", opts.ID, size, len(table.Rows), nbRows)
	}
	return p.ProfileTable(ctx, table, nbRows, size, opts)
}

// ProfileBytes profiles a CSV held in memory
func (p *Profiler) ProfileBytes(ctx context.Context, data []byte, opts Options) (*profile.Profile, error) {
	table, nbRows, size, err := LoadCSVBytes(data, opts.Seed)
	if err != nil {
		return nil, err
	}
	return p.ProfileTable(ctx, table, nbRows, size, opts)
}

// latlonColumn is a latitude or longitude column candidate with its
// values aligned to table rows (NaN where unparsable).
type latlonColumn struct {
	name   string
	values []float64
}

// ProfileTable profiles an already loaded table. nbRows is the true row
// count of the dataset, which exceeds len(table.Rows) when the file was
// sampled.
func (p *Profiler) ProfileTable(ctx context.Context, table *Table, nbRows, size int64, opts Options) (*profile.Profile, error) {
	meta := opts.Metadata
	if meta == nil {
		meta = &profile.RequestMetadata{}
	}

	// Discoverer-supplied column slots are trusted only when they line
	// up with the header.
	var hints []profile.ColumnProfile
	if len(meta.Columns) == table.Width() {
		hints = meta.Columns
	}

	columns := make([]profile.ColumnProfile, table.Width())
	var latColumns, lonColumns []latlonColumn
	textValues := map[string][]string{}

	for i, name := range table.Columns {
		sample := table.Column(i)

		var hint *classify.Hint
		if hints != nil && hints[i].StructuralType != "" && len(hints[i].SemanticTypes) > 0 {
			hint = &classify.Hint{
				StructuralType:     hints[i].StructuralType,
				SemanticTypes:      hints[i].SemanticTypes,
				TemporalResolution: hints[i].TemporalResolution,
			}
		}

		res := p.classifier.Classify(ctx, sample, name, hint)

		col := profile.ColumnProfile{
			Name:               name,
			StructuralType:     res.Structural,
			SemanticTypes:      res.Semantic,
			UncleanValuesRatio: res.UncleanValuesRatio,
			MissingValuesRatio: res.MissingValuesRatio,
			NumDistinctValues:  res.NumDistinctValues,
			TemporalResolution: res.TemporalResolution,
		}
		if col.SemanticTypes == nil {
			col.SemanticTypes = []profile.SemanticType{}
		}
		// Discoverer-supplied semantic types survive re-profiling.
		if hints != nil {
			for _, st := range hints[i].SemanticTypes {
				col.AddSemantic(st)
			}
		}

		switch col.StructuralType {
		case profile.StructuralInteger, profile.StructuralFloat:
			aligned, valid := parseNumeric(sample)
			if len(valid) > 0 {
				col.Mean, col.Stddev = meanStddev(valid)
			}
			switch {
			case col.HasSemantic(profile.SemanticLatitude):
				latColumns = append(latColumns, latlonColumn{name: name, values: aligned})
			case col.HasSemantic(profile.SemanticLongitude):
				lonColumns = append(lonColumns, latlonColumn{name: name, values: aligned})
			default:
				col.Coverage = coverage.NumericalRanges(valid)
			}
		case profile.StructuralText:
			if !col.HasSemantic(profile.SemanticDateTime) {
				values := nonEmpty(sample)
				if len(values) > 0 {
					textValues[name] = values
				}
			}
		}

		// Temporal columns get ranges over their instants, replacing
		// any numeric coverage (a year column is both).
		if col.HasSemantic(profile.SemanticDateTime) && len(res.ParsedDates) > 0 {
			epochs := make([]float64, len(res.ParsedDates))
			coarse := make([]float64, len(res.ParsedDates))
			for j, e := range res.ParsedDates {
				epochs[j] = float64(e)
				coarse[j] = float64(classify.CoarsenToHour(e))
			}
			col.Mean, col.Stddev = meanStddev(epochs)
			col.Coverage = coverage.NumericalRanges(coarse)
		}

		columns[i] = col
	}

	prof := &profile.Profile{
		ID:              opts.ID,
		Name:            meta.Name,
		Description:     meta.Description,
		NbRows:          nbRows,
		SizeBytes:       size,
		Columns:         columns,
		SpatialCoverage: p.pairLatLon(latColumns, lonColumns),
		Materialize:     meta.Materialize,
	}

	p.applySketches(ctx, prof, textValues, opts)
	return prof, nil
}

// pairLatLon matches latitude columns to longitude columns by their
// normalized names ("pickup_latitude" pairs with "pickup_longitude")
// and computes bounding boxes for each pair.
func (p *Profiler) pairLatLon(lats, lons []latlonColumn) []profile.SpatialCoverage {
	lonByKey := map[string]*latlonColumn{}
	for i := range lons {
		lonByKey[normalizeLatLonName(lons[i].name, "longitude", "long")] = &lons[i]
	}

	var spatial []profile.SpatialCoverage
	for i := range lats {
		lat := &lats[i]
		lon := lonByKey[normalizeLatLonName(lat.name, "latitude", "lat")]
		if lon == nil {
			p.log.Warn("latitude column %q has no matching longitude column", lat.name)
			continue
		}

		var points [][2]float64
		for r := 0; r < len(lat.values) && r < len(lon.values); r++ {
			la, lo := lat.values[r], lon.values[r]
			if math.IsNaN(la) || math.IsNaN(lo) {
				continue
			}
			if la == 0 && lo == 0 {
				continue
			}
			if math.Abs(la) >= 90 || math.Abs(lo) >= 180 {
				continue
			}
			points = append(points, [2]float64{la, lo})
		}
		if len(points) < 2 {
			continue
		}
		spatial = append(spatial, profile.SpatialCoverage{
			LatColumn: lat.name,
			LonColumn: lon.name,
			Ranges:    coverage.SpatialRanges(points),
		})
	}
	return spatial
}

func normalizeLatLonName(name, full, short string) string {
	n := strings.ToLower(name)
	if stripped := strings.Replace(n, full, "", 1); stripped != n {
		n = stripped
	} else {
		n = strings.Replace(n, short, "", 1)
	}
	return strings.Trim(n, " _-.")
}

// applySketches indexes text columns (index mode) or attaches their
// sketches to the profile (search mode). Sketch failures never fail a
// profiling run.
func (p *Profiler) applySketches(ctx context.Context, prof *profile.Profile, textValues map[string][]string, opts Options) {
	if p.sketch == nil || len(textValues) == 0 {
		return
	}
	for _, col := range prof.Columns {
		values, ok := textValues[col.Name]
		if !ok {
			continue
		}
		if opts.Search {
			sk, err := p.sketch.Sketch(ctx, col.Name, values)
			if err != nil {
				p.log.Warn("failed to sketch column %q: %v", col.Name, err)
				continue
			}
			prof.Sketches = append(prof.Sketches, sk)
		} else {
			if err := p.sketch.IndexColumn(ctx, prof.ID, col.Name, values); err != nil {
				p.log.Warn("failed to index column %q: %v", col.Name, err)
			}
		}
	}
}

// parseNumeric parses the sample into a row-aligned vector (NaN where
// the cell is empty or unparsable) plus the compact valid values.
func parseNumeric(sample []string) (aligned, valid []float64) {
	aligned = make([]float64, len(sample))
	for i, v := range sample {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			aligned[i] = math.NaN()
			continue
		}
		aligned[i] = f
		valid = append(valid, f)
	}
	return aligned, valid
}

// meanStddev computes the mean and population standard deviation,
// ignoring nulls (the caller passes parsed values only).
func meanStddev(values []float64) (*float64, *float64) {
	mean, err := stats.Mean(values)
	if err != nil {
		return nil, nil
	}
	stddev, err := stats.StandardDeviation(values)
	if err != nil {
		return &mean, nil
	}
	return &mean, &stddev
}

func nonEmpty(sample []string) []string {
	var values []string
	for _, v := range sample {
		if strings.TrimSpace(v) != "" {
			values = append(values, v)
		}
	}
	return values
}
