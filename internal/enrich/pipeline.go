package enrich

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/geoenrich/internal/crs"
	"github.com/sells-group/geoenrich/internal/spatial"
)

// BandSpec is one proximity band with its radius in miles.
type BandSpec struct {
	Name  string
	Miles float64
}

// DefaultBands are the treatment-plant bands used when none are configured.
var DefaultBands = []BandSpec{
	{Name: "half_mile", Miles: 0.5},
	{Name: "one_mile", Miles: 1},
	{Name: "five_mile", Miles: 5},
}

// FieldMap copies attribute Source of a polygon layer to output column Name.
type FieldMap struct {
	Name   string
	Source string
}

// JoinSpec is one administrative polygon layer and the attributes to copy
// from it.
type JoinSpec struct {
	Layer     *spatial.Layer
	Fields    []FieldMap
	TitleCase bool
}

// Inputs are the datasets for one pipeline run.
type Inputs struct {
	Sales    []Record
	SalesCRS crs.Projection

	Joins []JoinSpec

	Markets    *spatial.Layer
	MarketName string // attribute holding the market name

	Plants *spatial.Layer
}

// Options configure a Pipeline.
type Options struct {
	Target       crs.Projection
	Bands        []BandSpec
	QuadSegments int
	Concurrent   bool
	OnInvalid    InvalidPolicy
}

// Report summarizes a run.
type Report struct {
	Input       int
	Enriched    int
	Skipped     []*InvalidGeometryError
	Unmatched   map[string]int
	Ambiguities []JoinAmbiguityWarning
	BandCounts  []int
	Duration    time.Duration
}

// Result is the enriched table with the artifacts that produced it.
type Result struct {
	CRS     crs.Projection
	Columns []string
	Bands   []spatial.Band
	Records []EnrichedRecord
	Rings   *spatial.RingLayer
	Report  Report
}

// Pipeline runs normalization, joins and feature derivation over one set of
// inputs.
type Pipeline struct {
	opts  Options
	bands []spatial.Band
}

// New validates opts and converts band radii into the target CRS unit.
func New(opts Options) (*Pipeline, error) {
	if opts.Target == nil {
		return nil, eris.New("enrich: target CRS is required")
	}
	if opts.Target.Geographic() {
		return nil, &spatial.DegenerateDistanceUnitError{Op: "enrich", CRS: opts.Target.Code()}
	}
	if crs.VariableScale(opts.Target) {
		return nil, &spatial.DegenerateDistanceUnitError{Op: "enrich", CRS: opts.Target.Code(), VariableScale: true}
	}
	if len(opts.Bands) == 0 {
		opts.Bands = DefaultBands
	}
	if opts.QuadSegments <= 0 {
		opts.QuadSegments = spatial.DefaultQuadSegments
	}
	if opts.OnInvalid == "" {
		opts.OnInvalid = InvalidAbort
	}
	bands := make([]spatial.Band, len(opts.Bands))
	for i, b := range opts.Bands {
		r, err := crs.MilesToUnits(opts.Target, b.Miles)
		if err != nil {
			return nil, eris.Wrapf(err, "enrich: band %s", b.Name)
		}
		bands[i] = spatial.Band{Name: b.Name, Radius: r}
	}
	return &Pipeline{opts: opts, bands: bands}, nil
}

// Bands returns the proximity bands in target CRS units.
func (p *Pipeline) Bands() []spatial.Band { return p.bands }

// Run enriches in.Sales. The result has one record per valid input record,
// in input order.
func (p *Pipeline) Run(ctx context.Context, in Inputs) (*Result, error) {
	start := time.Now()
	log := zap.L().With(zap.String("component", "enrich.pipeline"), zap.Int("target_epsg", p.opts.Target.Code()))

	if in.SalesCRS == nil {
		return nil, eris.New("enrich: sales CRS is required")
	}
	if in.Markets == nil || in.Plants == nil {
		return nil, eris.New("enrich: market and treatment plant layers are required")
	}

	for i, j := range in.Joins {
		if j.Layer == nil {
			return nil, eris.Errorf("enrich: join %d has no layer", i)
		}
	}

	mat, err := Materialize(in.Sales, in.SalesCRS, p.opts.OnInvalid)
	if err != nil {
		return nil, err
	}
	log.Info("materialized sales", zap.Int("input", len(in.Sales)), zap.Int("kept", len(mat.Records)), zap.Int("skipped", len(mat.Skipped)))

	layers := []*spatial.Layer{mat.Points, in.Markets, in.Plants}
	for _, j := range in.Joins {
		layers = append(layers, j.Layer)
	}
	norm, err := spatial.Normalize(p.opts.Target, layers...)
	if err != nil {
		return nil, err
	}
	sales, markets, plants := norm[0], norm[1], norm[2]
	joins := make([]JoinSpec, len(in.Joins))
	for i, j := range in.Joins {
		j.Layer = norm[3+i]
		joins[i] = j
	}

	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "enrich: cancelled after normalization")
	}

	report := Report{
		Input:     len(in.Sales),
		Skipped:   mat.Skipped,
		Unmatched: make(map[string]int),
	}

	admin, columns, err := p.joinAdmin(sales, mat.Records, joins, &report)
	if err != nil {
		return nil, err
	}

	var (
		neighbors []spatial.Neighbor
		flags     [][]bool
		rings     *spatial.RingLayer
	)
	distance := func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		neighbors, err = spatial.NearestDistances(sales, markets)
		return err
	}
	proximity := func(ctx context.Context) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		var err error
		flags, rings, err = p.bandFlags(sales, plants)
		return err
	}

	if p.opts.Concurrent {
		g, gCtx := errgroup.WithContext(ctx)
		g.Go(func() error { return distance(gCtx) })
		g.Go(func() error { return proximity(gCtx) })
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		if err := distance(ctx); err != nil {
			return nil, err
		}
		if err := proximity(ctx); err != nil {
			return nil, err
		}
	}

	out := make([]EnrichedRecord, len(mat.Records))
	report.BandCounts = make([]int, len(p.bands))
	for i, r := range mat.Records {
		nb := neighbors[i]
		name, _ := markets.Features[nb.Index].Attr(in.MarketName)
		out[i] = EnrichedRecord{
			Record:         r,
			Point:          pointAt(sales, i),
			Admin:          admin[i],
			MarketDistance: nb.Distance,
			NearestMarket:  name,
			Proximity:      flags[i],
		}
		for b, set := range flags[i] {
			if set {
				report.BandCounts[b]++
			}
		}
	}
	report.Enriched = len(out)
	report.Duration = time.Since(start)

	log.Info("enrichment complete",
		zap.Int("enriched", report.Enriched),
		zap.Int("ambiguities", len(report.Ambiguities)),
		zap.Ints("band_counts", report.BandCounts),
		zap.Duration("duration", report.Duration),
	)

	return &Result{
		CRS:     p.opts.Target,
		Columns: columns,
		Bands:   p.bands,
		Records: out,
		Rings:   rings,
		Report:  report,
	}, nil
}

// joinAdmin runs each administrative join in order and returns the copied
// attributes per point along with the output column names.
func (p *Pipeline) joinAdmin(sales *spatial.Layer, records []Record, joins []JoinSpec, report *Report) ([]map[string]string, []string, error) {
	admin := make([]map[string]string, len(records))
	for i := range admin {
		admin[i] = make(map[string]string)
	}
	var columns []string
	for _, j := range joins {
		res, err := spatial.JoinWithin(sales, j.Layer)
		if err != nil {
			return nil, nil, err
		}
		for _, a := range res.Ambiguities {
			w := JoinAmbiguityWarning{Layer: j.Layer.Name, RecordID: records[a.Point].ID, Matches: a.Matches}
			zap.L().Warn("enrich: ambiguous join", zap.String("layer", w.Layer), zap.String("record_id", w.RecordID), zap.Ints("matches", w.Matches))
			report.Ambiguities = append(report.Ambiguities, w)
		}
		report.Unmatched[j.Layer.Name] = len(res.Matches) - res.Matched()

		var caser cases.Caser
		if j.TitleCase {
			caser = cases.Title(language.English)
		}
		for _, f := range j.Fields {
			columns = append(columns, f.Name)
		}
		for i, m := range res.Matches {
			if m == spatial.NoMatch {
				continue
			}
			feat := j.Layer.Features[m]
			for _, f := range j.Fields {
				v, ok := feat.Attr(f.Source)
				if !ok {
					continue
				}
				if j.TitleCase {
					v = caser.String(v)
				}
				admin[i][f.Name] = v
			}
		}
	}
	return admin, columns, nil
}

// bandFlags builds the disjoint rings around plants and flags each sale by
// the ring it falls in.
func (p *Pipeline) bandFlags(sales, plants *spatial.Layer) ([][]bool, *spatial.RingLayer, error) {
	rings, err := spatial.BuildRings(plants, p.bands, p.opts.QuadSegments)
	if err != nil {
		return nil, nil, err
	}
	res, err := spatial.JoinWithin(sales, rings)
	if err != nil {
		return nil, nil, err
	}
	if len(res.Ambiguities) > 0 {
		return nil, nil, eris.Errorf("enrich: %d sales inside more than one ring", len(res.Ambiguities))
	}
	return coalesceFlags(res.Matches, len(p.bands)), rings, nil
}

// coalesceFlags expands ring indexes into one flag vector per point. Points
// outside every ring get an all-false vector.
func coalesceFlags(matches []int, bands int) [][]bool {
	out := make([][]bool, len(matches))
	for i, m := range matches {
		flags := make([]bool, bands)
		if m != spatial.NoMatch {
			flags[m] = true
		}
		out[i] = flags
	}
	return out
}

func pointAt(l *spatial.Layer, i int) *geom.Point {
	return l.Features[i].Geom.(*geom.Point)
}
