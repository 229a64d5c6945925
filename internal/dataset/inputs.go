package dataset

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/geoenrich/internal/crs"
	"github.com/sells-group/geoenrich/internal/enrich"
	"github.com/sells-group/geoenrich/internal/fetcher"
	"github.com/sells-group/geoenrich/internal/spatial"
)

// Loader resolves and reads the datasets a manifest names.
type Loader struct {
	Resolver *fetcher.Resolver
}

// NewLoader creates a Loader. A nil resolver reads local files only.
func NewLoader(r *fetcher.Resolver) *Loader {
	if r == nil {
		r = fetcher.NewResolver("", nil, nil)
	}
	return &Loader{Resolver: r}
}

// Sales resolves and reads the manifest's sales file.
func (l *Loader) Sales(ctx context.Context, m *Manifest) ([]enrich.Record, crs.Projection, error) {
	p, err := crs.Lookup(m.Sales.EPSG)
	if err != nil {
		return nil, nil, eris.Wrap(err, "dataset: sales crs")
	}
	loc := m.Locate(m.Sales.Path)
	ext := strings.ToLower(filepath.Ext(loc))
	if ext == ".zip" || ext == "" {
		ext = ".csv"
	}
	path, err := l.Resolver.Resolve(ctx, loc, ext)
	if err != nil {
		return nil, nil, err
	}
	records, err := ReadSalesFile(path, m.Sales)
	if err != nil {
		return nil, nil, err
	}
	return records, p, nil
}

// Layer resolves and reads one shapefile layer.
func (l *Loader) Layer(ctx context.Context, m *Manifest, name, location string, epsg int) (*spatial.Layer, error) {
	p, err := crs.Lookup(epsg)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: %s crs", name)
	}
	path, err := l.Resolver.Resolve(ctx, m.Locate(location), ".shp")
	if err != nil {
		return nil, err
	}
	return ReadLayer(path, name, p)
}

// Inputs loads every dataset in m into pipeline inputs.
func (l *Loader) Inputs(ctx context.Context, m *Manifest) (enrich.Inputs, error) {
	var in enrich.Inputs
	var err error

	in.Sales, in.SalesCRS, err = l.Sales(ctx, m)
	if err != nil {
		return in, err
	}

	if in.Markets, err = l.Layer(ctx, m, "markets", m.Markets.Path, m.Markets.EPSG); err != nil {
		return in, err
	}
	in.MarketName = m.Markets.NameField

	if in.Plants, err = l.Layer(ctx, m, "treatment_plants", m.TreatmentPlants.Path, m.TreatmentPlants.EPSG); err != nil {
		return in, err
	}

	for _, j := range m.Joins {
		layer, err := l.Layer(ctx, m, j.Name, j.Path, j.EPSG)
		if err != nil {
			return in, err
		}
		spec := enrich.JoinSpec{Layer: layer, TitleCase: j.TitleCase}
		for _, f := range j.Fields {
			spec.Fields = append(spec.Fields, enrich.FieldMap{Name: f.Name, Source: f.Source})
		}
		in.Joins = append(in.Joins, spec)
	}

	zap.L().Info("dataset: inputs loaded",
		zap.Int("sales", len(in.Sales)),
		zap.Int("markets", in.Markets.Len()),
		zap.Int("treatment_plants", in.Plants.Len()),
		zap.Int("joins", len(in.Joins)),
	)
	return in, nil
}
