package dataset

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"go.uber.org/zap"

	"github.com/sells-group/geoenrich/internal/crs"
	"github.com/sells-group/geoenrich/internal/spatial"
)

// dbfNameLen is the longest field name a DBF header can hold.
const dbfNameLen = 10

// ReadLayer reads a point or polygon shapefile into a layer tagged with p.
// An empty name defaults to the file's base name.
func ReadLayer(path, name string, p crs.Projection) (*spatial.Layer, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open shapefile %s", path)
	}
	defer reader.Close() //nolint:errcheck

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	var (
		feats   []spatial.Feature
		skipped int
	)
	for reader.Next() {
		row, shape := reader.Shape()
		g, err := shapeToGeom(shape)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: %s record %d", name, row)
		}
		if g == nil {
			skipped++
			continue
		}
		attrs := make(map[string]string, len(names))
		for i, n := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.ReadAttribute(row, i), "\x00"))
			if val != "" {
				attrs[n] = val
			}
		}
		feats = append(feats, spatial.Feature{Geom: g, Attrs: attrs})
	}

	if skipped > 0 {
		zap.L().Debug("dataset: skipped empty shapefile records",
			zap.String("layer", name),
			zap.Int("skipped", skipped),
		)
	}
	zap.L().Debug("dataset: read layer",
		zap.String("layer", name),
		zap.Int("epsg", p.Code()),
		zap.Int("features", len(feats)),
	)
	return spatial.NewLayer(name, p, feats), nil
}

// shapeToGeom converts a go-shp shape. Null shapes return nil, nil.
func shapeToGeom(shape shp.Shape) (geom.T, error) {
	switch s := shape.(type) {
	case nil, *shp.Null:
		return nil, nil
	case *shp.Point:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case *shp.PointZ:
		return geom.NewPointFlat(geom.XY, []float64{s.X, s.Y}), nil
	case *shp.Polygon:
		return polygonToGeom(s.Parts, s.Points)
	case *shp.PolygonZ:
		return polygonToGeom(s.Parts, s.Points)
	default:
		return nil, eris.Errorf("unsupported shape type %T", shape)
	}
}

// polygonToGeom splits a shapefile polygon into rings and groups them:
// clockwise rings are shells, counter-clockwise rings are holes of the
// first shell containing them. Returns a Polygon for one shell and a
// MultiPolygon otherwise.
func polygonToGeom(parts []int32, points []shp.Point) (geom.T, error) {
	if len(parts) == 0 || len(points) == 0 {
		return nil, nil
	}

	var shells, holes [][]float64
	for i := range parts {
		start := int(parts[i])
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if end-start < 4 {
			continue
		}
		flat := make([]float64, 0, (end-start)*2)
		for _, pt := range points[start:end] {
			flat = append(flat, pt.X, pt.Y)
		}
		if clockwise(flat) {
			shells = append(shells, flat)
		} else {
			holes = append(holes, flat)
		}
	}
	if len(shells) == 0 {
		// Writers that ignore orientation: every ring is its own shell.
		shells, holes = holes, nil
	}
	if len(shells) == 0 {
		return nil, nil
	}

	groups := make([][][]float64, len(shells))
	for i, s := range shells {
		groups[i] = [][]float64{s}
	}
	for _, h := range holes {
		c := geom.Coord{h[0], h[1]}
		placed := false
		for i, s := range shells {
			shell := geom.NewPolygonFlat(geom.XY, s, []int{len(s)})
			if spatial.ShapeOf(shell).Locate(c) != spatial.Exterior {
				groups[i] = append(groups[i], h)
				placed = true
				break
			}
		}
		if !placed {
			groups = append(groups, [][]float64{reverseRing(h)})
		}
	}

	if len(groups) == 1 {
		flat, ends := joinRings(groups[0], 0)
		return geom.NewPolygonFlat(geom.XY, flat, ends), nil
	}
	var (
		flat  []float64
		endss [][]int
	)
	for _, g := range groups {
		f, ends := joinRings(g, len(flat))
		flat = append(flat, f...)
		endss = append(endss, ends)
	}
	return geom.NewMultiPolygonFlat(geom.XY, flat, endss), nil
}

func joinRings(rings [][]float64, offset int) ([]float64, []int) {
	var (
		flat []float64
		ends []int
	)
	for _, r := range rings {
		flat = append(flat, r...)
		ends = append(ends, offset+len(flat))
	}
	return flat, ends
}

// clockwise reports the orientation of a closed flat XY ring. Rings too
// short to orient count as clockwise.
func clockwise(flat []float64) bool {
	if len(flat) < 8 {
		return true
	}
	return !xy.IsRingCounterClockwise(geom.XY, flat)
}

func reverseRing(flat []float64) []float64 {
	n := len(flat) / 2
	out := make([]float64, len(flat))
	for i := 0; i < n; i++ {
		out[2*i] = flat[2*(n-1-i)]
		out[2*i+1] = flat[2*(n-1-i)+1]
	}
	return out
}

// oriented returns ring with the requested orientation.
func oriented(flat []float64, cw bool) []float64 {
	if clockwise(flat) == cw {
		return flat
	}
	return reverseRing(flat)
}

func toShpPoints(flat []float64) []shp.Point {
	pts := make([]shp.Point, 0, len(flat)/2)
	for i := 0; i+1 < len(flat); i += 2 {
		pts = append(pts, shp.Point{X: flat[i], Y: flat[i+1]})
	}
	return pts
}

// polygonParts returns the rings of p as shapefile parts, shell clockwise
// and holes counter-clockwise.
func polygonParts(p *geom.Polygon) [][]shp.Point {
	var parts [][]shp.Point
	for i := 0; i < p.NumLinearRings(); i++ {
		flat := p.LinearRing(i).FlatCoords()
		parts = append(parts, toShpPoints(oriented(flat, i == 0)))
	}
	return parts
}

func geomParts(g geom.T) ([][]shp.Point, error) {
	switch t := g.(type) {
	case *geom.Polygon:
		return polygonParts(t), nil
	case *geom.MultiPolygon:
		var parts [][]shp.Point
		for i := 0; i < t.NumPolygons(); i++ {
			parts = append(parts, polygonParts(t.Polygon(i))...)
		}
		return parts, nil
	default:
		return nil, eris.Errorf("unsupported geometry %T", g)
	}
}

func newPolygon(parts [][]shp.Point) *shp.Polygon {
	pl := shp.NewPolyLine(parts)
	poly := shp.Polygon(*pl)
	return &poly
}

// WriteLayer writes a point or polygon layer to path. Attribute columns are
// the sorted union of the features' attribute names, cut to DBF length.
func WriteLayer(path string, l *spatial.Layer) error {
	if len(l.Features) == 0 {
		return eris.Errorf("dataset: write %s: no features", l.Name)
	}
	var shapeType shp.ShapeType = shp.POLYGON
	if _, ok := l.Features[0].Geom.(*geom.Point); ok {
		shapeType = shp.POINT
	}

	keySet := make(map[string]bool)
	for _, f := range l.Features {
		for k := range f.Attrs {
			keySet[k] = true
		}
	}
	keys := make([]string, 0, len(keySet))
	for k := range keySet {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	w, err := shp.Create(path, shapeType)
	if err != nil {
		return eris.Wrapf(err, "dataset: create shapefile %s", path)
	}
	if err := writeFeatures(w, l, shapeType, keys); err != nil {
		w.Close()
		return err
	}
	w.Close()
	return fixDBFName(path)
}

func writeFeatures(w *shp.Writer, l *spatial.Layer, shapeType shp.ShapeType, keys []string) error {
	fields := make([]shp.Field, len(keys))
	for i, k := range keys {
		fields[i] = shp.StringField(dbfName(k), 254)
	}
	if err := w.SetFields(fields); err != nil {
		return eris.Wrap(err, "dataset: set shapefile fields")
	}

	for i, f := range l.Features {
		var shape shp.Shape
		if shapeType == shp.POINT {
			pt, ok := f.Geom.(*geom.Point)
			if !ok {
				return eris.Errorf("dataset: write %s: feature %d is %T in a point layer", l.Name, i, f.Geom)
			}
			shape = &shp.Point{X: pt.X(), Y: pt.Y()}
		} else {
			parts, err := geomParts(f.Geom)
			if err != nil {
				return eris.Wrapf(err, "dataset: write %s feature %d", l.Name, i)
			}
			shape = newPolygon(parts)
		}
		row := int(w.Write(shape))
		for j, k := range keys {
			if err := w.WriteAttribute(row, j, f.Attrs[k]); err != nil {
				return eris.Wrapf(err, "dataset: write %s attribute %s", l.Name, k)
			}
		}
	}
	return nil
}

// WriteRings writes one record per band to path with NAME, RADIUS and EPSG
// attributes. Each band's ring is dissolved into valid polygons first, so
// overlapping plant buffers become one outline.
func WriteRings(path string, rings *spatial.RingLayer) error {
	if len(rings.Rings) == 0 {
		return eris.Errorf("dataset: write %s: no rings", rings.Name)
	}
	w, err := shp.Create(path, shp.POLYGON)
	if err != nil {
		return eris.Wrapf(err, "dataset: create shapefile %s", path)
	}
	if err := writeRings(w, rings); err != nil {
		w.Close()
		return err
	}
	w.Close()
	return fixDBFName(path)
}

func writeRings(w *shp.Writer, rings *spatial.RingLayer) error {
	if err := w.SetFields([]shp.Field{
		shp.StringField("NAME", 32),
		shp.FloatField("RADIUS", 19, 4),
		shp.NumberField("EPSG", 6),
	}); err != nil {
		return eris.Wrap(err, "dataset: set ring fields")
	}

	for _, r := range rings.Rings {
		mp, err := r.Region.Dissolve()
		if err != nil {
			return eris.Wrapf(err, "dataset: dissolve ring %s", r.Name)
		}
		if mp.NumPolygons() == 0 {
			zap.L().Warn("dataset: ring is empty after dissolve", zap.String("band", r.Name))
			continue
		}
		parts, err := geomParts(mp)
		if err != nil {
			return eris.Wrapf(err, "dataset: ring %s", r.Name)
		}
		row := int(w.Write(newPolygon(parts)))
		if err := w.WriteAttribute(row, 0, r.Name); err != nil {
			return eris.Wrap(err, "dataset: write ring name")
		}
		if err := w.WriteAttribute(row, 1, r.Radius); err != nil {
			return eris.Wrap(err, "dataset: write ring radius")
		}
		if err := w.WriteAttribute(row, 2, rings.CRS.Code()); err != nil {
			return eris.Wrap(err, "dataset: write ring epsg")
		}
	}
	return nil
}

// fixDBFName moves the attribute table go-shp writes as "<base>dbf" to
// "<base>.dbf", where readers look for it.
func fixDBFName(path string) error {
	base := path
	if strings.HasSuffix(strings.ToLower(base), ".shp") {
		base = base[:len(base)-len(".shp")]
	}
	if _, err := os.Stat(base + "dbf"); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return eris.Wrapf(err, "dataset: stat %sdbf", base)
	}
	if err := os.Rename(base+"dbf", base+".dbf"); err != nil {
		return eris.Wrapf(err, "dataset: rename attribute table for %s", path)
	}
	return nil
}

func dbfName(name string) string {
	if len(name) > dbfNameLen {
		name = name[:dbfNameLen]
	}
	return name
}
