// Package spatial holds the vector geometry operations the enrichment
// pipeline is built on: layers tagged with a CRS, point location against
// polygons, buffering with union and difference, and nearest-neighbour
// distance.
package spatial

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/geoenrich/internal/crs"
)

// Feature is a geometry with its attribute row.
type Feature struct {
	Geom  geom.T
	Attrs map[string]string
}

// Attr returns the named attribute and whether it was present and non-empty.
func (f Feature) Attr(name string) (string, bool) {
	v, ok := f.Attrs[name]
	return v, ok && v != ""
}

// Layer is a named, ordered collection of features sharing one CRS.
// Layers are treated as values: operations return new layers.
type Layer struct {
	Name     string
	CRS      crs.Projection
	Features []Feature
}

// NewLayer builds a layer and stamps every geometry with the CRS's EPSG code.
func NewLayer(name string, p crs.Projection, features []Feature) *Layer {
	out := make([]Feature, len(features))
	for i, f := range features {
		out[i] = Feature{Geom: withSRID(f.Geom, p.Code()), Attrs: f.Attrs}
	}
	return &Layer{Name: name, CRS: p, Features: out}
}

// LayerName implements Referenced.
func (l *Layer) LayerName() string { return l.Name }

// LayerCRS implements Referenced.
func (l *Layer) LayerCRS() crs.Projection { return l.CRS }

// Len implements ShapeSet.
func (l *Layer) Len() int { return len(l.Features) }

// ShapeAt implements ShapeSet.
func (l *Layer) ShapeAt(i int) Shape { return geomShape{g: l.Features[i].Geom} }

// Reproject returns a copy of the layer with every geometry transformed
// into p. The receiver is left untouched.
func (l *Layer) Reproject(p crs.Projection) (*Layer, error) {
	out := &Layer{Name: l.Name, CRS: p, Features: make([]Feature, len(l.Features))}
	for i, f := range l.Features {
		g, err := reprojectGeom(f.Geom, l.CRS, p)
		if err != nil {
			return nil, eris.Wrapf(err, "spatial: reproject layer %s feature %d", l.Name, i)
		}
		out.Features[i] = Feature{Geom: g, Attrs: cloneAttrs(f.Attrs)}
	}
	return out, nil
}

func reprojectGeom(g geom.T, from, to crs.Projection) (geom.T, error) {
	flat, err := crs.TransformFlat(from, to, g.FlatCoords(), g.Stride())
	if err != nil {
		return nil, err
	}
	switch t := g.(type) {
	case *geom.Point:
		return geom.NewPointFlat(t.Layout(), flat).SetSRID(to.Code()), nil
	case *geom.Polygon:
		return geom.NewPolygonFlat(t.Layout(), flat, append([]int(nil), t.Ends()...)).SetSRID(to.Code()), nil
	case *geom.MultiPolygon:
		endss := make([][]int, len(t.Endss()))
		for i, ends := range t.Endss() {
			endss[i] = append([]int(nil), ends...)
		}
		return geom.NewMultiPolygonFlat(t.Layout(), flat, endss).SetSRID(to.Code()), nil
	default:
		return nil, eris.Errorf("spatial: unsupported geometry %T", g)
	}
}

func withSRID(g geom.T, srid int) geom.T {
	switch t := g.(type) {
	case *geom.Point:
		return t.Clone().SetSRID(srid)
	case *geom.Polygon:
		return t.Clone().SetSRID(srid)
	case *geom.MultiPolygon:
		return t.Clone().SetSRID(srid)
	default:
		return g
	}
}

func cloneAttrs(attrs map[string]string) map[string]string {
	if attrs == nil {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
