package spatial

import (
	sf "github.com/peterstace/simplefeatures/geom"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// Dissolve evaluates r into valid polygons: overlapping parts are merged
// and subtracted regions are cut out. The result covers the same points
// Locate reports as inside, up to the boundary.
func (r *Region) Dissolve() (*geom.MultiPolygon, error) {
	g, err := r.overlay()
	if err != nil {
		return nil, err
	}
	return fromOverlay(g)
}

func (r *Region) overlay() (sf.Geometry, error) {
	parts := make([]sf.Geometry, len(r.parts))
	for i, p := range r.parts {
		parts[i] = toOverlay(p)
	}
	union, err := sf.UnionMany(parts)
	if err != nil {
		return sf.Geometry{}, eris.Wrap(err, "spatial: dissolve union")
	}
	for _, m := range r.minus {
		sub, err := m.overlay()
		if err != nil {
			return sf.Geometry{}, err
		}
		if union, err = sf.Difference(union, sub); err != nil {
			return sf.Geometry{}, eris.Wrap(err, "spatial: dissolve difference")
		}
	}
	return union, nil
}

func toOverlay(p *geom.Polygon) sf.Geometry {
	rings := make([]sf.LineString, p.NumLinearRings())
	for i := range rings {
		lr := p.LinearRing(i)
		flat := make([]float64, 0, 2*lr.NumCoords())
		for j := 0; j < lr.NumCoords(); j++ {
			c := lr.Coord(j)
			flat = append(flat, c.X(), c.Y())
		}
		rings[i] = sf.NewLineString(sf.NewSequence(flat, sf.DimXY))
	}
	return sf.NewPolygon(rings).AsGeometry()
}

func fromOverlay(g sf.Geometry) (*geom.MultiPolygon, error) {
	out := geom.NewMultiPolygon(geom.XY)
	var polys []sf.Polygon
	switch g.Type() {
	case sf.TypePolygon:
		polys = append(polys, g.MustAsPolygon())
	case sf.TypeMultiPolygon:
		mp := g.MustAsMultiPolygon()
		for i := 0; i < mp.NumPolygons(); i++ {
			polys = append(polys, mp.PolygonN(i))
		}
	case sf.TypeGeometryCollection:
		for _, part := range g.Dump() {
			if part.Type() == sf.TypePolygon {
				polys = append(polys, part.MustAsPolygon())
			}
		}
	default:
		return nil, eris.Errorf("spatial: dissolve produced %s", g.Type())
	}
	for _, p := range polys {
		if p.IsEmpty() {
			continue
		}
		rings := [][]float64{ringFlat(p.ExteriorRing())}
		for i := 0; i < p.NumInteriorRings(); i++ {
			rings = append(rings, ringFlat(p.InteriorRingN(i)))
		}
		var (
			flat []float64
			ends []int
		)
		for _, r := range rings {
			flat = append(flat, r...)
			ends = append(ends, len(flat))
		}
		if err := out.Push(geom.NewPolygonFlat(geom.XY, flat, ends)); err != nil {
			return nil, eris.Wrap(err, "spatial: dissolve")
		}
	}
	return out, nil
}

func ringFlat(ls sf.LineString) []float64 {
	seq := ls.Coordinates()
	flat := make([]float64, 0, 2*seq.Length())
	for i := 0; i < seq.Length(); i++ {
		xy := seq.GetXY(i)
		flat = append(flat, xy.X, xy.Y)
	}
	return flat
}
