package spatial

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// DefaultQuadSegments is the number of segments per quarter circle used to
// approximate a buffered point.
const DefaultQuadSegments = 16

// Buffer returns a polygon approximating the disc of the given radius around
// c. The approximating polygon is inscribed in the true circle.
func Buffer(c geom.Coord, radius float64, quadSegs int) (*geom.Polygon, error) {
	if radius <= 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, eris.Errorf("spatial: buffer radius must be positive, got %g", radius)
	}
	if quadSegs <= 0 {
		quadSegs = DefaultQuadSegments
	}
	n := 4 * quadSegs
	flat := make([]float64, 0, 2*(n+1))
	for k := 0; k < n; k++ {
		theta := 2 * math.Pi * float64(k) / float64(n)
		flat = append(flat, c.X()+radius*math.Cos(theta), c.Y()+radius*math.Sin(theta))
	}
	flat = append(flat, flat[0], flat[1])
	return geom.NewPolygonFlat(geom.XY, flat, []int{len(flat)}), nil
}

// BufferLayer buffers every point feature of l by radius.
func BufferLayer(l *Layer, radius float64, quadSegs int) ([]*geom.Polygon, error) {
	out := make([]*geom.Polygon, 0, len(l.Features))
	for i, f := range l.Features {
		p, ok := f.Geom.(*geom.Point)
		if !ok {
			return nil, eris.Errorf("spatial: buffer layer %s: feature %d is %T, want point", l.Name, i, f.Geom)
		}
		poly, err := Buffer(p.Coords(), radius, quadSegs)
		if err != nil {
			return nil, eris.Wrapf(err, "spatial: buffer layer %s feature %d", l.Name, i)
		}
		out = append(out, poly.SetSRID(l.CRS.Code()))
	}
	return out, nil
}

// Region is a planar point set composed from polygons by union and
// difference. It is immutable; Difference returns a new Region.
type Region struct {
	parts []*geom.Polygon
	envs  []r2.Rect
	minus []*Region
	env   r2.Rect
}

// Union returns the region covered by any of polys.
func Union(polys ...*geom.Polygon) *Region {
	r := &Region{
		parts: append([]*geom.Polygon(nil), polys...),
		envs:  make([]r2.Rect, len(polys)),
		env:   r2.EmptyRect(),
	}
	for i, p := range polys {
		r.envs[i] = envelope(p.FlatCoords(), p.Stride())
		r.env = r.env.Union(r.envs[i])
	}
	return r
}

// Difference returns the part of r not covered by any of others.
func (r *Region) Difference(others ...*Region) *Region {
	return &Region{
		parts: r.parts,
		envs:  r.envs,
		minus: append(append([]*Region(nil), r.minus...), others...),
		env:   r.env,
	}
}

// Envelope implements Shape.
func (r *Region) Envelope() r2.Rect { return r.env }

// Parts returns the polygons whose union forms the region before subtraction.
func (r *Region) Parts() []*geom.Polygon { return r.parts }

// Subtracted returns the regions removed from r.
func (r *Region) Subtracted() []*Region { return r.minus }

// Locate implements Shape. A coordinate on the edge of a subtracted region is
// on the boundary of the result.
func (r *Region) Locate(c geom.Coord) Location {
	pt := r2.Point{X: c.X(), Y: c.Y()}
	if !r.env.ContainsPoint(pt) {
		return Exterior
	}
	loc := Exterior
	for i, p := range r.parts {
		if !r.envs[i].ContainsPoint(pt) {
			continue
		}
		l := locatePolygon(pt.X, pt.Y, p)
		if l > loc {
			loc = l
		}
		if loc == Interior {
			break
		}
	}
	if loc == Exterior {
		return Exterior
	}
	for _, m := range r.minus {
		switch m.Locate(c) {
		case Interior:
			return Exterior
		case Boundary:
			loc = Boundary
		}
	}
	return loc
}
