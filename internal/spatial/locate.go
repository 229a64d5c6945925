package spatial

import (
	"github.com/golang/geo/r2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
	"github.com/twpayne/go-geom/xy/location"
)

// Location is where a coordinate lies relative to a shape.
type Location int

// Locations, ordered so that a larger value is "more inside".
const (
	Exterior Location = iota
	Boundary
	Interior
)

func (l Location) String() string {
	switch l {
	case Interior:
		return "interior"
	case Boundary:
		return "boundary"
	default:
		return "exterior"
	}
}

// locateRing classifies c against one ring of a polygon. Unclosed rings are
// closed first.
func locateRing(layout geom.Layout, c geom.Coord, ring []float64) Location {
	stride := layout.Stride()
	if len(ring) < 3*stride {
		return Exterior
	}
	last := len(ring) - stride
	if ring[0] != ring[last] || ring[1] != ring[last+1] {
		ring = append(ring[:len(ring):len(ring)], ring[:stride]...)
	}
	switch xy.LocatePointInRing(layout, c, ring) {
	case location.Interior:
		return Interior
	case location.Boundary:
		return Boundary
	default:
		return Exterior
	}
}

// locatePolygon treats the first ring as the shell and the rest as holes.
func locatePolygon(x, y float64, p *geom.Polygon) Location {
	ends := p.Ends()
	if len(ends) == 0 {
		return Exterior
	}
	layout, flat := p.Layout(), p.FlatCoords()
	c := make(geom.Coord, layout.Stride())
	c[0], c[1] = x, y
	start := 0
	for i, end := range ends {
		loc := locateRing(layout, c, flat[start:end])
		start = end
		if i == 0 {
			if loc != Interior {
				return loc
			}
			continue
		}
		switch loc {
		case Boundary:
			return Boundary
		case Interior:
			return Exterior
		}
	}
	return Interior
}

func locateMultiPolygon(x, y float64, mp *geom.MultiPolygon) Location {
	best := Exterior
	for i := 0; i < mp.NumPolygons(); i++ {
		loc := locatePolygon(x, y, mp.Polygon(i))
		if loc == Interior {
			return Interior
		}
		if loc > best {
			best = loc
		}
	}
	return best
}

func envelope(flat []float64, stride int) r2.Rect {
	rect := r2.EmptyRect()
	for i := 0; i+1 < len(flat); i += stride {
		rect = rect.AddPoint(r2.Point{X: flat[i], Y: flat[i+1]})
	}
	return rect
}

// Shape is anything a coordinate can be located against.
type Shape interface {
	Locate(c geom.Coord) Location
	Envelope() r2.Rect
}

// ShapeSet is an ordered collection of shapes in one CRS.
type ShapeSet interface {
	Referenced
	Len() int
	ShapeAt(i int) Shape
}

type geomShape struct {
	g geom.T
}

// ShapeOf wraps a point, polygon or multipolygon as a Shape.
func ShapeOf(g geom.T) Shape { return geomShape{g: g} }

func (s geomShape) Locate(c geom.Coord) Location {
	x, y := c.X(), c.Y()
	switch t := s.g.(type) {
	case *geom.Polygon:
		return locatePolygon(x, y, t)
	case *geom.MultiPolygon:
		return locateMultiPolygon(x, y, t)
	case *geom.Point:
		if t.X() == x && t.Y() == y {
			return Interior
		}
		return Exterior
	default:
		return Exterior
	}
}

func (s geomShape) Envelope() r2.Rect {
	return envelope(s.g.FlatCoords(), s.g.Stride())
}

// Within reports whether c lies strictly inside s; boundary hits are not within.
func Within(c geom.Coord, s Shape) bool {
	if !s.Envelope().ContainsPoint(r2.Point{X: c.X(), Y: c.Y()}) {
		return false
	}
	return s.Locate(c) == Interior
}
