package spatial

import (
	"math"

	"github.com/dhconnelly/rtreego"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

const (
	rtreeMinChildren = 25
	rtreeMaxChildren = 50

	// pointTolerance is the half-width of the box stored for each point.
	pointTolerance = 1e-6

	// nearestCandidates is how many tree hits are re-ranked by exact distance.
	nearestCandidates = 4
)

// Neighbor is the closest control feature to a point.
type Neighbor struct {
	Index    int
	Distance float64
}

type indexedPoint struct {
	index int
	x, y  float64
	rect  *rtreego.Rect
}

func (p *indexedPoint) Bounds() *rtreego.Rect { return p.rect }

// PointIndex is an R-tree over the point features of one layer.
type PointIndex struct {
	layer *Layer
	tree  *rtreego.Rtree
}

// NewPointIndex indexes every point of l. The layer must be projected and
// non-empty.
func NewPointIndex(l *Layer) (*PointIndex, error) {
	if err := RequireProjected("nearest distance", l); err != nil {
		return nil, err
	}
	if len(l.Features) == 0 {
		return nil, eris.Errorf("spatial: index %s: no features", l.Name)
	}
	tree := rtreego.NewTree(2, rtreeMinChildren, rtreeMaxChildren)
	for i, f := range l.Features {
		p, ok := f.Geom.(*geom.Point)
		if !ok {
			return nil, eris.Errorf("spatial: index %s: feature %d is %T, want point", l.Name, i, f.Geom)
		}
		tree.Insert(&indexedPoint{
			index: i,
			x:     p.X(),
			y:     p.Y(),
			rect:  rtreego.Point{p.X(), p.Y()}.ToRect(pointTolerance),
		})
	}
	return &PointIndex{layer: l, tree: tree}, nil
}

// Nearest returns the closest indexed feature to (x, y) by Euclidean
// distance. Equal distances resolve to the lower feature index.
func (ix *PointIndex) Nearest(x, y float64) Neighbor {
	k := nearestCandidates
	if size := ix.tree.Size(); size < k {
		k = size
	}
	best := Neighbor{Index: NoMatch, Distance: math.Inf(1)}
	for _, s := range ix.tree.NearestNeighbors(k, rtreego.Point{x, y}) {
		ip, ok := s.(*indexedPoint)
		if !ok || ip == nil {
			continue
		}
		d := math.Hypot(ip.x-x, ip.y-y)
		if d < best.Distance || (d == best.Distance && ip.index < best.Index) {
			best = Neighbor{Index: ip.index, Distance: d}
		}
	}
	return best
}

// NearestDistances returns, for every point of points, the nearest feature
// of controls and its distance in the shared CRS's linear unit.
func NearestDistances(points, controls *Layer) ([]Neighbor, error) {
	if err := RequireSameCRS("nearest distance", points, controls); err != nil {
		return nil, err
	}
	ix, err := NewPointIndex(controls)
	if err != nil {
		return nil, err
	}
	out := make([]Neighbor, len(points.Features))
	for i, f := range points.Features {
		p, ok := f.Geom.(*geom.Point)
		if !ok {
			return nil, eris.Errorf("spatial: nearest distance: %s feature %d is %T, want point", points.Name, i, f.Geom)
		}
		out[i] = ix.Nearest(p.X(), p.Y())
	}
	return out, nil
}
