package spatial

import (
	"github.com/golang/geo/r2"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
)

// NoMatch marks a point that fell inside no shape.
const NoMatch = -1

// Ambiguity records a point strictly inside more than one shape.
type Ambiguity struct {
	Point   int
	Matches []int // shape indexes in set order; the first one was kept
}

// JoinResult maps each point to the index of the shape it lies within.
type JoinResult struct {
	Matches     []int
	Ambiguities []Ambiguity
}

// Matched returns how many points found a shape.
func (r *JoinResult) Matched() int {
	n := 0
	for _, m := range r.Matches {
		if m != NoMatch {
			n++
		}
	}
	return n
}

// JoinWithin attaches each point of points to the first shape in set order
// that strictly contains it. Points on a shape's boundary do not match it.
// Points inside several shapes keep the first and are reported as ambiguous.
func JoinWithin(points *Layer, set ShapeSet) (*JoinResult, error) {
	if err := RequireSameCRS("join within", points, set); err != nil {
		return nil, err
	}

	n := set.Len()
	shapes := make([]Shape, n)
	envs := make([]r2.Rect, n)
	for i := 0; i < n; i++ {
		shapes[i] = set.ShapeAt(i)
		envs[i] = shapes[i].Envelope()
	}

	res := &JoinResult{Matches: make([]int, len(points.Features))}
	for pi, f := range points.Features {
		p, ok := f.Geom.(*geom.Point)
		if !ok {
			return nil, eris.Errorf("spatial: join within: %s feature %d is %T, want point", points.Name, pi, f.Geom)
		}
		c := p.Coords()
		pt := r2.Point{X: c.X(), Y: c.Y()}

		res.Matches[pi] = NoMatch
		var hits []int
		for si := range shapes {
			if !envs[si].ContainsPoint(pt) {
				continue
			}
			if shapes[si].Locate(c) == Interior {
				hits = append(hits, si)
			}
		}
		if len(hits) == 0 {
			continue
		}
		res.Matches[pi] = hits[0]
		if len(hits) > 1 {
			res.Ambiguities = append(res.Ambiguities, Ambiguity{Point: pi, Matches: hits})
		}
	}
	return res, nil
}
