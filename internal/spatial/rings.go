package spatial

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/geoenrich/internal/crs"
)

// Band is one proximity class: everything within Radius of a control point
// and outside the next smaller band.
type Band struct {
	Name   string
	Radius float64 // CRS linear units
}

// Ring is a band with its derived region.
type Ring struct {
	Band
	Region *Region
}

// RingLayer is the set of disjoint rings derived from one control layer.
type RingLayer struct {
	Name  string
	CRS   crs.Projection
	Rings []Ring
}

// LayerName implements Referenced.
func (rl *RingLayer) LayerName() string { return rl.Name }

// LayerCRS implements Referenced.
func (rl *RingLayer) LayerCRS() crs.Projection { return rl.CRS }

// Len implements ShapeSet.
func (rl *RingLayer) Len() int { return len(rl.Rings) }

// ShapeAt implements ShapeSet.
func (rl *RingLayer) ShapeAt(i int) Shape { return rl.Rings[i].Region }

// BuildRings buffers every control point by each band radius, unions the
// buffers per band, then subtracts the union of the next smaller band so the
// resulting rings are pairwise disjoint. Bands must be in increasing radius.
func BuildRings(controls *Layer, bands []Band, quadSegs int) (*RingLayer, error) {
	if err := RequireProjected("build rings", controls); err != nil {
		return nil, err
	}
	if len(controls.Features) == 0 {
		return nil, eris.Errorf("spatial: build rings: control layer %s is empty", controls.Name)
	}
	for i := 1; i < len(bands); i++ {
		if bands[i].Radius <= bands[i-1].Radius {
			return nil, eris.Errorf("spatial: build rings: band %s radius %g not greater than %s radius %g",
				bands[i].Name, bands[i].Radius, bands[i-1].Name, bands[i-1].Radius)
		}
	}

	out := &RingLayer{Name: controls.Name + "_rings", CRS: controls.CRS, Rings: make([]Ring, 0, len(bands))}
	var inner *Region
	for _, b := range bands {
		buffers, err := BufferLayer(controls, b.Radius, quadSegs)
		if err != nil {
			return nil, eris.Wrapf(err, "spatial: build ring %s", b.Name)
		}
		union := Union(buffers...)
		region := union
		if inner != nil {
			region = union.Difference(inner)
		}
		out.Rings = append(out.Rings, Ring{Band: b, Region: region})
		inner = union
	}
	return out, nil
}
