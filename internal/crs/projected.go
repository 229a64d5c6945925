package crs

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/wroge/wgs84"
)

// projected adapts a wgs84 projected system, which works in metres, to a
// Projection in unit.
type projected struct {
	code   int
	name   string
	unit   Unit
	sys    wgs84.ProjectedReferenceSystem
	maxLat float64
	// scaleVaries marks projections whose lengths are not true anywhere
	// but a standard line, such as Web Mercator.
	scaleVaries bool
}

func (p *projected) Code() int        { return p.code }
func (p *projected) Name() string     { return p.name }
func (p *projected) Unit() Unit       { return p.unit }
func (p *projected) Geographic() bool { return false }

func (p *projected) variableScale() bool { return p.scaleVaries }

func (p *projected) scale() float64 {
	if p.unit == UnitUSFoot {
		return metresPerUSFt
	}
	return 1
}

func (p *projected) Forward(lon, lat float64) (float64, float64, error) {
	if err := checkLonLat(lon, lat); err != nil {
		return 0, 0, err
	}
	if math.Abs(lat) > p.maxLat {
		return 0, 0, eris.Wrapf(ErrOutOfDomain, "crs: latitude %g beyond EPSG:%d limit", lat, p.code)
	}
	x, y := p.sys.Projection.FromLonLat(lon, lat, p.sys.Datum)
	if !finite(x, y) {
		return 0, 0, eris.Wrapf(ErrOutOfDomain, "crs: lon=%g lat=%g is singular in EPSG:%d", lon, lat, p.code)
	}
	s := p.scale()
	return x / s, y / s, nil
}

func (p *projected) Inverse(x, y float64) (float64, float64, error) {
	s := p.scale()
	lon, lat := p.sys.Projection.ToLonLat(x*s, y*s, p.sys.Datum)
	if err := checkLonLat(lon, lat); err != nil {
		return 0, 0, err
	}
	return lon, lat, nil
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
