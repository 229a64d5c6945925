package crs

import (
	"math"

	"github.com/rotisserie/eris"
	"github.com/wroge/wgs84"
)

// GRS80 ellipsoid. It differs from WGS84 in the ninth significant digit of
// the flattening, which is below anything the pipeline measures.
var (
	semiMajor  = wgs84.GRS80{}.A()
	flattening = 1 / wgs84.GRS80{}.Fi()
)

var lonLat = wgs84.LonLat()

type geographic struct {
	code int
	name string
}

func (g geographic) Code() int        { return g.code }
func (g geographic) Name() string     { return g.name }
func (g geographic) Unit() Unit       { return UnitDegree }
func (g geographic) Geographic() bool { return true }

func (g geographic) Forward(lon, lat float64) (float64, float64, error) {
	if err := checkLonLat(lon, lat); err != nil {
		return 0, 0, err
	}
	return lon, lat, nil
}

func (g geographic) Inverse(x, y float64) (float64, float64, error) {
	if err := checkLonLat(x, y); err != nil {
		return 0, 0, err
	}
	return x, y, nil
}

func checkLonLat(lon, lat float64) error {
	if !lonLat.Contains(lon, lat) {
		return eris.Wrapf(ErrOutOfDomain, "crs: lon=%g lat=%g", lon, lat)
	}
	return nil
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }
func deg(r float64) float64   { return r * 180 / math.Pi }
