package crs

import (
	"math"

	"github.com/rotisserie/eris"
)

const (
	utmScale         = 0.9996
	utmFalseEasting  = 500000.0
	utmSouthNorthing = 10000000.0
)

// utm is a Transverse Mercator zone evaluated with Krüger's series to
// third order, which stays within a millimetre inside the zone.
type utm struct {
	code     int
	name     string
	lon0     float64 // radians
	northing float64

	a          float64 // rectifying radius
	alpha      [3]float64
	beta       [3]float64
	delta      [3]float64
	sqrtNTerms float64
}

func newUTM(code int, name string, zone int, south bool) *utm {
	n := flattening / (2 - flattening)
	n2, n3 := n*n, n*n*n
	u := &utm{
		code: code,
		name: name,
		lon0: rad(float64(-183 + 6*zone)),
		a:    semiMajor / (1 + n) * (1 + n2/4 + n2*n2/64),
		alpha: [3]float64{
			n/2 - 2*n2/3 + 5*n3/16,
			13*n2/48 - 3*n3/5,
			61 * n3 / 240,
		},
		beta: [3]float64{
			n/2 - 2*n2/3 + 37*n3/96,
			n2/48 + n3/15,
			17 * n3 / 480,
		},
		delta: [3]float64{
			2*n - 2*n2/3 - 2*n3,
			7*n2/3 - 8*n3/5,
			56 * n3 / 15,
		},
		sqrtNTerms: 2 * math.Sqrt(n) / (1 + n),
	}
	if south {
		u.northing = utmSouthNorthing
	}
	return u
}

func (u *utm) Code() int        { return u.code }
func (u *utm) Name() string     { return u.name }
func (u *utm) Unit() Unit       { return UnitMetre }
func (u *utm) Geographic() bool { return false }

func (u *utm) Forward(lon, lat float64) (float64, float64, error) {
	if err := checkLonLat(lon, lat); err != nil {
		return 0, 0, err
	}
	dl := rad(lon) - u.lon0
	if math.Abs(dl) > math.Pi/2 {
		return 0, 0, eris.Wrapf(ErrOutOfDomain, "crs: longitude %g too far from EPSG:%d central meridian", lon, u.code)
	}
	phi := rad(lat)
	sinPhi := math.Sin(phi)
	t := math.Sinh(math.Atanh(sinPhi) - u.sqrtNTerms*math.Atanh(u.sqrtNTerms*sinPhi))
	xiP := math.Atan2(t, math.Cos(dl))
	etaP := math.Atanh(math.Sin(dl) / math.Sqrt(1+t*t))

	xi, eta := xiP, etaP
	for j := 1; j <= 3; j++ {
		k := float64(2 * j)
		xi += u.alpha[j-1] * math.Sin(k*xiP) * math.Cosh(k*etaP)
		eta += u.alpha[j-1] * math.Cos(k*xiP) * math.Sinh(k*etaP)
	}
	x := utmFalseEasting + utmScale*u.a*eta
	y := u.northing + utmScale*u.a*xi
	return x, y, nil
}

func (u *utm) Inverse(x, y float64) (float64, float64, error) {
	xi := (y - u.northing) / (utmScale * u.a)
	eta := (x - utmFalseEasting) / (utmScale * u.a)

	xiP, etaP := xi, eta
	for j := 1; j <= 3; j++ {
		k := float64(2 * j)
		xiP -= u.beta[j-1] * math.Sin(k*xi) * math.Cosh(k*eta)
		etaP -= u.beta[j-1] * math.Cos(k*xi) * math.Sinh(k*eta)
	}
	chi := math.Asin(math.Sin(xiP) / math.Cosh(etaP))
	phi := chi
	for j := 1; j <= 3; j++ {
		phi += u.delta[j-1] * math.Sin(float64(2*j)*chi)
	}
	lambda := u.lon0 + math.Atan2(math.Sinh(etaP), math.Cos(xiP))

	lon, lat := deg(lambda), deg(phi)
	if err := checkLonLat(lon, lat); err != nil {
		return 0, 0, err
	}
	return lon, lat, nil
}
