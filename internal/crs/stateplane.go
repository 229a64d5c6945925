package crs

import "github.com/wroge/wgs84"

func dms(d, m float64) float64 {
	if d < 0 {
		return d - m/60
	}
	return d + m/60
}

// lambert returns a two-parallel Lambert Conformal Conic zone on NAD83.
// False easting and northing are in metres.
func lambert(code int, name string, unit Unit, lat0, lon0, sp1, sp2, fe, fn float64) *projected {
	return &projected{
		code:   code,
		name:   name,
		unit:   unit,
		sys:    wgs84.NAD83().LambertConformalConic2SP(lon0, lat0, sp1, sp2, fe, fn),
		maxLat: 90,
	}
}

// statePlaneZones are the NAD83 State Plane zones the sales datasets use.
var statePlaneZones = []*projected{
	lambert(2226, "NAD83 / California zone 2 (ftUS)", UnitUSFoot,
		dms(37, 40), -122, dms(39, 50), dms(38, 20), 2000000, 500000),
	lambert(2227, "NAD83 / California zone 3 (ftUS)", UnitUSFoot,
		dms(36, 30), dms(-120, 30), dms(38, 26), dms(37, 4), 2000000, 500000),
	lambert(2229, "NAD83 / California zone 5 (ftUS)", UnitUSFoot,
		dms(33, 30), -118, dms(35, 28), dms(34, 2), 2000000, 500000),
	lambert(2263, "NAD83 / New York Long Island (ftUS)", UnitUSFoot,
		dms(40, 10), -74, dms(41, 2), dms(40, 40), 300000, 0),
	lambert(2276, "NAD83 / Texas North Central (ftUS)", UnitUSFoot,
		dms(31, 40), -98.5, dms(33, 58), dms(32, 8), 600000, 2000000),
	lambert(2277, "NAD83 / Texas Central (ftUS)", UnitUSFoot,
		dms(29, 40), dms(-100, 20), dms(31, 53), dms(30, 7), 700000, 3000000),
	lambert(32138, "NAD83 / Texas North Central", UnitMetre,
		dms(31, 40), -98.5, dms(33, 58), dms(32, 8), 600000, 2000000),
}
