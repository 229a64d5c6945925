package crs

import "github.com/wroge/wgs84"

// maxMercatorLat is the latitude at which Web Mercator's square world ends.
const maxMercatorLat = 85.05112877980659

// webMercator is EPSG:3857, the spherical Mercator used by web tiles. Its
// scale grows with latitude, so it is refused as a distance target.
func webMercator() *projected {
	return &projected{
		code:        3857,
		name:        "WGS 84 / Pseudo-Mercator",
		unit:        UnitMetre,
		sys:         wgs84.WebMercator(),
		maxLat:      maxMercatorLat,
		scaleVaries: true,
	}
}
