// Package crs provides the coordinate reference systems the enrichment
// pipeline can reproject between, keyed by EPSG code.
package crs

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rotisserie/eris"
)

// Unit is the linear (or angular) unit of a CRS's coordinates.
type Unit string

// Supported coordinate units.
const (
	UnitDegree Unit = "degree"
	UnitMetre  Unit = "metre"
	UnitUSFoot Unit = "us-survey-foot"
)

// MetresPerMile is the length of an international statute mile.
const MetresPerMile = 1609.344

const metresPerUSFt = 1200.0 / 3937.0

// ErrUnsupported is returned for EPSG codes not in the registry.
var ErrUnsupported = errors.New("crs: unsupported EPSG code")

// ErrOutOfDomain is returned when a coordinate cannot be projected.
var ErrOutOfDomain = errors.New("crs: coordinate outside projection domain")

// Projection converts between geographic longitude/latitude (degrees) and
// the coordinates of one CRS.
type Projection interface {
	// Code is the EPSG code.
	Code() int
	Name() string
	Unit() Unit
	// Geographic reports whether coordinates are angular (lon/lat).
	Geographic() bool
	Forward(lon, lat float64) (x, y float64, err error)
	Inverse(x, y float64) (lon, lat float64, err error)
}

// MetresPerUnit returns how many metres one coordinate unit spans. It is
// zero for geographic systems, whose units are not linear.
func MetresPerUnit(p Projection) float64 {
	switch p.Unit() {
	case UnitMetre:
		return 1
	case UnitUSFoot:
		return metresPerUSFt
	default:
		return 0
	}
}

// VariableScale reports whether p's linear scale changes across a region
// enough that planar distances are not ground distances, as in Web Mercator
// where lengths grow by 1/cos(latitude).
func VariableScale(p Projection) bool {
	v, ok := p.(interface{ variableScale() bool })
	return ok && v.variableScale()
}

// MilesToUnits converts a distance in statute miles into the linear unit of p.
func MilesToUnits(p Projection, miles float64) (float64, error) {
	mpu := MetresPerUnit(p)
	if mpu == 0 {
		return 0, eris.Errorf("crs: EPSG:%d has no linear unit", p.Code())
	}
	return miles * MetresPerMile / mpu, nil
}

var (
	registryMu sync.RWMutex
	registry   = map[int]Projection{}
)

// Register adds p to the registry, replacing any projection with the same code.
func Register(p Projection) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[p.Code()] = p
}

// Lookup returns the projection registered for an EPSG code.
func Lookup(code int) (Projection, error) {
	registryMu.RLock()
	p, ok := registry[code]
	registryMu.RUnlock()
	if !ok {
		return nil, eris.Wrapf(ErrUnsupported, "crs: EPSG:%d", code)
	}
	return p, nil
}

// Codes returns every registered EPSG code in ascending order.
func Codes() []int {
	registryMu.RLock()
	defer registryMu.RUnlock()
	codes := make([]int, 0, len(registry))
	for c := range registry {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes
}

// Transform converts one coordinate from one CRS to another through
// geographic coordinates. NAD83 and WGS84 are treated as the same datum.
func Transform(from, to Projection, x, y float64) (float64, float64, error) {
	if from.Code() == to.Code() {
		return x, y, nil
	}
	lon, lat, err := from.Inverse(x, y)
	if err != nil {
		return 0, 0, err
	}
	return to.Forward(lon, lat)
}

// TransformFlat reprojects a flat coordinate slice with the given stride,
// returning a new slice. Only the first two ordinates of each coordinate
// are transformed; any further ordinates are copied.
func TransformFlat(from, to Projection, flat []float64, stride int) ([]float64, error) {
	out := make([]float64, len(flat))
	copy(out, flat)
	if from.Code() == to.Code() {
		return out, nil
	}
	for i := 0; i+1 < len(out); i += stride {
		x, y, err := Transform(from, to, out[i], out[i+1])
		if err != nil {
			return nil, eris.Wrapf(err, "crs: transform EPSG:%d -> EPSG:%d", from.Code(), to.Code())
		}
		out[i], out[i+1] = x, y
	}
	return out, nil
}

func init() {
	Register(geographic{code: 4326, name: "WGS 84"})
	Register(geographic{code: 4269, name: "NAD83"})
	Register(webMercator())

	for zone := 1; zone <= 60; zone++ {
		Register(newUTM(32600+zone, fmt.Sprintf("WGS 84 / UTM zone %dN", zone), zone, false))
		Register(newUTM(32700+zone, fmt.Sprintf("WGS 84 / UTM zone %dS", zone), zone, true))
	}
	for zone := 1; zone <= 23; zone++ {
		Register(newUTM(26900+zone, fmt.Sprintf("NAD83 / UTM zone %dN", zone), zone, false))
	}

	for _, p := range statePlaneZones {
		Register(p)
	}
}
