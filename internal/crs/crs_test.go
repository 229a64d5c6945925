package crs

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup_Unsupported(t *testing.T) {
	_, err := Lookup(999999)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupported))
	assert.Contains(t, err.Error(), "EPSG:999999")
}

func TestVariableScale(t *testing.T) {
	for code, want := range map[int]bool{3857: true, 32610: false, 2226: false, 4326: false} {
		p, err := Lookup(code)
		require.NoError(t, err)
		assert.Equal(t, want, VariableScale(p), "EPSG:%d", code)
	}
}

func TestCodes_Sorted(t *testing.T) {
	codes := Codes()
	require.NotEmpty(t, codes)
	for i := 1; i < len(codes); i++ {
		assert.Less(t, codes[i-1], codes[i])
	}
	assert.Contains(t, codes, 4326)
	assert.Contains(t, codes, 3857)
	assert.Contains(t, codes, 32614)
	assert.Contains(t, codes, 2276)
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		code     int
		lon, lat float64
	}{
		{"web mercator", 3857, -97.33, 32.75},
		{"utm 14N fort worth", 32614, -97.33, 32.75},
		{"utm 10N sacramento", 32610, -121.49, 38.58},
		{"utm 33S", 32733, 15.2, -23.1},
		{"nad83 utm 10N", 26910, -122.27, 37.8},
		{"texas north central ftUS", 2276, -97.33, 32.75},
		{"texas north central metre", 32138, -96.8, 33.1},
		{"texas central ftUS", 2277, -97.74, 30.27},
		{"california zone 2", 2226, -122.27, 37.8},
		{"california zone 3", 2227, -121.89, 37.34},
		{"california zone 5", 2229, -118.24, 34.05},
		{"new york long island", 2263, -73.97, 40.78},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			geo, err := Lookup(4326)
			require.NoError(t, err)
			p, err := Lookup(tt.code)
			require.NoError(t, err)

			x, y, err := Transform(geo, p, tt.lon, tt.lat)
			require.NoError(t, err)

			lon, lat, err := Transform(p, geo, x, y)
			require.NoError(t, err)
			assert.InDelta(t, tt.lon, lon, 1e-7)
			assert.InDelta(t, tt.lat, lat, 1e-7)
		})
	}
}

func TestTexasNorthCentral_FalseOrigin(t *testing.T) {
	p, err := Lookup(2276)
	require.NoError(t, err)

	// The latitude of origin on the central meridian maps to the false origin.
	x, y, err := p.Forward(-98.5, dms(31, 40))
	require.NoError(t, err)
	assert.InDelta(t, 1968500.0, x, 0.01)
	assert.InDelta(t, 6561666.667, y, 0.01)
}

func TestUTM_CentralMeridian(t *testing.T) {
	p, err := Lookup(32614)
	require.NoError(t, err)

	x, y, err := p.Forward(-99, 0)
	require.NoError(t, err)
	assert.InDelta(t, 500000.0, x, 1e-6)
	assert.InDelta(t, 0.0, y, 1e-6)
}

func TestWebMercator_Domain(t *testing.T) {
	p, err := Lookup(3857)
	require.NoError(t, err)

	_, _, err = p.Forward(0, 89)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfDomain))

	x, y, err := p.Forward(0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, x, 1e-9)
	assert.InDelta(t, 0.0, y, 1e-9)
}

func TestGeographic_RejectsOutOfRange(t *testing.T) {
	p, err := Lookup(4326)
	require.NoError(t, err)

	_, _, err = p.Forward(200, 10)
	assert.True(t, errors.Is(err, ErrOutOfDomain))
	_, _, err = p.Forward(10, -95)
	assert.True(t, errors.Is(err, ErrOutOfDomain))
	_, _, err = p.Forward(math.NaN(), 10)
	assert.True(t, errors.Is(err, ErrOutOfDomain))
}

func TestStatePlane_RejectsOutOfDomain(t *testing.T) {
	p, err := Lookup(2226)
	require.NoError(t, err)

	_, _, err = p.Forward(-122, 91)
	assert.True(t, errors.Is(err, ErrOutOfDomain))
	_, _, err = p.Inverse(math.NaN(), 0)
	assert.True(t, errors.Is(err, ErrOutOfDomain))
}

func TestMilesToUnits(t *testing.T) {
	metre, err := Lookup(32614)
	require.NoError(t, err)
	v, err := MilesToUnits(metre, 0.5)
	require.NoError(t, err)
	assert.InDelta(t, 804.672, v, 1e-9)

	feet, err := Lookup(2276)
	require.NoError(t, err)
	v, err = MilesToUnits(feet, 1)
	require.NoError(t, err)
	assert.InDelta(t, 5279.98944, v, 1e-4)

	geo, err := Lookup(4326)
	require.NoError(t, err)
	_, err = MilesToUnits(geo, 1)
	assert.Error(t, err)
}

func TestTransformFlat_CopiesInput(t *testing.T) {
	geo, err := Lookup(4326)
	require.NoError(t, err)
	merc, err := Lookup(3857)
	require.NoError(t, err)

	in := []float64{0, 0, 10, 10}
	out, err := TransformFlat(geo, merc, in, 2)
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 10, 10}, in)
	assert.InDelta(t, 1113194.9, out[2], 0.1)
}
