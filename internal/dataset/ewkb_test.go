package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

func TestEncodeEWKB_Point(t *testing.T) {
	pt := geom.NewPointFlat(geom.XY, []float64{631000, 4271000}).SetSRID(32610)

	data, err := EncodeEWKB(pt)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, byte(1), data[0], "little endian")

	g, err := ewkb.Unmarshal(data)
	require.NoError(t, err)
	back, ok := g.(*geom.Point)
	require.True(t, ok)
	assert.Equal(t, 32610, back.SRID())
	assert.Equal(t, pt.FlatCoords(), back.FlatCoords())
}

func TestEncodeEWKB_Polygon(t *testing.T) {
	poly := geom.NewPolygonFlat(geom.XY, []float64{0, 0, 1, 0, 1, 1, 0, 0}, []int{8}).SetSRID(2226)
	data, err := EncodeEWKB(poly)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestEncodeEWKB_NilAndNoSRID(t *testing.T) {
	data, err := EncodeEWKB(nil)
	require.NoError(t, err)
	assert.Nil(t, data)

	_, err = EncodeEWKB(geom.NewPointFlat(geom.XY, []float64{1, 2}))
	require.Error(t, err)
}
