package dataset

import (
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
)

// EncodeEWKB encodes g as little-endian EWKB carrying its SRID, ready for a
// PostGIS geometry column. Nil geometries encode to nil.
func EncodeEWKB(g geom.T) ([]byte, error) {
	if g == nil {
		return nil, nil
	}
	if g.SRID() == 0 {
		return nil, eris.Errorf("dataset: encode EWKB: %T has no SRID", g)
	}
	data, err := ewkb.Marshal(g, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: encode EWKB")
	}
	return data, nil
}
