package enrich

import (
	"errors"
	"math"

	"github.com/golang/geo/s2"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/geoenrich/internal/crs"
	"github.com/sells-group/geoenrich/internal/spatial"
)

// InvalidPolicy decides what happens to a record whose coordinates are
// missing or unusable.
type InvalidPolicy string

// Invalid record policies.
const (
	InvalidAbort InvalidPolicy = "abort"
	InvalidSkip  InvalidPolicy = "skip"
)

// ParseInvalidPolicy parses a policy name; empty means abort.
func ParseInvalidPolicy(s string) (InvalidPolicy, error) {
	switch InvalidPolicy(s) {
	case "", InvalidAbort:
		return InvalidAbort, nil
	case InvalidSkip:
		return InvalidSkip, nil
	default:
		return "", eris.Errorf("enrich: unknown invalid-record policy %q", s)
	}
}

// MaterializePoint builds the point for one record in src. row is the
// record's position, used in error reports.
func MaterializePoint(r Record, row int, src crs.Projection) (*geom.Point, error) {
	lon, err := coordinate(r, row, "longitude", r.Longitude)
	if err != nil {
		return nil, err
	}
	lat, err := coordinate(r, row, "latitude", r.Latitude)
	if err != nil {
		return nil, err
	}
	if src.Geographic() && !s2.LatLngFromDegrees(lat, lon).IsValid() {
		return nil, &InvalidGeometryError{RecordID: r.ID, Row: row, Field: "latitude/longitude", Reason: "out of range"}
	}
	return geom.NewPointFlat(geom.XY, []float64{lon, lat}).SetSRID(src.Code()), nil
}

func coordinate(r Record, row int, field string, v *float64) (float64, error) {
	if v == nil {
		return 0, &InvalidGeometryError{RecordID: r.ID, Row: row, Field: field, Reason: "missing"}
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) {
		return 0, &InvalidGeometryError{RecordID: r.ID, Row: row, Field: field, Reason: "not finite"}
	}
	return *v, nil
}

// Materialized is the output of Materialize: the kept records, aligned with
// a point layer in the source CRS.
type Materialized struct {
	Records []Record
	Points  *spatial.Layer
	Skipped []*InvalidGeometryError
}

// Materialize builds a point for every record. Under InvalidAbort the first
// invalid record fails the call; under InvalidSkip it is dropped and listed
// in Skipped.
func Materialize(records []Record, src crs.Projection, policy InvalidPolicy) (*Materialized, error) {
	out := &Materialized{Records: make([]Record, 0, len(records))}
	feats := make([]spatial.Feature, 0, len(records))
	for i, r := range records {
		pt, err := MaterializePoint(r, i, src)
		if err != nil {
			var invalid *InvalidGeometryError
			if policy != InvalidSkip || !errors.As(err, &invalid) {
				return nil, err
			}
			zap.L().Warn("enrich: skipping record with invalid coordinates",
				zap.String("record_id", r.ID),
				zap.Int("row", i),
				zap.String("field", invalid.Field),
				zap.String("reason", invalid.Reason),
			)
			out.Skipped = append(out.Skipped, invalid)
			continue
		}
		out.Records = append(out.Records, r)
		feats = append(feats, spatial.Feature{Geom: pt, Attrs: map[string]string{"id": r.ID}})
	}
	out.Points = spatial.NewLayer("sales", src, feats)
	return out, nil
}
