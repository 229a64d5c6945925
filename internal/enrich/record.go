// Package enrich turns raw sales records into model-ready records carrying
// administrative attributes and proximity features.
package enrich

import (
	"github.com/twpayne/go-geom"
)

// Record is one sales transaction as loaded from the tabular source.
// Latitude and Longitude are nil when the source cell was empty. For a
// projected source CRS they hold northing and easting.
type Record struct {
	ID        string
	Price     float64
	YearBuilt int
	Latitude  *float64
	Longitude *float64
	Address   string
}

// EnrichedRecord is a Record with its derived spatial features. The raw
// coordinates stay on the embedded Record.
type EnrichedRecord struct {
	Record

	// Point is the sale location in the pipeline's target CRS.
	Point *geom.Point

	// Admin holds joined administrative attributes. A missing key means the
	// point fell inside no polygon of that layer.
	Admin map[string]string

	MarketDistance float64
	NearestMarket  string

	// Proximity has one flag per band, in band order. At most one is true.
	Proximity []bool
}

// X returns the projected easting.
func (e EnrichedRecord) X() float64 { return e.Point.X() }

// Y returns the projected northing.
func (e EnrichedRecord) Y() float64 { return e.Point.Y() }

// AdminValue returns a joined attribute and whether it is present.
func (e EnrichedRecord) AdminValue(name string) (string, bool) {
	v, ok := e.Admin[name]
	return v, ok
}
