package spatial

import "fmt"

// CRSMismatchError is returned when a cross-layer operation is attempted
// on layers that do not share one CRS.
type CRSMismatchError struct {
	Op    string
	Layer string
	Want  int
	Got   int
}

func (e *CRSMismatchError) Error() string {
	return fmt.Sprintf("spatial: %s: layer %q is EPSG:%d, expected EPSG:%d", e.Op, e.Layer, e.Got, e.Want)
}

// DegenerateDistanceUnitError is returned when a linear distance is
// requested in a CRS whose coordinate differences are not ground distances:
// a geographic CRS, or one whose scale varies with latitude.
type DegenerateDistanceUnitError struct {
	Op            string
	CRS           int
	VariableScale bool
}

func (e *DegenerateDistanceUnitError) Error() string {
	if e.VariableScale {
		return fmt.Sprintf("spatial: %s: EPSG:%d scale varies with latitude; use a State Plane or UTM CRS for distances", e.Op, e.CRS)
	}
	return fmt.Sprintf("spatial: %s: EPSG:%d is geographic; reproject to a projected CRS before measuring distance", e.Op, e.CRS)
}
