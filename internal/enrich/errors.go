package enrich

import "fmt"

// InvalidGeometryError is returned when a record's coordinates cannot be
// turned into a point.
type InvalidGeometryError struct {
	RecordID string
	Row      int
	Field    string
	Reason   string
}

func (e *InvalidGeometryError) Error() string {
	return fmt.Sprintf("enrich: record %q (row %d): %s %s", e.RecordID, e.Row, e.Field, e.Reason)
}

// JoinAmbiguityWarning is the non-fatal report of a point strictly inside
// more than one polygon of a layer. The first polygon in layer order wins.
type JoinAmbiguityWarning struct {
	Layer    string
	RecordID string
	Matches  []int
}

func (w JoinAmbiguityWarning) String() string {
	return fmt.Sprintf("record %q within %d polygons of %s %v; kept %d", w.RecordID, len(w.Matches), w.Layer, w.Matches, w.Matches[0])
}
