package dataset

import (
	"encoding/csv"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geoenrich/internal/enrich"
	"github.com/sells-group/geoenrich/internal/fetcher"
)

// Canonical sales column names.
const (
	ColID        = "id"
	ColPrice     = "price"
	ColYearBuilt = "year_built"
	ColLatitude  = "latitude"
	ColLongitude = "longitude"
	ColAddress   = "address"
)

var requiredSalesColumns = []string{ColID, ColLatitude, ColLongitude}

// saleRow is the on-disk shape of a sale. Numbers are kept as text so that
// empty and malformed cells are reported per row.
type saleRow struct {
	ID        string `csv:"id"`
	Price     string `csv:"price,omitempty"`
	YearBuilt string `csv:"year_built,omitempty"`
	Latitude  string `csv:"latitude"`
	Longitude string `csv:"longitude"`
	Address   string `csv:"address,omitempty"`
}

// ReadSalesFile reads sales from a .csv or .xlsx file.
func ReadSalesFile(path string, src SalesSource) ([]enrich.Record, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		header, rows, err := fetcher.ReadXLSX(path, fetcher.XLSXOptions{SheetName: src.Sheet})
		if err != nil {
			return nil, eris.Wrap(err, "dataset: read sales")
		}
		return decodeSales(&sliceReader{rows: rows, width: len(header)}, header, src.Columns)
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: open sales %s", path)
		}
		defer f.Close() //nolint:errcheck
		return ReadSales(f, src.Columns)
	}
}

// ReadSales decodes sales CSV. columns maps canonical names to header names;
// headers already using canonical names need no entry.
func ReadSales(r io.Reader, columns map[string]string) ([]enrich.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read sales header")
	}
	return decodeSales(cr, header, columns)
}

func decodeSales(r csvutil.Reader, header []string, columns map[string]string) ([]enrich.Record, error) {
	canonical, err := remapHeader(header, columns)
	if err != nil {
		return nil, err
	}
	dec, err := csvutil.NewDecoder(r, canonical...)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: sales decoder")
	}

	var out []enrich.Record
	for row := 1; ; row++ {
		var sr saleRow
		if err := dec.Decode(&sr); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, eris.Wrapf(err, "dataset: decode sales row %d", row)
		}
		rec, err := sr.record(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// remapHeader rewrites source header names to canonical names.
func remapHeader(header []string, columns map[string]string) ([]string, error) {
	reverse := make(map[string]string, len(columns))
	for canon, source := range columns {
		reverse[strings.ToLower(strings.TrimSpace(source))] = canon
	}
	out := make([]string, len(header))
	present := make(map[string]bool, len(header))
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if canon, ok := reverse[key]; ok {
			key = canon
		}
		out[i] = key
		present[key] = true
	}
	for _, req := range requiredSalesColumns {
		if !present[req] {
			return nil, eris.Errorf("dataset: sales: missing %s column (header %v)", req, header)
		}
	}
	return out, nil
}

func (sr saleRow) record(row int) (enrich.Record, error) {
	rec := enrich.Record{ID: strings.TrimSpace(sr.ID), Address: strings.TrimSpace(sr.Address)}
	if rec.ID == "" {
		rec.ID = "row-" + strconv.Itoa(row)
	}

	var err error
	if rec.Price, err = parseAmount(sr.Price); err != nil {
		return rec, eris.Wrapf(err, "dataset: sales row %d: price", row)
	}
	if s := strings.TrimSpace(sr.YearBuilt); s != "" {
		y, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return rec, eris.Wrapf(err, "dataset: sales row %d: year_built", row)
		}
		rec.YearBuilt = int(y)
	}
	rec.Latitude = parseCoord(sr.Latitude)
	rec.Longitude = parseCoord(sr.Longitude)
	return rec, nil
}

// parseAmount accepts plain numbers and currency text like "$350,000".
func parseAmount(s string) (float64, error) {
	s = strings.NewReplacer("$", "", ",", "", " ", "").Replace(s)
	if s == "" {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

// parseCoord returns nil for an empty cell and NaN for text that is not a
// number, so the geometry policy decides what happens to the record.
func parseCoord(s string) *float64 {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "na") || strings.EqualFold(s, "null") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		v = math.NaN()
	}
	return &v
}

// WriteSales writes records as CSV with canonical headers.
func WriteSales(w io.Writer, records []enrich.Record) error {
	rows := make([]saleRow, len(records))
	for i, r := range records {
		rows[i] = saleRow{
			ID:        r.ID,
			Price:     strconv.FormatFloat(r.Price, 'f', -1, 64),
			YearBuilt: strconv.Itoa(r.YearBuilt),
			Latitude:  formatCoord(r.Latitude),
			Longitude: formatCoord(r.Longitude),
			Address:   r.Address,
		}
		if r.YearBuilt == 0 {
			rows[i].YearBuilt = ""
		}
	}

	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(rows) == 0 {
		if err := enc.EncodeHeader(saleRow{}); err != nil {
			return eris.Wrap(err, "dataset: write sales header")
		}
	} else if err := enc.Encode(rows); err != nil {
		return eris.Wrap(err, "dataset: write sales")
	}
	cw.Flush()
	return eris.Wrap(cw.Error(), "dataset: flush sales")
}

func formatCoord(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

// sliceReader feeds pre-split rows to csvutil, padding short rows to width.
type sliceReader struct {
	rows  [][]string
	width int
	next  int
}

func (s *sliceReader) Read() ([]string, error) {
	if s.next >= len(s.rows) {
		return nil, io.EOF
	}
	row := s.rows[s.next]
	s.next++
	if len(row) < s.width {
		padded := make([]string, s.width)
		copy(padded, row)
		row = padded
	}
	return row[:s.width], nil
}
