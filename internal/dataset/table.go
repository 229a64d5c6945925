package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/geoenrich/internal/enrich"
)

// ColumnKind tells spreadsheet writers how to type a column.
type ColumnKind int

// Column kinds.
const (
	KindText ColumnKind = iota
	KindNumber
)

// Table is an enriched result flattened to rows of text.
type Table struct {
	Header []string
	Kinds  []ColumnKind
	Rows   [][]string
}

func (t *Table) add(name string, kind ColumnKind) {
	t.Header = append(t.Header, name)
	t.Kinds = append(t.Kinds, kind)
}

// NewTable flattens res: the sale columns, projected x and y, one column
// per joined attribute, the nearest market and its distance, then one 0/1
// column per proximity band.
func NewTable(res *enrich.Result) *Table {
	t := &Table{}
	t.add(ColID, KindText)
	t.add(ColPrice, KindNumber)
	t.add(ColYearBuilt, KindNumber)
	t.add(ColLatitude, KindNumber)
	t.add(ColLongitude, KindNumber)
	t.add("x", KindNumber)
	t.add("y", KindNumber)
	for _, c := range res.Columns {
		t.add(c, KindText)
	}
	t.add("nearest_market", KindText)
	t.add("market_distance", KindNumber)
	for _, b := range res.Bands {
		t.add(b.Name, KindNumber)
	}

	t.Rows = make([][]string, len(res.Records))
	for i, r := range res.Records {
		row := make([]string, 0, len(t.Header))
		year := ""
		if r.YearBuilt != 0 {
			year = strconv.Itoa(r.YearBuilt)
		}
		row = append(row,
			r.ID,
			formatFloat(r.Price),
			year,
			formatCoord(r.Latitude),
			formatCoord(r.Longitude),
			formatFloat(r.X()),
			formatFloat(r.Y()),
		)
		for _, c := range res.Columns {
			row = append(row, r.Admin[c])
		}
		row = append(row, r.NearestMarket, formatFloat(r.MarketDistance))
		for _, flag := range r.Proximity {
			if flag {
				row = append(row, "1")
			} else {
				row = append(row, "0")
			}
		}
		t.Rows[i] = row
	}
	return t
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// WriteCSV writes the table with its header row.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return eris.Wrap(err, "dataset: write csv header")
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return eris.Wrap(err, "dataset: write csv rows")
	}
	return nil
}

// WriteXLSX writes the table to a single-sheet workbook. Number columns are
// stored as numeric cells.
func WriteXLSX(path string, t *Table) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("enriched")
	if err != nil {
		return eris.Wrap(err, "xlsx: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range t.Header {
		header.AddCell().SetString(h)
	}
	for _, r := range t.Rows {
		row := sheet.AddRow()
		for j, v := range r {
			cell := row.AddCell()
			if t.Kinds[j] == KindNumber && v != "" {
				if n, err := strconv.ParseFloat(v, 64); err == nil {
					cell.SetFloat(n)
					continue
				}
			}
			cell.SetString(v)
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "xlsx: save %s", path)
	}
	return nil
}

// WriteTable writes t to path, choosing the format from the extension.
func WriteTable(path string, t *Table) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return WriteXLSX(path, t)
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrapf(err, "dataset: create %s", path)
		}
		if err := WriteCSV(f, t); err != nil {
			_ = f.Close()
			return err
		}
		return eris.Wrap(f.Close(), "dataset: close csv")
	default:
		return eris.Errorf("dataset: unsupported table format %q", filepath.Ext(path))
	}
}
