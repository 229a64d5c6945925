package dataset

import (
	"bytes"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/geoenrich/internal/crs"
	"github.com/sells-group/geoenrich/internal/enrich"
)

var salesColumns = map[string]string{
	"id":         "SALE_ID",
	"price":      "SALE_PRICE",
	"year_built": "YR_BLT",
	"latitude":   "LAT",
	"longitude":  "LON",
}

func TestReadSales_MapsColumns(t *testing.T) {
	src := "SALE_ID,SALE_PRICE,YR_BLT,LAT,LON,ZONING\n" +
		"s1,\"$350,000\",1987,38.5816,-121.4944,R1\n" +
		"s2,410000,,38.61,,R2\n"

	recs, err := ReadSales(strings.NewReader(src), salesColumns)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "s1", recs[0].ID)
	assert.Equal(t, 350000.0, recs[0].Price)
	assert.Equal(t, 1987, recs[0].YearBuilt)
	require.NotNil(t, recs[0].Latitude)
	assert.Equal(t, 38.5816, *recs[0].Latitude)
	assert.Equal(t, -121.4944, *recs[0].Longitude)

	assert.Equal(t, 0, recs[1].YearBuilt)
	assert.NotNil(t, recs[1].Latitude)
	assert.Nil(t, recs[1].Longitude, "empty cell stays missing")
}

func TestReadSales_CanonicalHeaders(t *testing.T) {
	src := "\ufeffID,Price,Latitude,Longitude,Address\n,1,38,-121,1315 10th St\n"

	recs, err := ReadSales(strings.NewReader(src), nil)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "row-1", recs[0].ID)
	assert.Equal(t, "1315 10th St", recs[0].Address)
}

func TestReadSales_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{name: "empty input", src: "", want: "header"},
		{name: "missing longitude column", src: "id,latitude\ns1,38\n", want: "missing longitude"},
		{name: "bad price", src: "id,price,latitude,longitude\ns1,lots,38,-121\n", want: "price"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadSales(strings.NewReader(tt.src), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadSales_PlaceholderCoordinates(t *testing.T) {
	src := "id,latitude,longitude\n" +
		"s1,38.5816,-121.4944\n" +
		"s2,n/a,-121.5\n" +
		"s3,38.6,unknown\n" +
		"s4,-,-\n"

	recs, err := ReadSales(strings.NewReader(src), nil)
	require.NoError(t, err)
	require.Len(t, recs, 4)
	require.NotNil(t, recs[1].Latitude)
	assert.True(t, math.IsNaN(*recs[1].Latitude))
	assert.Equal(t, -121.5, *recs[1].Longitude)
	assert.True(t, math.IsNaN(*recs[2].Longitude))

	wgs84, err := crs.Lookup(4326)
	require.NoError(t, err)

	m, err := enrich.Materialize(recs, wgs84, enrich.InvalidSkip)
	require.NoError(t, err)
	require.Len(t, m.Records, 1)
	assert.Equal(t, "s1", m.Records[0].ID)
	require.Len(t, m.Skipped, 3)
	assert.Equal(t, "s2", m.Skipped[0].RecordID)
	assert.Equal(t, "latitude", m.Skipped[0].Field)
	assert.Equal(t, "not finite", m.Skipped[0].Reason)
	assert.Equal(t, "longitude", m.Skipped[1].Field)

	_, err = enrich.Materialize(recs, wgs84, enrich.InvalidAbort)
	var invalid *enrich.InvalidGeometryError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, "s2", invalid.RecordID)
}

func TestReadSalesFile_XLSX(t *testing.T) {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Sales")
	require.NoError(t, err)
	for _, r := range [][]string{
		{"SALE_ID", "SALE_PRICE", "LAT", "LON"},
		{"s1", "275000", "38.55", "-121.47"},
		{"s2", "199000", "38.56"},
	} {
		row := sheet.AddRow()
		for _, c := range r {
			row.AddCell().SetString(c)
		}
	}
	path := filepath.Join(t.TempDir(), "sales.xlsx")
	require.NoError(t, f.Save(path))

	recs, err := ReadSalesFile(path, SalesSource{Columns: salesColumns})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 275000.0, recs[0].Price)
	assert.Equal(t, -121.47, *recs[0].Longitude)
	assert.Nil(t, recs[1].Longitude)
}

func TestReadSalesFile_Missing(t *testing.T) {
	_, err := ReadSalesFile(filepath.Join(t.TempDir(), "none.csv"), SalesSource{})
	require.Error(t, err)
}

func TestWriteSales(t *testing.T) {
	lat, lon := 38.5, -121.25
	recs := []enrich.Record{
		{ID: "s1", Price: 350000, YearBuilt: 1990, Latitude: &lat, Longitude: &lon, Address: "1 Capitol Mall"},
		{ID: "s2", Price: 125000.5, Address: "2 J St"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSales(&buf, recs))
	assert.Equal(t,
		"id,price,year_built,latitude,longitude,address\n"+
			"s1,350000,1990,38.5,-121.25,1 Capitol Mall\n"+
			"s2,125000.5,,,,2 J St\n",
		buf.String())

	back, err := ReadSales(&buf, nil)
	require.NoError(t, err)
	assert.Equal(t, recs, back)
}

func TestWriteSales_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSales(&buf, nil))
	assert.Equal(t, "id,price,year_built,latitude,longitude,address\n", buf.String())
}
