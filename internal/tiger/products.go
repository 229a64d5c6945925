// Package tiger names Census TIGER/Line boundary shapefiles. Manifests refer
// to them as tiger://<year>/<PRODUCT>[/<state>] and the fetcher turns that
// into the Census download URL.
package tiger

import (
	"fmt"
	"slices"
	"strings"
)

// EPSG is the CRS every TIGER/Line shapefile is published in (NAD83).
const EPSG = 4269

// Product is one TIGER/Line boundary layer usable as an administrative join.
type Product struct {
	Name     string // directory name on the Census server, e.g. "TRACT"
	File     string // file suffix, e.g. "tract"
	National bool   // one US-wide file rather than one per state

	// KeyField is the DBF attribute usually copied into the output.
	KeyField string
}

// Products lists the supported boundary products.
var Products = []Product{
	{Name: "ZCTA520", File: "zcta520", National: true, KeyField: "ZCTA5CE20"},
	{Name: "COUNTY", File: "county", National: true, KeyField: "NAMELSAD"},
	{Name: "CBSA", File: "cbsa", National: true, KeyField: "NAME"},
	{Name: "PLACE", File: "place", KeyField: "NAME"},
	{Name: "COUSUB", File: "cousub", KeyField: "NAME"},
	{Name: "TRACT", File: "tract", KeyField: "GEOID"},
	{Name: "BG", File: "bg", KeyField: "GEOID"},
	{Name: "UNSD", File: "unsd", KeyField: "NAME"},
}

// FIPSCodes maps state abbreviation to 2-digit FIPS code for all 50 states + DC.
var FIPSCodes = map[string]string{
	"AL": "01", "AK": "02", "AZ": "04", "AR": "05", "CA": "06",
	"CO": "08", "CT": "09", "DE": "10", "DC": "11", "FL": "12",
	"GA": "13", "HI": "15", "ID": "16", "IL": "17", "IN": "18",
	"IA": "19", "KS": "20", "KY": "21", "LA": "22", "ME": "23",
	"MD": "24", "MA": "25", "MI": "26", "MN": "27", "MS": "28",
	"MO": "29", "MT": "30", "NE": "31", "NV": "32", "NH": "33",
	"NJ": "34", "NM": "35", "NY": "36", "NC": "37", "ND": "38",
	"OH": "39", "OK": "40", "OR": "41", "PA": "42", "RI": "44",
	"SC": "45", "SD": "46", "TN": "47", "TX": "48", "UT": "49",
	"VT": "50", "VA": "51", "WA": "53", "WV": "54", "WI": "55",
	"WY": "56",
}

// ProductByName looks up a product, ignoring case.
func ProductByName(name string) (Product, bool) {
	i := slices.IndexFunc(Products, func(p Product) bool { return strings.EqualFold(p.Name, name) })
	if i < 0 {
		return Product{}, false
	}
	return Products[i], true
}

// StateFIPS accepts a state abbreviation or a FIPS code and returns the FIPS code.
func StateFIPS(state string) (string, bool) {
	state = strings.ToUpper(strings.TrimSpace(state))
	if fips, ok := FIPSCodes[state]; ok {
		return fips, true
	}
	for _, fips := range FIPSCodes {
		if fips == state {
			return fips, true
		}
	}
	return "", false
}

// DownloadURL builds the Census Bureau download URL for a TIGER/Line shapefile.
// National products use tl_{year}_us_{file}.zip; per-state use tl_{year}_{fips}_{file}.zip.
func DownloadURL(product Product, year int, stateFIPS string) string {
	scope := stateFIPS
	if product.National {
		scope = "us"
	}
	return fmt.Sprintf(
		"https://www2.census.gov/geo/tiger/TIGER%d/%s/tl_%d_%s_%s.zip",
		year, product.Name, year, scope, product.File,
	)
}
