// Package store persists enrichment runs and their enriched sales.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoenrich/internal/dataset"
	"github.com/sells-group/geoenrich/internal/enrich"
)

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	TargetEPSG int `json:"target_epsg,omitempty"`
	Limit      int `json:"limit,omitempty"`
	Offset     int `json:"offset,omitempty"`
}

// BandSummary is one proximity band of a stored run.
type BandSummary struct {
	Name   string  `json:"name"`
	Radius float64 `json:"radius"`
	Count  int     `json:"count"`
}

// Summary holds the run report fields stored as JSON.
type Summary struct {
	Bands       []BandSummary  `json:"bands"`
	Unmatched   map[string]int `json:"unmatched,omitempty"`
	Ambiguities int            `json:"ambiguities"`
	DurationMS  int64          `json:"duration_ms"`
}

// Run is one stored pipeline run.
type Run struct {
	ID         string    `json:"id"`
	Manifest   string    `json:"manifest"`
	TargetEPSG int       `json:"target_epsg"`
	Input      int       `json:"input"`
	Enriched   int       `json:"enriched"`
	Skipped    int       `json:"skipped"`
	Summary    Summary   `json:"summary"`
	CreatedAt  time.Time `json:"created_at"`
}

// NewRun builds the stored form of a pipeline result. ID and CreatedAt are
// assigned by SaveRun.
func NewRun(manifest string, res *enrich.Result) *Run {
	rep := res.Report
	bands := make([]BandSummary, len(res.Bands))
	for i, b := range res.Bands {
		bands[i] = BandSummary{Name: b.Name, Radius: b.Radius}
		if i < len(rep.BandCounts) {
			bands[i].Count = rep.BandCounts[i]
		}
	}
	return &Run{
		Manifest:   manifest,
		TargetEPSG: res.CRS.Code(),
		Input:      rep.Input,
		Enriched:   rep.Enriched,
		Skipped:    len(rep.Skipped),
		Summary: Summary{
			Bands:       bands,
			Unmatched:   rep.Unmatched,
			Ambiguities: len(rep.Ambiguities),
			DurationMS:  rep.Duration.Milliseconds(),
		},
	}
}

// Store defines the persistence interface for enrichment runs.
type Store interface {
	// SaveRun writes run and its records. An empty run.ID is assigned a new
	// UUID; saving an existing ID replaces its records.
	SaveRun(ctx context.Context, run *Run, records []enrich.EnrichedRecord) error
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]Run, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// saleColumns is the column order of the run_sales table.
var saleColumns = []string{
	"run_id", "record_id", "price", "year_built", "x", "y",
	"admin", "nearest_market", "market_distance", "proximity", "geom_ewkb",
}

// saleRows flattens records into run_sales rows.
func saleRows(runID string, records []enrich.EnrichedRecord) ([][]any, error) {
	rows := make([][]any, len(records))
	for i, r := range records {
		admin, err := json.Marshal(r.Admin)
		if err != nil {
			return nil, eris.Wrapf(err, "store: marshal admin for %s", r.ID)
		}
		proximity, err := json.Marshal(r.Proximity)
		if err != nil {
			return nil, eris.Wrapf(err, "store: marshal proximity for %s", r.ID)
		}
		g, err := dataset.EncodeEWKB(r.Point)
		if err != nil {
			return nil, eris.Wrapf(err, "store: encode geometry for %s", r.ID)
		}
		rows[i] = []any{
			runID, r.ID, r.Price, r.YearBuilt, r.X(), r.Y(),
			string(admin), r.NearestMarket, r.MarketDistance, string(proximity), g,
		}
	}
	return rows, nil
}

func listLimit(filter RunFilter) int {
	if filter.Limit <= 0 {
		return 100
	}
	return filter.Limit
}
