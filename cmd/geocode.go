package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoenrich/internal/crs"
	"github.com/sells-group/geoenrich/internal/dataset"
	"github.com/sells-group/geoenrich/internal/enrich"
	"github.com/sells-group/geoenrich/pkg/geocode"
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <in> <out.csv>",
	Short: "Fill missing sale coordinates from addresses",
	Long: "Reads a sales CSV or XLSX with canonical id, latitude, longitude and address columns, " +
		"geocodes the rows lacking coordinates with the Census Geocoder, and writes the result as CSV.",
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("geocode"); err != nil {
			return err
		}

		epsg, _ := cmd.Flags().GetInt("epsg")
		target, err := crs.Lookup(epsg)
		if err != nil {
			return eris.Wrap(err, "geocode: --epsg")
		}

		records, err := dataset.ReadSalesFile(args[0], dataset.SalesSource{
			Columns: map[string]string{dataset.ColAddress: cfg.Geocode.AddressColumn},
		})
		if err != nil {
			return err
		}

		client := geocode.NewClient(
			geocode.WithBaseURL(cfg.Geocode.BaseURL),
			geocode.WithBenchmark(cfg.Geocode.Benchmark),
			geocode.WithRateLimit(cfg.Geocode.RateLimit),
			geocode.WithMaxAttempts(cfg.Geocode.MaxAttempts),
			geocode.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Geocode.TimeoutSecs) * time.Second}),
		)

		stats, err := fillCoordinates(ctx, client, target, records)
		if err != nil {
			return err
		}

		f, err := os.Create(args[1])
		if err != nil {
			return eris.Wrapf(err, "geocode: create %s", args[1])
		}
		defer f.Close() //nolint:errcheck
		if err := dataset.WriteSales(f, records); err != nil {
			return err
		}

		zap.L().Info("geocode complete",
			zap.String("out", args[1]),
			zap.Int("records", len(records)),
			zap.Int("requested", stats.Requested),
			zap.Int("matched", stats.Matched),
			zap.Int("no_address", stats.NoAddress),
		)
		return f.Close()
	},
}

// geocodeStats counts what fillCoordinates did.
type geocodeStats struct {
	Requested int
	Matched   int
	NoAddress int
}

// fillCoordinates geocodes every record that has an address but lacks a
// coordinate, writing matches back in target's axis order. Records keep nil
// coordinates when the address does not match.
func fillCoordinates(ctx context.Context, client geocode.Client, target crs.Projection, records []enrich.Record) (geocodeStats, error) {
	var stats geocodeStats
	var idx []int
	var addrs []geocode.AddressInput
	for i, r := range records {
		if r.Latitude != nil && r.Longitude != nil {
			continue
		}
		if r.Address == "" {
			stats.NoAddress++
			continue
		}
		idx = append(idx, i)
		addrs = append(addrs, geocode.AddressInput{ID: r.ID, Street: r.Address})
	}
	stats.Requested = len(addrs)
	if len(addrs) == 0 {
		return stats, nil
	}

	results, err := client.BatchGeocode(ctx, addrs)
	if err != nil {
		return stats, eris.Wrap(err, "geocode: batch")
	}

	for j, res := range results {
		if j >= len(idx) || !res.Matched {
			continue
		}
		x, y, err := target.Forward(res.Longitude, res.Latitude)
		if err != nil {
			zap.L().Warn("geocode: result outside target crs",
				zap.String("id", records[idx[j]].ID),
				zap.Error(err),
			)
			continue
		}
		rec := &records[idx[j]]
		rec.Latitude, rec.Longitude = &y, &x
		stats.Matched++
	}
	return stats, nil
}

func init() {
	geocodeCmd.Flags().Int("epsg", 4326, "EPSG code to write coordinates in")
	rootCmd.AddCommand(geocodeCmd)
}
