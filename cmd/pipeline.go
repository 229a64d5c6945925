package main

import (
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoenrich/internal/config"
	"github.com/sells-group/geoenrich/internal/crs"
	"github.com/sells-group/geoenrich/internal/dataset"
	"github.com/sells-group/geoenrich/internal/enrich"
	"github.com/sells-group/geoenrich/internal/fetcher"
)

// newLoader builds a dataset loader that can download remote locations.
func newLoader(c *config.Config) *dataset.Loader {
	httpFetcher := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
		UserAgent:  c.Fetch.UserAgent,
		Timeout:    time.Duration(c.Fetch.TimeoutSecs) * time.Second,
		MaxRetries: c.Fetch.MaxRetries,
	})
	ftpFetcher := fetcher.NewFTPFetcher(fetcher.FTPOptions{
		Timeout: time.Duration(c.Fetch.TimeoutSecs) * time.Second,
	})
	return dataset.NewLoader(fetcher.NewResolver(c.Fetch.CacheDir, httpFetcher, ftpFetcher))
}

// bandSpecs converts configured bands to pipeline bands.
func bandSpecs(bands []config.BandConfig) []enrich.BandSpec {
	out := make([]enrich.BandSpec, len(bands))
	for i, b := range bands {
		out[i] = enrich.BandSpec{Name: b.Name, Miles: b.Miles}
	}
	return out
}

// pipelineOptions resolves the target CRS and feature settings.
func pipelineOptions(c *config.Config) (enrich.Options, error) {
	target, err := crs.Lookup(c.CRS.TargetEPSG)
	if err != nil {
		return enrich.Options{}, eris.Wrap(err, "target crs")
	}
	policy, err := enrich.ParseInvalidPolicy(c.Features.OnInvalid)
	if err != nil {
		return enrich.Options{}, err
	}
	return enrich.Options{
		Target:       target,
		Bands:        bandSpecs(c.Features.Bands),
		QuadSegments: c.Features.QuadSegments,
		Concurrent:   c.Features.Concurrent,
		OnInvalid:    policy,
	}, nil
}

// outputPath names an output file in the configured directory.
func outputPath(dir, base, ext string) string {
	return filepath.Join(dir, base+"."+ext)
}
