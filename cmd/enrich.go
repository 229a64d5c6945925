package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoenrich/internal/dataset"
	"github.com/sells-group/geoenrich/internal/enrich"
	"github.com/sells-group/geoenrich/internal/store"
)

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Enrich sales with administrative, distance, and proximity features",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		applyEnrichFlags(cmd)
		if err := cfg.Validate("enrich"); err != nil {
			return err
		}
		log := zap.L().With(zap.String("component", "cmd.enrich"))

		opts, err := pipelineOptions(cfg)
		if err != nil {
			return err
		}
		p, err := enrich.New(opts)
		if err != nil {
			return err
		}

		m, err := dataset.LoadManifest(cfg.Manifest)
		if err != nil {
			return err
		}
		in, err := newLoader(cfg).Inputs(ctx, m)
		if err != nil {
			return err
		}

		res, err := p.Run(ctx, in)
		if err != nil {
			return eris.Wrap(err, "enrich")
		}

		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return eris.Wrap(err, "enrich: create output dir")
		}
		tablePath := outputPath(cfg.Output.Dir, "enriched_sales", cfg.Output.Format)
		if err := dataset.WriteTable(tablePath, dataset.NewTable(res)); err != nil {
			return err
		}
		log.Info("table written", zap.String("path", tablePath), zap.Int("rows", len(res.Records)))

		if cfg.Output.Rings {
			ringsPath := outputPath(cfg.Output.Dir, "plant_rings", "shp")
			if err := dataset.WriteRings(ringsPath, res.Rings); err != nil {
				return err
			}
			log.Info("rings written", zap.String("path", ringsPath))
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		if st != nil {
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return err
			}
			run := store.NewRun(cfg.Manifest, res)
			if err := st.SaveRun(ctx, run, res.Records); err != nil {
				return err
			}
			log.Info("run stored", zap.String("run_id", run.ID))
		}

		formatReport(os.Stdout, res)
		return nil
	},
}

// applyEnrichFlags copies explicitly set flags over the loaded config.
func applyEnrichFlags(cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("manifest") {
		cfg.Manifest, _ = flags.GetString("manifest")
	}
	if flags.Changed("target-epsg") {
		cfg.CRS.TargetEPSG, _ = flags.GetInt("target-epsg")
	}
	if flags.Changed("on-invalid") {
		cfg.Features.OnInvalid, _ = flags.GetString("on-invalid")
	}
	if flags.Changed("sequential") {
		seq, _ := flags.GetBool("sequential")
		cfg.Features.Concurrent = !seq
	}
	if flags.Changed("out") {
		cfg.Output.Dir, _ = flags.GetString("out")
	}
	if flags.Changed("format") {
		cfg.Output.Format, _ = flags.GetString("format")
	}
	if flags.Changed("rings") {
		cfg.Output.Rings, _ = flags.GetBool("rings")
	}
}

// formatReport writes a run summary to w.
func formatReport(out io.Writer, res *enrich.Result) {
	rep := res.Report
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Target CRS:\tEPSG:%d %s\n", res.CRS.Code(), res.CRS.Name())
	_, _ = fmt.Fprintf(w, "Input records:\t%d\n", rep.Input)
	_, _ = fmt.Fprintf(w, "Enriched:\t%d\n", rep.Enriched)
	_, _ = fmt.Fprintf(w, "Skipped:\t%d\n", len(rep.Skipped))
	for _, layer := range slices.Sorted(maps.Keys(rep.Unmatched)) {
		_, _ = fmt.Fprintf(w, "Unmatched %s:\t%d\n", layer, rep.Unmatched[layer])
	}
	_, _ = fmt.Fprintf(w, "Ambiguous joins:\t%d\n", len(rep.Ambiguities))
	for i, b := range res.Bands {
		if i < len(rep.BandCounts) {
			_, _ = fmt.Fprintf(w, "Band %s:\t%d\n", b.Name, rep.BandCounts[i])
		}
	}
	_, _ = fmt.Fprintf(w, "Duration:\t%s\n", rep.Duration.Round(time.Millisecond))
	_ = w.Flush()
}

func init() {
	enrichCmd.Flags().String("manifest", "", "dataset manifest (overrides config)")
	enrichCmd.Flags().Int("target-epsg", 0, "projected EPSG code to normalize to (overrides config)")
	enrichCmd.Flags().String("on-invalid", "", "invalid coordinate policy: abort or skip")
	enrichCmd.Flags().Bool("sequential", false, "run distance and proximity stages one after another")
	enrichCmd.Flags().String("out", "", "output directory (overrides config)")
	enrichCmd.Flags().String("format", "", "table format: csv or xlsx")
	enrichCmd.Flags().Bool("rings", false, "also write the treatment-plant ring shapefile")
	rootCmd.AddCommand(enrichCmd)
}
