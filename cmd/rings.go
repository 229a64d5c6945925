package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoenrich/internal/dataset"
	"github.com/sells-group/geoenrich/internal/enrich"
	"github.com/sells-group/geoenrich/internal/spatial"
)

var ringsCmd = &cobra.Command{
	Use:   "rings",
	Short: "Write the treatment-plant proximity rings as a shapefile",
	Long:  "Reprojects the manifest's treatment plants to the target CRS and writes one ring polygon per configured band.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		applyEnrichFlags(cmd)
		if err := cfg.Validate("rings"); err != nil {
			return err
		}

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
		plants, err := newLoader(cfg).Layer(ctx, m, "treatment_plants", m.TreatmentPlants.Path, m.TreatmentPlants.EPSG)
		if err != nil {
			return err
		}
		normalized, err := spatial.Normalize(opts.Target, plants)
		if err != nil {
			return err
		}

		rings, err := spatial.BuildRings(normalized[0], p.Bands(), opts.QuadSegments)
		if err != nil {
			return eris.Wrap(err, "rings")
		}

		if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
			return eris.Wrap(err, "rings: create output dir")
		}
		path := outputPath(cfg.Output.Dir, "plant_rings", "shp")
		if err := dataset.WriteRings(path, rings); err != nil {
			return err
		}

		zap.L().Info("rings written",
			zap.String("path", path),
			zap.Int("bands", rings.Len()),
			zap.Int("plants", plants.Len()),
		)
		return nil
	},
}

func init() {
	ringsCmd.Flags().String("manifest", "", "dataset manifest (overrides config)")
	ringsCmd.Flags().Int("target-epsg", 0, "projected EPSG code to build rings in (overrides config)")
	ringsCmd.Flags().String("out", "", "output directory (overrides config)")
	rootCmd.AddCommand(ringsCmd)
}
