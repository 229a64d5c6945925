package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geoenrich/internal/crs"
	"github.com/sells-group/geoenrich/internal/dataset"
)

var reprojectCmd = &cobra.Command{
	Use:   "reproject <in.shp> <out.shp>",
	Short: "Reproject a shapefile between supported EPSG codes",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		fromCode, _ := cmd.Flags().GetInt("from")
		toCode, _ := cmd.Flags().GetInt("to")

		from, err := crs.Lookup(fromCode)
		if err != nil {
			return eris.Wrap(err, "reproject: --from")
		}
		to, err := crs.Lookup(toCode)
		if err != nil {
			return eris.Wrap(err, "reproject: --to")
		}

		layer, err := dataset.ReadLayer(args[0], "", from)
		if err != nil {
			return err
		}
		out, err := layer.Reproject(to)
		if err != nil {
			return eris.Wrap(err, "reproject")
		}
		if err := dataset.WriteLayer(args[1], out); err != nil {
			return err
		}

		zap.L().Info("layer reprojected",
			zap.String("in", args[0]),
			zap.String("out", args[1]),
			zap.Int("from", fromCode),
			zap.Int("to", toCode),
			zap.Int("features", out.Len()),
		)
		return nil
	},
}

func init() {
	reprojectCmd.Flags().Int("from", 4326, "EPSG code of the input layer")
	reprojectCmd.Flags().Int("to", 2226, "EPSG code to write")
	rootCmd.AddCommand(reprojectCmd)
}
