package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/geoenrich/internal/crs"
)

var crsCmd = &cobra.Command{
	Use:   "crs",
	Short: "List the supported coordinate reference systems",
	RunE: func(_ *cobra.Command, _ []string) error {
		return formatCRSList(os.Stdout)
	},
}

// formatCRSList writes every registered EPSG code with its name and unit.
func formatCRSList(out io.Writer) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "EPSG\tNAME\tUNIT\tPROJECTED")
	for _, code := range crs.Codes() {
		p, err := crs.Lookup(code)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%d\t%s\t%s\t%t\n", p.Code(), p.Name(), p.Unit(), !p.Geographic())
	}
	return w.Flush()
}

func init() {
	rootCmd.AddCommand(crsCmd)
}
