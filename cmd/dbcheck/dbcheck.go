// Package dbcheck provides the dbcheck command
package dbcheck

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roboweedmaps/rwm-dataset/internal/conf"
	"github.com/roboweedmaps/rwm-dataset/internal/datastore"
)

// Command creates and returns the dbcheck command
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "dbcheck",
		Short: "Check the annotation database structure without extracting",
		Long: `Dbcheck connects to the configured database and reports table sizes, the
UseForTraining distribution, box rows with missing coordinates, plants without an
EPPO code and a sample of the rows an extraction would read.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := datastore.Open(settings.Database)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			report, err := store.Inspect(cmd.Context())
			if err != nil {
				return err
			}
			return PrintReport(cmd.OutOrStdout(), report)
		},
	}
}

// PrintReport writes the structure check results as aligned text.
func PrintReport(w io.Writer, r *datastore.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	fmt.Fprintln(tw, "TABLE\tROWS")
	for _, t := range r.Tables {
		fmt.Fprintf(tw, "%s\t%s\n", t.Table, humanize.Comma(t.Rows))
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "USE_FOR_TRAINING\tANNOTATIONS")
	for _, f := range r.TrainingFlags {
		fmt.Fprintf(tw, "%s\t%s\n", flagLabel(f.UseForTraining), humanize.Comma(f.Count))
	}
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "training annotations\t%s\n", humanize.Comma(r.TrainingAnnotations))
	fmt.Fprintf(tw, "box rows missing a coordinate\t%s\n", humanize.Comma(r.MissingBoxRows))
	fmt.Fprintf(tw, "plants without EPPO code\t%s\n", humanize.Comma(r.PlantsWithoutEPPO))
	fmt.Fprintln(tw)

	fmt.Fprintf(tw, "SAMPLE (%d rows)\n", len(r.Sample))
	fmt.Fprintln(tw, "ID\tIMAGE\tUPLOAD\tFILE\tEPPO\tCOTYLEDON\tSIZE\tBOX")
	for i := range r.Sample {
		row := &r.Sample[i]
		fmt.Fprintf(tw, "%d\t%d\t%d\t%s\t%s\t%d\t%gx%g\t%s\n",
			row.ID, row.ImageID, row.UploadID, row.FileName, row.ClassCode,
			row.AuxDiscriminator, row.ImageWidth, row.ImageHeight, boxLabel(row.MinX, row.MinY, row.MaxX, row.MaxY))
	}
	return tw.Flush()
}

func flagLabel(v *bool) string {
	if v == nil {
		return "NULL"
	}
	return strconv.FormatBool(*v)
}

func boxLabel(coords ...*float64) string {
	parts := make([]string, len(coords))
	for i, c := range coords {
		if c == nil {
			parts[i] = "NULL"
			continue
		}
		parts[i] = strconv.FormatFloat(*c, 'g', -1, 64)
	}
	return strings.Join(parts, ",")
}
