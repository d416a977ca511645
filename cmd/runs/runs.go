// Package runs provides the runs command
package runs

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/roboweedmaps/rwm-dataset/internal/conf"
	"github.com/roboweedmaps/rwm-dataset/internal/datastore"
)

// defaultLimit is how many runs are listed without --limit.
const defaultLimit = 20

// Command creates and returns the runs command
func Command(settings *conf.Settings) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List previous extraction runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !settings.History.Enabled {
				return fmt.Errorf("run history is disabled in configuration")
			}
			history, err := datastore.OpenHistory(settings.History.Path)
			if err != nil {
				return err
			}
			defer func() { _ = history.Close() }()

			records, err := history.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			return PrintRuns(cmd.OutOrStdout(), records)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", defaultLimit, "Maximum number of runs to list")

	return cmd
}

// PrintRuns writes run records as an aligned table.
func PrintRuns(w io.Writer, records []datastore.RunRecord) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tDURATION\tSTATUS\tFORMAT\tSEED\tIMAGES\tTRAIN/VAL/TEST\tSKIPPED\tERRORS\tOUTPUT")
	for i := range records {
		r := &records[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%d/%d/%d\t%d\t%d\t%s\n",
			shortID(r.ID),
			r.StartedAt.Local().Format(time.DateTime),
			durationLabel(r),
			r.Status,
			r.Format,
			r.Seed,
			humanize.Comma(int64(r.TotalImages)),
			r.TrainImages, r.ValImages, r.TestImages,
			r.SkippedImages,
			r.ErrorImages,
			r.OutputDir)
	}
	return tw.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func durationLabel(r *datastore.RunRecord) string {
	if r.FinishedAt == nil {
		return "-"
	}
	return r.Duration().Round(time.Second).String()
}
