package commands

import (
	"os"
	"time"

	"cinescope-backend/lib/serviceutil"
	"cinescope-backend/lib/timezone"
	"cinescope-backend/services/pricestore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

var (
	runsDb    *string
	runsLimit *int64
)

func init() {
	runsDb = runsCmd.Flags().String("db", "cinescope.db", "The database to read from.")
	runsLimit = runsCmd.Flags().Int64("limit", 20, "Maximum number of runs to show.")
	rootCmd.AddCommand(runsCmd)
}

func formatUnix(ts int64) string {
	return time.Unix(ts, 0).In(timezone.Location).Format("2006-01-02 3:04 PM")
}

var runsCmd = &cobra.Command{
	Use:   "runs [--db <path/to/db>] [--limit <n>]",
	Short: "Prints recent scrape runs.",
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore(*runsDb, pricestore.AlertThresholds{})

		runs, err := store.ListRuns(cmd.Context(), *runsLimit)
		if err != nil {
			serviceutil.Fatal("failed to list runs", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"ID", "Started", "Finished", "Mode", "Status", "Records", "Error"})

		for _, r := range runs {
			finished := ""
			if r.FinishedAt.Valid {
				finished = formatUnix(r.FinishedAt.Int64)
			}
			t.AppendRow(table.Row{
				r.ID,
				formatUnix(r.StartedAt),
				finished,
				r.Mode,
				r.Status,
				r.RecordsScraped,
				r.ErrorMessage,
			})
		}

		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
