package commands

import (
	"fmt"
	"os"

	"cinescope-backend/lib/serviceutil"
	"cinescope-backend/services/pricestore"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

var (
	reviewDb       *string
	ticketsResolve *string
	theaterResolve *string
)

func init() {
	reviewDb = reviewCmd.PersistentFlags().String("db", "cinescope.db", "The database to read from.")
	ticketsResolve = reviewTicketsCmd.Flags().String("resolve", "", "Remove this raw ticket text from the queue.")
	theaterResolve = reviewTheatersCmd.Flags().String("resolve", "", "Remove this scraped theater name from the queue.")
	reviewCmd.AddCommand(reviewTicketsCmd)
	reviewCmd.AddCommand(reviewTheatersCmd)
	rootCmd.AddCommand(reviewCmd)
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Inspects and resolves entries queued for manual review.",
}

var reviewTicketsCmd = &cobra.Command{
	Use:   "tickets [--resolve <raw text>]",
	Short: "Prints ticket descriptions the classifier could not match.",
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore(*reviewDb, pricestore.AlertThresholds{})

		if *ticketsResolve != "" {
			err := store.ResolveUnmatchedTicketType(cmd.Context(), *ticketsResolve)
			if err != nil {
				serviceutil.Fatal("failed to resolve queue entry", err)
			}
			fmt.Printf("resolved %q\n", *ticketsResolve)
			return
		}

		rows, err := store.ListUnmatchedTicketTypes(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list unmatched ticket types", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Raw Text", "Theater", "Film", "Showtime", "Seen", "Last Seen"})
		for _, row := range rows {
			t.AppendRow(table.Row{
				row.RawText,
				row.TheaterName,
				row.FilmTitle,
				row.Showtime,
				row.Occurrences,
				formatUnix(row.LastSeen),
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}

var reviewTheatersCmd = &cobra.Command{
	Use:   "theaters [--resolve <scraped name>]",
	Short: "Prints theater names that could not be confidently matched.",
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore(*reviewDb, pricestore.AlertThresholds{})

		if *theaterResolve != "" {
			err := store.ResolveUnmatchedTheater(cmd.Context(), *theaterResolve)
			if err != nil {
				serviceutil.Fatal("failed to resolve queue entry", err)
			}
			fmt.Printf("resolved %q\n", *theaterResolve)
			return
		}

		rows, err := store.ListUnmatchedTheaters(cmd.Context())
		if err != nil {
			serviceutil.Fatal("failed to list unmatched theaters", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Scraped Name", "Best Candidate", "Similarity", "Runner Up", "Runner Up Similarity", "Seen"})
		for _, row := range rows {
			t.AppendRow(table.Row{
				row.ScrapedName,
				row.BestCandidate,
				fmt.Sprintf("%.3f", row.Similarity),
				row.RunnerUp,
				fmt.Sprintf("%.3f", row.RunnerUpSimilarity),
				row.Occurrences,
			})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
