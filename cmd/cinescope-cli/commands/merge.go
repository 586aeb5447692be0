package commands

import (
	"fmt"

	"cinescope-backend/lib/serviceutil"
	"cinescope-backend/lib/sqliteutil"
	"cinescope-backend/services/pricestore"
	"cinescope-backend/services/pricestore/db"

	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

var (
	mergeInto *string
	mergeFrom *string
)

func init() {
	mergeInto = mergeCmd.Flags().String("into", "cinescope.db", "The database to merge into.")
	mergeFrom = mergeCmd.Flags().String("from", "", "The database to import records from.")
	mergeCmd.MarkFlagRequired("from")
	rootCmd.AddCommand(mergeCmd)
}

var mergeCmd = &cobra.Command{
	Use:   "merge --from <path/to/source.db> [--into <path/to/target.db>]",
	Short: "Merges an independently produced database into another by natural key.",
	Run: func(cmd *cobra.Command, args []string) {
		target := openStore(*mergeInto, pricestore.AlertThresholds{})

		source, err := sqliteutil.OpenDB(db.Schema, *mergeFrom)
		if err != nil {
			serviceutil.Fatal("failed to open source db", err)
		}
		defer source.Close()

		stats, err := target.Merge(cmd.Context(), source)
		if err != nil {
			serviceutil.Fatal("merge failed", err)
		}

		fmt.Printf("theaters added: %d\n", stats.TheatersAdded)
		fmt.Printf("showings added: %d (matched %d by natural key)\n", stats.ShowingsAdded, stats.ShowingsMatched)
		fmt.Printf("runs copied: %d\n", stats.RunsCopied)
		fmt.Printf("quotes copied: %d\n", stats.QuotesCopied)
	},
}
