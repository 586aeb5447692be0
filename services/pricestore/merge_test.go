package pricestore

import (
	"context"
	"testing"
	"time"

	"cinescope-backend/lib/testutil"
	"cinescope-backend/services/pricestore/db"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestMerge(t *testing.T) {
	target, cleanupTarget := setupStore(t, AlertThresholds{})
	defer cleanupTarget()
	sourceSetup, cleanupSource := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/pricestore:merge-source",
		DbSchema: db.Schema,
	})
	defer cleanupSource()
	source := NewStore(sourceSetup.DB, AlertThresholds{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	seed := func(store Store, films []string) {
		theaterID, err := store.UpsertTheater(ctx, Theater{
			Tenant: "amc",
			Name:   "AMC Majestic Oaks 14",
		})
		require.NoError(t, err)

		runID, err := store.BeginRun(ctx, "manual")
		require.NoError(t, err)
		for _, film := range films {
			rec := testShowing(theaterID)
			rec.FilmTitle = film
			_, err := store.RecordShowingQuotes(ctx, runID, rec, []Quote{
				{TicketType: "adult", PriceCents: 1200},
			})
			require.NoError(t, err)
		}
		err = store.FinishRun(ctx, runID, RunCompleted, int64(len(films)), "")
		require.NoError(t, err)
	}

	// three showings overlap, two exist only in the source
	seed(target, []string{"Dune: Part Two", "Oppenheimer", "Barbie"})
	seed(source, []string{"Dune: Part Two", "Oppenheimer", "Barbie", "Tenet", "Interstellar"})

	err := source.QueueUnmatchedTicketType(ctx, "Groupon Voucher", "AMC Majestic Oaks 14", "Tenet", "7:00 PM")
	require.NoError(t, err)
	err = target.QueueUnmatchedTicketType(ctx, "Groupon Voucher", "AMC Majestic Oaks 14", "Barbie", "7:00 PM")
	require.NoError(t, err)

	stats, err := target.Merge(ctx, sourceSetup.DB)
	require.NoError(t, err)

	require.Equal(t, 0, stats.TheatersAdded)
	require.Equal(t, 2, stats.ShowingsAdded)
	require.Equal(t, 3, stats.ShowingsMatched)
	require.Equal(t, 1, stats.RunsCopied)
	require.Equal(t, 5, stats.QuotesCopied)

	count, err := target.CountShowings(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), count)

	{
		// overlapping showings carry quote history from both databases
		theaters, err := target.ListTheaters(ctx, "amc")
		require.NoError(t, err)
		require.Len(t, theaters, 1)

		showings, err := target.ListShowings(ctx, theaters[0].ID, "2026-08-25")
		require.NoError(t, err)
		require.Len(t, showings, 5)
		for _, sh := range showings {
			history, err := target.PriceHistory(ctx, sh.ID, "adult")
			require.NoError(t, err)
			switch sh.FilmTitle {
			case "Tenet", "Interstellar":
				require.Len(t, history, 1, sh.FilmTitle)
			default:
				require.Len(t, history, 2, sh.FilmTitle)
			}
			for _, h := range history {
				require.Equal(t, int64(1200), h.PriceCents)
			}
		}
	}
	{
		// occurrence counts from the two review queues add up
		rows, err := target.ListUnmatchedTicketTypes(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, int64(2), rows[0].Occurrences)
	}
	{
		runs, err := target.ListRuns(ctx, 10)
		require.NoError(t, err)
		require.Len(t, runs, 2)
	}

	// importing the same source twice copies nothing the second time
	again, err := target.Merge(ctx, sourceSetup.DB)
	require.NoError(t, err)
	require.Equal(t, 0, again.ShowingsAdded)
	require.Equal(t, 5, again.ShowingsMatched)
	require.Equal(t, 0, again.RunsCopied)
	require.Equal(t, 0, again.QuotesCopied)
	require.Equal(t, 0, again.AlertsCopied)

	count, err = target.CountShowings(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(5), count)

	{
		// price history is unchanged by the repeated import
		theaters, err := target.ListTheaters(ctx, "amc")
		require.NoError(t, err)
		showings, err := target.ListShowings(ctx, theaters[0].ID, "2026-08-25")
		require.NoError(t, err)
		for _, sh := range showings {
			history, err := target.PriceHistory(ctx, sh.ID, "adult")
			require.NoError(t, err)
			switch sh.FilmTitle {
			case "Tenet", "Interstellar":
				require.Len(t, history, 1, sh.FilmTitle)
			default:
				require.Len(t, history, 2, sh.FilmTitle)
			}
		}
	}

	runs, err := target.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
}
