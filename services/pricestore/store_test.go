package pricestore

import (
	"context"
	"testing"
	"time"

	"cinescope-backend/lib/testutil"
	"cinescope-backend/services/pricestore/db"

	"github.com/mazen160/go-random"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func setupStore(t *testing.T, thresholds AlertThresholds) (Store, func()) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/pricestore",
		DbSchema: db.Schema,
	})
	return NewStore(setup.DB, thresholds), cleanup
}

func testShowing(theaterID int64) ShowingRecord {
	return ShowingRecord{
		TheaterID: theaterID,
		FilmTitle: "Dune: Part Two",
		PlayDate:  "2026-08-25",
		Showtime:  "7:00 PM",
		Format:    "IMAX",
		Daypart:   "evening",
		IsPLF:     true,
		DetailURL: "https://example.com/showing/1",
	}
}

func TestStore(t *testing.T) {
	store, cleanup := setupStore(t, AlertThresholds{MinPercent: 10})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	theaterID, err := store.UpsertTheater(ctx, Theater{
		Tenant:    "amc",
		Name:      "AMC Majestic Oaks 14",
		SourceURL: "https://example.com/theaters/majestic-oaks",
		Market:    "austin",
		Region:    "tx",
	})
	require.NoError(t, err)

	{
		// upserting the same (tenant, name) must reuse the row
		again, err := store.UpsertTheater(ctx, Theater{
			Tenant:    "amc",
			Name:      "AMC Majestic Oaks 14",
			SourceURL: "https://example.com/theaters/majestic-oaks-v2",
		})
		require.NoError(t, err)
		require.Equal(t, theaterID, again)

		theaters, err := store.ListTheaters(ctx, "amc")
		require.NoError(t, err)
		require.Len(t, theaters, 1)
		require.Equal(t, "https://example.com/theaters/majestic-oaks-v2", theaters[0].SourceURL)
	}

	runID, err := store.BeginRun(ctx, "scheduled")
	require.NoError(t, err)

	quotes := []Quote{
		{TicketType: "adult", PriceCents: 1200},
		{TicketType: "child", Amenities: []string{"recliner"}, PriceCents: 900},
	}

	{
		stats, err := store.RecordShowingQuotes(ctx, runID, testShowing(theaterID), quotes)
		require.NoError(t, err)
		require.True(t, stats.ShowingCreated)
		require.Equal(t, 2, stats.QuotesInserted)

		count, err := store.CountShowings(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)
	}
	{
		// scraping the same listing again: same showing row, one new
		// quote per ticket type, no duplicates of the natural key
		stats, err := store.RecordShowingQuotes(ctx, runID, testShowing(theaterID), quotes)
		require.NoError(t, err)
		require.False(t, stats.ShowingCreated)
		require.Equal(t, 2, stats.QuotesInserted)

		count, err := store.CountShowings(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(1), count)

		history, err := store.PriceHistory(ctx, stats.ShowingID, "adult")
		require.NoError(t, err)
		require.Len(t, history, 2)
	}
	{
		// same film and time in a different format is a distinct showing
		rec := testShowing(theaterID)
		rec.Format = "Digital"
		rec.IsPLF = false
		stats, err := store.RecordShowingQuotes(ctx, runID, rec, quotes[:1])
		require.NoError(t, err)
		require.True(t, stats.ShowingCreated)

		count, err := store.CountShowings(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(2), count)
	}

	err = store.FinishRun(ctx, runID, RunCompleted, 3, "")
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, string(RunCompleted), runs[0].Status)
	require.Equal(t, int64(3), runs[0].RecordsScraped)
	require.True(t, runs[0].FinishedAt.Valid)
}

func TestUnmatchedQueues(t *testing.T) {
	store, cleanup := setupStore(t, AlertThresholds{})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	raw, err := random.String(12)
	require.NoError(t, err)

	{
		err := store.QueueUnmatchedTicketType(ctx, raw, "AMC Majestic Oaks 14", "Dune: Part Two", "7:00 PM")
		require.NoError(t, err)
		err = store.QueueUnmatchedTicketType(ctx, raw, "AMC Majestic Oaks 14", "Dune: Part Two", "9:45 PM")
		require.NoError(t, err)

		rows, err := store.ListUnmatchedTicketTypes(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, raw, rows[0].RawText)
		require.Equal(t, int64(2), rows[0].Occurrences)
		// the row reflects the most recent sighting
		require.Equal(t, "9:45 PM", rows[0].Showtime)

		err = store.ResolveUnmatchedTicketType(ctx, raw)
		require.NoError(t, err)
		rows, err = store.ListUnmatchedTicketTypes(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 0)
	}
	{
		err := store.QueueUnmatchedTheater(ctx, "Majestik Oaks Cinema", "AMC Majestic Oaks 14", 0.71, "AMC Oak Hill 12", 0.55)
		require.NoError(t, err)
		err = store.QueueUnmatchedTheater(ctx, "Majestik Oaks Cinema", "AMC Majestic Oaks 14", 0.74, "AMC Oak Hill 12", 0.52)
		require.NoError(t, err)

		rows, err := store.ListUnmatchedTheaters(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		require.Equal(t, int64(2), rows[0].Occurrences)
		require.Equal(t, 0.74, rows[0].Similarity)

		err = store.ResolveUnmatchedTheater(ctx, "Majestik Oaks Cinema")
		require.NoError(t, err)
		rows, err = store.ListUnmatchedTheaters(ctx)
		require.NoError(t, err)
		require.Len(t, rows, 0)
	}
}
