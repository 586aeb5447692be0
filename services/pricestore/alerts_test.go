package pricestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

func TestAlertThresholds(t *testing.T) {
	for _, tt := range []struct {
		name       string
		thresholds AlertThresholds
		oldCents   int64
		newCents   int64
		want       bool
	}{
		{"percent clears", AlertThresholds{MinPercent: 10}, 1200, 1450, true},
		{"percent too small", AlertThresholds{MinPercent: 10}, 1200, 1250, false},
		{"absolute clears", AlertThresholds{MinAbsoluteCents: 100}, 1200, 1310, true},
		{"absolute too small", AlertThresholds{MinAbsoluteCents: 100}, 1200, 1250, false},
		{"either criterion suffices", AlertThresholds{MinPercent: 10, MinAbsoluteCents: 100}, 1200, 1310, true},
		{"both disabled", AlertThresholds{}, 1200, 9999, false},
		{"decrease counts", AlertThresholds{MinPercent: 10}, 1450, 1200, true},
	} {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, tt.thresholds.significant(tt.oldCents, tt.newCents))
		})
	}
}

func TestPriceAlerts(t *testing.T) {
	store, cleanup := setupStore(t, AlertThresholds{MinPercent: 10})
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	theaterID, err := store.UpsertTheater(ctx, Theater{
		Tenant: "amc",
		Name:   "AMC Majestic Oaks 14",
	})
	require.NoError(t, err)

	showingA := testShowing(theaterID)
	showingB := testShowing(theaterID)
	showingB.FilmTitle = "Oppenheimer"

	run1, err := store.BeginRun(ctx, "scheduled")
	require.NoError(t, err)

	{
		// first sighting of every ticket type is a new_offering alert
		stats, err := store.RecordShowingQuotes(ctx, run1, showingA, []Quote{
			{TicketType: "adult", PriceCents: 1200},
			{TicketType: "child", PriceCents: 900},
		})
		require.NoError(t, err)
		require.Equal(t, 2, stats.AlertsEmitted)

		_, err = store.RecordShowingQuotes(ctx, run1, showingB, []Quote{
			{TicketType: "adult", PriceCents: 1500},
		})
		require.NoError(t, err)
	}

	err = store.FinishRun(ctx, run1, RunCompleted, 3, "")
	require.NoError(t, err)

	run2, err := store.BeginRun(ctx, "scheduled")
	require.NoError(t, err)

	{
		// $12.00 -> $14.50 at a 10% threshold fires one increase alert
		stats, err := store.RecordShowingQuotes(ctx, run2, showingA, []Quote{
			{TicketType: "adult", PriceCents: 1450},
		})
		require.NoError(t, err)
		require.Equal(t, 1, stats.AlertsEmitted)

		alerts, err := store.ListAlertsSince(ctx, 0)
		require.NoError(t, err)

		var increases int
		for _, a := range alerts {
			if a.AlertType != string(AlertIncrease) {
				continue
			}
			increases++
			require.Equal(t, int64(1200), a.OldPriceCents.Int64)
			require.Equal(t, int64(1450), a.NewPriceCents.Int64)
			require.InDelta(t, 20.83, a.ChangePercent, 0.01)
		}
		require.Equal(t, 1, increases)
	}
	{
		// the child type vanished from showing A while showing B was
		// skipped entirely, only the former is discontinued
		emitted, err := store.DetectDiscontinued(ctx, run2)
		require.NoError(t, err)
		require.Equal(t, 1, emitted)

		alerts, err := store.ListAlertsSince(ctx, 0)
		require.NoError(t, err)

		var discontinued int
		for _, a := range alerts {
			if a.AlertType == string(AlertDiscontinued) {
				discontinued++
				require.Equal(t, "child", a.TicketType)
			}
		}
		require.Equal(t, 1, discontinued)
	}

	err = store.FinishRun(ctx, run2, RunCompleted, 1, "")
	require.NoError(t, err)

	run3, err := store.BeginRun(ctx, "scheduled")
	require.NoError(t, err)

	{
		// a sub-threshold wiggle stays quiet
		stats, err := store.RecordShowingQuotes(ctx, run3, showingA, []Quote{
			{TicketType: "adult", PriceCents: 1475},
		})
		require.NoError(t, err)
		require.Equal(t, 0, stats.AlertsEmitted)
	}
	{
		// an unchanged price never alerts regardless of thresholds
		stats, err := store.RecordShowingQuotes(ctx, run3, showingB, []Quote{
			{TicketType: "adult", PriceCents: 1500},
		})
		require.NoError(t, err)
		require.Equal(t, 0, stats.AlertsEmitted)
	}
}
