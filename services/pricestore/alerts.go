package pricestore

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"math"

	"cinescope-backend/lib/timezone"
	"cinescope-backend/services/pricestore/db"
)

type AlertType string

const (
	AlertIncrease     AlertType = "increase"
	AlertDecrease     AlertType = "decrease"
	AlertNewOffering  AlertType = "new_offering"
	AlertDiscontinued AlertType = "discontinued"
)

// AlertThresholds decide what counts as a "significant" price change. The
// source material doesn't pin this down, so it is configuration: an alert
// fires when either enabled criterion clears. A zero value disables that
// criterion.
type AlertThresholds struct {
	MinPercent       float64 `json:"min_percent"`
	MinAbsoluteCents int64   `json:"min_absolute_cents"`
}

func (t AlertThresholds) significant(oldCents, newCents int64) bool {
	delta := math.Abs(float64(newCents - oldCents))
	if t.MinAbsoluteCents > 0 && delta >= float64(t.MinAbsoluteCents) {
		return true
	}
	if t.MinPercent > 0 && oldCents > 0 {
		pct := delta / float64(oldCents) * 100
		if pct >= t.MinPercent {
			return true
		}
	}
	return false
}

// evaluateAlert compares the just-inserted quote against the immediately
// preceding quote for the same (showing, ticket type). No prior quote means
// a new offering, not a price delta.
func (s Store) evaluateAlert(ctx context.Context, qry *db.Queries, showingID int64, ticketType string, newCents, quoteID, now int64) (bool, error) {
	prev, err := qry.LatestQuoteBefore(ctx, db.LatestQuoteBeforeParams{
		ShowingID:  showingID,
		TicketType: ticketType,
		ExcludeID:  quoteID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		err := qry.InsertPriceAlert(ctx, db.InsertPriceAlertParams{
			ShowingID:     showingID,
			TicketType:    ticketType,
			NewPriceCents: sql.NullInt64{Int64: newCents, Valid: true},
			AlertType:     string(AlertNewOffering),
			CreatedAt:     now,
		})
		if err != nil {
			return false, err
		}
		return true, nil
	}
	if err != nil {
		return false, err
	}

	if prev.PriceCents == newCents || !s.thresholds.significant(prev.PriceCents, newCents) {
		return false, nil
	}

	alertType := AlertIncrease
	if newCents < prev.PriceCents {
		alertType = AlertDecrease
	}
	changePercent := 0.0
	if prev.PriceCents > 0 {
		changePercent = float64(newCents-prev.PriceCents) / float64(prev.PriceCents) * 100
	}

	slog.InfoContext(ctx, "price alert",
		"showing_id", showingID,
		"ticket_type", ticketType,
		"type", alertType,
		"old_cents", prev.PriceCents,
		"new_cents", newCents,
		"change_percent", changePercent,
	)

	err = qry.InsertPriceAlert(ctx, db.InsertPriceAlertParams{
		ShowingID:     showingID,
		TicketType:    ticketType,
		OldPriceCents: sql.NullInt64{Int64: prev.PriceCents, Valid: true},
		NewPriceCents: sql.NullInt64{Int64: newCents, Valid: true},
		ChangePercent: changePercent,
		AlertType:     string(alertType),
		CreatedAt:     now,
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// DetectDiscontinued emits discontinued alerts for ticket types that were
// quoted for a showing in the previous run but are absent from this one.
// Only showings the current run actually touched are considered, a theater
// that was skipped this run must not spray alerts.
func (s Store) DetectDiscontinued(ctx context.Context, runID int64) (int, error) {
	prevRunID, err := s.qry.PreviousRunID(ctx, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	current, err := s.qry.QuotedTypesForRun(ctx, runID)
	if err != nil {
		return 0, err
	}
	previous, err := s.qry.QuotedTypesForRun(ctx, prevRunID)
	if err != nil {
		return 0, err
	}

	currentShowings := make(map[int64]struct{})
	currentTypes := make(map[db.QuotedType]struct{})
	for _, qt := range current {
		currentShowings[qt.ShowingID] = struct{}{}
		currentTypes[qt] = struct{}{}
	}

	now := timezone.Now().Unix()
	var emitted int
	for _, qt := range previous {
		if _, scraped := currentShowings[qt.ShowingID]; !scraped {
			continue
		}
		if _, stillQuoted := currentTypes[qt]; stillQuoted {
			continue
		}

		err := s.qry.InsertPriceAlert(ctx, db.InsertPriceAlertParams{
			ShowingID:  qt.ShowingID,
			TicketType: qt.TicketType,
			AlertType:  string(AlertDiscontinued),
			CreatedAt:  now,
		})
		if err != nil {
			return emitted, err
		}
		emitted++
	}
	return emitted, nil
}
