package pricestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"cinescope-backend/services/pricestore/db"

	"go.opentelemetry.io/otel/codes"
)

type MergeStats struct {
	TheatersAdded   int
	ShowingsAdded   int
	ShowingsMatched int
	RunsCopied      int
	QuotesCopied    int
	AlertsCopied    int
}

// Merge imports every record from an independently produced source
// database into this store.
//
// Surrogate ids are meaningless across databases, two installs number
// their rows independently. So theaters match on (tenant, name), showings
// match on their natural key, and scrape runs and price quotes are copied
// with their foreign keys remapped into this database's id space. Showings
// already present are matched, never duplicated, and importing the same
// source twice copies nothing the second time.
func (s Store) Merge(ctx context.Context, source *sql.DB) (MergeStats, error) {
	ctx, span := tracer.Start(ctx, "Merge")
	defer span.End()

	var stats MergeStats
	srcQry := db.New(source)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	// theaters: (tenant, name) is canonical identity
	theaterIDs := make(map[int64]int64)
	srcTheaters, err := srcQry.ListAllTheaters(ctx)
	if err != nil {
		return stats, fmt.Errorf("read source theaters: %w", err)
	}
	for _, t := range srcTheaters {
		_, err := txqry.GetTheater(ctx, db.GetTheaterParams{Tenant: t.Tenant, Name: t.Name})
		if errors.Is(err, sql.ErrNoRows) {
			stats.TheatersAdded++
		} else if err != nil {
			return stats, err
		}

		dstID, err := txqry.UpsertTheater(ctx, db.UpsertTheaterParams{
			Tenant:    t.Tenant,
			Name:      t.Name,
			SourceUrl: t.SourceUrl,
			Market:    t.Market,
			Region:    t.Region,
		})
		if err != nil {
			return stats, err
		}
		theaterIDs[t.ID] = dstID
	}

	// showings: match by natural key, insert the rest
	showingIDs := make(map[int64]int64)
	srcShowings, err := srcQry.ListAllShowings(ctx)
	if err != nil {
		return stats, fmt.Errorf("read source showings: %w", err)
	}
	for _, sh := range srcShowings {
		dstTheaterID, ok := theaterIDs[sh.TheaterID]
		if !ok {
			return stats, fmt.Errorf("source showing %d references unknown theater %d", sh.ID, sh.TheaterID)
		}

		dstID, created, err := upsertShowing(ctx, txqry, ShowingRecord{
			TheaterID: dstTheaterID,
			FilmTitle: sh.FilmTitle,
			PlayDate:  sh.PlayDate,
			Showtime:  sh.Showtime,
			Format:    sh.Format,
			Daypart:   sh.Daypart,
			IsPLF:     sh.IsPlf != 0,
			DetailURL: sh.DetailUrl,
		})
		if err != nil {
			return stats, err
		}
		if created {
			stats.ShowingsAdded++
		} else {
			stats.ShowingsMatched++
		}
		showingIDs[sh.ID] = dstID
	}

	// scrape runs: copied into fresh ids, a run identical to one already
	// here (a repeated import) is reused instead
	runIDs := make(map[int64]int64)
	srcRuns, err := srcQry.ListAllScrapeRuns(ctx)
	if err != nil {
		return stats, fmt.Errorf("read source runs: %w", err)
	}
	for _, r := range srcRuns {
		row := db.InsertScrapeRunRowParams{
			StartedAt:      r.StartedAt,
			FinishedAt:     r.FinishedAt,
			Mode:           r.Mode,
			Status:         r.Status,
			RecordsScraped: r.RecordsScraped,
			ErrorMessage:   r.ErrorMessage,
		}
		dstID, err := txqry.FindScrapeRunRow(ctx, row)
		if errors.Is(err, sql.ErrNoRows) {
			dstID, err = txqry.InsertScrapeRunRow(ctx, row)
			if err != nil {
				return stats, err
			}
			stats.RunsCopied++
		} else if err != nil {
			return stats, err
		}
		runIDs[r.ID] = dstID
	}

	// price quotes: append-only history, foreign keys remapped
	srcQuotes, err := srcQry.ListAllQuotes(ctx)
	if err != nil {
		return stats, fmt.Errorf("read source quotes: %w", err)
	}
	for _, p := range srcQuotes {
		dstShowingID, ok := showingIDs[p.ShowingID]
		if !ok {
			return stats, fmt.Errorf("source quote %d references unknown showing %d", p.ID, p.ShowingID)
		}
		dstRunID, ok := runIDs[p.RunID]
		if !ok {
			return stats, fmt.Errorf("source quote %d references unknown run %d", p.ID, p.RunID)
		}

		// re-importing the same backup must not inflate price history
		exists, err := txqry.QuoteExists(ctx, db.QuoteExistsParams{
			RunID:      dstRunID,
			ShowingID:  dstShowingID,
			TicketType: p.TicketType,
			ScrapedAt:  p.ScrapedAt,
			PriceCents: p.PriceCents,
			Capacity:   p.Capacity,
		})
		if err != nil {
			return stats, err
		}
		if exists {
			continue
		}

		_, err = txqry.InsertPriceQuote(ctx, db.InsertPriceQuoteParams{
			ShowingID:  dstShowingID,
			RunID:      dstRunID,
			TicketType: p.TicketType,
			Amenities:  p.Amenities,
			PriceCents: p.PriceCents,
			Capacity:   p.Capacity,
			ScrapedAt:  p.ScrapedAt,
		})
		if err != nil {
			return stats, err
		}
		stats.QuotesCopied++
	}

	// alerts are derived data but cheap to carry over
	srcAlerts, err := srcQry.ListAllAlerts(ctx)
	if err != nil {
		return stats, fmt.Errorf("read source alerts: %w", err)
	}
	for _, a := range srcAlerts {
		dstShowingID, ok := showingIDs[a.ShowingID]
		if !ok {
			continue
		}
		exists, err := txqry.AlertExists(ctx, db.AlertExistsParams{
			ShowingID:     dstShowingID,
			TicketType:    a.TicketType,
			AlertType:     a.AlertType,
			OldPriceCents: a.OldPriceCents,
			NewPriceCents: a.NewPriceCents,
			CreatedAt:     a.CreatedAt,
		})
		if err != nil {
			return stats, err
		}
		if exists {
			continue
		}
		err = txqry.InsertPriceAlert(ctx, db.InsertPriceAlertParams{
			ShowingID:     dstShowingID,
			TicketType:    a.TicketType,
			OldPriceCents: a.OldPriceCents,
			NewPriceCents: a.NewPriceCents,
			ChangePercent: a.ChangePercent,
			AlertType:     a.AlertType,
			CreatedAt:     a.CreatedAt,
		})
		if err != nil {
			return stats, err
		}
		stats.AlertsCopied++
	}

	// review queues merge by summing occurrence counts
	srcUnmatchedTickets, err := srcQry.ListUnmatchedTicketTypes(ctx)
	if err != nil {
		return stats, fmt.Errorf("read source unmatched ticket types: %w", err)
	}
	for _, u := range srcUnmatchedTickets {
		err := txqry.UpsertUnmatchedTicketType(ctx, db.UpsertUnmatchedTicketTypeParams{
			RawText:     u.RawText,
			TheaterName: u.TheaterName,
			FilmTitle:   u.FilmTitle,
			Showtime:    u.Showtime,
			FirstSeen:   u.FirstSeen,
			LastSeen:    u.LastSeen,
			Occurrences: u.Occurrences,
		})
		if err != nil {
			return stats, err
		}
	}
	srcUnmatchedTheaters, err := srcQry.ListUnmatchedTheaters(ctx)
	if err != nil {
		return stats, fmt.Errorf("read source unmatched theaters: %w", err)
	}
	for _, u := range srcUnmatchedTheaters {
		err := txqry.UpsertUnmatchedTheater(ctx, db.UpsertUnmatchedTheaterParams{
			ScrapedName:        u.ScrapedName,
			BestCandidate:      u.BestCandidate,
			Similarity:         u.Similarity,
			RunnerUp:           u.RunnerUp,
			RunnerUpSimilarity: u.RunnerUpSimilarity,
			FirstSeen:          u.FirstSeen,
			LastSeen:           u.LastSeen,
			Occurrences:        u.Occurrences,
		})
		if err != nil {
			return stats, err
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}

	slog.InfoContext(ctx, "merge complete",
		"theaters_added", stats.TheatersAdded,
		"showings_added", stats.ShowingsAdded,
		"showings_matched", stats.ShowingsMatched,
		"runs_copied", stats.RunsCopied,
		"quotes_copied", stats.QuotesCopied,
	)
	return stats, nil
}
