// Package pricestore persists the scrape pipeline's output: theaters,
// showings, price quotes, derived price alerts and the manual-review
// queues.
//
// Showings are deduplicated by their natural key (theater, film, play
// date, showtime, format). The key lives in a UNIQUE constraint so that
// concurrent writers cannot corrupt it, the store just treats the
// expected conflict as "already known".
package pricestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"cinescope-backend/lib/timezone"
	"cinescope-backend/services/pricestore/db"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/pricestore")

type RunStatus string

const (
	RunPending         RunStatus = "pending"
	RunRunning         RunStatus = "running"
	RunCompleted       RunStatus = "completed"
	RunPartiallyFailed RunStatus = "partially_failed"
	RunFailed          RunStatus = "failed"
)

type Store struct {
	db         *sql.DB
	qry        *db.Queries
	thresholds AlertThresholds
}

func NewStore(database *sql.DB, thresholds AlertThresholds) Store {
	return Store{
		db:         database,
		qry:        db.New(database),
		thresholds: thresholds,
	}
}

type Theater struct {
	ID        int64
	Tenant    string
	Name      string
	SourceURL string
	Market    string
	Region    string
}

func (s Store) UpsertTheater(ctx context.Context, t Theater) (int64, error) {
	return s.qry.UpsertTheater(ctx, db.UpsertTheaterParams{
		Tenant:    t.Tenant,
		Name:      t.Name,
		SourceUrl: t.SourceURL,
		Market:    t.Market,
		Region:    t.Region,
	})
}

func (s Store) ListTheaters(ctx context.Context, tenant string) ([]Theater, error) {
	rows, err := s.qry.ListTheaters(ctx, tenant)
	if err != nil {
		return nil, err
	}
	out := make([]Theater, len(rows))
	for i, r := range rows {
		out[i] = Theater{
			ID:        r.ID,
			Tenant:    r.Tenant,
			Name:      r.Name,
			SourceURL: r.SourceUrl,
			Market:    r.Market,
			Region:    r.Region,
		}
	}
	return out, nil
}

func (s Store) BeginRun(ctx context.Context, mode string) (int64, error) {
	return s.qry.CreateScrapeRun(ctx, db.CreateScrapeRunParams{
		StartedAt: timezone.Now().Unix(),
		Mode:      mode,
		Status:    string(RunRunning),
	})
}

func (s Store) FinishRun(ctx context.Context, runID int64, status RunStatus, recordsScraped int64, errMsg string) error {
	return s.qry.FinishScrapeRun(ctx, db.FinishScrapeRunParams{
		ID:             runID,
		FinishedAt:     timezone.Now().Unix(),
		Status:         string(status),
		RecordsScraped: recordsScraped,
		ErrorMessage:   errMsg,
	})
}

// ShowingRecord is a normalized showing ready for persistence, produced by
// the discoverer and keyed to a canonical theater.
type ShowingRecord struct {
	TheaterID int64
	FilmTitle string
	PlayDate  string
	Showtime  string
	Format    string
	Daypart   string
	IsPLF     bool
	DetailURL string
}

// Quote is one classified ticket price for a showing.
type Quote struct {
	TicketType string
	Amenities  []string
	PriceCents int64
	Capacity   string
}

type QuoteStats struct {
	ShowingID      int64
	ShowingCreated bool
	QuotesInserted int
	AlertsEmitted  int
}

// RecordShowingQuotes upserts the showing by natural key and appends one
// quote row per ticket type, evaluating a price alert for each. The whole
// write is one transaction so a half-written showing is never visible.
func (s Store) RecordShowingQuotes(ctx context.Context, runID int64, rec ShowingRecord, quotes []Quote) (QuoteStats, error) {
	ctx, span := tracer.Start(ctx, "RecordShowingQuotes")
	defer span.End()
	span.SetAttributes(
		attribute.String("film", rec.FilmTitle),
		attribute.String("showtime", rec.Showtime),
	)

	var stats QuoteStats

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}
	defer tx.Rollback()
	txqry := s.qry.WithTx(tx)

	showingID, created, err := upsertShowing(ctx, txqry, rec)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}
	stats.ShowingID = showingID
	stats.ShowingCreated = created

	now := timezone.Now().Unix()
	for _, quote := range quotes {
		if quote.PriceCents < 0 {
			return stats, fmt.Errorf("negative price for %q on showing %d", quote.TicketType, showingID)
		}

		quoteID, err := txqry.InsertPriceQuote(ctx, db.InsertPriceQuoteParams{
			ShowingID:  showingID,
			RunID:      runID,
			TicketType: quote.TicketType,
			Amenities:  strings.Join(quote.Amenities, ","),
			PriceCents: quote.PriceCents,
			Capacity:   quote.Capacity,
			ScrapedAt:  now,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return stats, err
		}
		stats.QuotesInserted++

		emitted, err := s.evaluateAlert(ctx, txqry, showingID, quote.TicketType, quote.PriceCents, quoteID, now)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return stats, err
		}
		if emitted {
			stats.AlertsEmitted++
		}
	}

	err = tx.Commit()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return stats, err
	}
	return stats, nil
}

func upsertShowing(ctx context.Context, qry *db.Queries, rec ShowingRecord) (id int64, created bool, err error) {
	isPlf := int64(0)
	if rec.IsPLF {
		isPlf = 1
	}

	id, err = qry.InsertShowing(ctx, db.InsertShowingParams{
		TheaterID: rec.TheaterID,
		FilmTitle: rec.FilmTitle,
		PlayDate:  rec.PlayDate,
		Showtime:  rec.Showtime,
		Format:    rec.Format,
		Daypart:   rec.Daypart,
		IsPlf:     isPlf,
		DetailUrl: rec.DetailURL,
	})
	if err == nil {
		return id, true, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, false, err
	}

	// natural-key conflict: the showing is already known
	id, err = qry.GetShowingID(ctx, db.GetShowingIDParams{
		TheaterID: rec.TheaterID,
		FilmTitle: rec.FilmTitle,
		PlayDate:  rec.PlayDate,
		Showtime:  rec.Showtime,
		Format:    rec.Format,
	})
	if err != nil {
		return 0, false, err
	}
	return id, false, nil
}

// QueueUnmatchedTicketType records a ticket description the classifier
// could not resolve. Repeat sightings bump the occurrence count instead of
// duplicating the entry.
func (s Store) QueueUnmatchedTicketType(ctx context.Context, rawText, theaterName, filmTitle, showtime string) error {
	now := timezone.Now().Unix()
	return s.qry.UpsertUnmatchedTicketType(ctx, db.UpsertUnmatchedTicketTypeParams{
		RawText:     rawText,
		TheaterName: theaterName,
		FilmTitle:   filmTitle,
		Showtime:    showtime,
		FirstSeen:   now,
		LastSeen:    now,
		Occurrences: 1,
	})
}

func (s Store) ListUnmatchedTicketTypes(ctx context.Context) ([]db.UnmatchedTicketType, error) {
	return s.qry.ListUnmatchedTicketTypes(ctx)
}

// ResolveUnmatchedTicketType removes a curated entry from the queue.
func (s Store) ResolveUnmatchedTicketType(ctx context.Context, rawText string) error {
	return s.qry.DeleteUnmatchedTicketType(ctx, rawText)
}

// QueueUnmatchedTheater records a scraped theater name the reconciler was
// not confident about, with enough candidate context for a human to
// resolve it.
func (s Store) QueueUnmatchedTheater(ctx context.Context, scrapedName, bestCandidate string, similarity float64, runnerUp string, runnerUpSimilarity float64) error {
	now := timezone.Now().Unix()
	return s.qry.UpsertUnmatchedTheater(ctx, db.UpsertUnmatchedTheaterParams{
		ScrapedName:        scrapedName,
		BestCandidate:      bestCandidate,
		Similarity:         similarity,
		RunnerUp:           runnerUp,
		RunnerUpSimilarity: runnerUpSimilarity,
		FirstSeen:          now,
		LastSeen:           now,
		Occurrences:        1,
	})
}

func (s Store) ListUnmatchedTheaters(ctx context.Context) ([]db.UnmatchedTheater, error) {
	return s.qry.ListUnmatchedTheaters(ctx)
}

func (s Store) ResolveUnmatchedTheater(ctx context.Context, scrapedName string) error {
	return s.qry.DeleteUnmatchedTheater(ctx, scrapedName)
}

func (s Store) ListShowings(ctx context.Context, theaterID int64, playDate string) ([]db.Showing, error) {
	return s.qry.ListShowings(ctx, db.ListShowingsParams{TheaterID: theaterID, PlayDate: playDate})
}

func (s Store) PriceHistory(ctx context.Context, showingID int64, ticketType string) ([]db.PriceQuote, error) {
	return s.qry.PriceHistory(ctx, db.PriceHistoryParams{ShowingID: showingID, TicketType: ticketType})
}

func (s Store) ListAlertsSince(ctx context.Context, since int64) ([]db.PriceAlert, error) {
	return s.qry.ListAlertsSince(ctx, since)
}

func (s Store) ListRuns(ctx context.Context, limit int64) ([]db.ScrapeRun, error) {
	return s.qry.ListScrapeRuns(ctx, limit)
}

func (s Store) CountShowings(ctx context.Context) (int64, error) {
	return s.qry.CountShowings(ctx)
}

func (s Store) AlertDigestSince(ctx context.Context, since int64) ([]db.AlertDigestRow, error) {
	return s.qry.AlertDigestSince(ctx, since)
}
