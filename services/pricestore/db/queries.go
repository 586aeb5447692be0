package db

import (
	"context"
	"database/sql"
)

const upsertTheater = `
INSERT INTO theaters (tenant, name, source_url, market, region)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (tenant, name) DO UPDATE SET
    source_url = excluded.source_url,
    market = excluded.market,
    region = excluded.region
RETURNING id
`

type UpsertTheaterParams struct {
	Tenant    string
	Name      string
	SourceUrl string
	Market    string
	Region    string
}

func (q *Queries) UpsertTheater(ctx context.Context, arg UpsertTheaterParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, upsertTheater,
		arg.Tenant, arg.Name, arg.SourceUrl, arg.Market, arg.Region)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getTheater = `
SELECT id, tenant, name, source_url, market, region FROM theaters
WHERE tenant = ? AND name = ?
`

type GetTheaterParams struct {
	Tenant string
	Name   string
}

func (q *Queries) GetTheater(ctx context.Context, arg GetTheaterParams) (Theater, error) {
	row := q.db.QueryRowContext(ctx, getTheater, arg.Tenant, arg.Name)
	var t Theater
	err := row.Scan(&t.ID, &t.Tenant, &t.Name, &t.SourceUrl, &t.Market, &t.Region)
	return t, err
}

const listTheaters = `
SELECT id, tenant, name, source_url, market, region FROM theaters
WHERE tenant = ?
ORDER BY name
`

func (q *Queries) ListTheaters(ctx context.Context, tenant string) ([]Theater, error) {
	rows, err := q.db.QueryContext(ctx, listTheaters, tenant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Theater
	for rows.Next() {
		var t Theater
		err := rows.Scan(&t.ID, &t.Tenant, &t.Name, &t.SourceUrl, &t.Market, &t.Region)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const listAllTheaters = `
SELECT id, tenant, name, source_url, market, region FROM theaters ORDER BY id
`

func (q *Queries) ListAllTheaters(ctx context.Context) ([]Theater, error) {
	rows, err := q.db.QueryContext(ctx, listAllTheaters)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Theater
	for rows.Next() {
		var t Theater
		err := rows.Scan(&t.ID, &t.Tenant, &t.Name, &t.SourceUrl, &t.Market, &t.Region)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

const createScrapeRun = `
INSERT INTO scrape_runs (started_at, mode, status)
VALUES (?, ?, ?)
RETURNING id
`

type CreateScrapeRunParams struct {
	StartedAt int64
	Mode      string
	Status    string
}

func (q *Queries) CreateScrapeRun(ctx context.Context, arg CreateScrapeRunParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createScrapeRun, arg.StartedAt, arg.Mode, arg.Status)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const finishScrapeRun = `
UPDATE scrape_runs
SET finished_at = ?, status = ?, records_scraped = ?, error_message = ?
WHERE id = ?
`

type FinishScrapeRunParams struct {
	FinishedAt     int64
	Status         string
	RecordsScraped int64
	ErrorMessage   string
	ID             int64
}

func (q *Queries) FinishScrapeRun(ctx context.Context, arg FinishScrapeRunParams) error {
	_, err := q.db.ExecContext(ctx, finishScrapeRun,
		arg.FinishedAt, arg.Status, arg.RecordsScraped, arg.ErrorMessage, arg.ID)
	return err
}

const getScrapeRun = `
SELECT id, started_at, finished_at, mode, status, records_scraped, error_message
FROM scrape_runs WHERE id = ?
`

func (q *Queries) GetScrapeRun(ctx context.Context, id int64) (ScrapeRun, error) {
	row := q.db.QueryRowContext(ctx, getScrapeRun, id)
	var r ScrapeRun
	err := row.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Mode, &r.Status, &r.RecordsScraped, &r.ErrorMessage)
	return r, err
}

const listScrapeRuns = `
SELECT id, started_at, finished_at, mode, status, records_scraped, error_message
FROM scrape_runs
ORDER BY id DESC
LIMIT ?
`

func (q *Queries) ListScrapeRuns(ctx context.Context, limit int64) ([]ScrapeRun, error) {
	rows, err := q.db.QueryContext(ctx, listScrapeRuns, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ScrapeRun
	for rows.Next() {
		var r ScrapeRun
		err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Mode, &r.Status, &r.RecordsScraped, &r.ErrorMessage)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const previousRunID = `
SELECT id FROM scrape_runs
WHERE id < ? AND status IN ('completed', 'partially_failed')
ORDER BY id DESC
LIMIT 1
`

func (q *Queries) PreviousRunID(ctx context.Context, before int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, previousRunID, before)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const insertShowing = `
INSERT INTO showings (theater_id, film_title, play_date, showtime, format, daypart, is_plf, detail_url)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (theater_id, film_title, play_date, showtime, format) DO NOTHING
RETURNING id
`

type InsertShowingParams struct {
	TheaterID int64
	FilmTitle string
	PlayDate  string
	Showtime  string
	Format    string
	Daypart   string
	IsPlf     int64
	DetailUrl string
}

// InsertShowing returns sql.ErrNoRows when the showing already exists, the
// natural-key constraint is the dedup authority.
func (q *Queries) InsertShowing(ctx context.Context, arg InsertShowingParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertShowing,
		arg.TheaterID, arg.FilmTitle, arg.PlayDate, arg.Showtime, arg.Format,
		arg.Daypart, arg.IsPlf, arg.DetailUrl)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getShowingID = `
SELECT id FROM showings
WHERE theater_id = ? AND film_title = ? AND play_date = ? AND showtime = ? AND format = ?
`

type GetShowingIDParams struct {
	TheaterID int64
	FilmTitle string
	PlayDate  string
	Showtime  string
	Format    string
}

func (q *Queries) GetShowingID(ctx context.Context, arg GetShowingIDParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, getShowingID,
		arg.TheaterID, arg.FilmTitle, arg.PlayDate, arg.Showtime, arg.Format)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listShowings = `
SELECT id, theater_id, film_title, play_date, showtime, format, daypart, is_plf, detail_url
FROM showings
WHERE theater_id = ? AND play_date = ?
ORDER BY film_title, showtime, format
`

type ListShowingsParams struct {
	TheaterID int64
	PlayDate  string
}

func (q *Queries) ListShowings(ctx context.Context, arg ListShowingsParams) ([]Showing, error) {
	rows, err := q.db.QueryContext(ctx, listShowings, arg.TheaterID, arg.PlayDate)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanShowings(rows)
}

const listAllShowings = `
SELECT id, theater_id, film_title, play_date, showtime, format, daypart, is_plf, detail_url
FROM showings ORDER BY id
`

func (q *Queries) ListAllShowings(ctx context.Context) ([]Showing, error) {
	rows, err := q.db.QueryContext(ctx, listAllShowings)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanShowings(rows)
}

func scanShowings(rows *sql.Rows) ([]Showing, error) {
	var out []Showing
	for rows.Next() {
		var s Showing
		err := rows.Scan(&s.ID, &s.TheaterID, &s.FilmTitle, &s.PlayDate, &s.Showtime,
			&s.Format, &s.Daypart, &s.IsPlf, &s.DetailUrl)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

const countShowings = `SELECT COUNT(*) FROM showings`

func (q *Queries) CountShowings(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countShowings)
	var n int64
	err := row.Scan(&n)
	return n, err
}

const insertPriceQuote = `
INSERT INTO price_quotes (showing_id, run_id, ticket_type, amenities, price_cents, capacity, scraped_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id
`

type InsertPriceQuoteParams struct {
	ShowingID  int64
	RunID      int64
	TicketType string
	Amenities  string
	PriceCents int64
	Capacity   string
	ScrapedAt  int64
}

func (q *Queries) InsertPriceQuote(ctx context.Context, arg InsertPriceQuoteParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertPriceQuote,
		arg.ShowingID, arg.RunID, arg.TicketType, arg.Amenities,
		arg.PriceCents, arg.Capacity, arg.ScrapedAt)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const latestQuoteBefore = `
SELECT id, showing_id, run_id, ticket_type, amenities, price_cents, capacity, scraped_at
FROM price_quotes
WHERE showing_id = ? AND ticket_type = ? AND id <> ?
ORDER BY scraped_at DESC, id DESC
LIMIT 1
`

type LatestQuoteBeforeParams struct {
	ShowingID  int64
	TicketType string
	ExcludeID  int64
}

func (q *Queries) LatestQuoteBefore(ctx context.Context, arg LatestQuoteBeforeParams) (PriceQuote, error) {
	row := q.db.QueryRowContext(ctx, latestQuoteBefore, arg.ShowingID, arg.TicketType, arg.ExcludeID)
	var p PriceQuote
	err := row.Scan(&p.ID, &p.ShowingID, &p.RunID, &p.TicketType, &p.Amenities,
		&p.PriceCents, &p.Capacity, &p.ScrapedAt)
	return p, err
}

const priceHistory = `
SELECT id, showing_id, run_id, ticket_type, amenities, price_cents, capacity, scraped_at
FROM price_quotes
WHERE showing_id = ? AND ticket_type = ?
ORDER BY scraped_at, id
`

type PriceHistoryParams struct {
	ShowingID  int64
	TicketType string
}

func (q *Queries) PriceHistory(ctx context.Context, arg PriceHistoryParams) ([]PriceQuote, error) {
	rows, err := q.db.QueryContext(ctx, priceHistory, arg.ShowingID, arg.TicketType)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuotes(rows)
}

const listAllQuotes = `
SELECT id, showing_id, run_id, ticket_type, amenities, price_cents, capacity, scraped_at
FROM price_quotes ORDER BY id
`

func (q *Queries) ListAllQuotes(ctx context.Context) ([]PriceQuote, error) {
	rows, err := q.db.QueryContext(ctx, listAllQuotes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanQuotes(rows)
}

func scanQuotes(rows *sql.Rows) ([]PriceQuote, error) {
	var out []PriceQuote
	for rows.Next() {
		var p PriceQuote
		err := rows.Scan(&p.ID, &p.ShowingID, &p.RunID, &p.TicketType, &p.Amenities,
			&p.PriceCents, &p.Capacity, &p.ScrapedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

const quotedTypesForRun = `
SELECT DISTINCT showing_id, ticket_type FROM price_quotes WHERE run_id = ?
`

type QuotedType struct {
	ShowingID  int64
	TicketType string
}

func (q *Queries) QuotedTypesForRun(ctx context.Context, runID int64) ([]QuotedType, error) {
	rows, err := q.db.QueryContext(ctx, quotedTypesForRun, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []QuotedType
	for rows.Next() {
		var qt QuotedType
		err := rows.Scan(&qt.ShowingID, &qt.TicketType)
		if err != nil {
			return nil, err
		}
		out = append(out, qt)
	}
	return out, rows.Err()
}

const insertPriceAlert = `
INSERT INTO price_alerts (showing_id, ticket_type, old_price_cents, new_price_cents, change_percent, alert_type, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

type InsertPriceAlertParams struct {
	ShowingID     int64
	TicketType    string
	OldPriceCents sql.NullInt64
	NewPriceCents sql.NullInt64
	ChangePercent float64
	AlertType     string
	CreatedAt     int64
}

func (q *Queries) InsertPriceAlert(ctx context.Context, arg InsertPriceAlertParams) error {
	_, err := q.db.ExecContext(ctx, insertPriceAlert,
		arg.ShowingID, arg.TicketType, arg.OldPriceCents, arg.NewPriceCents,
		arg.ChangePercent, arg.AlertType, arg.CreatedAt)
	return err
}

const listAlertsSince = `
SELECT id, showing_id, ticket_type, old_price_cents, new_price_cents, change_percent, alert_type, created_at
FROM price_alerts
WHERE created_at >= ?
ORDER BY created_at, id
`

func (q *Queries) ListAlertsSince(ctx context.Context, since int64) ([]PriceAlert, error) {
	rows, err := q.db.QueryContext(ctx, listAlertsSince, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PriceAlert
	for rows.Next() {
		var a PriceAlert
		err := rows.Scan(&a.ID, &a.ShowingID, &a.TicketType, &a.OldPriceCents,
			&a.NewPriceCents, &a.ChangePercent, &a.AlertType, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const upsertUnmatchedTicketType = `
INSERT INTO unmatched_ticket_types (raw_text, theater_name, film_title, showtime, first_seen, last_seen, occurrences)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (raw_text) DO UPDATE SET
    theater_name = excluded.theater_name,
    film_title = excluded.film_title,
    showtime = excluded.showtime,
    first_seen = min(first_seen, excluded.first_seen),
    last_seen = max(last_seen, excluded.last_seen),
    occurrences = occurrences + excluded.occurrences
`

type UpsertUnmatchedTicketTypeParams struct {
	RawText     string
	TheaterName string
	FilmTitle   string
	Showtime    string
	FirstSeen   int64
	LastSeen    int64
	Occurrences int64
}

func (q *Queries) UpsertUnmatchedTicketType(ctx context.Context, arg UpsertUnmatchedTicketTypeParams) error {
	_, err := q.db.ExecContext(ctx, upsertUnmatchedTicketType,
		arg.RawText, arg.TheaterName, arg.FilmTitle, arg.Showtime,
		arg.FirstSeen, arg.LastSeen, arg.Occurrences)
	return err
}

const listUnmatchedTicketTypes = `
SELECT id, raw_text, theater_name, film_title, showtime, first_seen, last_seen, occurrences
FROM unmatched_ticket_types
ORDER BY occurrences DESC, raw_text
`

func (q *Queries) ListUnmatchedTicketTypes(ctx context.Context) ([]UnmatchedTicketType, error) {
	rows, err := q.db.QueryContext(ctx, listUnmatchedTicketTypes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UnmatchedTicketType
	for rows.Next() {
		var u UnmatchedTicketType
		err := rows.Scan(&u.ID, &u.RawText, &u.TheaterName, &u.FilmTitle, &u.Showtime,
			&u.FirstSeen, &u.LastSeen, &u.Occurrences)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

const deleteUnmatchedTicketType = `
DELETE FROM unmatched_ticket_types WHERE raw_text = ?
`

func (q *Queries) DeleteUnmatchedTicketType(ctx context.Context, rawText string) error {
	_, err := q.db.ExecContext(ctx, deleteUnmatchedTicketType, rawText)
	return err
}

const upsertUnmatchedTheater = `
INSERT INTO unmatched_theaters (scraped_name, best_candidate, similarity, runner_up, runner_up_similarity, first_seen, last_seen, occurrences)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (scraped_name) DO UPDATE SET
    best_candidate = excluded.best_candidate,
    similarity = excluded.similarity,
    runner_up = excluded.runner_up,
    runner_up_similarity = excluded.runner_up_similarity,
    first_seen = min(first_seen, excluded.first_seen),
    last_seen = max(last_seen, excluded.last_seen),
    occurrences = occurrences + excluded.occurrences
`

type UpsertUnmatchedTheaterParams struct {
	ScrapedName        string
	BestCandidate      string
	Similarity         float64
	RunnerUp           string
	RunnerUpSimilarity float64
	FirstSeen          int64
	LastSeen           int64
	Occurrences        int64
}

func (q *Queries) UpsertUnmatchedTheater(ctx context.Context, arg UpsertUnmatchedTheaterParams) error {
	_, err := q.db.ExecContext(ctx, upsertUnmatchedTheater,
		arg.ScrapedName, arg.BestCandidate, arg.Similarity, arg.RunnerUp,
		arg.RunnerUpSimilarity, arg.FirstSeen, arg.LastSeen, arg.Occurrences)
	return err
}

const listUnmatchedTheaters = `
SELECT id, scraped_name, best_candidate, similarity, runner_up, runner_up_similarity, first_seen, last_seen, occurrences
FROM unmatched_theaters
ORDER BY occurrences DESC, scraped_name
`

func (q *Queries) ListUnmatchedTheaters(ctx context.Context) ([]UnmatchedTheater, error) {
	rows, err := q.db.QueryContext(ctx, listUnmatchedTheaters)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []UnmatchedTheater
	for rows.Next() {
		var u UnmatchedTheater
		err := rows.Scan(&u.ID, &u.ScrapedName, &u.BestCandidate, &u.Similarity,
			&u.RunnerUp, &u.RunnerUpSimilarity, &u.FirstSeen, &u.LastSeen, &u.Occurrences)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

const deleteUnmatchedTheater = `
DELETE FROM unmatched_theaters WHERE scraped_name = ?
`

func (q *Queries) DeleteUnmatchedTheater(ctx context.Context, scrapedName string) error {
	_, err := q.db.ExecContext(ctx, deleteUnmatchedTheater, scrapedName)
	return err
}

const listAllScrapeRuns = `
SELECT id, started_at, finished_at, mode, status, records_scraped, error_message
FROM scrape_runs ORDER BY id
`

func (q *Queries) ListAllScrapeRuns(ctx context.Context) ([]ScrapeRun, error) {
	rows, err := q.db.QueryContext(ctx, listAllScrapeRuns)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ScrapeRun
	for rows.Next() {
		var r ScrapeRun
		err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Mode, &r.Status, &r.RecordsScraped, &r.ErrorMessage)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const insertScrapeRunRow = `
INSERT INTO scrape_runs (started_at, finished_at, mode, status, records_scraped, error_message)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id
`

type InsertScrapeRunRowParams struct {
	StartedAt      int64
	FinishedAt     sql.NullInt64
	Mode           string
	Status         string
	RecordsScraped int64
	ErrorMessage   string
}

// InsertScrapeRunRow copies a full run row (used by merge, which remaps the
// source run's id into the target's id space).
func (q *Queries) InsertScrapeRunRow(ctx context.Context, arg InsertScrapeRunRowParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertScrapeRunRow,
		arg.StartedAt, arg.FinishedAt, arg.Mode, arg.Status, arg.RecordsScraped, arg.ErrorMessage)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const findScrapeRunRow = `
SELECT id FROM scrape_runs
WHERE started_at = ? AND finished_at IS ? AND mode = ? AND status = ?
  AND records_scraped = ? AND error_message = ?
ORDER BY id
LIMIT 1
`

// FindScrapeRunRow locates a run identical to the given row, so a repeated
// import reuses it instead of inserting a duplicate.
func (q *Queries) FindScrapeRunRow(ctx context.Context, arg InsertScrapeRunRowParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, findScrapeRunRow,
		arg.StartedAt, arg.FinishedAt, arg.Mode, arg.Status, arg.RecordsScraped, arg.ErrorMessage)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const quoteExists = `
SELECT COUNT(*) FROM price_quotes
WHERE run_id = ? AND showing_id = ? AND ticket_type = ?
  AND scraped_at = ? AND price_cents = ? AND capacity = ?
`

type QuoteExistsParams struct {
	RunID      int64
	ShowingID  int64
	TicketType string
	ScrapedAt  int64
	PriceCents int64
	Capacity   string
}

func (q *Queries) QuoteExists(ctx context.Context, arg QuoteExistsParams) (bool, error) {
	row := q.db.QueryRowContext(ctx, quoteExists,
		arg.RunID, arg.ShowingID, arg.TicketType, arg.ScrapedAt, arg.PriceCents, arg.Capacity)
	var n int64
	err := row.Scan(&n)
	return n > 0, err
}

const alertExists = `
SELECT COUNT(*) FROM price_alerts
WHERE showing_id = ? AND ticket_type = ? AND alert_type = ?
  AND old_price_cents IS ? AND new_price_cents IS ? AND created_at = ?
`

type AlertExistsParams struct {
	ShowingID     int64
	TicketType    string
	AlertType     string
	OldPriceCents sql.NullInt64
	NewPriceCents sql.NullInt64
	CreatedAt     int64
}

func (q *Queries) AlertExists(ctx context.Context, arg AlertExistsParams) (bool, error) {
	row := q.db.QueryRowContext(ctx, alertExists,
		arg.ShowingID, arg.TicketType, arg.AlertType,
		arg.OldPriceCents, arg.NewPriceCents, arg.CreatedAt)
	var n int64
	err := row.Scan(&n)
	return n > 0, err
}

const listAllAlerts = `
SELECT id, showing_id, ticket_type, old_price_cents, new_price_cents, change_percent, alert_type, created_at
FROM price_alerts ORDER BY id
`

func (q *Queries) ListAllAlerts(ctx context.Context) ([]PriceAlert, error) {
	rows, err := q.db.QueryContext(ctx, listAllAlerts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PriceAlert
	for rows.Next() {
		var a PriceAlert
		err := rows.Scan(&a.ID, &a.ShowingID, &a.TicketType, &a.OldPriceCents,
			&a.NewPriceCents, &a.ChangePercent, &a.AlertType, &a.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

const alertDigestSince = `
SELECT a.id, t.name, s.film_title, s.play_date, s.showtime, s.format,
       a.ticket_type, a.alert_type, a.old_price_cents, a.new_price_cents, a.change_percent, a.created_at
FROM price_alerts a
JOIN showings s ON s.id = a.showing_id
JOIN theaters t ON t.id = s.theater_id
WHERE a.created_at >= ?
ORDER BY t.name, s.film_title, s.showtime, a.id
`

type AlertDigestRow struct {
	ID            int64
	TheaterName   string
	FilmTitle     string
	PlayDate      string
	Showtime      string
	Format        string
	TicketType    string
	AlertType     string
	OldPriceCents sql.NullInt64
	NewPriceCents sql.NullInt64
	ChangePercent float64
	CreatedAt     int64
}

func (q *Queries) AlertDigestSince(ctx context.Context, since int64) ([]AlertDigestRow, error) {
	rows, err := q.db.QueryContext(ctx, alertDigestSince, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AlertDigestRow
	for rows.Next() {
		var r AlertDigestRow
		err := rows.Scan(&r.ID, &r.TheaterName, &r.FilmTitle, &r.PlayDate, &r.Showtime, &r.Format,
			&r.TicketType, &r.AlertType, &r.OldPriceCents, &r.NewPriceCents, &r.ChangePercent, &r.CreatedAt)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
