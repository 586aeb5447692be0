package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"cinescope-backend/lib/timezone"
	"cinescope-backend/services/discovery"
	"cinescope-backend/services/pricestore"
	"cinescope-backend/services/pricing"
	"cinescope-backend/services/reconciler"
	"cinescope-backend/services/ticketclass"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/orchestrator")

// Session is one worker's browser tab. CurrentHTML exists so a failure can
// snapshot whatever the page looked like when things went wrong.
type Session interface {
	ListingHTML(ctx context.Context, url, waitSelector string) (string, error)
	CurrentHTML(ctx context.Context) (string, error)
}

// SessionFactory creates a fresh session for a single theater job. Workers
// never share sessions, each job gets its own and tears it down after.
type SessionFactory func(ctx context.Context, job TheaterJob) (Session, func(), error)

// CaptureSink receives page markup snapshots on theater failure.
// restyutil.FilesystemOutput satisfies it.
type CaptureSink interface {
	Write(id string, contents string)
}

// TheaterJob is one entry of the theater directory handed to a run.
type TheaterJob struct {
	Name      string `json:"name"`
	SourceURL string `json:"source_url"`
	Market    string `json:"market"`
	Region    string `json:"region"`
}

type Config struct {
	Tenant string `json:"tenant"`
	// bounded pool size, also the cap on live browser sessions
	Workers int `json:"workers"`
	// attempts per theater for transient failures
	MaxAttempts int           `json:"max_attempts"`
	RetryBase   time.Duration `json:"-"`
	// per-theater wall clock budget
	TheaterTimeout time.Duration `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		Tenant:         "default",
		Workers:        4,
		MaxAttempts:    3,
		RetryBase:      2 * time.Second,
		TheaterTimeout: 90 * time.Second,
	}
}

func (c Config) normalized() Config {
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 1
	}
	if c.RetryBase <= 0 {
		c.RetryBase = 2 * time.Second
	}
	if c.TheaterTimeout <= 0 {
		c.TheaterTimeout = 90 * time.Second
	}
	return c
}

type Orchestrator struct {
	store      pricestore.Store
	extractor  pricing.Extractor
	classifier ticketclass.Classifier
	linker     reconciler.Reconciler
	sessions   SessionFactory
	// nil disables diagnostic capture
	capture CaptureSink
	config  Config
}

func New(
	store pricestore.Store,
	extractor pricing.Extractor,
	classifier ticketclass.Classifier,
	linker reconciler.Reconciler,
	sessions SessionFactory,
	capture CaptureSink,
	config Config,
) Orchestrator {
	return Orchestrator{
		store:      store,
		extractor:  extractor,
		classifier: classifier,
		linker:     linker,
		sessions:   sessions,
		capture:    capture,
		config:     config.normalized(),
	}
}

type RunSummary struct {
	RunID     int64
	Status    pricestore.RunStatus
	Succeeded int
	Failed    int

	ShowingsRecorded  int
	QuotesRecorded    int
	AlertsEmitted     int
	DiscontinuedTypes int
	TicketTypesQueued int
	TheatersForReview int
	ShowingsNoPricing int
}

type theaterResult struct {
	theater string
	stats   theaterStats
	queued  bool
	err     error
}

type theaterStats struct {
	showings  int
	quotes    int
	alerts    int
	unmatched int
	noPricing int
}

// Run scrapes every theater in the directory for the target date with a
// bounded worker pool. A failing theater never aborts the batch, the run
// ends Failed only when nothing succeeded.
func (o Orchestrator) Run(ctx context.Context, theaters []TheaterJob, date time.Time, mode string) (RunSummary, error) {
	ctx, span := tracer.Start(ctx, "Run")
	defer span.End()
	span.SetAttributes(
		attribute.Int("theaters", len(theaters)),
		attribute.String("date", date.Format("2006-01-02")),
	)

	runID, err := o.store.BeginRun(ctx, mode)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return RunSummary{}, err
	}
	summary := RunSummary{RunID: runID}

	directory, err := o.canonicalDirectory(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}

	jobs := make(chan TheaterJob)
	results := make(chan theaterResult)

	var wg sync.WaitGroup
	for i := 0; i < o.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- o.runTheater(ctx, runID, directory, job, date)
			}
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer close(jobs)
		for _, job := range theaters {
			// cancellation stops dispatch, in-flight jobs drain on their own
			if ctx.Err() != nil {
				return
			}
			select {
			case jobs <- job:
			case <-ctx.Done():
				return
			}
		}
	}()

	var firstErr error
	for res := range results {
		if res.queued {
			summary.TheatersForReview++
			continue
		}
		if res.err != nil {
			summary.Failed++
			if firstErr == nil {
				firstErr = fmt.Errorf("%s: %w", res.theater, res.err)
			}
			continue
		}
		summary.Succeeded++
		summary.ShowingsRecorded += res.stats.showings
		summary.QuotesRecorded += res.stats.quotes
		summary.AlertsEmitted += res.stats.alerts
		summary.TicketTypesQueued += res.stats.unmatched
		summary.ShowingsNoPricing += res.stats.noPricing
	}

	// bookkeeping must land even when the run was cancelled mid-flight
	finishCtx := context.WithoutCancel(ctx)

	discontinued, err := o.store.DetectDiscontinued(finishCtx, runID)
	if err != nil {
		slog.ErrorContext(ctx, "discontinued detection failed", "run_id", runID, "err", err)
	}
	summary.DiscontinuedTypes = discontinued

	summary.Status = runStatus(summary)
	errMsg := ""
	if firstErr != nil {
		errMsg = firstErr.Error()
	}
	err = o.store.FinishRun(finishCtx, runID, summary.Status, int64(summary.QuotesRecorded), errMsg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return summary, err
	}

	slog.InfoContext(ctx, "run finished",
		"run_id", runID,
		"status", summary.Status,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"showings", summary.ShowingsRecorded,
		"quotes", summary.QuotesRecorded,
	)
	return summary, nil
}

func runStatus(s RunSummary) pricestore.RunStatus {
	switch {
	case s.Succeeded == 0 && s.Failed > 0:
		return pricestore.RunFailed
	case s.Failed > 0:
		return pricestore.RunPartiallyFailed
	default:
		return pricestore.RunCompleted
	}
}

func (o Orchestrator) canonicalDirectory(ctx context.Context) ([]reconciler.Candidate, error) {
	theaters, err := o.store.ListTheaters(ctx, o.config.Tenant)
	if err != nil {
		return nil, err
	}
	candidates := make([]reconciler.Candidate, len(theaters))
	for i, t := range theaters {
		candidates[i] = reconciler.Candidate{ID: t.ID, Name: t.Name}
	}
	return candidates, nil
}

// runTheater resolves the job's name against the canonical directory, then
// scrapes it with bounded retries. Ambiguous names go to the review queue
// instead of being scraped against a guessed identity.
func (o Orchestrator) runTheater(ctx context.Context, runID int64, directory []reconciler.Candidate, job TheaterJob, date time.Time) theaterResult {
	ctx, span := tracer.Start(ctx, "runTheater")
	defer span.End()
	span.SetAttributes(attribute.String("theater", job.Name))

	result := theaterResult{theater: job.Name}

	theaterID, queued, err := o.resolveTheater(ctx, directory, job)
	if err != nil {
		result.err = err
		return result
	}
	if queued {
		result.queued = true
		return result
	}

	for attempt := 1; ; attempt++ {
		stats, err := o.scrapeTheater(ctx, runID, theaterID, job, date)
		if err == nil {
			result.stats = stats
			return result
		}
		if !isTransient(err) || attempt >= o.config.MaxAttempts {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			slog.ErrorContext(ctx, "theater failed",
				"theater", job.Name, "attempts", attempt, "err", err)
			result.err = err
			return result
		}

		wait := o.config.RetryBase << (attempt - 1)
		slog.WarnContext(ctx, "retrying theater after transient failure",
			"theater", job.Name, "attempt", attempt, "wait", wait, "err", err)
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			result.err = ctx.Err()
			return result
		}
	}
}

// resolveTheater maps the directory entry onto a canonical theater row. An
// empty directory bootstraps it, a confident match reuses the canonical id,
// anything ambiguous is flagged for manual review.
func (o Orchestrator) resolveTheater(ctx context.Context, directory []reconciler.Candidate, job TheaterJob) (int64, bool, error) {
	if len(directory) == 0 {
		id, err := o.store.UpsertTheater(ctx, pricestore.Theater{
			Tenant:    o.config.Tenant,
			Name:      job.Name,
			SourceURL: job.SourceURL,
			Market:    job.Market,
			Region:    job.Region,
		})
		return id, false, err
	}

	match := o.linker.Reconcile(job.Name, directory)
	if match.Matched {
		return match.TheaterID, false, nil
	}

	slog.WarnContext(ctx, "theater name needs review",
		"scraped", job.Name,
		"best", match.BestCandidate,
		"similarity", match.Similarity,
	)
	err := o.store.QueueUnmatchedTheater(ctx,
		job.Name, match.BestCandidate, match.Similarity,
		match.RunnerUp, match.RunnerUpSimilarity)
	if err != nil {
		return 0, false, err
	}
	return 0, true, nil
}

// scrapeTheater is one attempt: fresh session, discover the day's showings,
// extract and classify prices, persist. A showing whose pricing panel is
// gone is recorded without quotes, not treated as a theater failure.
func (o Orchestrator) scrapeTheater(ctx context.Context, runID, theaterID int64, job TheaterJob, date time.Time) (theaterStats, error) {
	ctx, cancel := context.WithTimeout(ctx, o.config.TheaterTimeout)
	defer cancel()

	var stats theaterStats

	session, closeSession, err := o.sessions(ctx, job)
	if err != nil {
		return stats, fmt.Errorf("open session: %w", err)
	}
	defer closeSession()

	showings, err := discovery.Discover(ctx, session, job.Name, job.SourceURL, date)
	if err != nil {
		o.captureFailure(ctx, session, job.Name)
		return stats, err
	}

	for _, sh := range showings {
		quotes, queued, noPricing, err := o.pricesFor(ctx, job.Name, sh)
		if err != nil {
			o.captureFailure(ctx, session, job.Name)
			return stats, err
		}
		stats.unmatched += queued
		if noPricing {
			stats.noPricing++
		}

		res, err := o.store.RecordShowingQuotes(ctx, runID, pricestore.ShowingRecord{
			TheaterID: theaterID,
			FilmTitle: sh.FilmTitle,
			PlayDate:  sh.PlayDate,
			Showtime:  sh.Showtime,
			Format:    sh.Format,
			Daypart:   string(sh.Daypart),
			IsPLF:     sh.IsPLF,
			DetailURL: sh.DetailURL,
		}, quotes)
		if err != nil {
			return stats, err
		}
		stats.showings++
		stats.quotes += res.QuotesInserted
		stats.alerts += res.AlertsEmitted
	}

	return stats, nil
}

// pricesFor extracts and classifies the pricing panel for one showing.
// Unknown ticket types land in the review queue and are persisted under
// their raw text so the quote history is not lost while a human decides.
func (o Orchestrator) pricesFor(ctx context.Context, theaterName string, sh discovery.Showing) (quotes []pricestore.Quote, queued int, noPricing bool, err error) {
	if sh.DetailURL == "" {
		return nil, 0, true, nil
	}

	prices, err := o.extractor.Extract(ctx, sh.DetailURL)
	if errors.Is(err, pricing.ErrPanelMissing) {
		slog.WarnContext(ctx, "pricing panel missing",
			"theater", theaterName, "film", sh.FilmTitle, "url", sh.DetailURL)
		return nil, 0, true, nil
	}
	if err != nil {
		return nil, 0, false, err
	}

	for _, p := range prices {
		class := o.classifier.Classify(p.RawType)
		ticketType := string(class.Base)
		if class.Base == ticketclass.BaseUnknown {
			err := o.store.QueueUnmatchedTicketType(ctx, p.RawType, theaterName, sh.FilmTitle, sh.Showtime)
			if err != nil {
				return nil, queued, false, err
			}
			queued++
			ticketType = p.RawType
		}
		quotes = append(quotes, pricestore.Quote{
			TicketType: ticketType,
			Amenities:  class.Amenities,
			PriceCents: p.PriceCents,
			Capacity:   p.Capacity,
		})
	}
	return quotes, queued, false, nil
}

// captureFailure snapshots the current page markup. Best effort, a sink
// failure must never mask the error that got us here.
//
// The per-theater context is usually already expired or cancelled when a
// failure lands here, so the snapshot runs on its own short budget.
func (o Orchestrator) captureFailure(ctx context.Context, session Session, theaterName string) {
	if o.capture == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	html, err := session.CurrentHTML(ctx)
	if err != nil {
		slog.WarnContext(ctx, "failed to capture page markup",
			"theater", theaterName, "err", err)
		return
	}
	name := fmt.Sprintf("%d_%s.html", timezone.Now().Unix(), sanitizeName(theaterName))
	o.capture.Write(name, html)
}

func sanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return '-'
		}
	}, name)
}

func isTransient(err error) bool {
	switch {
	case errors.Is(err, discovery.ErrShapeChanged):
		return false
	case errors.Is(err, pricing.ErrPanelMissing):
		return false
	case errors.Is(err, context.Canceled):
		return false
	default:
		return true
	}
}
