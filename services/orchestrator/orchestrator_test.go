package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"cinescope-backend/lib/testutil"
	"cinescope-backend/services/pricestore"
	"cinescope-backend/services/pricestore/db"
	"cinescope-backend/services/pricing"
	"cinescope-backend/services/reconciler"
	"cinescope-backend/services/ticketclass"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"

	_ "modernc.org/sqlite"
)

const listingFixture = `<html><body>
<div class="showtimes-grid"></div>
<script id="showtimes-data" type="application/json">{
	"films": [{
		"title": "Night Train",
		"showtimes": {
			"7:00 PM": [
				{"url": "/showing/1", "format": "Standard"},
				{"url": "/showing/2", "format": "IMAX"}
			]
		}
	}]
}</script>
</body></html>`

const brokenListingFixture = `<html><body><div class="showtimes-grid"></div></body></html>`

const pricingFixture = `<html><body>
<table class="ticket-prices">
	<tr class="ticket-row">
		<td class="ticket-type">Adult</td>
		<td class="ticket-price">$12.00</td>
		<td class="ticket-capacity">12/64</td>
	</tr>
	<tr class="ticket-row">
		<td class="ticket-type">Groupon Voucher</td>
		<td class="ticket-price">$8.00</td>
	</tr>
</table>
</body></html>`

// fakeSession plays back canned listing markup, optionally hanging past the
// caller's deadline to exercise the timeout and retry paths.
type fakeSession struct {
	html string
	hang bool
}

func (f *fakeSession) ListingHTML(ctx context.Context, url, waitSelector string) (string, error) {
	if f.hang {
		select {
		case <-time.After(time.Second * 10):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return f.html, nil
}

func (f *fakeSession) CurrentHTML(ctx context.Context) (string, error) {
	// a real browser session refuses work once its context is dead
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return "<html>snapshot</html>", nil
}

func sessionsByName(byName map[string]*fakeSession) SessionFactory {
	return func(ctx context.Context, job TheaterJob) (Session, func(), error) {
		return byName[job.Name], func() {}, nil
	}
}

type memorySink struct {
	mu    sync.Mutex
	names []string
}

func (s *memorySink) Write(id string, contents string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names = append(s.names, id)
}

func pricingFixtureServer(t *testing.T) *httptest.Server {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(pricingFixture))
	}))
	t.Cleanup(server.Close)
	return server
}

func setupOrchestrator(t *testing.T, sessions SessionFactory, capture CaptureSink, config Config) (Orchestrator, pricestore.Store) {
	setup, cleanup := testutil.SetupService(t, testutil.ServiceParams{
		Name:     "services/orchestrator",
		DbSchema: db.Schema,
	})
	t.Cleanup(cleanup)

	store := pricestore.NewStore(setup.DB, pricestore.AlertThresholds{MinPercent: 10})
	o := New(
		store,
		pricing.NewExtractor(resty.New()),
		ticketclass.NewClassifier(nil),
		reconciler.New(reconciler.DefaultConfig()),
		sessions,
		capture,
		config,
	)
	return o, store
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Workers = 2
	cfg.MaxAttempts = 2
	cfg.RetryBase = time.Millisecond
	cfg.TheaterTimeout = time.Millisecond * 250
	return cfg
}

var testDate = time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC)

func TestRun(t *testing.T) {
	server := pricingFixtureServer(t)
	o, store := setupOrchestrator(t, sessionsByName(map[string]*fakeSession{
		"Majestic Oaks 14": {html: listingFixture},
	}), nil, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	summary, err := o.Run(ctx, []TheaterJob{
		{Name: "Majestic Oaks 14", SourceURL: server.URL + "/theaters/oaks"},
	}, testDate, "manual")
	require.NoError(t, err)

	require.Equal(t, pricestore.RunCompleted, summary.Status)
	require.Equal(t, 1, summary.Succeeded)
	require.Equal(t, 0, summary.Failed)
	require.Equal(t, 2, summary.ShowingsRecorded)
	require.Equal(t, 4, summary.QuotesRecorded)
	require.Equal(t, 2, summary.TicketTypesQueued)

	count, err := store.CountShowings(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	// the unknown ticket type landed in the review queue once, counted twice
	queued, err := store.ListUnmatchedTicketTypes(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 1)
	require.Equal(t, "Groupon Voucher", queued[0].RawText)
	require.Equal(t, int64(2), queued[0].Occurrences)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, string(pricestore.RunCompleted), runs[0].Status)
}

func TestRunIsolatesFailures(t *testing.T) {
	server := pricingFixtureServer(t)

	// the bad theater hangs past its per-theater timeout on every attempt,
	// the good one must still land its records
	sink := &memorySink{}
	o, store := setupOrchestrator(t, sessionsByName(map[string]*fakeSession{
		"Majestic Oaks 14": {html: listingFixture},
		"Broken Palace":    {hang: true},
	}), sink, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*30)
	defer cancel()

	summary, err := o.Run(ctx, []TheaterJob{
		{Name: "Majestic Oaks 14", SourceURL: server.URL + "/theaters/oaks"},
		{Name: "Broken Palace", SourceURL: server.URL + "/theaters/palace"},
	}, testDate, "manual")
	require.NoError(t, err)

	require.Equal(t, pricestore.RunPartiallyFailed, summary.Status)
	require.Equal(t, 1, summary.Succeeded)
	require.Equal(t, 1, summary.Failed)

	count, err := store.CountShowings(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)

	// diagnostic capture fired with a theater-qualified name, even though
	// the theater's own context had already timed out
	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.NotEmpty(t, sink.names)
	require.Contains(t, sink.names[0], "Broken-Palace")
	require.True(t, strings.HasSuffix(sink.names[0], ".html"))
}

func TestRunRetriesTransientFailure(t *testing.T) {
	server := pricingFixtureServer(t)

	// the first attempt fails to open a session, the retry succeeds
	var attempts atomic.Int64
	factory := func(ctx context.Context, job TheaterJob) (Session, func(), error) {
		if attempts.Add(1) == 1 {
			return nil, nil, errors.New("browser crashed")
		}
		return &fakeSession{html: listingFixture}, func() {}, nil
	}
	o, store := setupOrchestrator(t, factory, nil, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	summary, err := o.Run(ctx, []TheaterJob{
		{Name: "Majestic Oaks 14", SourceURL: server.URL + "/theaters/oaks"},
	}, testDate, "manual")
	require.NoError(t, err)

	require.Equal(t, pricestore.RunCompleted, summary.Status)
	require.Equal(t, 1, summary.Succeeded)
	require.Equal(t, 0, summary.Failed)
	require.Equal(t, int64(2), attempts.Load())

	count, err := store.CountShowings(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), count)
}

func TestRunShapeErrorNotRetried(t *testing.T) {
	var attempts atomic.Int64
	factory := func(ctx context.Context, job TheaterJob) (Session, func(), error) {
		attempts.Add(1)
		return &fakeSession{html: brokenListingFixture}, func() {}, nil
	}
	o, _ := setupOrchestrator(t, factory, nil, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	summary, err := o.Run(ctx, []TheaterJob{
		{Name: "Majestic Oaks 14", SourceURL: "https://example.com/theaters/oaks"},
	}, testDate, "manual")
	require.NoError(t, err)

	require.Equal(t, pricestore.RunFailed, summary.Status)
	require.Equal(t, 1, summary.Failed)
	require.Equal(t, int64(1), attempts.Load())
}

func TestRunCancellationStopsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// the first job cancels the run while holding the only worker, the
	// remaining jobs must never be dispatched
	var started atomic.Int64
	factory := func(_ context.Context, job TheaterJob) (Session, func(), error) {
		if started.Add(1) == 1 {
			cancel()
		}
		return &fakeSession{hang: true}, func() {}, nil
	}

	cfg := testConfig()
	cfg.Workers = 1
	cfg.MaxAttempts = 1
	o, _ := setupOrchestrator(t, factory, nil, cfg)

	jobs := []TheaterJob{
		{Name: "One", SourceURL: "https://example.com/1"},
		{Name: "Two", SourceURL: "https://example.com/2"},
		{Name: "Three", SourceURL: "https://example.com/3"},
		{Name: "Four", SourceURL: "https://example.com/4"},
	}
	summary, err := o.Run(ctx, jobs, testDate, "manual")
	require.NoError(t, err)

	require.Equal(t, pricestore.RunFailed, summary.Status)
	require.Less(t, summary.Succeeded+summary.Failed, len(jobs))
	require.Less(t, started.Load(), int64(len(jobs)))
}

func TestRunQueuesAmbiguousTheater(t *testing.T) {
	o, store := setupOrchestrator(t, sessionsByName(map[string]*fakeSession{}), nil, testConfig())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	// a pre-seeded canonical directory that the job's name cannot be
	// confidently matched against
	_, err := store.UpsertTheater(ctx, pricestore.Theater{Tenant: "default", Name: "AMC Majestic Oaks 14"})
	require.NoError(t, err)
	_, err = store.UpsertTheater(ctx, pricestore.Theater{Tenant: "default", Name: "AMC Oak Hill 12"})
	require.NoError(t, err)

	summary, err := o.Run(ctx, []TheaterJob{
		{Name: "Starlight Drive-In", SourceURL: "https://example.com/starlight"},
	}, testDate, "manual")
	require.NoError(t, err)

	require.Equal(t, pricestore.RunCompleted, summary.Status)
	require.Equal(t, 0, summary.Succeeded)
	require.Equal(t, 0, summary.Failed)
	require.Equal(t, 1, summary.TheatersForReview)

	rows, err := store.ListUnmatchedTheaters(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "Starlight Drive-In", rows[0].ScrapedName)
}
