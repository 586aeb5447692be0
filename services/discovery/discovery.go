// Package discovery turns a theater's listing page for a given date into a
// normalized set of Showing records.
//
// It emits every record it finds and guarantees nothing about ordering or
// uniqueness, deduplication by natural key happens at persistence time.
package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"cinescope-backend/lib/textutil"

	"github.com/PuerkitoBio/goquery"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/discovery")

// Client renders a listing page. Implemented by browserutil.Session in
// production and by fixtures in tests.
type Client interface {
	ListingHTML(ctx context.Context, url, waitSelector string) (string, error)
}

const (
	gridSelector     = "div.showtimes-grid"
	scheduleSelector = "script#showtimes-data"
)

type Showing struct {
	TheaterName string
	FilmTitle   string
	PlayDate    string // YYYY-MM-DD
	Showtime    string // canonical clock, e.g. "7:00 PM"
	Format      string
	Daypart     Daypart
	IsPLF       bool
	DetailURL   string
}

var plfFormats = []string{
	"imax", "dolby", "xd", "rpx", "superscreen", "ultrascreen", "grandscreen", "prime",
}

func isPremiumLargeFormat(format string) bool {
	return textutil.MatchName(format, plfFormats)
}

// Discover navigates the theater's listing page for the target date and
// returns one Showing per individual showing variant found there.
func Discover(ctx context.Context, client Client, theaterName, sourceURL string, date time.Time) ([]Showing, error) {
	ctx, span := tracer.Start(ctx, "Discover")
	defer span.End()
	span.SetAttributes(
		attribute.String("theater", theaterName),
		attribute.String("date", date.Format("2006-01-02")),
	)

	listingURL, err := listingURLFor(sourceURL, date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	html, err := client.ListingHTML(ctx, listingURL, gridSelector)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("render listing %s: %w", listingURL, err)
	}

	showings, err := parseListing(ctx, html, theaterName, listingURL, date)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	slog.DebugContext(ctx, "discovered showings", "theater", theaterName, "count", len(showings))
	return showings, nil
}

func listingURLFor(sourceURL string, date time.Time) (string, error) {
	link, err := url.Parse(sourceURL)
	if err != nil {
		return "", fmt.Errorf("parse source url: %w", err)
	}
	query := link.Query()
	query.Set("date", date.Format("2006-01-02"))
	link.RawQuery = query.Encode()
	return link.String(), nil
}

func parseListing(ctx context.Context, html, theaterName, listingURL string, date time.Time) ([]Showing, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse listing markup: %w", err)
	}

	blobText := doc.Find(scheduleSelector).Text()
	if strings.TrimSpace(blobText) == "" {
		return nil, fmt.Errorf("%w: schedule blob %q not found", ErrShapeChanged, scheduleSelector)
	}

	var blob scheduleBlob
	err = json.Unmarshal([]byte(blobText), &blob)
	if err != nil {
		return nil, fmt.Errorf("%w: decode schedule blob: %s", ErrShapeChanged, err)
	}

	base, err := url.Parse(listingURL)
	if err != nil {
		return nil, fmt.Errorf("parse listing url: %w", err)
	}

	var showings []Showing
	for _, film := range blob.Films {
		if strings.TrimSpace(film.Title) == "" {
			slog.WarnContext(ctx, "skipping film with empty title", "theater", theaterName)
			continue
		}

		for slotKey, group := range film.Showtimes {
			// object-shaped slots carry the format in the key: "7:00 PM|IMAX"
			rawClock, keyFormat, _ := strings.Cut(slotKey, "|")

			clock, err := NormalizeClock(rawClock)
			if err != nil {
				return nil, fmt.Errorf("%w: slot %q: %s", ErrShapeChanged, slotKey, err)
			}

			group.Each(func(raw RawShowing) {
				format := raw.Format
				if format == "" {
					format = keyFormat
				}
				if format == "" {
					format = "Standard"
				}

				showings = append(showings, Showing{
					TheaterName: theaterName,
					FilmTitle:   textutil.CollapseSpaces(film.Title),
					PlayDate:    date.Format("2006-01-02"),
					Showtime:    clock,
					Format:      format,
					Daypart:     DaypartOf(clock),
					IsPLF:       isPremiumLargeFormat(format),
					DetailURL:   resolveURL(base, raw.URL),
				})
			})
		}
	}

	return showings, nil
}

func resolveURL(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}
