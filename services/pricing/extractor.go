// Package pricing extracts the per-ticket-type price panel from a
// showing's detail page.
package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"cinescope-backend/lib/restyutil"
	"cinescope-backend/lib/textutil"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/pricing")

// ErrPanelMissing marks a detail page without the expected pricing panel.
// Like a schedule shape change it points at a source format change, not a
// transient condition, so it is never retried.
var ErrPanelMissing = errors.New("pricing panel not found")

const (
	panelSelector    = "table.ticket-prices"
	rowSelector      = "tr.ticket-row"
	typeSelector     = "td.ticket-type"
	priceSelector    = "td.ticket-price"
	capacitySelector = "td.ticket-capacity"
)

type TicketPrice struct {
	RawType    string
	PriceCents int64
	// "sold/total" as rendered by the source, kept opaque
	Capacity string
}

var instrumentOutput restyutil.InstrumentOutput

func SetRestyInstrumentOutput(output restyutil.InstrumentOutput) {
	instrumentOutput = output
}

// NewClient builds the detail-page HTTP client. Several chains front their
// listing sites with Cloudflare, hence the bypass transport.
func NewClient() *resty.Client {
	client := resty.New()
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	restyutil.InstrumentClient(client, tracer, instrumentOutput)
	return client
}

type Extractor struct {
	client *resty.Client
}

func NewExtractor(client *resty.Client) Extractor {
	return Extractor{client: client}
}

// Extract fetches the detail page and returns one TicketPrice per row of
// the pricing panel. Rows that fail to parse are logged and skipped, the
// rows that did parse are still returned.
func (e Extractor) Extract(ctx context.Context, detailURL string) ([]TicketPrice, error) {
	ctx, span := tracer.Start(ctx, "Extract")
	defer span.End()
	span.SetAttributes(attribute.String("url", detailURL))

	res, err := e.client.R().
		SetContext(ctx).
		Get(detailURL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("fetch detail page: %w", err)
	}
	if res.StatusCode() >= 400 {
		err := fmt.Errorf("fetch detail page: status %d", res.StatusCode())
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(res.String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("parse detail page: %w", err)
	}

	panel := doc.Find(panelSelector)
	if panel.Length() == 0 {
		err := fmt.Errorf("%w: %s", ErrPanelMissing, detailURL)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var prices []TicketPrice
	panel.Find(rowSelector).Each(func(i int, row *goquery.Selection) {
		rawType := textutil.CollapseSpaces(row.Find(typeSelector).Text())
		if rawType == "" {
			slog.WarnContext(ctx, "skipping pricing row without ticket type", "url", detailURL, "row", i)
			return
		}

		cents, err := ParsePriceCents(row.Find(priceSelector).Text())
		if err != nil {
			slog.WarnContext(ctx, "skipping unparseable pricing row",
				"url", detailURL, "row", i, "ticket_type", rawType, "err", err)
			return
		}

		prices = append(prices, TicketPrice{
			RawType:    rawType,
			PriceCents: cents,
			Capacity:   textutil.CollapseSpaces(row.Find(capacitySelector).Text()),
		})
	})

	span.SetAttributes(attribute.Int("rows", len(prices)))
	return prices, nil
}

// ParsePriceCents parses "$12.00" style price strings into integer cents.
func ParsePriceCents(raw string) (int64, error) {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("empty price")
	}

	dollars, centsPart, hasCents := strings.Cut(s, ".")
	whole, err := strconv.ParseInt(dollars, 10, 64)
	if err != nil || whole < 0 {
		return 0, fmt.Errorf("bad price %q", raw)
	}

	var cents int64
	if hasCents {
		if len(centsPart) == 1 {
			centsPart += "0"
		}
		if len(centsPart) != 2 {
			return 0, fmt.Errorf("bad price %q", raw)
		}
		cents, err = strconv.ParseInt(centsPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("bad price %q", raw)
		}
	}

	return whole*100 + cents, nil
}
