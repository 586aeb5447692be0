package pricing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-resty/resty/v2"
	"github.com/stretchr/testify/require"
)

const detailPage = `<html><body>
<table class="ticket-prices">
	<tr class="ticket-row">
		<td class="ticket-type">Adult</td>
		<td class="ticket-price">$12.00</td>
		<td class="ticket-capacity">12/64</td>
	</tr>
	<tr class="ticket-row">
		<td class="ticket-type">Senior Recliner</td>
		<td class="ticket-price">$9.50</td>
		<td class="ticket-capacity"></td>
	</tr>
	<tr class="ticket-row">
		<td class="ticket-type">Child</td>
		<td class="ticket-price">call us</td>
	</tr>
</table>
</body></html>`

func fixtureServer(t *testing.T, body string) (*httptest.Server, Extractor) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, NewExtractor(resty.New())
}

func TestExtract(t *testing.T) {
	server, extractor := fixtureServer(t, detailPage)

	prices, err := extractor.Extract(context.Background(), server.URL)
	require.NoError(t, err)

	// the unparseable Child row is skipped, the rest still come back
	require.Len(t, prices, 2)
	require.Equal(t, TicketPrice{RawType: "Adult", PriceCents: 1200, Capacity: "12/64"}, prices[0])
	require.Equal(t, TicketPrice{RawType: "Senior Recliner", PriceCents: 950}, prices[1])
}

func TestExtractPanelMissing(t *testing.T) {
	server, extractor := fixtureServer(t, `<html><body><p>nothing here</p></body></html>`)

	_, err := extractor.Extract(context.Background(), server.URL)
	require.ErrorIs(t, err, ErrPanelMissing)
}

func TestParsePriceCents(t *testing.T) {
	testCases := []struct {
		raw      string
		expected int64
		wantErr  bool
	}{
		{raw: "$12.00", expected: 1200},
		{raw: "$9.50", expected: 950},
		{raw: "14", expected: 1400},
		{raw: "7.5", expected: 750},
		{raw: " $1,025.25 ", expected: 102525},
		{raw: "free?", wantErr: true},
		{raw: "-3.00", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, test := range testCases {
		got, err := ParsePriceCents(test.raw)
		if test.wantErr {
			require.Error(t, err, test.raw)
			continue
		}
		require.NoError(t, err, test.raw)
		require.Equal(t, test.expected, got, test.raw)
	}
}
