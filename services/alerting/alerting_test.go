package alerting

import (
	"database/sql"
	"testing"
	"time"

	"cinescope-backend/services/pricestore/db"

	"github.com/stretchr/testify/require"
)

func TestBuildDigest(t *testing.T) {
	mailer := NewMailer(Options{
		Smtp:       SmtpConfig{EmailAddress: "alerts@example.com"},
		Recipients: []string{"ops@example.com"},
	})
	since := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	require.Nil(t, mailer.BuildDigest(nil, since))

	rows := []db.AlertDigestRow{
		{
			TheaterName:   "AMC Majestic Oaks 14",
			FilmTitle:     "Night Train",
			PlayDate:      "2026-08-25",
			Showtime:      "7:00 PM",
			TicketType:    "adult",
			AlertType:     "increase",
			OldPriceCents: sql.NullInt64{Int64: 1200, Valid: true},
			NewPriceCents: sql.NullInt64{Int64: 1450, Valid: true},
			ChangePercent: 20.83,
		},
		{
			TheaterName: "AMC Majestic Oaks 14",
			FilmTitle:   "Night Train",
			PlayDate:    "2026-08-25",
			Showtime:    "7:00 PM",
			TicketType:  "child",
			AlertType:   "discontinued",
		},
	}
	mail := mailer.BuildDigest(rows, since)
	require.NotNil(t, mail)

	require.Equal(t, []string{"ops@example.com"}, mail.To)
	require.Equal(t, "Cinescope <alerts@example.com>", mail.From)
	require.Equal(t, "Price alert digest (2 alerts)", mail.Subject)

	body := string(mail.Text)
	require.Contains(t, body, "$12.00 -> $14.50 (+20.8%)")
	require.Contains(t, body, "no longer offered")
	require.Contains(t, body, "AMC Majestic Oaks 14 / Night Train 2026-08-25 7:00 PM (adult)")
}
