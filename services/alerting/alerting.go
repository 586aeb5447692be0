package alerting

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"cinescope-backend/services/pricestore/db"

	"github.com/jordan-wright/email"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("services/alerting")

type SmtpConfig struct {
	Server       string `json:"server"`
	Port         int    `json:"port"`
	EmailAddress string `json:"email_address"`
	Password     string `json:"password"`
}

type Options struct {
	Smtp       SmtpConfig `json:"smtp"`
	Recipients []string   `json:"recipients"`
}

// Mailer turns a window of price alerts into a plain-text digest email.
// Building the message is separate from sending it so the rendering can be
// tested without an SMTP server.
type Mailer struct {
	config Options
}

func NewMailer(options Options) Mailer {
	return Mailer{config: options}
}

func formatCents(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

func describeAlert(row db.AlertDigestRow) string {
	subject := fmt.Sprintf("%s / %s %s %s (%s)",
		row.TheaterName, row.FilmTitle, row.PlayDate, row.Showtime, row.TicketType)

	switch row.AlertType {
	case "increase", "decrease":
		return fmt.Sprintf("%s: %s -> %s (%+.1f%%)",
			subject,
			formatCents(row.OldPriceCents.Int64),
			formatCents(row.NewPriceCents.Int64),
			row.ChangePercent)
	case "new_offering":
		return fmt.Sprintf("%s: new offering at %s",
			subject, formatCents(row.NewPriceCents.Int64))
	case "discontinued":
		return fmt.Sprintf("%s: no longer offered", subject)
	default:
		return subject
	}
}

// BuildDigest renders the digest email for the given alert rows. Returns
// nil when there is nothing to report, callers skip sending in that case.
func (m Mailer) BuildDigest(rows []db.AlertDigestRow, since time.Time) *email.Email {
	if len(rows) == 0 {
		return nil
	}

	var body strings.Builder
	fmt.Fprintf(&body, "%d price alert(s) since %s:\n\n",
		len(rows), since.Format("2006-01-02 3:04 PM"))
	for _, row := range rows {
		body.WriteString("- ")
		body.WriteString(describeAlert(row))
		body.WriteString("\n")
	}

	mail := email.NewEmail()
	mail.From = fmt.Sprintf("Cinescope <%s>", m.config.Smtp.EmailAddress)
	mail.To = m.config.Recipients
	mail.Subject = fmt.Sprintf("Price alert digest (%d alerts)", len(rows))
	mail.Text = []byte(body.String())
	return mail
}

func (m Mailer) Send(ctx context.Context, mail *email.Email) error {
	_, span := tracer.Start(ctx, "Send")
	defer span.End()

	addr := fmt.Sprintf("%s:%d", m.config.Smtp.Server, m.config.Smtp.Port)
	err := mail.Send(addr, smtp.PlainAuth(
		"", m.config.Smtp.EmailAddress, m.config.Smtp.Password, m.config.Smtp.Server))
	if err != nil && strings.Contains(err.Error(), "server doesn't support AUTH") {
		err = mail.Send(addr, nil)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to send digest")
		return err
	}
	return nil
}
