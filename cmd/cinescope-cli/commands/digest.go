package commands

import (
	"fmt"
	"time"

	"cinescope-backend/lib/serviceutil"
	"cinescope-backend/lib/timezone"
	"cinescope-backend/services/alerting"
	"cinescope-backend/services/pricestore"

	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

var (
	digestDb    *string
	digestHours *int
	digestSend  *bool
)

func init() {
	digestDb = digestCmd.Flags().String("db", "cinescope.db", "The database to read alerts from.")
	digestHours = digestCmd.Flags().Int("hours", 24, "Include alerts from the last N hours.")
	digestSend = digestCmd.Flags().Bool("send", false, "Send the digest over SMTP instead of printing it.")
	rootCmd.AddCommand(digestCmd)
}

var digestCmd = &cobra.Command{
	Use:   "digest [--hours <n>] [--send]",
	Short: "Builds a price-alert digest email from recent alerts.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()
		store := openStore(*digestDb, pricestore.AlertThresholds{})

		since := timezone.Now().Add(-time.Duration(*digestHours) * time.Hour)
		rows, err := store.AlertDigestSince(cmd.Context(), since.Unix())
		if err != nil {
			serviceutil.Fatal("failed to read alerts", err)
		}

		mailer := alerting.NewMailer(cfg.Alerting)
		mail := mailer.BuildDigest(rows, since)
		if mail == nil {
			fmt.Println("no alerts to report")
			return
		}

		if !*digestSend {
			fmt.Printf("Subject: %s\n\n%s", mail.Subject, mail.Text)
			return
		}
		err = mailer.Send(cmd.Context(), mail)
		if err != nil {
			serviceutil.Fatal("failed to send digest", err)
		}
		fmt.Printf("digest sent to %d recipient(s)\n", len(cfg.Alerting.Recipients))
	},
}
