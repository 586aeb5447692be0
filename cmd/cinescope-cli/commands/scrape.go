package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"cinescope-backend/lib/browserutil"
	"cinescope-backend/lib/configutil"
	"cinescope-backend/lib/restyutil"
	"cinescope-backend/lib/serviceutil"
	"cinescope-backend/lib/sqliteutil"
	"cinescope-backend/lib/timezone"
	"cinescope-backend/services/alerting"
	"cinescope-backend/services/orchestrator"
	"cinescope-backend/services/pricestore"
	"cinescope-backend/services/pricestore/db"
	"cinescope-backend/services/pricing"
	"cinescope-backend/services/reconciler"
	"cinescope-backend/services/ticketclass"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	_ "modernc.org/sqlite"
)

type Config struct {
	Tenant           string                     `json:"tenant"`
	Theaters         []orchestrator.TheaterJob  `json:"theaters"`
	Workers          int                        `json:"workers"`
	IgnoredAmenities []string                   `json:"ignored_amenities"`
	AlertThresholds  pricestore.AlertThresholds `json:"alert_thresholds"`
	Reconciler       *reconciler.Config         `json:"reconciler"`
	Browser          browserutil.Options        `json:"browser"`
	Alerting         alerting.Options           `json:"alerting"`
}

func readConfig() Config {
	cfg, err := configutil.ReadConfig[Config]("config.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	if cfg.AlertThresholds.MinPercent == 0 && cfg.AlertThresholds.MinAbsoluteCents == 0 {
		cfg.AlertThresholds = pricestore.AlertThresholds{MinPercent: 10, MinAbsoluteCents: 100}
	}
	return cfg
}

func openStore(path string, thresholds pricestore.AlertThresholds) pricestore.Store {
	database, err := sqliteutil.OpenDB(db.Schema, path)
	if err != nil {
		serviceutil.Fatal("failed to open db", err)
	}
	return pricestore.NewStore(database, thresholds)
}

var (
	scrapeDb         *string
	scrapeDate       *string
	scrapeMode       *string
	scrapeCaptureDir *string
)

func init() {
	scrapeDb = scrapeCmd.Flags().String("db", "cinescope.db", "The database to write scrape results to.")
	scrapeDate = scrapeCmd.Flags().String("date", "", "Target date (YYYY-MM-DD), defaults to today.")
	scrapeMode = scrapeCmd.Flags().String("mode", "manual", "Run mode recorded for bookkeeping.")
	scrapeCaptureDir = scrapeCmd.Flags().String("capture-dir", "", "Write page snapshots of failed theaters into this directory.")
	rootCmd.AddCommand(scrapeCmd)
}

var scrapeCmd = &cobra.Command{
	Use:   "scrape [--date <YYYY-MM-DD>] [--db <path/to/output.db>]",
	Short: "Scrapes showtimes and ticket prices for every theater in the config.",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := readConfig()

		date := timezone.Now()
		if *scrapeDate != "" {
			var err error
			date, err = time.ParseInLocation("2006-01-02", *scrapeDate, timezone.Location)
			if err != nil {
				serviceutil.Fatal("failed to parse date", err)
			}
		}

		store := openStore(*scrapeDb, cfg.AlertThresholds)

		if *verbose {
			pricing.SetRestyInstrumentOutput(restyutil.NewFilesystemOutput(".dev/resty/pricing"))
		}
		var capture orchestrator.CaptureSink
		if *scrapeCaptureDir != "" {
			sink, err := restyutil.OpenFilesystemOutput(*scrapeCaptureDir)
			if err != nil {
				serviceutil.Fatal("failed to open capture dir", err)
			}
			capture = sink
		}

		linkerCfg := reconciler.DefaultConfig()
		if cfg.Reconciler != nil {
			linkerCfg = *cfg.Reconciler
		}
		orchestratorCfg := orchestrator.DefaultConfig()
		orchestratorCfg.Tenant = cfg.Tenant
		if cfg.Workers > 0 {
			orchestratorCfg.Workers = cfg.Workers
		}

		sessions := func(ctx context.Context, job orchestrator.TheaterJob) (orchestrator.Session, func(), error) {
			session := browserutil.NewSession(ctx, cfg.Browser)
			return session, session.Close, nil
		}

		o := orchestrator.New(
			store,
			pricing.NewExtractor(pricing.NewClient()),
			ticketclass.NewClassifier(cfg.IgnoredAmenities),
			reconciler.New(linkerCfg),
			sessions,
			capture,
			orchestratorCfg,
		)

		t1 := time.Now()
		summary, err := o.Run(cmd.Context(), cfg.Theaters, date, *scrapeMode)
		if err != nil {
			serviceutil.Fatal("run failed", err)
		}
		seconds := time.Since(t1).Seconds()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Run", "Status", "Succeeded", "Failed", "Showings", "Quotes", "Alerts", "For Review"})
		t.AppendRow(table.Row{
			summary.RunID,
			string(summary.Status),
			summary.Succeeded,
			summary.Failed,
			summary.ShowingsRecorded,
			summary.QuotesRecorded,
			summary.AlertsEmitted + summary.DiscontinuedTypes,
			summary.TicketTypesQueued + summary.TheatersForReview,
		})
		t.SetStyle(table.StyleRounded)
		t.Render()

		fmt.Printf("scraped in %.1fs\n", seconds)
	},
}
