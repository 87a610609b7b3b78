package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tianji-quant/tianji/internal/feed"
	"github.com/tianji-quant/tianji/internal/feed/eastmoney"
	"github.com/tianji-quant/tianji/internal/ingest"
	"github.com/tianji-quant/tianji/pkg/cache"
	"github.com/tianji-quant/tianji/pkg/database"
	"github.com/tianji-quant/tianji/pkg/httputil"
)

var (
	inSymbols  string
	inSchedule string
	inOnce     bool
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Collect consensus data into PostgreSQL",
	Long: `Scrapes the consensus inputs (analyst ratings, sector heat,
discussion volume) for the tracked symbols and persists them. Runs once
with --once, otherwise on a daily post-close schedule.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&inSymbols, "symbols", "", "comma-separated symbols (required)")
	ingestCmd.Flags().StringVar(&inSchedule, "schedule", "", `cron schedule with seconds (default "0 30 17 * * MON-FRI")`)
	ingestCmd.Flags().BoolVar(&inOnce, "once", false, "collect immediately and exit")
	ingestCmd.MarkFlagRequired("symbols")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	cfg, log, _, _, err := setup()
	if err != nil {
		return err
	}

	symbols := splitSymbols(inSymbols)
	if len(symbols) == 0 {
		return fmt.Errorf("--symbols is empty")
	}

	db, err := database.New(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	repo := feed.NewRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		return err
	}

	httpClient := httputil.New(log, cfg.Eastmoney.RequestsPerS, 30*time.Second)
	client := eastmoney.NewClient(httpClient, log, cfg.Eastmoney.BaseURL)
	collector := ingest.NewCollector(client, repo, cache.New(cfg, "tianji"), log)

	if inOnce {
		return collector.CollectSignals(ctx, symbols, time.Now())
	}

	sched := ingest.NewScheduler(log)
	if err := sched.AddJob(ingest.NewSignalJob(collector, symbols, inSchedule)); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received")
	return nil
}
