package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tianji-quant/tianji/internal/api"
	"github.com/tianji-quant/tianji/internal/backtest"
)

var (
	svDataFile    string
	svSignalsFile string
	svFrom        string
	svTo          string
	svCapital     float64
	svUsePostgres bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a backtest and serve results over HTTP",
	Long: `Starts the reporting API, runs the backtest in the background while
streaming per-day equity over /ws/progress, then serves the finished result
on /api/backtest/*.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&svDataFile, "data", "data/merged.jsonl", "merged price JSONL export")
	serveCmd.Flags().StringVar(&svSignalsFile, "signals", "", "consensus JSONL export (optional)")
	serveCmd.Flags().StringVar(&svFrom, "from", "", "start date YYYY-MM-DD (required)")
	serveCmd.Flags().StringVar(&svTo, "to", "", "end date YYYY-MM-DD (required)")
	serveCmd.Flags().Float64Var(&svCapital, "capital", 1_000_000, "initial cash in CNY")
	serveCmd.Flags().BoolVar(&svUsePostgres, "postgres", false, "load from PostgreSQL instead of JSONL")
	serveCmd.MarkFlagRequired("from")
	serveCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, log, rules, rulesHash, err := setup()
	if err != nil {
		return err
	}

	from, err := time.Parse("2006-01-02", svFrom)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	to, err := time.Parse("2006-01-02", svTo)
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	src, cleanup, err := openFeed(cfg, log, svUsePostgres, svDataFile, svSignalsFile)
	if err != nil {
		return err
	}
	defer cleanup()

	stores, err := backtest.LoadStores(ctx, src, nil, from, to)
	if err != nil {
		return err
	}

	hub := api.NewProgressHub(log)
	go hub.Run()

	handler := api.NewResultHandler(log)
	server := api.NewServer(cfg, log, api.NewRouter(handler, hub, log))

	engine := backtest.New(rules, stores.Registry, stores.Clock,
		stores.Prices, stores.Signals, backtest.NewConsensusPolicy(), log)
	engine.SetRulesHash(rulesHash)
	engine.SetProgressSink(hub)
	if cfg.MetricsEnabled {
		engine.EnableMetrics()
	}

	go func() {
		result, runErr := engine.Run(ctx, backtest.Config{
			Start:       from,
			End:         to,
			InitialCash: svCapital,
		})
		if runErr != nil {
			log.WithError(runErr).Error("Backtest failed")
		}
		if result != nil {
			handler.Publish(result)
		}
	}()

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("API server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
