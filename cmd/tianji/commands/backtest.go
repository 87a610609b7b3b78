package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/tianji-quant/tianji/internal/backtest"
)

var (
	btDataFile    string
	btSignalsFile string
	btFrom        string
	btTo          string
	btCapital     float64
	btUniverse    string
	btUsePostgres bool
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay a date window and print the performance report",
	Long: `Runs the day-by-day simulation over the requested window and prints
the performance report: returns, drawdown, Sharpe, win rate and the cost
breakdown. Data comes from JSONL exports by default, or PostgreSQL with
--postgres.`,
	RunE: runBacktest,
}

func init() {
	backtestCmd.Flags().StringVar(&btDataFile, "data", "data/merged.jsonl", "merged price JSONL export")
	backtestCmd.Flags().StringVar(&btSignalsFile, "signals", "", "consensus JSONL export (optional)")
	backtestCmd.Flags().StringVar(&btFrom, "from", "", "start date YYYY-MM-DD (required)")
	backtestCmd.Flags().StringVar(&btTo, "to", "", "end date YYYY-MM-DD (required)")
	backtestCmd.Flags().Float64Var(&btCapital, "capital", 1_000_000, "initial cash in CNY")
	backtestCmd.Flags().StringVar(&btUniverse, "universe", "", "comma-separated symbols (default: all)")
	backtestCmd.Flags().BoolVar(&btUsePostgres, "postgres", false, "load from PostgreSQL instead of JSONL")
	backtestCmd.MarkFlagRequired("from")
	backtestCmd.MarkFlagRequired("to")
	rootCmd.AddCommand(backtestCmd)
}

func runBacktest(cmd *cobra.Command, _ []string) error {
	cfg, log, rules, rulesHash, err := setup()
	if err != nil {
		return err
	}

	from, err := time.Parse("2006-01-02", btFrom)
	if err != nil {
		return fmt.Errorf("invalid --from: %w", err)
	}
	to, err := time.Parse("2006-01-02", btTo)
	if err != nil {
		return fmt.Errorf("invalid --to: %w", err)
	}
	if to.Before(from) {
		return fmt.Errorf("--to must not precede --from")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	src, cleanup, err := openFeed(cfg, log, btUsePostgres, btDataFile, btSignalsFile)
	if err != nil {
		return err
	}
	defer cleanup()

	universe := splitSymbols(btUniverse)
	stores, err := backtest.LoadStores(ctx, src, universe, from, to)
	if err != nil {
		return err
	}
	log.WithFields(map[string]interface{}{
		"bars":    stores.Prices.Count(),
		"signals": stores.Signals.Count(),
	}).Info("Stores loaded")

	engine := backtest.New(rules, stores.Registry, stores.Clock,
		stores.Prices, stores.Signals, backtest.NewConsensusPolicy(), log)
	engine.SetRulesHash(rulesHash)
	if cfg.MetricsEnabled {
		engine.EnableMetrics()
	}

	result, err := engine.Run(ctx, backtest.Config{
		Start:       from,
		End:         to,
		InitialCash: btCapital,
		Universe:    universe,
	})
	if err != nil {
		if result != nil && result.Invalid {
			fmt.Printf("RUN INVALID: %s\n", result.Fault)
		}
		return err
	}

	printReport(result)
	return nil
}

func splitSymbols(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printReport(r *backtest.Result) {
	s := r.Summary
	fmt.Println()
	fmt.Println("=== Backtest Report ===")
	fmt.Printf("Window          %s .. %s  (%d trading days)\n",
		r.Config.Start.Format("2006-01-02"), r.Config.End.Format("2006-01-02"), r.TradingDays)
	fmt.Printf("Rule set        %s\n", shortHash(r.RulesHash))
	fmt.Println()
	fmt.Printf("Initial cash    %14.2f\n", s.InitialCash)
	fmt.Printf("Final value     %14.2f\n", s.FinalValue)
	fmt.Printf("Total return    %13.2f%%\n", s.TotalReturn*100)
	fmt.Printf("Annualized      %13.2f%%\n", s.AnnualizedReturn*100)
	fmt.Printf("Volatility      %13.2f%%\n", s.Volatility*100)
	fmt.Printf("Sharpe ratio    %14.2f\n", s.SharpeRatio)
	fmt.Printf("Max drawdown    %13.2f%%\n", s.MaxDrawdown*100)
	fmt.Println()
	fmt.Printf("Trades          %6d  (%d sells, %d wins, win rate %.1f%%)\n",
		s.TotalTrades, s.SellTrades, s.WinningTrades, s.WinRate*100)
	fmt.Printf("Rejections      %6d\n", len(r.Rejections))
	fmt.Printf("Exec failures   %6d\n", len(r.Failures))
	fmt.Println()
	fmt.Printf("Commission      %14.2f\n", s.TotalCommission)
	fmt.Printf("Stamp duty      %14.2f\n", s.TotalStampDuty)
	fmt.Printf("Transfer fee    %14.2f\n", s.TotalTransferFee)
	fmt.Printf("Slippage        %14.2f\n", s.TotalSlippage)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
