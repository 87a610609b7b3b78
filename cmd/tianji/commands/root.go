package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tianji-quant/tianji/internal/market"
	"github.com/tianji-quant/tianji/pkg/config"
	"github.com/tianji-quant/tianji/pkg/logger"
)

var (
	// Global flags
	rulesFile string
	verbose   bool
)

// rootCmd is the base command.
var rootCmd = &cobra.Command{
	Use:   "tianji",
	Short: "A-share consensus screening and backtest engine",
	Long: `Tianji replays daily A-share history under the market's real
microstructure rules: T+1 settlement, price limit bands, lot sizing,
suspension halts and the full transaction cost stack.

Examples:
  tianji backtest --data data/merged.jsonl --signals data/consensus_data.jsonl \
      --from 2024-01-02 --to 2024-06-28 --capital 1000000
  tianji screen --data data/merged.jsonl --date 2024-06-28
  tianji ingest --symbols 600519.SH,000001.SZ
  tianji serve`,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rulesFile, "rules", "", "rule-set YAML (default from RULES_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// setup loads config, logger and the rule set shared by every command.
func setup() (*config.Config, *logger.Logger, market.RuleSet, string, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, market.RuleSet{}, "", err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	log := logger.New(level, cfg.LogFormat)

	path := rulesFile
	if path == "" {
		path = cfg.RulesPath
	}

	rules := market.DefaultRuleSet()
	if _, statErr := os.Stat(path); statErr == nil {
		rules, _, err = market.LoadRuleSet(path)
		if err != nil {
			return nil, nil, market.RuleSet{}, "", fmt.Errorf("failed to load rule set %s: %w", path, err)
		}
		log.WithField("path", path).Info("Rule set loaded")
	} else {
		log.Info("Rule set file not found, using built-in A-share defaults")
	}

	hash, err := market.HashRuleSet(rules)
	if err != nil {
		return nil, nil, market.RuleSet{}, "", err
	}

	return cfg, log, rules, hash, nil
}
