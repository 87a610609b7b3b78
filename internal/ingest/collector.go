package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/tianji-quant/tianji/internal/consensus"
	"github.com/tianji-quant/tianji/internal/feed"
	"github.com/tianji-quant/tianji/internal/feed/eastmoney"
	"github.com/tianji-quant/tianji/internal/market"
	"github.com/tianji-quant/tianji/pkg/cache"
	"github.com/tianji-quant/tianji/pkg/logger"
)

// Collector scrapes the day's consensus inputs for the tracked universe and
// persists them. A Redis marker per (symbol, date) keeps re-runs from
// hammering the portal; the database upsert makes duplicates harmless anyway.
type Collector struct {
	client *eastmoney.Client
	repo   *feed.Repository
	cache  *cache.Cache
	logger *logger.Logger
}

// NewCollector wires the collection pipeline.
func NewCollector(client *eastmoney.Client, repo *feed.Repository, c *cache.Cache, log *logger.Logger) *Collector {
	return &Collector{client: client, repo: repo, cache: c, logger: log}
}

// CollectSignals gathers and saves one day's signals for the universe.
// Per-symbol failures are logged and skipped; the day's batch still lands.
func (c *Collector) CollectSignals(ctx context.Context, symbols []string, date time.Time) error {
	date = market.DayOf(date)
	var batch []consensus.Signal
	skipped := 0

	for _, sym := range symbols {
		key := fmt.Sprintf("signal:%s:%s", sym, date.Format("2006-01-02"))

		var done bool
		if hit, err := c.cache.Get(ctx, key, &done); err == nil && hit && done {
			skipped++
			continue
		}

		sig := c.client.CollectSignal(ctx, sym, date)
		if sig.Empty() {
			c.logger.WithField("symbol", sym).Warn("No consensus data collected")
			continue
		}
		batch = append(batch, sig)

		if err := c.cache.Set(ctx, key, true, 48*time.Hour); err != nil {
			c.logger.WithError(err).Warn("Cache marker write failed")
		}
	}

	if len(batch) > 0 {
		if err := c.repo.SaveSignals(ctx, batch); err != nil {
			return fmt.Errorf("failed to persist signals: %w", err)
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"date":      date.Format("2006-01-02"),
		"collected": len(batch),
		"skipped":   skipped,
	}).Info("Signal collection finished")
	return nil
}

// SignalJob runs CollectSignals for the prior close on a cron schedule.
type SignalJob struct {
	collector *Collector
	symbols   []string
	schedule  string
}

// NewSignalJob creates the daily collection job. An empty schedule defaults
// to 17:30 on weekdays, after the A-share close and vendor settlement.
func NewSignalJob(collector *Collector, symbols []string, schedule string) *SignalJob {
	if schedule == "" {
		schedule = "0 30 17 * * MON-FRI"
	}
	return &SignalJob{collector: collector, symbols: symbols, schedule: schedule}
}

// Name implements Job.
func (j *SignalJob) Name() string { return "consensus-signal-collection" }

// Schedule implements Job.
func (j *SignalJob) Schedule() string { return j.schedule }

// Run implements Job.
func (j *SignalJob) Run(ctx context.Context) error {
	return j.collector.CollectSignals(ctx, j.symbols, time.Now())
}
