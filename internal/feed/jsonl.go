package feed

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/tianji-quant/tianji/internal/consensus"
	"github.com/tianji-quant/tianji/internal/market"
)

// Indicator windows used when deriving technical signals from price history.
const (
	maShortWindow = 20
	maLongWindow  = 60
	high52WBars   = 250 // trailing trading days approximating 52 weeks
)

// mergedDoc is one line of the merged price export: an Alpha-Vantage-shaped
// document per symbol with a stringly-typed daily time series.
type mergedDoc struct {
	Meta struct {
		Symbol string `json:"2. Symbol"`
	} `json:"Meta Data"`
	TimeSeries map[string]map[string]string `json:"Time Series (Daily)"`
}

// consensusRecord is one line of the consensus export, flat per (date, symbol).
type consensusRecord struct {
	Date             string   `json:"date"`
	Symbol           string   `json:"symbol"`
	NorthboundFlow   *float64 `json:"northbound_flow"`
	MarginBalanceChg *float64 `json:"margin_balance_chg"`
	BrokerBuyCount   *int     `json:"broker_recommend_count"`
	SectorHeatRank   *int     `json:"sector_heat_rank"`
	DiscussionVolume *float64 `json:"discussion_volume"`
}

// LoadJSONL builds a feed from the two JSONL exports. The signals path may be
// empty; scoring then runs on derived technical signals alone. Technical
// indicators (trailing high, moving averages) are computed here from the
// price history, matching the upstream export which carries raw OHLCV only.
func LoadJSONL(pricesPath, signalsPath string) (*MemoryFeed, error) {
	f := NewMemoryFeed()

	bySymbol, err := loadMergedPrices(pricesPath)
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, len(bySymbol))
	for sym := range bySymbol {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	signals := make(map[string]map[string]*consensus.Signal)
	for _, sym := range symbols {
		bars := bySymbol[sym]
		f.AddInstrument(market.Instrument{
			Symbol:  sym,
			Board:   market.BoardFromSymbol(sym),
			Listing: market.ListingActive,
		})
		byDate := make(map[string]*consensus.Signal, len(bars))
		signals[sym] = byDate
		for i, bar := range bars {
			f.AddBar(bar)
			byDate[dayKey(bar.Date)] = &consensus.Signal{
				Symbol:    sym,
				Date:      bar.Date,
				Technical: deriveTechnical(bars, i),
			}
		}
	}

	if signalsPath != "" {
		if err := mergeConsensus(signalsPath, signals); err != nil {
			return nil, err
		}
	}

	for _, byDate := range signals {
		for _, sig := range byDate {
			f.AddSignal(*sig)
		}
	}
	return f, nil
}

func loadMergedPrices(path string) (map[string][]market.PriceBar, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price export: %w", err)
	}
	defer file.Close()

	out := make(map[string][]market.PriceBar)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 1024*1024), 64*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var doc mergedDoc
		if err := json.Unmarshal(line, &doc); err != nil {
			return nil, fmt.Errorf("price export line %d: %w", lineNo, err)
		}
		if doc.Meta.Symbol == "" {
			return nil, fmt.Errorf("price export line %d: missing symbol", lineNo)
		}
		bars, err := docToBars(doc)
		if err != nil {
			return nil, fmt.Errorf("price export line %d (%s): %w", lineNo, doc.Meta.Symbol, err)
		}
		out[doc.Meta.Symbol] = bars
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read price export: %w", err)
	}
	return out, nil
}

// docToBars flattens one symbol document into date-ordered bars, chaining
// PrevClose across days. Suspended days are simply absent upstream; the run
// loop treats a missing bar as untradable.
func docToBars(doc mergedDoc) ([]market.PriceBar, error) {
	dates := make([]string, 0, len(doc.TimeSeries))
	for d := range doc.TimeSeries {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	bars := make([]market.PriceBar, 0, len(dates))
	prevClose := 0.0
	for _, ds := range dates {
		row := doc.TimeSeries[ds]
		date, err := time.Parse("2006-01-02", ds)
		if err != nil {
			return nil, fmt.Errorf("bad date %q: %w", ds, err)
		}
		open, err := wireFloat(row, "1. buy price")
		if err != nil {
			return nil, err
		}
		high, err := wireFloat(row, "2. high")
		if err != nil {
			return nil, err
		}
		low, err := wireFloat(row, "3. low")
		if err != nil {
			return nil, err
		}
		closeP, err := wireFloat(row, "4. sell price")
		if err != nil {
			return nil, err
		}
		volume, err := wireInt(row, "5. volume")
		if err != nil {
			return nil, err
		}

		pc := prevClose
		if pc == 0 {
			pc = open
		}
		bars = append(bars, market.PriceBar{
			Symbol:    doc.Meta.Symbol,
			Date:      market.DayOf(date),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeP,
			Volume:    volume,
			PrevClose: pc,
			Status:    market.StatusNormal,
		})
		prevClose = closeP
	}
	return bars, nil
}

// deriveTechnical computes the indicator family at bar index i of a
// date-ordered series. Short histories use whatever bars exist; the moving
// averages converge as the window fills.
func deriveTechnical(bars []market.PriceBar, i int) *consensus.TechnicalSignal {
	high := 0.0
	lo := i - high52WBars + 1
	if lo < 0 {
		lo = 0
	}
	for j := lo; j <= i; j++ {
		if bars[j].High > high {
			high = bars[j].High
		}
	}
	return &consensus.TechnicalSignal{
		Close:   bars[i].Close,
		High52W: high,
		MAShort: trailingMean(bars, i, maShortWindow),
		MALong:  trailingMean(bars, i, maLongWindow),
	}
}

func trailingMean(bars []market.PriceBar, i, window int) float64 {
	lo := i - window + 1
	if lo < 0 {
		lo = 0
	}
	sum := 0.0
	for j := lo; j <= i; j++ {
		sum += bars[j].Close
	}
	return sum / float64(i-lo+1)
}

// mergeConsensus folds the flat consensus export into the derived signals.
// Records for unknown symbols or dates outside the price history create new
// standalone signals so nothing silently disappears.
func mergeConsensus(path string, signals map[string]map[string]*consensus.Signal) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open consensus export: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec consensusRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return fmt.Errorf("consensus export line %d: %w", lineNo, err)
		}
		date, err := time.Parse("2006-01-02", rec.Date)
		if err != nil {
			return fmt.Errorf("consensus export line %d: bad date %q", lineNo, rec.Date)
		}

		byDate := signals[rec.Symbol]
		if byDate == nil {
			byDate = make(map[string]*consensus.Signal)
			signals[rec.Symbol] = byDate
		}
		key := dayKey(market.DayOf(date))
		sig := byDate[key]
		if sig == nil {
			sig = &consensus.Signal{Symbol: rec.Symbol, Date: market.DayOf(date)}
			byDate[key] = sig
		}

		if rec.NorthboundFlow != nil || rec.MarginBalanceChg != nil {
			sig.CapitalFlow = &consensus.CapitalFlowSignal{
				NorthboundNet: rec.NorthboundFlow,
				MarginNet:     rec.MarginBalanceChg,
			}
		}
		if rec.BrokerBuyCount != nil || rec.SectorHeatRank != nil {
			sig.Logic = &consensus.LogicSignal{
				AnalystBuyCount: rec.BrokerBuyCount,
				SectorHeatRank:  rec.SectorHeatRank,
			}
		}
		if rec.DiscussionVolume != nil {
			sig.Sentiment = &consensus.SentimentSignal{DiscussionVolume: *rec.DiscussionVolume}
		}
	}
	return scanner.Err()
}

func wireFloat(row map[string]string, key string) (float64, error) {
	s, ok := row[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %q value %q: %w", key, s, err)
	}
	return v, nil
}

func wireInt(row map[string]string, key string) (int64, error) {
	s, ok := row[key]
	if !ok {
		return 0, fmt.Errorf("missing field %q", key)
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("bad %q value %q: %w", key, s, err)
	}
	return v, nil
}

func dayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}
