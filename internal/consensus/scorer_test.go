package consensus

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianji-quant/tianji/internal/market"
)

func f(v float64) *float64 { return &v }
func n(v int) *int         { return &v }

func fullSignal(symbol string, date time.Time) Signal {
	return Signal{
		Symbol:      symbol,
		Date:        date,
		Technical:   &TechnicalSignal{Close: 100, High52W: 100, MAShort: 101, MALong: 99},
		CapitalFlow: &CapitalFlowSignal{NorthboundNet: f(20_000_000), MarginNet: f(10_000_000)},
		Logic:       &LogicSignal{AnalystBuyCount: n(6), SectorHeatRank: n(3)},
		Sentiment:   &SentimentSignal{DiscussionVolume: 150_000},
	}
}

func TestScore_FullSignal(t *testing.T) {
	scorer := NewScorer(DefaultScoreConfig())
	score := scorer.Score(fullSignal("600519.SH", market.Day(2024, 1, 8)))

	assert.Equal(t, 20, score.Technical)
	assert.Equal(t, 30, score.CapitalFlow)
	assert.Equal(t, 30, score.Logic)
	assert.Equal(t, 20, score.Sentiment)
	assert.Equal(t, 100, score.Total)
	assert.Empty(t, score.Missing)
	assert.Equal(t, 1.0, score.Completeness)
}

func TestScore_AllFamiliesAbsent(t *testing.T) {
	scorer := NewScorer(DefaultScoreConfig())
	score := scorer.Score(Signal{Symbol: "600519.SH", Date: market.Day(2024, 1, 8)})

	assert.Equal(t, 0, score.Total)
	assert.Equal(t, 0.0, score.Completeness)
	assert.Len(t, score.Missing, 4)
}

func TestScore_MissingFamilyStaysInDenominator(t *testing.T) {
	scorer := NewScorer(DefaultScoreConfig())
	sig := fullSignal("600519.SH", market.Day(2024, 1, 8))
	sig.Sentiment = nil

	score := scorer.Score(sig)
	assert.Equal(t, 80, score.Total)
	assert.Equal(t, []string{FamilySentiment}, score.Missing)
	assert.Equal(t, 0.75, score.Completeness)
}

func TestScore_TechnicalThresholds(t *testing.T) {
	scorer := NewScorer(DefaultScoreConfig())

	tests := []struct {
		name string
		tech TechnicalSignal
		want int
	}{
		{"near high and golden cross", TechnicalSignal{Close: 96, High52W: 100, MAShort: 50, MALong: 49}, 20},
		{"exactly at 95% of high", TechnicalSignal{Close: 95, High52W: 100, MAShort: 49, MALong: 50}, 10},
		{"below proximity", TechnicalSignal{Close: 94.99, High52W: 100, MAShort: 49, MALong: 50}, 0},
		{"golden cross only", TechnicalSignal{Close: 50, High52W: 100, MAShort: 51, MALong: 50}, 10},
		{"equal averages is no cross", TechnicalSignal{Close: 50, High52W: 100, MAShort: 50, MALong: 50}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := scorer.Score(Signal{Symbol: "x", Technical: &tt.tech})
			assert.Equal(t, tt.want, sc.Technical)
		})
	}
}

func TestScore_CapitalFlowHalvesAreIndependent(t *testing.T) {
	scorer := NewScorer(DefaultScoreConfig())

	// Only northbound present and above threshold.
	sc := scorer.Score(Signal{Symbol: "x", CapitalFlow: &CapitalFlowSignal{NorthboundNet: f(15_000_000)}})
	assert.Equal(t, 15, sc.CapitalFlow)
	assert.NotContains(t, sc.Missing, FamilyCapitalFlow)

	// Threshold is strict: exactly at the minimum scores nothing.
	sc = scorer.Score(Signal{Symbol: "x", CapitalFlow: &CapitalFlowSignal{NorthboundNet: f(10_000_000)}})
	assert.Equal(t, 0, sc.CapitalFlow)

	// Both halves nil means the family is missing, not zero-valued.
	sc = scorer.Score(Signal{Symbol: "x", CapitalFlow: &CapitalFlowSignal{}})
	assert.Contains(t, sc.Missing, FamilyCapitalFlow)
}

func TestScore_LogicThresholds(t *testing.T) {
	scorer := NewScorer(DefaultScoreConfig())

	sc := scorer.Score(Signal{Symbol: "x", Logic: &LogicSignal{AnalystBuyCount: n(5)}})
	assert.Equal(t, 15, sc.Logic)

	sc = scorer.Score(Signal{Symbol: "x", Logic: &LogicSignal{SectorHeatRank: n(10)}})
	assert.Equal(t, 15, sc.Logic)

	// Rank 0 is unranked, not hottest.
	sc = scorer.Score(Signal{Symbol: "x", Logic: &LogicSignal{SectorHeatRank: n(0)}})
	assert.Equal(t, 0, sc.Logic)

	sc = scorer.Score(Signal{Symbol: "x", Logic: &LogicSignal{SectorHeatRank: n(11)}})
	assert.Equal(t, 0, sc.Logic)
}

func TestScore_SentimentTiers(t *testing.T) {
	scorer := NewScorer(DefaultScoreConfig())

	tests := []struct {
		volume float64
		want   int
	}{
		{150_000, 20},
		{100_000, 20},
		{99_999, 10},
		{50_000, 10},
		{49_999, 0},
	}
	for _, tt := range tests {
		sc := scorer.Score(Signal{Symbol: "x", Sentiment: &SentimentSignal{DiscussionVolume: tt.volume}})
		assert.Equal(t, tt.want, sc.Sentiment, "volume %.0f", tt.volume)
	}
}

func TestScoreUniverse_DeterministicOrder(t *testing.T) {
	scorer := NewScorer(DefaultScoreConfig())
	date := market.Day(2024, 1, 8)

	signals := map[string]Signal{
		"000001.SZ": fullSignal("000001.SZ", date),
		"600519.SH": fullSignal("600519.SH", date),
		"688111.SH": {Symbol: "688111.SH", Date: date},
	}
	src := func(symbol string, d time.Time) (Signal, bool, error) {
		sig, ok := signals[symbol]
		return sig, ok, nil
	}
	universe := []string{"688111.SH", "600519.SH", "000001.SZ"}

	first, err := scorer.ScoreUniverse(universe, date, src)
	require.NoError(t, err)
	require.Len(t, first, 3)

	// Equal totals break ties lexically; repeated runs are byte-identical.
	assert.Equal(t, "000001.SZ", first[0].Symbol)
	assert.Equal(t, "600519.SH", first[1].Symbol)
	assert.Equal(t, "688111.SH", first[2].Symbol)

	for i := 0; i < 10; i++ {
		again, err := scorer.ScoreUniverse(universe, date, src)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestScoreUniverse_MissingSignalIsZeroNotError(t *testing.T) {
	scorer := NewScorer(DefaultScoreConfig())
	src := func(string, time.Time) (Signal, bool, error) {
		return Signal{}, false, nil
	}

	scores, err := scorer.ScoreUniverse([]string{"600519.SH"}, market.Day(2024, 1, 8), src)
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, 0, scores[0].Total)
	assert.Equal(t, 0.0, scores[0].Completeness)
	assert.Equal(t, "600519.SH", scores[0].Symbol)
}

func TestScoreUniverse_PropagatesSourceError(t *testing.T) {
	scorer := NewScorer(DefaultScoreConfig())
	boom := errors.New("causal-safety violation")
	src := func(symbol string, _ time.Time) (Signal, bool, error) {
		if symbol == "600519.SH" {
			return Signal{}, false, boom
		}
		return Signal{}, false, nil
	}

	_, err := scorer.ScoreUniverse([]string{"000001.SZ", "600519.SH"}, market.Day(2024, 1, 8), src)
	assert.ErrorIs(t, err, boom)
}

func TestFilter(t *testing.T) {
	scorer := NewScorer(DefaultScoreConfig())
	date := market.Day(2024, 1, 8)

	strong := fullSignal("600519.SH", date)
	weak := Signal{
		Symbol:    "000001.SZ",
		Date:      date,
		Sentiment: &SentimentSignal{DiscussionVolume: 60_000},
	}
	signals := map[string]Signal{"600519.SH": strong, "000001.SZ": weak}
	src := func(symbol string, _ time.Time) (Signal, bool, error) {
		sig, ok := signals[symbol]
		return sig, ok, nil
	}

	passed, err := scorer.Filter([]string{"600519.SH", "000001.SZ"}, date, src, 60, 0.5)
	require.NoError(t, err)
	require.Len(t, passed, 1)
	assert.Equal(t, "600519.SH", passed[0].Symbol)
}
