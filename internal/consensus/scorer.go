package consensus

import "time"

// Score is the bounded composite consensus score for one (symbol, date).
// Sub-scores are capped at 20/30/30/20, the total at 100. A missing family
// contributes exactly 0 and stays in the denominator: it is never imputed
// from peers and never excluded.
type Score struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`

	Technical   int `json:"technical"`    // 0..20
	CapitalFlow int `json:"capital_flow"` // 0..30
	Logic       int `json:"logic"`        // 0..30
	Sentiment   int `json:"sentiment"`    // 0..20
	Total       int `json:"total"`        // 0..100

	Missing      []string `json:"missing,omitempty"` // absent family names
	Completeness float64  `json:"completeness"`      // 1 - |missing|/4
}

// ScoreConfig holds the step-function thresholds. Each sub-score is a
// monotone step of its thresholded input; there is no linear blending
// inside a family.
type ScoreConfig struct {
	// Technical: +10 if close within this fraction of the 52-week high,
	// +10 on a golden-cross state (short MA above long MA).
	High52WProximity float64

	// Capital flow: +15 per half when net inflow exceeds the threshold (CNY).
	NorthboundMin float64
	MarginNetMin  float64

	// Logic: +15 when analyst buy recommendations reach the count,
	// +15 when the sector heat rank is within the top-N cutoff.
	AnalystBuyMin int
	SectorRankTop int

	// Sentiment: +20 above the high threshold, +10 above the low one.
	DiscussionHigh float64
	DiscussionLow  float64
}

// DefaultScoreConfig returns the production thresholds.
func DefaultScoreConfig() ScoreConfig {
	return ScoreConfig{
		High52WProximity: 0.05,
		NorthboundMin:    10_000_000, // 10M CNY net northbound inflow
		MarginNetMin:     5_000_000,  // 5M CNY net margin buying
		AnalystBuyMin:    5,
		SectorRankTop:    10,
		DiscussionHigh:   100_000,
		DiscussionLow:    50_000,
	}
}

// Scorer computes consensus scores from raw signals.
type Scorer struct {
	cfg ScoreConfig
}

// NewScorer creates a scorer with the given thresholds.
func NewScorer(cfg ScoreConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// Score computes the composite score for one signal. Missing data is never an
// exception path: a fully absent signal scores 0 with completeness 0.
func (s *Scorer) Score(sig Signal) Score {
	score := Score{Symbol: sig.Symbol, Date: sig.Date}

	if sig.hasTechnical() {
		score.Technical = s.technical(*sig.Technical)
	} else {
		score.Missing = append(score.Missing, FamilyTechnical)
	}

	if sig.hasCapitalFlow() {
		score.CapitalFlow = s.capitalFlow(*sig.CapitalFlow)
	} else {
		score.Missing = append(score.Missing, FamilyCapitalFlow)
	}

	if sig.hasLogic() {
		score.Logic = s.logic(*sig.Logic)
	} else {
		score.Missing = append(score.Missing, FamilyLogic)
	}

	if sig.hasSentiment() {
		score.Sentiment = s.sentiment(*sig.Sentiment)
	} else {
		score.Missing = append(score.Missing, FamilySentiment)
	}

	score.Total = score.Technical + score.CapitalFlow + score.Logic + score.Sentiment
	score.Completeness = 1.0 - float64(len(score.Missing))/4.0
	return score
}

// technical: +10 near the trailing 52-week high, +10 on a golden cross.
func (s *Scorer) technical(t TechnicalSignal) int {
	pts := 0
	if t.High52W > 0 && t.Close >= t.High52W*(1.0-s.cfg.High52WProximity) {
		pts += 10
	}
	if t.MAShort > t.MALong {
		pts += 10
	}
	return pts
}

// capitalFlow: each half scores independently; a missing half contributes 0.
func (s *Scorer) capitalFlow(c CapitalFlowSignal) int {
	pts := 0
	if c.NorthboundNet != nil && *c.NorthboundNet > s.cfg.NorthboundMin {
		pts += 15
	}
	if c.MarginNet != nil && *c.MarginNet > s.cfg.MarginNetMin {
		pts += 15
	}
	return pts
}

func (s *Scorer) logic(l LogicSignal) int {
	pts := 0
	if l.AnalystBuyCount != nil && *l.AnalystBuyCount >= s.cfg.AnalystBuyMin {
		pts += 15
	}
	if l.SectorHeatRank != nil && *l.SectorHeatRank <= s.cfg.SectorRankTop && *l.SectorHeatRank > 0 {
		pts += 15
	}
	return pts
}

func (s *Scorer) sentiment(v SentimentSignal) int {
	switch {
	case v.DiscussionVolume >= s.cfg.DiscussionHigh:
		return 20
	case v.DiscussionVolume >= s.cfg.DiscussionLow:
		return 10
	default:
		return 0
	}
}
