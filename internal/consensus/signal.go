package consensus

import "time"

// Signal carries the four optional factor families for one (symbol, date).
// A nil family means the upstream collaborator produced nothing for it that
// day; absence is a distinct state, never a zero raw value. Within the
// capital-flow and logic families the two halves arrive from independent
// sources, so each half is optional on its own.
type Signal struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"`

	Technical   *TechnicalSignal   `json:"technical,omitempty"`
	CapitalFlow *CapitalFlowSignal `json:"capital_flow,omitempty"`
	Logic       *LogicSignal       `json:"logic,omitempty"`
	Sentiment   *SentimentSignal   `json:"sentiment,omitempty"`
}

// TechnicalSignal is the price-technical family. All fields are populated
// together or the family is absent.
type TechnicalSignal struct {
	Close    float64 `json:"close"`
	High52W  float64 `json:"high_52w"`
	MAShort  float64 `json:"ma_short"`
	MALong   float64 `json:"ma_long"`
}

// CapitalFlowSignal is the capital-flow family. Northbound flow and margin
// buying come from different vendors and may be missing independently.
type CapitalFlowSignal struct {
	NorthboundNet *float64 `json:"northbound_net,omitempty"` // CNY, net daily inflow
	MarginNet     *float64 `json:"margin_net,omitempty"`     // CNY, net financing buy
}

// LogicSignal is the analyst/sector family.
type LogicSignal struct {
	AnalystBuyCount *int `json:"analyst_buy_count,omitempty"`
	SectorHeatRank  *int `json:"sector_heat_rank,omitempty"` // 1 = hottest
}

// SentimentSignal is the discussion-volume family.
type SentimentSignal struct {
	DiscussionVolume float64 `json:"discussion_volume"`
}

// Family names used in missing-data reporting.
const (
	FamilyTechnical   = "technical"
	FamilyCapitalFlow = "capital_flow"
	FamilyLogic       = "logic"
	FamilySentiment   = "sentiment"
)

// Empty reports whether no family carries any usable input.
func (s Signal) Empty() bool {
	return !s.hasTechnical() && !s.hasCapitalFlow() && !s.hasLogic() && !s.hasSentiment()
}

func (s Signal) hasTechnical() bool {
	return s.Technical != nil
}

func (s Signal) hasCapitalFlow() bool {
	return s.CapitalFlow != nil && (s.CapitalFlow.NorthboundNet != nil || s.CapitalFlow.MarginNet != nil)
}

func (s Signal) hasLogic() bool {
	return s.Logic != nil && (s.Logic.AnalystBuyCount != nil || s.Logic.SectorHeatRank != nil)
}

func (s Signal) hasSentiment() bool {
	return s.Sentiment != nil
}
