package backtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tianji-quant/tianji/internal/consensus"
	"github.com/tianji-quant/tianji/internal/cost"
	"github.com/tianji-quant/tianji/internal/ledger"
	"github.com/tianji-quant/tianji/internal/market"
)

func priceAll(price float64) PriceFunc {
	return func(string) (float64, bool) { return price, true }
}

func TestConsensusPolicy_SizesEntriesToWholeLots(t *testing.T) {
	p := NewConsensusPolicy()
	day := market.Day(2024, 1, 8)
	snap := ledger.Snapshot{Date: day, Cash: 1_000_000}
	scores := []consensus.Score{
		{Symbol: "600519.SH", Date: day, Total: 80, Completeness: 0.75},
	}

	orders, err := p.ProposeOrders(context.Background(), day, snap, scores, priceAll(100))
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, cost.Buy, orders[0].Side)
	// One of five slots on 990000 investable: floor(198000/10000) lots.
	assert.Equal(t, int64(1900), orders[0].Qty)
}

func TestConsensusPolicy_ThresholdsFilterEntries(t *testing.T) {
	p := NewConsensusPolicy()
	day := market.Day(2024, 1, 8)
	snap := ledger.Snapshot{Date: day, Cash: 1_000_000}

	scores := []consensus.Score{
		{Symbol: "000001.SZ", Date: day, Total: 59, Completeness: 1.0},  // below score bar
		{Symbol: "600519.SH", Date: day, Total: 90, Completeness: 0.25}, // below completeness bar
	}
	orders, err := p.ProposeOrders(context.Background(), day, snap, scores, priceAll(100))
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestConsensusPolicy_ExitsBeforeBuysAndSellsEligibleOnly(t *testing.T) {
	p := NewConsensusPolicy()
	day := market.Day(2024, 1, 9)
	snap := ledger.Snapshot{
		Date: day,
		Cash: 500_000,
		Positions: []ledger.Position{
			// Decayed below the exit bar; 300 of 500 shares are settled.
			{Symbol: "000001.SZ", Quantity: 500, EligibleQty: 300, LastPrice: 10},
		},
	}
	scores := []consensus.Score{
		{Symbol: "000001.SZ", Date: day, Total: 20, Completeness: 1.0},
		{Symbol: "600519.SH", Date: day, Total: 80, Completeness: 0.75},
	}

	orders, err := p.ProposeOrders(context.Background(), day, snap, scores, priceAll(100))
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, cost.Sell, orders[0].Side)
	assert.Equal(t, "000001.SZ", orders[0].Symbol)
	assert.Equal(t, int64(300), orders[0].Qty) // same-day shares stay

	assert.Equal(t, cost.Buy, orders[1].Side)
	assert.Equal(t, "600519.SH", orders[1].Symbol)
}

func TestConsensusPolicy_HeldSymbolNotRebought(t *testing.T) {
	p := NewConsensusPolicy()
	day := market.Day(2024, 1, 9)
	snap := ledger.Snapshot{
		Date: day,
		Cash: 500_000,
		Positions: []ledger.Position{
			{Symbol: "600519.SH", Quantity: 1900, EligibleQty: 1900, LastPrice: 100},
		},
	}
	scores := []consensus.Score{
		{Symbol: "600519.SH", Date: day, Total: 80, Completeness: 0.75},
	}

	orders, err := p.ProposeOrders(context.Background(), day, snap, scores, priceAll(100))
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestConsensusPolicy_MaxPositionsCapsEntries(t *testing.T) {
	p := NewConsensusPolicy()
	p.MaxPositions = 2
	day := market.Day(2024, 1, 8)
	snap := ledger.Snapshot{Date: day, Cash: 1_000_000}

	scores := []consensus.Score{
		{Symbol: "000001.SZ", Date: day, Total: 90, Completeness: 1.0},
		{Symbol: "000002.SZ", Date: day, Total: 85, Completeness: 1.0},
		{Symbol: "000003.SZ", Date: day, Total: 80, Completeness: 1.0},
	}
	orders, err := p.ProposeOrders(context.Background(), day, snap, scores, priceAll(50))
	require.NoError(t, err)
	require.Len(t, orders, 2)
	// Pre-sorted scores make the selection deterministic: highest first.
	assert.Equal(t, "000001.SZ", orders[0].Symbol)
	assert.Equal(t, "000002.SZ", orders[1].Symbol)
}

func TestConsensusPolicy_UnpricedSymbolSkipped(t *testing.T) {
	p := NewConsensusPolicy()
	day := market.Day(2024, 1, 8)
	snap := ledger.Snapshot{Date: day, Cash: 1_000_000}
	scores := []consensus.Score{
		{Symbol: "600519.SH", Date: day, Total: 80, Completeness: 0.75},
	}

	orders, err := p.ProposeOrders(context.Background(), day, snap, scores,
		func(string) (float64, bool) { return 0, false })
	require.NoError(t, err)
	assert.Empty(t, orders)
}
