package cost

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tianji-quant/tianji/internal/market"
)

func TestPriceOrder_BuyWithCommissionFloor(t *testing.T) {
	m := New(market.DefaultRuleSet())

	// 100 shares at 100.00: fill 100.10 after 0.1% slippage, notional 10010.
	// Commission 10010 * 0.0003 = 3.00 which is under the 5 CNY floor.
	fill := m.PriceOrder(Buy, 100, 100.00, market.VenueShenzhen)

	assert.Equal(t, 100.00, fill.RawPrice)
	assert.Equal(t, 100.10, fill.FillPrice)
	assert.Equal(t, 10010.00, fill.Notional)
	assert.Equal(t, 5.00, fill.Commission)
	assert.Equal(t, 0.00, fill.StampDuty)    // buys carry no stamp duty
	assert.Equal(t, 0.00, fill.TransferFee)  // Shenzhen carries no transfer fee
	assert.Equal(t, 10.00, fill.Slippage)    // 0.10 * 100 shares
	assert.Equal(t, 15.00, fill.TotalCost)
	assert.Equal(t, -10015.00, fill.NetCash) // slippage already in the fill price
}

func TestPriceOrder_SellChargesStampDuty(t *testing.T) {
	m := New(market.DefaultRuleSet())

	// 100 shares at 100.00: fill 99.90 after slippage, notional 9990.
	fill := m.PriceOrder(Sell, 100, 100.00, market.VenueShanghai)

	assert.Equal(t, 99.90, fill.FillPrice)
	assert.Equal(t, 9990.00, fill.Notional)
	assert.Equal(t, 5.00, fill.Commission) // 2.997 rounds under the floor
	assert.Equal(t, 9.99, fill.StampDuty)
	assert.Equal(t, 0.10, fill.TransferFee) // 9990 * 0.00001 = 0.0999 -> 0.10
	assert.Equal(t, 10.00, fill.Slippage)
	// 9990 - 5 - 9.99 - 0.10
	assert.Equal(t, 9974.91, fill.NetCash)
}

func TestPriceOrder_TransferFeeShanghaiOnly(t *testing.T) {
	m := New(market.DefaultRuleSet())

	sh := m.PriceOrder(Buy, 1000, 50.00, market.VenueShanghai)
	sz := m.PriceOrder(Buy, 1000, 50.00, market.VenueShenzhen)

	assert.Greater(t, sh.TransferFee, 0.0)
	assert.Equal(t, 0.0, sz.TransferFee)
	assert.Equal(t, sh.FillPrice, sz.FillPrice)
}

func TestPriceOrder_CommissionAboveFloor(t *testing.T) {
	m := New(market.DefaultRuleSet())

	// 10000 shares at 100.00: fill 100.10, notional 1_001_000.
	// Commission 1_001_000 * 0.0003 = 300.30, well above the floor.
	fill := m.PriceOrder(Buy, 10_000, 100.00, market.VenueShenzhen)
	assert.Equal(t, 300.30, fill.Commission)
}

func TestPriceOrder_OnePercentSlippage(t *testing.T) {
	rules := market.DefaultRuleSet()
	rules.Costs.SlippageRate = 0.01
	m := New(rules)

	buy := m.PriceOrder(Buy, 100, 100.00, market.VenueShanghai)
	assert.Equal(t, 101.00, buy.FillPrice)

	sell := m.PriceOrder(Sell, 100, 100.00, market.VenueShanghai)
	assert.Equal(t, 99.00, sell.FillPrice)
}
