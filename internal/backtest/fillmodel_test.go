package backtest

import (
	"testing"

	"github.com/n8kahl/dreambot/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestFillModelBuyAddsHalfSpreadAndSlippage(t *testing.T) {
	fm := DefaultFillModel()
	price := fm.Price(100.0, 0.10, model.Buy, "normal", 0)
	assert.InDelta(t, 100.0+0.05+0.01, price, 1e-9)
}

func TestFillModelSellSubtractsHalfSpreadAndSlippage(t *testing.T) {
	fm := DefaultFillModel()
	price := fm.Price(100.0, 0.10, model.Sell, "normal", 0)
	assert.InDelta(t, 100.0-0.05-0.01, price, 1e-9)
}

func TestFillModelStressedAddsPenalty(t *testing.T) {
	fm := DefaultFillModel()
	price := fm.Price(100.0, 0.10, model.Buy, "stressed", 0)
	assert.InDelta(t, 100.0+0.05+0.03, price, 1e-9) // base + 2*base
}

func TestFillModelTightReducesSlippage(t *testing.T) {
	fm := DefaultFillModel()
	price := fm.Price(100.0, 0.10, model.Buy, "tight", 0)
	assert.InDelta(t, 100.0+0.05+0.005, price, 1e-9) // base - 0.5*base
}

func TestFillModelEventRateAddsLinearSlippage(t *testing.T) {
	fm := DefaultFillModel()
	price := fm.Price(100.0, 0.10, model.Buy, "normal", 5)
	assert.InDelta(t, 100.0+0.05+0.01+0.005, price, 1e-9)
}
