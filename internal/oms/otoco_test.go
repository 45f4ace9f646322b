package oms

import (
	"testing"

	"github.com/n8kahl/dreambot/internal/model"
	"github.com/stretchr/testify/assert"
)

func TestBuildOTOCOLegs(t *testing.T) {
	req := model.OrderRequest{
		Side: model.Buy, EntryPrice: 1.5, TargetPrice: 1.7, StopPrice: 1.3,
	}
	o := BuildOTOCO("SPY260116C00450000", req, 0.05)

	assert.Equal(t, "limit", o.Entry.OrderType)
	assert.InDelta(t, 1.55, o.Entry.Price, 1e-9)
	assert.Equal(t, model.Buy, o.Entry.Side)

	assert.Equal(t, model.Sell, o.Target.Side)
	assert.Equal(t, 1.7, o.Target.Price)

	assert.Equal(t, model.Sell, o.Stop.Side)
	assert.Equal(t, "stop", o.Stop.OrderType)
	assert.Equal(t, 1.3, o.Stop.Price)
}

func TestOTOCOToPayloadShape(t *testing.T) {
	req := model.OrderRequest{Side: model.Buy, EntryPrice: 1.5, TargetPrice: 1.7, StopPrice: 1.3}
	o := BuildOTOCO("SPY", req, 0.05)
	payload := o.ToPayload()

	assert.Equal(t, "OTOCO", payload["type"])
	legs, ok := payload["legs"].([]map[string]any)
	assert.True(t, ok)
	assert.Len(t, legs, 3)
}

func TestOTOCOToBrokerPayloadFlatForm(t *testing.T) {
	req := model.OrderRequest{Side: model.Buy, EntryPrice: 1.5, TargetPrice: 1.7, StopPrice: 1.3}
	o := BuildOTOCO("SPY", req, 0.05)
	payload := o.ToBrokerPayload()

	assert.Equal(t, "otoco", payload["advanced"])
	assert.InDelta(t, 1.55, payload["orders[0][price]"], 1e-9)
}
