package oms

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockBroker is the default in-memory adapter for tests and the backtest
// harness (mirrors services/oms/tradier_api.py's InMemoryBroker and the
// teacher's PaperBroker): Place fills immediately at the entry leg's limit
// price, matching the original's "fills using first leg's limit/stop price"
// behavior.
type MockBroker struct {
	mu     sync.Mutex
	orders map[string]Response
}

// NewMockBroker constructs an empty MockBroker.
func NewMockBroker() *MockBroker {
	return &MockBroker{orders: make(map[string]Response)}
}

func (b *MockBroker) Place(_ context.Context, payload map[string]any) (Response, error) {
	orderID := uuid.New().String()
	price := entryPrice(payload)

	resp := Response{
		OrderID: orderID,
		State:   "filled",
		Fills:   []Fill{{Price: price, Qty: quantity(payload)}},
		Opaque:  payload,
	}

	b.mu.Lock()
	b.orders[orderID] = resp
	b.mu.Unlock()
	return resp, nil
}

func (b *MockBroker) Modify(_ context.Context, orderID string, payload map[string]any) (Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	resp, ok := b.orders[orderID]
	if !ok {
		return Response{}, ErrInputMalformed
	}
	resp.Opaque = payload
	b.orders[orderID] = resp
	return resp, nil
}

func (b *MockBroker) Cancel(_ context.Context, orderID string) (Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	resp, ok := b.orders[orderID]
	if !ok {
		return Response{}, ErrInputMalformed
	}
	resp.State = "cancelled"
	b.orders[orderID] = resp
	return resp, nil
}

func (b *MockBroker) Get(_ context.Context, orderID string) (Response, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	resp, ok := b.orders[orderID]
	if !ok {
		return Response{}, ErrInputMalformed
	}
	return resp, nil
}

func entryPrice(payload map[string]any) float64 {
	if legs, ok := payload["legs"].([]map[string]any); ok && len(legs) > 0 {
		if p, ok := legs[0]["price"].(float64); ok {
			return p
		}
	}
	if p, ok := payload["orders[0][price]"].(float64); ok {
		return p
	}
	return 0
}

func quantity(payload map[string]any) float64 {
	if q, ok := payload["quantity"].(float64); ok {
		return q
	}
	return 1
}
