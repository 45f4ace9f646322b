// Package oms implements order routing and lifecycle tracking against a
// pluggable Broker adapter (§4.4): OTOCO assembly, a mock broker for tests,
// a live HTTP adapter with retry/backoff and circuit breaking, status
// polling, stop synchronization, and terminal-order metrics.
package oms

import (
	"context"
	"errors"
)

// ErrPermanentBroker marks a broker response that must not be retried
// (4xx other than 429) — distinct from a transient network/5xx failure.
var ErrPermanentBroker = errors.New("oms: permanent broker error")

// ErrInputMalformed marks a broker response that could not be projected
// into (order_id, state, fills, opaque).
var ErrInputMalformed = errors.New("oms: malformed broker response")

// Response is any broker adapter call's normalized result: an order ID,
// lifecycle state, any fills observed, and the raw opaque payload for
// audit round-trip (§4.4).
type Response struct {
	OrderID string
	State   string
	Fills   []Fill
	Opaque  map[string]any
}

// Fill is one execution reported by the broker.
type Fill struct {
	Price float64
	Qty   float64
	TS    int64
}

// Broker is the adapter interface every implementation (mock or live)
// satisfies (§4.4).
type Broker interface {
	Place(ctx context.Context, payload map[string]any) (Response, error)
	Modify(ctx context.Context, orderID string, payload map[string]any) (Response, error)
	Cancel(ctx context.Context, orderID string) (Response, error)
	Get(ctx context.Context, orderID string) (Response, error)
}
