// Package streamfabric implements the pipelined stream fabric (spec §4.1):
// append-only keyed logs per stream name, published to by monotonically
// increasing entry IDs and consumed in strict order from a resumable
// position. At-least-once delivery; no cross-stream ordering guarantee.
package streamfabric

import "context"

// Canonical stream names (spec §6; mirrors
// original_source/dreambot/services/common/streams.py, generalized from the
// quotes-only Python original to the full pipeline table in spec.md §2).
const (
	Quotes       = "dreambot:quotes"
	Aggs         = "dreambot:aggs"
	OptionMeta   = "dreambot:option_meta"
	Heartbeat    = "dreambot:heartbeat"
	Features     = "dreambot:features"
	Signals      = "dreambot:signals"
	LearnerAdj   = "dreambot:learner_adj"
	RiskOrders   = "dreambot:risk_orders"
	RiskCommands = "dreambot:risk_commands"
	OMSOrders    = "dreambot:oms_orders"
	OMSMetrics   = "dreambot:oms_metrics"
	Execution    = "dreambot:execution"
	Portfolio    = "dreambot:portfolio"
)

// DefaultMaxLen is the approximate-trim bound producers use unless they
// choose otherwise (spec §4.1).
const DefaultMaxLen = 1000

// Entry is one published record: a monotonic ID plus its JSON payload.
type Entry struct {
	ID      string
	Payload map[string]any
}

// Handler processes one consumed entry. A returned error is logged by the
// consume loop and does not stop consumption (malformed-payload handlers
// should validate internally and simply skip on InputMalformed).
type Handler func(ctx context.Context, entry Entry) error

// Fabric is the stream fabric contract: publish returns the new entry's ID;
// consume blocks delivering entries from startID (exclusive) until ctx is
// cancelled, calling handler once per entry in strict arrival order.
type Fabric interface {
	Publish(ctx context.Context, stream string, payload map[string]any, maxLen int64) (string, error)
	Consume(ctx context.Context, stream string, startID string, handler Handler) error
}
