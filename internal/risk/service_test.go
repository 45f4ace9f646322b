package risk

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/n8kahl/dreambot/internal/model"
	"github.com/n8kahl/dreambot/internal/streamfabric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu        sync.Mutex
	published []struct {
		stream  string
		payload map[string]any
	}
}

func (r *recordingPublisher) Publish(_ context.Context, stream string, payload map[string]any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.published = append(r.published, struct {
		stream  string
		payload map[string]any
	}{stream, payload})
	return nil
}

func (r *recordingPublisher) onStream(stream string) []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []map[string]any
	for _, p := range r.published {
		if p.stream == stream {
			out = append(out, p.payload)
		}
	}
	return out
}

func permissiveManager() *Manager {
	cfg := Config{
		DailyLossCap:             -1000,
		MaxConcurrentPositions:   10,
		NoTradeFirstSeconds:      0,
		EconHaltMinutesPrePost:   0,
		ForceFlatBeforeCloseSecs: 0,
		AccountEquity:            10000,
		PerTradeMaxRiskPct:       0.01,
		SlippageZMax:             100,
		SpreadZMax:               100,
	}
	return NewManager(cfg, nil)
}

func permissiveState() State {
	return State{
		CumulativePnL:      100,
		OpenPositions:      0,
		SessionElapsedSecs: 1000,
		MinutesToOpen:      1000,
		MinutesToClose:     1000,
	}
}

// Scenario 4 (spec §8): time-stop cancel.
func TestScenario4TimeStopCancel(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(permissiveManager(), pub)
	ctx := context.Background()

	intent := model.SignalIntent{Underlying: "SPY", Side: model.Buy, TimeStopSecs: 1, TS: 1}
	req, ok, err := svc.SubmitSignal(ctx, intent, permissiveState(), 1)
	require.NoError(t, err)
	require.True(t, ok)

	clientOrderID := req.Metadata["client_order_id"].(string)

	// First non-terminal status assigns the broker order_id, arming the
	// time-stop countdown.
	require.NoError(t, svc.ProcessStatus(ctx, model.OrderStatus{
		OrderID: "broker-1",
		State:   model.StateOpen,
		Request: map[string]any{"metadata": map[string]any{"client_order_id": clientOrderID}},
	}))

	time.Sleep(1050 * time.Millisecond)

	cancels := pub.onStream(streamfabric.RiskCommands)
	require.Len(t, cancels, 1)
	assert.Equal(t, clientOrderID, cancels[0]["client_order_id"])
	assert.Equal(t, "cancel", cancels[0]["action"])
}

// Scenario 5 (spec §8): partial-fill modify, one-shot.
func TestScenario5PartialFillModifyOneShot(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(permissiveManager(), pub)
	ctx := context.Background()

	intent := model.SignalIntent{Underlying: "SPY", Side: model.Buy, TimeStopSecs: 600, TS: 1}
	req, ok, err := svc.SubmitSignal(ctx, intent, permissiveState(), 1)
	require.NoError(t, err)
	require.True(t, ok)
	clientOrderID := req.Metadata["client_order_id"].(string)

	// Scenario 5's request carries quantity=2; SubmitSignal's placeholder
	// sizing always requests 1, so the pending order is bumped directly to
	// exercise the fill-quantity trigger (0 < filled < quantity).
	svc.mu.Lock()
	svc.pending[clientOrderID].Request.Quantity = 2
	svc.mu.Unlock()

	statusReq := map[string]any{"metadata": map[string]any{"client_order_id": clientOrderID}}
	status := model.OrderStatus{
		OrderID: "broker-1",
		State:   model.StateOpen,
		Request: statusReq,
		Fills:   []model.Fill{{Qty: 1}},
	}

	require.NoError(t, svc.ProcessStatus(ctx, status))
	require.NoError(t, svc.ProcessStatus(ctx, status)) // second identical status: no further modify

	modifies := pub.onStream(streamfabric.RiskCommands)
	require.Len(t, modifies, 1)
	assert.Equal(t, "modify", modifies[0]["action"])
}

// Scenario 6 (spec §8): econ halt blocks entry.
func TestScenario6EconHaltBlocksEntry(t *testing.T) {
	now := int64(10_000_000_000) // arbitrary epoch micros
	event := Event{Name: "CPI", ReleaseTS: now + 2*60*1_000_000, PaddingMins: 3}
	scheduler := NewScheduler(NewCalendar([]Event{event}))

	cfg := permissiveManager().Config
	mgr := NewManager(cfg, scheduler)

	state := State{
		CumulativePnL:      100,
		OpenPositions:      0,
		SessionElapsedSecs: 5 * 60,
		MinutesToOpen:      1000,
		MinutesToClose:     1000,
	}

	assert.False(t, mgr.EntryAllowed(state, now))
}

func TestEntryAllowedPasses(t *testing.T) {
	mgr := permissiveManager()
	assert.True(t, mgr.EntryAllowed(permissiveState(), 0))
}

func TestEntryAllowedFailsOnDailyLossCap(t *testing.T) {
	mgr := permissiveManager()
	state := permissiveState()
	state.CumulativePnL = -2000
	assert.False(t, mgr.EntryAllowed(state, 0))
}

func TestEntryAllowedFailsWhenDefensive(t *testing.T) {
	mgr := permissiveManager()
	state := permissiveState()
	state.SlippageZ = 1000
	assert.False(t, mgr.EntryAllowed(state, 0))
}
