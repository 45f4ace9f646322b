package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/n8kahl/dreambot/internal/model"
	"github.com/n8kahl/dreambot/internal/streamfabric"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	entries []publishedEntry
}

type publishedEntry struct {
	stream  string
	payload map[string]any
}

func (p *recordingPublisher) Publish(ctx context.Context, stream string, payload map[string]any, maxLen int64) (string, error) {
	p.entries = append(p.entries, publishedEntry{stream: stream, payload: payload})
	return "1-0", nil
}

func TestHandleQuoteMessagePublishesNormalizedQuote(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(ServiceConfig{MaxContracts: 10, RotateSecs: 60}, pub)

	err := svc.HandleQuoteMessage(context.Background(), map[string]any{
		"ts": 1.0, "symbol": "SPY", "bid": 100.0, "ask": 100.5,
	})
	require.NoError(t, err)
	require.Len(t, pub.entries, 1)
	assert.Equal(t, streamfabric.Quotes, pub.entries[0].stream)
	assert.Equal(t, "SPY", pub.entries[0].payload["symbol"])
}

func TestHandleQuoteMessageSkipsMalformedWithoutError(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(ServiceConfig{}, pub)

	err := svc.HandleQuoteMessage(context.Background(), map[string]any{"symbol": "SPY"})
	require.NoError(t, err)
	assert.Empty(t, pub.entries)
}

func TestHandleAggMessagePublishesNormalizedAgg(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(ServiceConfig{}, pub)

	err := svc.HandleAggMessage(context.Background(), map[string]any{
		"ts": 1.0, "symbol": "SPY", "o": 1.0, "c": 1.1,
	})
	require.NoError(t, err)
	require.Len(t, pub.entries, 1)
	assert.Equal(t, streamfabric.Aggs, pub.entries[0].stream)
}

func TestHandleOptionMetaMessagePublishesNormalizedMeta(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(ServiceConfig{}, pub)

	err := svc.HandleOptionMetaMessage(context.Background(), map[string]any{
		"ts": 1.0, "underlying": "SPY", "symbol": "SPY260116C00500000", "strike": 500.0,
	})
	require.NoError(t, err)
	require.Len(t, pub.entries, 1)
	assert.Equal(t, streamfabric.OptionMeta, pub.entries[0].stream)
}

func TestRotateAndPublishOnlyPublishesSelectedContracts(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(ServiceConfig{MaxContracts: 1, RotateSecs: 60}, pub)

	chain := []model.OptionMeta{
		{Symbol: "ATM", Strike: 500, Delta: 0.5},
		{Symbol: "FAR", Strike: 400, Delta: 0.1},
	}
	rotation, err := svc.RotateAndPublish(context.Background(), "SPY", chain, 1000)
	require.NoError(t, err)
	assert.Equal(t, []string{"ATM"}, rotation.Contracts)
	require.Len(t, pub.entries, 1)
	assert.Equal(t, "ATM", pub.entries[0].payload["symbol"])
}

func TestRunHeartbeatStopsOnContextCancel(t *testing.T) {
	pub := &recordingPublisher{}
	svc := NewService(ServiceConfig{HeartbeatSecs: 0, Source: "test"}, pub) // defaults to 30s ticker below

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := svc.RunHeartbeat(ctx)
	assert.NoError(t, err)
}
