package streamfabric

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryPublishConsumeOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := m.Publish(ctx, "s1", map[string]any{"i": float64(i)}, 0)
		require.NoError(t, err)
	}

	var seen []float64
	consumeCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()

	_ = m.Consume(consumeCtx, "s1", "", func(_ context.Context, e Entry) error {
		seen = append(seen, e.Payload["i"].(float64))
		return nil
	})

	assert.Equal(t, []float64{0, 1, 2, 3, 4}, seen)
}

func TestMemoryApproxTrim(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		_, err := m.Publish(ctx, "s1", map[string]any{"i": float64(i)}, 3)
	require.NoError(t, err)
	}

	snap := m.Snapshot("s1")
	require.Len(t, snap, 3)
	assert.Equal(t, float64(9), snap[len(snap)-1].Payload["i"])
}

func TestMemoryConsumeIsPrefixOfPublishOrder(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	want := []float64{}
	for i := 0; i < 20; i++ {
		_, err := m.Publish(ctx, "ordered", map[string]any{"i": float64(i)}, 0)
		require.NoError(t, err)
		want = append(want, float64(i))
	}

	var got []float64
	consumeCtx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer cancel()
	_ = m.Consume(consumeCtx, "ordered", "", func(_ context.Context, e Entry) error {
		got = append(got, e.Payload["i"].(float64))
		return nil
	})

	require.LessOrEqual(t, len(got), len(want))
	assert.Equal(t, want[:len(got)], got)
}
