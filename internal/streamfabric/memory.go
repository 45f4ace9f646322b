package streamfabric

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Memory is an in-process Fabric backed by a slice per stream, used by the
// backtest harness and package tests so they never require a live Redis
// instance (mirrors the teacher's PaperBroker: an in-memory stand-in with
// the same interface as the networked implementation).
type Memory struct {
	mu      sync.Mutex
	entries map[string][]Entry
	seq     map[string]int64
}

// NewMemory constructs an empty in-memory fabric.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string][]Entry),
		seq:     make(map[string]int64),
	}
}

// Publish appends payload to stream and returns the new monotonic entry ID,
// trimming the stream to approximately maxLen entries (maxLen <= 0 disables
// trimming).
func (m *Memory) Publish(ctx context.Context, stream string, payload map[string]any, maxLen int64) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq[stream]++
	id := fmt.Sprintf("%d-0", m.seq[stream])
	m.entries[stream] = append(m.entries[stream], Entry{ID: id, Payload: payload})

	if maxLen > 0 && int64(len(m.entries[stream])) > maxLen {
		overflow := int64(len(m.entries[stream])) - maxLen
		m.entries[stream] = m.entries[stream][overflow:]
	}
	return id, nil
}

// Consume replays entries after startID ("" means from the beginning),
// calling handler for each in arrival order, then blocks polling for new
// entries until ctx is cancelled. A handler error is logged and
// consumption continues with the next entry.
func (m *Memory) Consume(ctx context.Context, stream string, startID string, handler Handler) error {
	cursor := startID
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		batch := m.since(stream, cursor)
		for _, e := range batch {
			if err := handler(ctx, e); err != nil {
				log.Error().Err(err).Str("stream", stream).Str("id", e.ID).Msg("streamfabric: handler error")
			}
			cursor = e.ID
		}
		if len(batch) == 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Millisecond):
			}
		}
	}
}

func (m *Memory) since(stream string, cursor string) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	all := m.entries[stream]
	if cursor == "" {
		out := make([]Entry, len(all))
		copy(out, all)
		return out
	}
	for i, e := range all {
		if e.ID == cursor {
			out := make([]Entry, len(all)-i-1)
			copy(out, all[i+1:])
			return out
		}
	}
	// cursor not found (trimmed away): replay everything still held.
	out := make([]Entry, len(all))
	copy(out, all)
	return out
}

// Snapshot returns a copy of everything currently published to stream, for
// assertions in tests and for the backtest harness's deterministic replay.
func (m *Memory) Snapshot(stream string) []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, len(m.entries[stream]))
	copy(out, m.entries[stream])
	return out
}
