package streamfabric

import (
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeMessageRoundTrip(t *testing.T) {
	msg := redis.XMessage{
		ID:     "1700000000000-0",
		Values: map[string]any{"data": `{"symbol":"SPY","bid":450.1}`},
	}

	entry, err := decodeMessage(msg)
	require.NoError(t, err)
	assert.Equal(t, "1700000000000-0", entry.ID)
	assert.Equal(t, "SPY", entry.Payload["symbol"])
	assert.Equal(t, 450.1, entry.Payload["bid"])
}

func TestDecodeMessageMalformedField(t *testing.T) {
	msg := redis.XMessage{ID: "1-0", Values: map[string]any{"not_data": "x"}}
	_, err := decodeMessage(msg)
	require.Error(t, err)
	assert.True(t, IsMalformedEntry(err))
}

func TestDecodeMessageInvalidJSON(t *testing.T) {
	msg := redis.XMessage{ID: "1-0", Values: map[string]any{"data": "{not json"}}
	_, err := decodeMessage(msg)
	require.Error(t, err)
	assert.True(t, IsMalformedEntry(err))
}
