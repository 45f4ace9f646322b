package streamfabric

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// blockDuration bounds each XREAD poll so Consume can observe ctx
// cancellation promptly even while a stream is idle (the Python original
// blocks with a plain timeout and re-enters its while loop the same way).
const blockDuration = 2 * time.Second

// Redis is the production Fabric, backed by Redis Streams via XADD/XREAD.
// It reproduces services/common/redis.py's publish_json/consume_stream:
// approximate MAXLEN trimming on publish, and a blocking read loop tracking
// the last delivered ID per stream.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an already-constructed client. Callers own the client's
// lifecycle (Close).
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Publish XADDs payload (JSON-marshalled field by field is avoided in favor
// of a single "data" field carrying the JSON document, matching
// publish_json's wire shape) with approximate trimming to maxLen.
func (r *Redis) Publish(ctx context.Context, stream string, payload map[string]any, maxLen int64) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("streamfabric: marshal payload for %s: %w", stream, err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]any{"data": body},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}

	id, err := r.client.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("streamfabric: xadd %s: %w", stream, err)
	}
	return id, nil
}

// Consume reads stream from startID (exclusive) forward, calling handler for
// each entry in delivery order, until ctx is cancelled. startID "" starts
// from the beginning of the stream (ID "0").
func (r *Redis) Consume(ctx context.Context, stream string, startID string, handler Handler) error {
	lastID := startID
	if lastID == "" {
		lastID = "0"
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		res, err := r.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{stream, lastID},
			Block:   blockDuration,
			Count:   100,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Error().Err(err).Str("stream", stream).Msg("streamfabric: xread failed, retrying")
			continue
		}

		for _, streamResult := range res {
			for _, msg := range streamResult.Messages {
				entry, err := decodeMessage(msg)
				if err != nil {
					log.Error().Err(err).Str("stream", stream).Str("id", msg.ID).Msg("streamfabric: dropping malformed entry")
					lastID = msg.ID
					continue
				}
				if err := handler(ctx, entry); err != nil {
					log.Error().Err(err).Str("stream", stream).Str("id", msg.ID).Msg("streamfabric: handler error")
				}
				lastID = msg.ID
			}
		}
	}
}

func decodeMessage(msg redis.XMessage) (Entry, error) {
	raw, ok := msg.Values["data"]
	if !ok {
		return Entry{}, fmt.Errorf("%w: entry %s missing data field", errMalformedEntry, msg.ID)
	}
	var body []byte
	switch v := raw.(type) {
	case string:
		body = []byte(v)
	case []byte:
		body = v
	default:
		return Entry{}, fmt.Errorf("%w: entry %s data field has unexpected type %T", errMalformedEntry, msg.ID, raw)
	}

	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return Entry{}, fmt.Errorf("%w: entry %s: %v", errMalformedEntry, msg.ID, err)
	}
	return Entry{ID: msg.ID, Payload: payload}, nil
}
