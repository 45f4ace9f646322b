// Package ingest implements the normalization stage (§4.1's producer
// side): turning raw vendor feed payloads into Quote/Agg1s/OptionMeta,
// rotating the tracked option universe, and emitting heartbeats.
package ingest

import (
	"fmt"

	"github.com/n8kahl/dreambot/internal/model"
)

// ErrInputMalformed mirrors the other stages' sentinel for a payload
// missing required fields.
var ErrInputMalformed = fmt.Errorf("ingest: malformed input")

func floatField(m map[string]any, key string, def float64) float64 {
	v, ok := m[key]
	if !ok {
		return def
	}
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	}
	return def
}

func intField(m map[string]any, key string, def int64) int64 {
	return int64(floatField(m, key, float64(def)))
}

func stringField(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

// NormalizeQuote converts a raw vendor quote message into a Quote,
// defaulting mid from bid/ask and nbbo_age_ms to 0, matching the
// original's Quote.from_dict.
func NormalizeQuote(raw map[string]any) (model.Quote, error) {
	symbol := stringField(raw, "symbol")
	if _, ok := raw["ts"]; !ok || symbol == "" {
		return model.Quote{}, ErrInputMalformed
	}
	if _, ok := raw["bid"]; !ok {
		return model.Quote{}, ErrInputMalformed
	}
	if _, ok := raw["ask"]; !ok {
		return model.Quote{}, ErrInputMalformed
	}

	bidVal := floatField(raw, "bid", 0)
	askVal := floatField(raw, "ask", 0)
	mid := floatField(raw, "mid", (bidVal+askVal)/2)

	return model.Quote{
		TS:        intField(raw, "ts", 0),
		Symbol:    symbol,
		Bid:       bidVal,
		Ask:       askVal,
		Mid:       mid,
		BidSize:   floatField(raw, "bid_size", 0),
		AskSize:   floatField(raw, "ask_size", 0),
		NBBOAgeMs: intField(raw, "nbbo_age_ms", 0),
	}, nil
}

// NormalizeAgg converts a raw vendor bar message into an Agg1s.
func NormalizeAgg(raw map[string]any) (model.Agg1s, error) {
	symbol := stringField(raw, "symbol")
	if symbol == "" {
		return model.Agg1s{}, ErrInputMalformed
	}
	if _, ok := raw["o"]; !ok {
		return model.Agg1s{}, ErrInputMalformed
	}
	if _, ok := raw["c"]; !ok {
		return model.Agg1s{}, ErrInputMalformed
	}

	return model.Agg1s{
		TS:     intField(raw, "ts", 0),
		Symbol: symbol,
		O:      floatField(raw, "o", 0),
		H:      floatField(raw, "h", 0),
		L:      floatField(raw, "l", 0),
		C:      floatField(raw, "c", 0),
		V:      floatField(raw, "v", 0),
	}, nil
}

// NormalizeOptionMeta converts a raw vendor option-chain snapshot entry
// into an OptionMeta, defaulting greeks/OI fields to zero when absent.
func NormalizeOptionMeta(raw map[string]any) (model.OptionMeta, error) {
	underlying := stringField(raw, "underlying")
	symbol := stringField(raw, "symbol")
	if underlying == "" || symbol == "" {
		return model.OptionMeta{}, ErrInputMalformed
	}
	if _, ok := raw["strike"]; !ok {
		return model.OptionMeta{}, ErrInputMalformed
	}

	return model.OptionMeta{
		TS:         intField(raw, "ts", 0),
		Underlying: underlying,
		Symbol:     symbol,
		Strike:     floatField(raw, "strike", 0),
		Type:       stringField(raw, "type"),
		Exp:        stringField(raw, "exp"),
		IV:         floatField(raw, "iv", 0),
		Delta:      floatField(raw, "delta", 0),
		Gamma:      floatField(raw, "gamma", 0),
		Vega:       floatField(raw, "vega", 0),
		Theta:      floatField(raw, "theta", 0),
		OI:         intField(raw, "oi", 0),
		PrevOI:     intField(raw, "prev_oi", 0),
	}, nil
}
