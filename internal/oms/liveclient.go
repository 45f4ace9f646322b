package oms

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
)

// LiveConfig configures the HTTP broker adapter (§4.4, §6).
type LiveConfig struct {
	BaseURL           string
	AccountID         string
	Token             string
	RequestTimeoutSecs int
	RetryBackoffSecs  float64
	MaxRetries        int
}

// LiveBroker is the production Broker adapter: bearer-token auth,
// form-encoded bodies, exponential backoff capped at 30s on transient
// failures, and a circuit breaker that trips after repeated failures.
// Grounded on services/oms/tradier_api.py's TradierClient and the
// teacher's broker_bridge.go/broker_hitbtc.go best-effort JSON extraction.
type LiveBroker struct {
	cfg     LiveConfig
	client  *retryablehttp.Client
	breaker *gobreaker.CircuitBreaker
}

// NewLiveBroker constructs a LiveBroker. The retryablehttp client backs off
// exponentially starting at RetryBackoffSecs, capped at 30s, retrying up to
// MaxRetries times after the first attempt.
func NewLiveBroker(cfg LiveConfig) *LiveBroker {
	client := retryablehttp.NewClient()
	client.RetryWaitMin = time.Duration(cfg.RetryBackoffSecs * float64(time.Second))
	client.RetryWaitMax = 30 * time.Second
	client.RetryMax = cfg.MaxRetries
	client.HTTPClient.Timeout = time.Duration(cfg.RequestTimeoutSecs) * time.Second
	client.Logger = nil
	client.CheckRetry = retryablehttp.DefaultRetryPolicy

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "oms-broker",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &LiveBroker{cfg: cfg, client: client, breaker: breaker}
}

func (b *LiveBroker) endpoint(orderID string) string {
	base := fmt.Sprintf("%s/accounts/%s/orders", strings.TrimRight(b.cfg.BaseURL, "/"), b.cfg.AccountID)
	if orderID != "" {
		return base + "/" + orderID
	}
	return base
}

func (b *LiveBroker) Place(ctx context.Context, payload map[string]any) (Response, error) {
	return b.do(ctx, http.MethodPost, b.endpoint(""), payload)
}

func (b *LiveBroker) Modify(ctx context.Context, orderID string, payload map[string]any) (Response, error) {
	return b.do(ctx, http.MethodPut, b.endpoint(orderID), payload)
}

func (b *LiveBroker) Cancel(ctx context.Context, orderID string) (Response, error) {
	return b.do(ctx, http.MethodDelete, b.endpoint(orderID), nil)
}

func (b *LiveBroker) Get(ctx context.Context, orderID string) (Response, error) {
	return b.do(ctx, http.MethodGet, b.endpoint(orderID), nil)
}

func (b *LiveBroker) do(ctx context.Context, method, endpoint string, payload map[string]any) (Response, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.roundTrip(ctx, method, endpoint, payload)
	})
	if err != nil {
		return Response{}, err
	}
	return result.(Response), nil
}

func (b *LiveBroker) roundTrip(ctx context.Context, method, endpoint string, payload map[string]any) (Response, error) {
	var bodyReader io.Reader
	if payload != nil {
		form := url.Values{}
		for k, v := range payload {
			form.Set(k, fmt.Sprint(v))
		}
		bodyReader = strings.NewReader(form.Encode())
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		return Response{}, fmt.Errorf("oms: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.cfg.Token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("oms: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("oms: read response: %w", err)
	}

	if resp.StatusCode >= 400 && resp.StatusCode != 429 {
		return Response{}, fmt.Errorf("%w: status %d: %s", ErrPermanentBroker, resp.StatusCode, string(body))
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrInputMalformed, err)
	}

	return extractResponse(raw), nil
}

// extractResponse applies the best-effort field extraction described in
// §6: order.{id,status,executions|fills}, falling back to flat top-level
// keys, matching the teacher's broker_bridge.go readStr helper pattern
// generalized to multiple key-name variants.
func extractResponse(raw map[string]any) Response {
	root := raw
	if order, ok := raw["order"].(map[string]any); ok {
		root = order
	}

	orderID := readStr(root, "id", "order_id", "orderId")
	state := readStr(root, "status", "state")
	fills := readFills(root)

	return Response{OrderID: orderID, State: state, Fills: fills, Opaque: raw}
}

func readStr(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			switch t := v.(type) {
			case string:
				return t
			case float64:
				return strconv.FormatFloat(t, 'f', -1, 64)
			}
		}
	}
	return ""
}

func readFills(m map[string]any) []Fill {
	for _, key := range []string{"executions", "fills"} {
		raw, ok := m[key]
		if !ok {
			continue
		}
		switch v := raw.(type) {
		case []any:
			return fillsFromSlice(v)
		case map[string]any:
			return fillsFromSlice([]any{v})
		}
	}
	return nil
}

func fillsFromSlice(items []any) []Fill {
	var out []Fill
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		out = append(out, Fill{
			Price: toFloat(entry["price"]),
			Qty:   toFloat(entry["quantity"]),
		})
	}
	return out
}

func toFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
	}
}
