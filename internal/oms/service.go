package oms

import (
	"context"
	"fmt"
	"time"

	"github.com/n8kahl/dreambot/internal/model"
	"github.com/n8kahl/dreambot/internal/streamfabric"
	"github.com/rs/zerolog/log"
)

// Publisher is the subset of the stream fabric the OMS stage needs.
type Publisher interface {
	Publish(ctx context.Context, stream string, payload map[string]any) error
}

// ServiceConfig configures order routing and status polling (§4.4, §6).
type ServiceConfig struct {
	OffsetTicks       float64
	UseBrokerPayload  bool // true: flat orders[0][...] form; false: internal {symbol,type,legs} form
	PollIntervalSecs  int
	StatusTimeoutSecs int
}

// Service routes risk-admitted OrderRequests to a Broker, polls non-terminal
// orders to completion, and emits terminal metrics (§4.4's OMS component).
type Service struct {
	Broker    Broker
	Cfg       ServiceConfig
	Publisher Publisher
}

// NewService constructs a Service.
func NewService(broker Broker, cfg ServiceConfig, publisher Publisher) *Service {
	return &Service{Broker: broker, Cfg: cfg, Publisher: publisher}
}

// RouteOrder assembles the OTOCO bracket for req, places it with the
// broker, and — for a non-terminal initial response, when PollIntervalSecs
// is positive — starts a background polling task (§4.4's "Polling"
// paragraph). Returns the initial status.
func (s *Service) RouteOrder(ctx context.Context, req model.OrderRequest) (model.OrderStatus, error) {
	clientOrderID := requestClientOrderID(req)
	otoco := BuildOTOCO(req.OptionSymbol, req, s.Cfg.OffsetTicks)

	var payload map[string]any
	if s.Cfg.UseBrokerPayload {
		payload = otoco.ToBrokerPayload()
	} else {
		payload = otoco.ToPayload()
	}
	payload["quantity"] = float64(req.Quantity)

	resp, err := s.Broker.Place(ctx, payload)
	if err != nil {
		recordBrokerError("place")
		return model.OrderStatus{}, fmt.Errorf("oms: place order %s: %w", clientOrderID, err)
	}
	recordPlaced(resp.State)

	status := s.statusFromResponse(resp, req, clientOrderID)
	s.publish(ctx, streamfabric.OMSOrders, status)

	if !isTerminalState(resp.State) && s.Cfg.PollIntervalSecs > 0 {
		go s.monitorOrder(ctx, resp.OrderID, req, clientOrderID)
	} else if isTerminalState(resp.State) {
		s.emitMetrics(ctx, status, req)
	}

	return status, nil
}

// monitorOrder polls Broker.Get every PollIntervalSecs until a terminal
// state or StatusTimeoutSecs elapses, republishing each observed status to
// oms_orders and emitting metrics on the terminal one (§4.4).
func (s *Service) monitorOrder(ctx context.Context, orderID string, req model.OrderRequest, clientOrderID string) {
	deadline := time.Now().Add(time.Duration(s.Cfg.StatusTimeoutSecs) * time.Second)
	ticker := time.NewTicker(time.Duration(s.Cfg.PollIntervalSecs) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			log.Warn().Str("order_id", orderID).Msg("oms: status polling timed out before terminal state")
			return
		}

		resp, err := s.Broker.Get(ctx, orderID)
		if err != nil {
			recordBrokerError("get")
			log.Error().Err(err).Str("order_id", orderID).Msg("oms: poll failed")
			continue
		}

		status := s.statusFromResponse(resp, req, clientOrderID)
		s.publish(ctx, streamfabric.OMSOrders, status)

		if isTerminalState(resp.State) {
			s.emitMetrics(ctx, status, req)
			return
		}
	}
}

// HandleCommand dispatches a risk-issued cancel/modify command to the
// broker (§4.4).
func (s *Service) HandleCommand(ctx context.Context, cmd model.OrderCommand) (model.OrderStatus, error) {
	switch cmd.Action {
	case model.ActionCancel:
		resp, err := s.Broker.Cancel(ctx, cmd.OrderID)
		if err != nil {
			recordBrokerError("cancel")
			return model.OrderStatus{}, fmt.Errorf("oms: cancel %s: %w", cmd.OrderID, err)
		}
		return s.statusFromResponse(resp, model.OrderRequest{}, cmd.ClientOrderID), nil
	case model.ActionModify:
		payload := map[string]any{}
		if cmd.StopPrice != nil {
			payload["stop_price"] = *cmd.StopPrice
		}
		if cmd.TargetPrice != nil {
			payload["target_price"] = *cmd.TargetPrice
		}
		resp, err := s.Broker.Modify(ctx, cmd.OrderID, payload)
		if err != nil {
			recordBrokerError("modify")
			return model.OrderStatus{}, fmt.Errorf("oms: modify %s: %w", cmd.OrderID, err)
		}
		return s.statusFromResponse(resp, model.OrderRequest{}, cmd.ClientOrderID), nil
	default:
		return model.OrderStatus{}, fmt.Errorf("%w: unknown command action %q", ErrInputMalformed, cmd.Action)
	}
}

func (s *Service) statusFromResponse(resp Response, req model.OrderRequest, clientOrderID string) model.OrderStatus {
	fills := make([]model.Fill, len(resp.Fills))
	for i, f := range resp.Fills {
		fills[i] = model.Fill{Price: f.Price, Qty: f.Qty, TS: f.TS}
	}
	reqMap, _ := jsonToMap(req)
	if reqMap != nil {
		if reqMap["metadata"] == nil {
			reqMap["metadata"] = map[string]any{}
		}
		if meta, ok := reqMap["metadata"].(map[string]any); ok {
			meta["client_order_id"] = clientOrderID
		}
	}

	return model.OrderStatus{
		TS:            nowMicros(),
		OrderID:       resp.OrderID,
		State:         model.OrderState(resp.State),
		Request:       reqMap,
		BrokerPayload: resp.Opaque,
		Fills:         fills,
	}
}

// emitMetrics publishes the terminal-order metrics packet described in
// §4.4's "OMS metrics" paragraph.
func (s *Service) emitMetrics(ctx context.Context, status model.OrderStatus, req model.OrderRequest) {
	recordTerminal(string(status.State))

	clientOrderID := status.RequestClientOrderID()
	latencyMs := float64(status.TS-req.TS) / 1000.0
	recordLatency(clientOrderID, latencyMs)

	avgFillPrice := avgFillPrice(status.Fills)

	payload := map[string]any{
		"ts":              status.TS,
		"order_id":        status.OrderID,
		"client_order_id": clientOrderID,
		"state":           string(status.State),
		"side":            string(req.Side),
		"quantity":        req.Quantity,
		"filled_qty":      status.FilledQuantity(),
		"latency_ms":      latencyMs,
		"avg_fill_price":  avgFillPrice,
	}
	s.publishRaw(ctx, streamfabric.OMSMetrics, payload)
}

func avgFillPrice(fills []model.Fill) float64 {
	if len(fills) == 0 {
		return 0
	}
	var totalPrice, totalQty float64
	for _, f := range fills {
		totalPrice += f.Price * f.Qty
		totalQty += f.Qty
	}
	if totalQty == 0 {
		return 0
	}
	return totalPrice / totalQty
}

func (s *Service) publish(ctx context.Context, stream string, status model.OrderStatus) {
	payload, err := jsonToMap(status)
	if err != nil {
		log.Error().Err(err).Str("stream", stream).Msg("oms: marshal status for publish")
		return
	}
	s.publishRaw(ctx, stream, payload)
}

func (s *Service) publishRaw(ctx context.Context, stream string, payload map[string]any) {
	if s.Publisher == nil {
		return
	}
	if err := s.Publisher.Publish(ctx, stream, payload); err != nil {
		log.Error().Err(err).Str("stream", stream).Msg("oms: publish failed")
	}
}

func isTerminalState(state string) bool {
	return model.OrderState(state).Terminal()
}

func requestClientOrderID(req model.OrderRequest) string {
	if id := req.ClientOrderID(); id != "" {
		return id
	}
	return req.Underlying
}

// nowMicros is overridable in tests; production code uses wall-clock time.
var nowMicros = func() int64 { return time.Now().UnixMicro() }
