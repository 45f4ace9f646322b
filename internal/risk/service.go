package risk

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/n8kahl/dreambot/internal/model"
	"github.com/n8kahl/dreambot/internal/streamfabric"
	"github.com/rs/zerolog/log"
)

// PendingOrderState enumerates the lifecycle state machine in §4.4.
type PendingOrderState string

const (
	PendingNew        PendingOrderState = "NEW"
	PendingAck        PendingOrderState = "PENDING_ACK"
	PendingWorking    PendingOrderState = "WORKING"
	PendingAdjusting  PendingOrderState = "ADJUSTING"
	PendingCancelSent PendingOrderState = "CANCEL_SENT"
	PendingDone       PendingOrderState = "DONE"
)

// PendingOrder is risk's exclusively-owned per-client_order_id record (§3).
type PendingOrder struct {
	Request         model.OrderRequest
	ClientOrderID   string
	State           PendingOrderState
	OrderID         string
	PartialAdjusted bool

	orderIDAssigned chan struct{}
	assignedOnce    sync.Once
}

func newPendingOrder(req model.OrderRequest, clientOrderID string) *PendingOrder {
	return &PendingOrder{
		Request:         req,
		ClientOrderID:   clientOrderID,
		State:           PendingNew,
		orderIDAssigned: make(chan struct{}),
	}
}

func (p *PendingOrder) assignOrderID(orderID string) {
	p.assignedOnce.Do(func() {
		p.OrderID = orderID
		close(p.orderIDAssigned)
	})
}

// Publisher is the subset of the stream fabric the risk stage needs:
// publish a JSON payload to a named stream.
type Publisher interface {
	Publish(ctx context.Context, stream string, payload map[string]any) error
}

// Service orchestrates order submission, time-stop enforcement, and
// partial-fill adjustment (§4.4). One Service instance owns all pending
// orders for a process.
type Service struct {
	Manager   *Manager
	Publisher Publisher

	mu      sync.Mutex
	pending map[string]*PendingOrder
}

// NewService constructs a Service.
func NewService(manager *Manager, publisher Publisher) *Service {
	return &Service{Manager: manager, Publisher: publisher, pending: make(map[string]*PendingOrder)}
}

// SubmitSignal admits intent against the entry checks and, if allowed,
// builds an OrderRequest (quantity=1, per §9's open question — no sizing
// model is invented here), publishes it to risk_orders, registers a
// PendingOrder, and arms the time-stop worker. Returns ok=false when entry
// is not allowed (no error: rejection is a normal outcome, not a fault).
func (s *Service) SubmitSignal(ctx context.Context, intent model.SignalIntent, state State, now int64) (model.OrderRequest, bool, error) {
	if !s.Manager.EntryAllowed(state, now) {
		return model.OrderRequest{}, false, nil
	}

	clientOrderID := fmt.Sprintf("%s-%d", intent.Underlying, now)
	entryPrice := 0.0 // derived by the OMS from the current option quote; risk only carries the underlying move targets
	req := model.OrderRequest{
		TS:           intent.TS,
		Underlying:   intent.Underlying,
		Side:         intent.Side,
		Quantity:     1, // placeholder: "TODO integrate learner sizing and risk budget" in the original
		EntryPrice:   entryPrice,
		TargetPrice:  intent.TargetUnderlyingMove,
		StopPrice:    intent.StopUnderlyingMove,
		TimeStopSecs: intent.TimeStopSecs,
		Metadata:     map[string]any{"client_order_id": clientOrderID, "playbook": string(intent.Playbook)},
	}

	if s.Publisher != nil {
		payload, err := toPayload(req)
		if err != nil {
			return model.OrderRequest{}, false, fmt.Errorf("risk: marshal order request: %w", err)
		}
		if err := s.Publisher.Publish(ctx, streamfabric.RiskOrders, payload); err != nil {
			return model.OrderRequest{}, false, fmt.Errorf("risk: publish order request: %w", err)
		}
	}

	pending := newPendingOrder(req, clientOrderID)
	pending.State = PendingAck

	s.mu.Lock()
	s.pending[clientOrderID] = pending
	s.mu.Unlock()

	go s.timeStopWorker(ctx, pending)

	return req, true, nil
}

// timeStopWorker waits for the order_id-assigned one-shot event (the Go
// analogue of the Python original's asyncio.Event gate), then sleeps for
// TimeStopSecs; if the order is still pending afterward it publishes a
// cancel OrderCommand. Mirrors RiskService._time_stop_worker.
func (s *Service) timeStopWorker(ctx context.Context, p *PendingOrder) {
	select {
	case <-ctx.Done():
		return
	case <-p.orderIDAssigned:
	}

	timer := time.NewTimer(time.Duration(p.Request.TimeStopSecs) * time.Second)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return
	case <-timer.C:
	}

	s.mu.Lock()
	current, ok := s.pending[p.ClientOrderID]
	stillPending := ok && current == p && current.State != PendingDone && current.State != PendingCancelSent
	if stillPending {
		current.State = PendingCancelSent
	}
	s.mu.Unlock()

	if !stillPending {
		return
	}

	cmd := model.OrderCommand{Action: model.ActionCancel, ClientOrderID: p.ClientOrderID, OrderID: p.OrderID}
	if s.Publisher == nil {
		return
	}
	payload, err := commandPayload(cmd)
	if err != nil {
		log.Error().Err(err).Str("client_order_id", p.ClientOrderID).Msg("risk: marshal cancel command")
		return
	}
	if err := s.Publisher.Publish(ctx, streamfabric.RiskCommands, payload); err != nil {
		log.Error().Err(err).Str("client_order_id", p.ClientOrderID).Msg("risk: publish cancel command")
	}
}

// ProcessStatus folds an incoming OrderStatus into the matching
// PendingOrder: assigns the broker order_id on first observation, applies
// the one-shot partial-fill modify, and drops terminal orders (§4.4).
func (s *Service) ProcessStatus(ctx context.Context, status model.OrderStatus) error {
	clientOrderID := status.RequestClientOrderID()

	s.mu.Lock()
	pending, ok := s.pending[clientOrderID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: no pending order for client_order_id %q", ErrInputMalformed, clientOrderID)
	}

	if pending.OrderID == "" && status.OrderID != "" {
		pending.assignOrderID(status.OrderID)
		s.mu.Lock()
		if pending.State == PendingAck {
			pending.State = PendingWorking
		}
		s.mu.Unlock()
	}

	if status.State.Terminal() {
		s.mu.Lock()
		pending.State = PendingDone
		delete(s.pending, clientOrderID)
		s.mu.Unlock()
		return nil
	}

	filled := status.FilledQuantity()
	if filled > 0 && filled < float64(pending.Request.Quantity) && !pending.PartialAdjusted {
		if err := s.emitPartialFillModify(ctx, pending, status); err != nil {
			return err
		}
	}
	return nil
}

// emitPartialFillModify tightens the stop toward entry, one-shot per order
// (§4.4): BUY -> max(min(entry,stop)-0.05, 0.01); SELL -> max(stop, entry+0.05).
func (s *Service) emitPartialFillModify(ctx context.Context, p *PendingOrder, status model.OrderStatus) error {
	entry := p.Request.EntryPrice
	stop := p.Request.StopPrice

	var newStop float64
	if p.Request.Side == model.Buy {
		newStop = min(entry, stop) - 0.05
		if newStop < 0.01 {
			newStop = 0.01
		}
	} else {
		newStop = max(stop, entry+0.05)
	}

	s.mu.Lock()
	p.PartialAdjusted = true
	p.State = PendingAdjusting
	s.mu.Unlock()

	cmd := model.OrderCommand{
		Action:        model.ActionModify,
		ClientOrderID: p.ClientOrderID,
		OrderID:       p.OrderID,
		StopPrice:     &newStop,
	}
	if s.Publisher == nil {
		return nil
	}
	payload, err := commandPayload(cmd)
	if err != nil {
		return fmt.Errorf("risk: marshal modify command: %w", err)
	}
	if err := s.Publisher.Publish(ctx, streamfabric.RiskCommands, payload); err != nil {
		return fmt.Errorf("risk: publish modify command: %w", err)
	}
	return nil
}
