package model

// OrderState enumerates the broker-reported order lifecycle states (§3).
type OrderState string

const (
	StateOpen            OrderState = "open"
	StatePartiallyFilled OrderState = "partially_filled"
	StateFilled          OrderState = "filled"
	StateCancelled       OrderState = "cancelled"
	StateRejected        OrderState = "rejected"
	StateUnknown         OrderState = "unknown"
)

// Terminal reports whether a state ends the order's lifecycle.
func (s OrderState) Terminal() bool {
	switch s {
	case StateFilled, StateCancelled, StateRejected:
		return true
	default:
		return false
	}
}

// Fill is one partial or full execution of an order.
type Fill struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
	TS    int64   `json:"ts"`
}

// OrderRequest is a risk-admitted order destined for the OMS (§3).
// client_order_id (carried in Metadata) is the correlation key across the
// whole OMS surface and must be unique per submission.
type OrderRequest struct {
	TS            int64          `json:"ts"`
	Underlying    string         `json:"underlying"`
	OptionSymbol  string         `json:"option_symbol"`
	Side          Side           `json:"side"`
	Quantity      int            `json:"quantity"`
	EntryPrice    float64        `json:"entry_price"`
	TargetPrice   float64        `json:"target_price"`
	StopPrice     float64        `json:"stop_price"`
	TimeStopSecs  int            `json:"time_stop_secs"`
	Metadata      map[string]any `json:"metadata"`
}

// ClientOrderID reads the correlation key out of Metadata, if present.
func (r OrderRequest) ClientOrderID() string {
	if r.Metadata == nil {
		return ""
	}
	if v, ok := r.Metadata["client_order_id"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// OrderStatus is a broker-reported snapshot of an order (§3).
type OrderStatus struct {
	TS             int64          `json:"ts"`
	OrderID        string         `json:"order_id"`
	State          OrderState     `json:"state"`
	Request        map[string]any `json:"request"` // echo of the originating OrderRequest, as a map
	BrokerPayload  map[string]any `json:"broker_payload"`
	Fills          []Fill         `json:"fills"`
}

// RequestMetadata projects the echoed request's metadata map, if present.
func (s OrderStatus) RequestMetadata() map[string]any {
	if s.Request == nil {
		return nil
	}
	if m, ok := s.Request["metadata"].(map[string]any); ok {
		return m
	}
	return nil
}

// RequestClientOrderID extracts client_order_id from the echoed request,
// falling back to the broker order ID (mirrors
// RiskService._client_id_from_status / OMSService._client_id_from_status).
func (s OrderStatus) RequestClientOrderID() string {
	meta := s.RequestMetadata()
	if meta != nil {
		if v, ok := meta["client_order_id"].(string); ok && v != "" {
			return v
		}
	}
	return s.OrderID
}

// FilledQuantity sums the fills' qty fields.
func (s OrderStatus) FilledQuantity() float64 {
	var total float64
	for _, f := range s.Fills {
		total += f.Qty
	}
	return total
}

// OrderCommandAction enumerates the lifecycle-management commands risk may
// issue to the OMS.
type OrderCommandAction string

const (
	ActionCancel OrderCommandAction = "cancel"
	ActionModify OrderCommandAction = "modify"
)

// OrderCommand instructs the OMS to cancel or modify a working order (§3).
type OrderCommand struct {
	Action        OrderCommandAction `json:"action"`
	ClientOrderID string             `json:"client_order_id,omitempty"`
	OrderID       string             `json:"order_id,omitempty"`
	StopPrice     *float64           `json:"stop_price,omitempty"`
	TargetPrice   *float64           `json:"target_price,omitempty"`
}
