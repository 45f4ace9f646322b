package model

// Side is the direction of an intent or order.
type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

// Playbook names the selected strategy template (§4.3).
type Playbook string

const (
	TrendPullback Playbook = "TREND_PULLBACK"
	BalanceFade   Playbook = "BALANCE_FADE"
	ORB           Playbook = "ORB"
	LatePush      Playbook = "LATE_PUSH"
)

// AllPlaybooks is the fixed bandit arm set.
var AllPlaybooks = []Playbook{TrendPullback, BalanceFade, ORB, LatePush}

// EntryTrigger describes the condition that arms the playbook's entry.
type EntryTrigger struct {
	Type          string   `json:"type"`
	Band          string   `json:"band"`
	Confirmations []string `json:"confirmations"`
}

// OptionFilters narrows the option chain to a tradable contract.
type OptionFilters struct {
	DeltaMin      float64 `json:"delta_min"`
	DeltaMax      float64 `json:"delta_max"`
	DTEMin        int     `json:"dte_min"`
	DTEMax        int     `json:"dte_max"`
	SpreadPctMax  float64 `json:"spread_pct_max"`
	QuoteAgeMsMax float64 `json:"quote_age_ms_max,omitempty"`
	LateClose     bool    `json:"late_close,omitempty"`
}

// SignalIntent is the output of playbook selection and intent construction
// (§3, §4.3).
type SignalIntent struct {
	TS                    int64         `json:"ts"`
	Underlying            string        `json:"underlying"`
	Side                  Side          `json:"side"`
	Playbook              Playbook      `json:"playbook"`
	EntryTrigger          EntryTrigger  `json:"entry_trigger"`
	TargetUnderlyingMove  float64       `json:"target_underlying_move"`
	StopUnderlyingMove    float64       `json:"stop_underlying_move"` // signed
	TimeStopSecs          int           `json:"time_stop_secs"`
	OptionFilters         OptionFilters `json:"option_filters"`
	SizeMultiplier        float64       `json:"size_multiplier"`
}
