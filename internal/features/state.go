package features

// ivPoint is one observed (delta, iv) sample on the surface for a single
// option side (call or put), keyed by rounded delta bucket (§3 SymbolState).
type ivPoint struct {
	delta float64
	iv    float64
}

// SymbolState is the feature engine's exclusively-owned per-symbol working
// set (§3). All mutation happens through the three UpdateX methods; no
// other stage touches it.
type SymbolState struct {
	cfg Config

	prices  *ring
	volumes *ring
	highs   *ring
	lows    *ring
	closes  *ring
	returns *ring

	lastPrice     float64
	lastQuoteTS   int64
	cumCVD        float64
	prevClose     float64
	haveLastClose bool

	fastATR     float64
	haveFastATR bool

	spreadHistory *ring

	callSurface map[int]ivPoint // keyed by rounded-delta*100
	putSurface  map[int]ivPoint
	ivTerms     map[int]float64 // keyed by configured DTE bucket
	ivHistory   *ring

	esAgreeUntil int64
}

// NewSymbolState allocates a fresh, empty state under cfg.
func NewSymbolState(cfg Config) *SymbolState {
	return &SymbolState{
		cfg:           cfg,
		prices:        newRing(cfg.PriceCap),
		volumes:       newRing(cfg.PriceCap),
		highs:         newRing(cfg.PriceCap),
		lows:          newRing(cfg.PriceCap),
		closes:        newRing(cfg.PriceCap),
		returns:       newRing(cfg.ReturnsCap),
		spreadHistory: newRing(cfg.SpreadHistoryCap),
		callSurface:   make(map[int]ivPoint),
		putSurface:    make(map[int]ivPoint),
		ivTerms:       make(map[int]float64),
		ivHistory:     newRing(cfg.IVHistoryCap),
	}
}
