package features

// Config holds the tunables named throughout spec §4.2. Defaults mirror
// original_source/dreambot/services/features/indicators.py's module-level
// constants.
type Config struct {
	PriceCap          int     // ring capacity for prices/volumes/highs/lows/closes
	ReturnsCap        int     // ring capacity for log-returns (larger: RV needs more history)
	SpreadHistoryCap  int     // rolling spread_pct history for classify_spread
	IVHistoryCap      int     // IV history ring for vol_of_vol

	BandStdevWindowSecs int // VWAP band sigma lookback
	SlopeLookback       int // VWAP slope least-squares window
	ATRLookback         int // Wilder ATR window (min_lookback)
	FastATRSecs         int // fast EMA ATR alpha = 2/(FastATRSecs+1)
	ADXTFMinutes        int // ADX window = ADXTFMinutes * 60 samples

	RVWindowShort int // realized-vol short window (samples)
	RVWindowLong  int // realized-vol long window (samples)

	StressZ               float64 // spread z-score stressed threshold
	SkewTargetDelta        float64 // nearest-delta target for skew (default 0.25)
	IVTermDaysShort        int
	IVTermDaysMid          int
	IVTermDaysLong         int
	ESLeadConfirmSecs      int64 // microseconds held after a confirm
	RiskFreeRate           float64
}

// DefaultConfig matches the Python original's constants.
func DefaultConfig() Config {
	return Config{
		PriceCap:         3600,
		ReturnsCap:       5400,
		SpreadHistoryCap: 300,
		IVHistoryCap:     300,

		BandStdevWindowSecs: 300,
		SlopeLookback:       30,
		ATRLookback:         14,
		FastATRSecs:         5,
		ADXTFMinutes:        3,

		RVWindowShort: 300,
		RVWindowLong:  900,

		StressZ:           2.0,
		SkewTargetDelta:   0.25,
		IVTermDaysShort:   9,
		IVTermDaysMid:     30,
		IVTermDaysLong:    60,
		ESLeadConfirmSecs: 30 * 1_000_000,
		RiskFreeRate:      0.0,
	}
}
