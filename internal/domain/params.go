package domain

// SimParams holds every externally supplied simulation parameter. Nothing in
// the core hardcodes these values; cmd/ flags and the YAML config both
// materialize into this struct.
type SimParams struct {
	StopLossPct    float64 // initial stop distance as a fraction of entry price
	TakeProfitPct  float64 // take-profit distance as a fraction of entry price
	Commission     float64 // commission fraction per round trip
	Slippage       float64 // adverse price movement fraction at execution
	Leverage       float64 // leverage multiplier, must be > 0
	TrailingStop   bool    // enable trailing-stop updates while open
	TrailingOffset float64 // trailing distance as a fraction of the peak price

	// Entry
	Entry EntryPolicy

	// Step policy
	Step        StepPolicy // how bars are consumed after an entry
	MaxHoldBars int        // bars before a forced timeout exit (0 = no timeout)

	// Analyzer
	CapitalInitial       float64 // starting notional for the capital curve
	AnnualizationFactor  float64 // trading periods per year, bar-interval-agnostic
	MaterialityThreshold float64 // minimum |return| for a trade to count
}

// StepPolicy selects how the state machine advances while a position is open.
type StepPolicy string

const (
	// StepSingleBar evaluates at most one exit check per bar; a position
	// opened on bar i cannot exit on bar i.
	StepSingleBar StepPolicy = "single_bar"

	// StepLookahead re-scans a fixed window of bars after each entry and
	// resumes the entry scan past the exit bar.
	StepLookahead StepPolicy = "lookahead"
)

// DefaultSimParams mirrors the conventional defaults; every field remains
// overridable.
func DefaultSimParams() SimParams {
	return SimParams{
		StopLossPct:    0.015,
		TakeProfitPct:  0.045,
		Commission:     0.001,
		Slippage:       0.0005,
		Leverage:       2.0,
		TrailingStop:   true,
		TrailingOffset: 0.005,
		Entry: EntryPolicy{
			ConfidenceThreshold: 0.60,
			Confirm:             ConfirmAny,
		},
		Step:                 StepSingleBar,
		MaxHoldBars:          0,
		CapitalInitial:       10_000,
		AnnualizationFactor:  252,
		MaterialityThreshold: 1e-6,
	}
}
