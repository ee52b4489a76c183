package domain

// Trade represents one completed round trip, created exactly once at the
// moment a position closes. Corresponds to the trades table in PostgreSQL.
type Trade struct {
	TradeID string // deterministic hash
	RunID   string // simulation run that produced this trade
	Symbol  string // instrument identifier

	// Entry
	EntryTimeMs int64   // timestamp of the entry bar (ms)
	EntryPrice  float64 // close adjusted against the trader by slippage

	// Exit
	ExitTimeMs int64   // timestamp of the exit bar (ms), strictly after entry
	ExitPrice  float64 // stop, take-profit, or final close depending on reason
	ExitReason string  // reason code

	// Outcome
	Return   float64 // fractional realized return, net of commission and slippage
	Leverage float64 // leverage multiplier applied
}

// Exit reason codes. These are the wire values persisted with each trade and
// keyed in the per-reason metric tables.
const (
	ExitReasonStopLoss     = "stop_loss"
	ExitReasonTakeProfit   = "take_profit"
	ExitReasonTrailingStop = "trailing_stop"
	ExitReasonTimeout      = "timeout"
)

// ValidExitReason reports whether reason is one of the enumerated codes.
func ValidExitReason(reason string) bool {
	switch reason {
	case ExitReasonStopLoss, ExitReasonTakeProfit, ExitReasonTrailingStop, ExitReasonTimeout:
		return true
	}
	return false
}

// Ledger is the ordered collection of completed trades from a single
// simulation run. Append-only during the run; the sole input to the
// performance analyzer.
type Ledger []*Trade

// Returns extracts realized returns in chronological order.
func (l Ledger) Returns() []float64 {
	out := make([]float64, len(l))
	for i, t := range l {
		out[i] = t.Return
	}
	return out
}

// ExitReasons extracts exit reason codes in chronological order.
func (l Ledger) ExitReasons() []string {
	out := make([]string, len(l))
	for i, t := range l {
		out[i] = t.ExitReason
	}
	return out
}

// TotalReturn is the compounded return over the ledger.
func (l Ledger) TotalReturn() float64 {
	total := 1.0
	for _, t := range l {
		total *= 1 + t.Return
	}
	return total - 1
}
