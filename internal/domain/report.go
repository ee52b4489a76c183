package domain

// Report is the value object holding all derived performance statistics for
// one simulation run. Computed once per ledger, never partially updated.
// Corresponds to the reports table in PostgreSQL.
//
// When TotalTrades is zero no other field is defined; callers must check
// Empty() before reading the statistics.
type Report struct {
	RunID string // simulation run that produced this report

	TotalTrades int // materially nonzero trades only

	WinRate      float64 // winners / total
	AvgGain      float64 // mean winner return, 0 when no winners
	AvgLoss      float64 // mean loser return, negative, 0 when no losers
	ProfitFactor float64 // |sum winners| / |sum losers|, +Inf when no losers
	Expectancy   float64 // win_rate*avg_gain - (1-win_rate)*|avg_loss|
	MaxDrawdown  float64 // worst fractional decline from the capital peak
	Sharpe       float64 // annualized, on log returns, 0 when stddev is 0
	Sortino      float64 // annualized, downside deviation denominator

	FinalCapital float64 // capital curve endpoint
	TotalReturn  float64 // (final - initial) / initial

	// Per-exit-reason breakdown, keyed by exit reason code.
	ExpectancyByReason map[string]float64 // mean return per reason
	CountByReason      map[string]int     // trade count per reason
}

// Empty reports whether the run produced no materially nonzero trades.
// An empty report is a valid degenerate result, not an error.
func (r *Report) Empty() bool {
	return r.TotalTrades == 0
}
