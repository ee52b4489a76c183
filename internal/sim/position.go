package sim

// Position is the transient state of one open trade. It exists only between
// an entry and the matching exit, is owned exclusively by the state machine,
// and never escapes a single simulation run.
type Position struct {
	EntryTimeMs int64   // timestamp of the entry bar
	EntryPrice  float64 // slippage-adjusted execution price
	Stop        float64 // current stop price, monotonically non-decreasing
	TakeProfit  float64 // take-profit price, fixed at entry
	Peak        float64 // highest favorable close since entry
	Leverage    float64 // leverage multiplier
	EntryBar    int     // index of the entry bar in the series

	// StopRaised records whether any rule has lifted the stop above its
	// initial level. Exit classification reads this tag instead of comparing
	// stop values, which is fragile under floating point.
	StopRaised bool
	RaisedBy   string // rule that most recently raised the stop
}

// RaiseStop lifts the stop to candidate when the candidate is higher.
// The stop never moves down while a position is open.
func (p *Position) RaiseStop(candidate float64, rule string) {
	if candidate > p.Stop {
		p.Stop = candidate
		p.StopRaised = true
		p.RaisedBy = rule
	}
}

// Rules that may raise the stop.
const raiseRuleTrailing = "trailing_stop"
