package domain

// ConfirmRule selects how the trend-confirmation sub-filters combine.
// The sub-filters are: close above SMA-20, MACD above its signal line, and
// RSI strictly inside (30, 70).
type ConfirmRule string

const (
	// ConfirmOff skips trend confirmation; confidence and filters alone gate entry.
	ConfirmOff ConfirmRule = "off"

	// ConfirmAny requires at least one sub-filter to hold (OR combination).
	ConfirmAny ConfirmRule = "any"

	// ConfirmAll requires every sub-filter to hold (AND combination).
	ConfirmAll ConfirmRule = "all"
)

// EntryPolicy is the single, named entry rule. An entry occurs on a bar when
// no position is open, the bar's entry confidence exceeds the threshold, the
// bar's filter flag is set, and the confirmation rule holds.
type EntryPolicy struct {
	ConfidenceThreshold float64     // entry confidence must exceed this
	Confirm             ConfirmRule // trend sub-filter combination
}

// Accepts reports whether the policy admits an entry on the given bar.
func (p EntryPolicy) Accepts(b *Bar) bool {
	if b.EntryConfidence <= p.ConfidenceThreshold {
		return false
	}
	if !b.FiltersOK {
		return false
	}
	return p.confirmed(b)
}

// confirmed evaluates the trend sub-filters under the configured rule.
func (p EntryPolicy) confirmed(b *Bar) bool {
	switch p.Confirm {
	case ConfirmOff:
		return true
	case ConfirmAll:
		return aboveSMA(b) && macdBullish(b) && rsiNeutral(b)
	default: // ConfirmAny
		return aboveSMA(b) || macdBullish(b) || rsiNeutral(b)
	}
}

func aboveSMA(b *Bar) bool    { return b.Close > b.SMA20 }
func macdBullish(b *Bar) bool { return b.MACD > b.MACDSignal }
func rsiNeutral(b *Bar) bool  { return b.RSI14 > 30 && b.RSI14 < 70 }
