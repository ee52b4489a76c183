package domain

// Bar represents one OHLCV price observation at a fixed time interval,
// annotated with indicator values and the entry-signal fields produced by
// the upstream data and model layers. Bars are immutable once produced.
type Bar struct {
	Symbol      string  // instrument identifier
	TimestampMs int64   // Unix timestamp in milliseconds, unique per series
	Open        float64 // opening price
	High        float64 // highest price
	Low         float64 // lowest price
	Close       float64 // closing price, used as the reference execution price
	Volume      float64 // traded volume

	// Indicator annotations (computed upstream, see internal/indicator)
	SMA20      float64 // 20-period simple moving average of close
	EMA9       float64 // 9-period exponential moving average of close
	RSI14      float64 // 14-period relative strength index
	MACD       float64 // MACD line (EMA12 - EMA26)
	MACDSignal float64 // MACD signal line (EMA9 of MACD)

	// Entry signal fields
	FiltersOK       bool    // data-quality and regime filters passed
	EntryConfidence float64 // classifier confidence in [0, 1]
}

// BarSeries is a chronologically ordered sequence of bars for one instrument.
// The simulation core treats it as read-only; independent simulation runs may
// share one series without locking.
type BarSeries []*Bar

// Span returns the first and last timestamps of the series, or zeros when empty.
func (s BarSeries) Span() (startMs, endMs int64) {
	if len(s) == 0 {
		return 0, 0
	}
	return s[0].TimestampMs, s[len(s)-1].TimestampMs
}

// IsOrdered reports whether timestamps are strictly increasing.
func (s BarSeries) IsOrdered() bool {
	for i := 1; i < len(s); i++ {
		if s[i].TimestampMs <= s[i-1].TimestampMs {
			return false
		}
	}
	return true
}
