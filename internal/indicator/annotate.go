package indicator

import (
	"math"

	"trade-sim-lab/internal/domain"
)

// Standard periods used to populate the bar annotation fields.
const (
	smaPeriod        = 20
	emaPeriod        = 9
	rsiPeriod        = 14
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
	volumePeriod     = 20
	volumeFraction   = 0.4
)

// RSI bounds for the momentum filter.
const (
	rsiFilterLow  = 25
	rsiFilterHigh = 75
)

// Annotate returns a copy of the series with indicator fields and the
// filters_ok flag populated from the close and volume columns. Bars inside
// the indicator warmup window are marked filters_ok=false so the entry
// policy never acts on undefined values. Confidence fields are preserved.
func Annotate(series domain.BarSeries) domain.BarSeries {
	if len(series) == 0 {
		return nil
	}
	closes := make([]float64, len(series))
	volumes := make([]float64, len(series))
	for i, b := range series {
		closes[i] = b.Close
		volumes[i] = b.Volume
	}

	sma := SMA(closes, smaPeriod)
	ema := EMA(closes, emaPeriod)
	rsi := RSI(closes, rsiPeriod)
	macd, signal := MACD(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	volAvg := SMA(volumes, volumePeriod)

	out := make(domain.BarSeries, len(series))
	for i, b := range series {
		nb := *b
		nb.SMA20 = sma[i]
		nb.EMA9 = ema[i]
		nb.RSI14 = rsi[i]
		nb.MACD = macd[i]
		nb.MACDSignal = signal[i]
		nb.FiltersOK = filtersOK(&nb, volAvg[i])
		out[i] = &nb
	}
	return out
}

// filtersOK applies the regime filters: an uptrend gate (close above the
// 20-period SMA or the 9-period EMA), a momentum gate (RSI inside its
// neutral band or MACD above its signal line), and a volume gate (volume
// above a fraction of its rolling average). Any undefined indicator fails
// its gate.
func filtersOK(b *domain.Bar, volAvg float64) bool {
	if anyNaN(b.SMA20, b.EMA9, b.RSI14, b.MACD, b.MACDSignal, volAvg) {
		return false
	}
	trend := b.Close > b.SMA20 || b.Close > b.EMA9
	momentum := (b.RSI14 > rsiFilterLow && b.RSI14 < rsiFilterHigh) || b.MACD > b.MACDSignal
	volume := b.Volume > volAvg*volumeFraction
	return trend && momentum && volume
}

func anyNaN(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) {
			return true
		}
	}
	return false
}
