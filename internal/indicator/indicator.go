// Package indicator computes the technical series used to annotate bars
// before simulation. All functions return slices aligned to the input
// length, with NaN padding for warmup positions.
package indicator

import "math"

// SMA returns the simple moving average over the last period points.
func SMA(values []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	out := make([]float64, len(values))
	var sum float64
	for i := range values {
		sum += values[i]
		if i < period-1 {
			out[i] = math.NaN()
			continue
		}
		if i >= period {
			sum -= values[i-period]
		}
		out[i] = sum / float64(period)
	}
	return out
}

// EMA returns the exponential moving average with smoothing 2/(period+1),
// seeded with the SMA of the first period points.
func EMA(values []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	out := make([]float64, len(values))
	if len(values) < period {
		for i := range out {
			out[i] = math.NaN()
		}
		return out
	}
	k := 2.0 / float64(period+1)
	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
		if i < period-1 {
			out[i] = math.NaN()
		}
	}
	out[period-1] = seed / float64(period)
	for i := period; i < len(values); i++ {
		out[i] = (values[i]-out[i-1])*k + out[i-1]
	}
	return out
}

// RSI returns the relative strength index over period, with gains and
// losses smoothed by EMA. Values are in [0,100]; a window with no losses
// reads 100.
func RSI(values []float64, period int) []float64 {
	if period <= 0 {
		return nil
	}
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(values) < period+1 {
		return out
	}
	gains := make([]float64, len(values)-1)
	losses := make([]float64, len(values)-1)
	for i := 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = -change
		}
	}
	avgGain := EMA(gains, period)
	avgLoss := EMA(losses, period)
	for i := range avgGain {
		if math.IsNaN(avgGain[i]) || math.IsNaN(avgLoss[i]) {
			continue
		}
		if avgLoss[i] == 0 {
			out[i+1] = 100
			continue
		}
		rs := avgGain[i] / avgLoss[i]
		out[i+1] = 100 - 100/(1+rs)
	}
	return out
}

// MACD returns the MACD line (fast EMA minus slow EMA) and its signal line
// (EMA of the MACD line over signalPeriod).
func MACD(values []float64, fast, slow, signalPeriod int) (macd, signal []float64) {
	if fast <= 0 || slow <= 0 || signalPeriod <= 0 || fast >= slow {
		return nil, nil
	}
	fastEMA := EMA(values, fast)
	slowEMA := EMA(values, slow)
	macd = make([]float64, len(values))
	for i := range values {
		macd[i] = fastEMA[i] - slowEMA[i]
	}
	// The signal EMA must only see defined MACD values, so it is seeded
	// from the first position where the slow EMA exists.
	signal = make([]float64, len(values))
	for i := range signal {
		signal[i] = math.NaN()
	}
	if len(values) >= slow {
		tail := EMA(macd[slow-1:], signalPeriod)
		copy(signal[slow-1:], tail)
	}
	return macd, signal
}
