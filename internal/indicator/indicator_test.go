package indicator

import (
	"math"
	"testing"

	"trade-sim-lab/internal/domain"
)

func almostEqual(a, b, tol float64) bool {
	return math.Abs(a-b) <= tol
}

func TestSMA_Warmup(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}
	got := SMA(values, 3)
	if len(got) != len(values) {
		t.Fatalf("length = %d, want %d", len(got), len(values))
	}
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Fatalf("warmup positions not NaN: %v", got[:2])
	}
	want := []float64{2, 3, 4}
	for i, w := range want {
		if !almostEqual(got[i+2], w, 1e-12) {
			t.Errorf("sma[%d] = %v, want %v", i+2, got[i+2], w)
		}
	}
}

func TestSMA_InvalidPeriod(t *testing.T) {
	if SMA([]float64{1, 2, 3}, 0) != nil {
		t.Fatal("expected nil for period 0")
	}
}

func TestEMA_SeededWithSMA(t *testing.T) {
	values := []float64{2, 4, 6, 8}
	got := EMA(values, 3)
	if !math.IsNaN(got[0]) || !math.IsNaN(got[1]) {
		t.Fatalf("warmup positions not NaN: %v", got[:2])
	}
	// seed = mean(2,4,6) = 4; k = 0.5; next = (8-4)*0.5 + 4 = 6
	if !almostEqual(got[2], 4, 1e-12) {
		t.Errorf("seed = %v, want 4", got[2])
	}
	if !almostEqual(got[3], 6, 1e-12) {
		t.Errorf("ema[3] = %v, want 6", got[3])
	}
}

func TestEMA_ShortInput(t *testing.T) {
	got := EMA([]float64{1, 2}, 5)
	for i, v := range got {
		if !math.IsNaN(v) {
			t.Fatalf("position %d = %v, want NaN", i, v)
		}
	}
}

func TestRSI_MonotonicRally(t *testing.T) {
	values := make([]float64, 20)
	for i := range values {
		values[i] = 100 + float64(i)
	}
	got := RSI(values, 14)
	last := got[len(got)-1]
	if last != 100 {
		t.Fatalf("rsi of pure rally = %v, want 100", last)
	}
}

func TestRSI_Bounds(t *testing.T) {
	values := []float64{50, 52, 51, 53, 50, 49, 52, 54, 53, 51, 50, 52, 55, 54, 53, 52, 51, 53, 54, 52}
	got := RSI(values, 14)
	for i, v := range got {
		if math.IsNaN(v) {
			continue
		}
		if v < 0 || v > 100 {
			t.Fatalf("rsi[%d] = %v out of [0,100]", i, v)
		}
	}
}

func TestMACD_ConvergesToZeroOnFlatSeries(t *testing.T) {
	values := make([]float64, 60)
	for i := range values {
		values[i] = 100
	}
	macd, signal := MACD(values, 12, 26, 9)
	if macd == nil || signal == nil {
		t.Fatal("expected non-nil outputs")
	}
	last := len(values) - 1
	if !almostEqual(macd[last], 0, 1e-9) {
		t.Errorf("macd tail = %v, want 0", macd[last])
	}
	if !almostEqual(signal[last], 0, 1e-9) {
		t.Errorf("signal tail = %v, want 0", signal[last])
	}
}

func TestMACD_InvalidPeriods(t *testing.T) {
	if m, s := MACD([]float64{1, 2, 3}, 26, 12, 9); m != nil || s != nil {
		t.Fatal("expected nil when fast >= slow")
	}
}

func TestAnnotate_WarmupBarsFail(t *testing.T) {
	series := make(domain.BarSeries, 40)
	for i := range series {
		series[i] = &domain.Bar{
			Symbol:      "BTCUSDT",
			TimestampMs: int64(1_000_000 + i*60_000),
			Close:       100 + float64(i),
			Volume:      500,
		}
	}
	got := Annotate(series)
	if len(got) != len(series) {
		t.Fatalf("length = %d, want %d", len(got), len(series))
	}
	// The MACD signal line needs slow+signal-1 bars, the longest warmup.
	for i := 0; i < 33; i++ {
		if got[i].FiltersOK {
			t.Fatalf("bar %d inside warmup has filters_ok=true", i)
		}
	}
	if !got[len(got)-1].FiltersOK {
		t.Fatal("last bar of steady rally should pass filters")
	}
	if got[len(got)-1].SMA20 == 0 {
		t.Fatal("sma annotation missing on last bar")
	}
}

func TestAnnotate_PreservesInputSeries(t *testing.T) {
	series := domain.BarSeries{
		{Symbol: "BTCUSDT", TimestampMs: 1, Close: 100, Volume: 1, EntryConfidence: 0.9},
	}
	got := Annotate(series)
	if series[0].SMA20 != 0 {
		t.Fatal("input bar mutated")
	}
	if got[0].EntryConfidence != 0.9 {
		t.Fatal("confidence not carried through annotation")
	}
}

func TestAnnotate_Empty(t *testing.T) {
	if got := Annotate(nil); got != nil {
		t.Fatalf("expected nil, got %v", got)
	}
}
