package harness

import (
	"context"
	"errors"
	"log"
	"math"
	"os"
	"testing"

	"trade-sim-lab/internal/domain"
)

func testLogger() *log.Logger {
	return log.New(os.Stderr, "[harness-test] ", log.LstdFlags)
}

// makeSeries builds a zig-zag series where every bar qualifies for entry, so
// most parameter combinations complete at least one round trip.
func makeSeries(n int) domain.BarSeries {
	series := make(domain.BarSeries, n)
	for i := 0; i < n; i++ {
		price := 100.0
		if i%2 == 1 {
			price = 104.0
		}
		series[i] = &domain.Bar{
			Symbol:          "TESTUSDT",
			TimestampMs:     1_000_000 + int64(i)*60_000,
			Open:            price,
			High:            price,
			Low:             price,
			Close:           price,
			Volume:          50,
			FiltersOK:       true,
			EntryConfidence: 0.9,
		}
	}
	return series
}

func testBase() domain.SimParams {
	p := domain.DefaultSimParams()
	p.Commission = 0
	p.Slippage = 0
	p.Leverage = 1
	p.TrailingStop = false
	p.Entry.Confirm = domain.ConfirmOff
	return p
}

func TestGrid_CombinationOrder(t *testing.T) {
	grid := Grid{
		StopLoss:   []float64{0.01, 0.02},
		TakeProfit: []float64{0.03, 0.04},
		Commission: []float64{0, 0.001},
	}

	combos := grid.Combinations(testBase())
	if len(combos) != 8 {
		t.Fatalf("expected 8 combinations, got %d", len(combos))
	}

	// Outer to inner: stop-loss, take-profit, commission.
	if combos[0].StopLossPct != 0.01 || combos[0].TakeProfitPct != 0.03 || combos[0].Commission != 0 {
		t.Errorf("combo 0 wrong: %+v", combos[0])
	}
	if combos[1].Commission != 0.001 {
		t.Errorf("commission must vary fastest, combo 1: %+v", combos[1])
	}
	if combos[4].StopLossPct != 0.02 {
		t.Errorf("stop-loss must vary slowest, combo 4: %+v", combos[4])
	}
}

func TestGridSearch_Deterministic(t *testing.T) {
	series := makeSeries(40)
	grid := Grid{
		StopLoss:   []float64{0.01, 0.02, 0.05},
		TakeProfit: []float64{0.02, 0.04},
		Commission: []float64{0, 0.001},
	}

	sweeper := NewSweeper(SweeperOptions{Symbol: "TESTUSDT", Parallelism: 1, Logger: testLogger()})

	best1, all1, err := sweeper.GridSearch(context.Background(), series, grid, testBase())
	if err != nil {
		t.Fatalf("GridSearch failed: %v", err)
	}
	best2, all2, err := sweeper.GridSearch(context.Background(), series, grid, testBase())
	if err != nil {
		t.Fatalf("GridSearch failed: %v", err)
	}

	if len(all1) != len(all2) {
		t.Fatalf("result counts differ: %d vs %d", len(all1), len(all2))
	}
	if best1.Params != best2.Params {
		t.Errorf("best params differ between identical sequential runs:\n%+v\n%+v", best1.Params, best2.Params)
	}
	if best1.Report.TotalReturn != best2.Report.TotalReturn {
		t.Errorf("best total return differs: %g vs %g", best1.Report.TotalReturn, best2.Report.TotalReturn)
	}
}

func TestGridSearch_ParallelMatchesSequential(t *testing.T) {
	series := makeSeries(60)
	grid := Grid{
		StopLoss:   []float64{0.01, 0.02, 0.05},
		TakeProfit: []float64{0.02, 0.04, 0.06},
		Commission: []float64{0, 0.001},
	}

	seq := NewSweeper(SweeperOptions{Symbol: "TESTUSDT", Parallelism: 1, Logger: testLogger()})
	par := NewSweeper(SweeperOptions{Symbol: "TESTUSDT", Parallelism: 4, Logger: testLogger()})

	bestSeq, _, err := seq.GridSearch(context.Background(), series, grid, testBase())
	if err != nil {
		t.Fatalf("sequential GridSearch failed: %v", err)
	}
	bestPar, _, err := par.GridSearch(context.Background(), series, grid, testBase())
	if err != nil {
		t.Fatalf("parallel GridSearch failed: %v", err)
	}

	if bestSeq.Params != bestPar.Params {
		t.Errorf("parallel sweep picked different winner:\nseq %+v\npar %+v", bestSeq.Params, bestPar.Params)
	}
}

func TestGridSearch_IsolatesFailedRuns(t *testing.T) {
	series := makeSeries(20)

	// Negative stop-loss is rejected by parameter validation; the other
	// combinations must still complete.
	grid := Grid{
		StopLoss:   []float64{-0.01, 0.02},
		TakeProfit: []float64{0.04},
		Commission: []float64{0},
	}

	sweeper := NewSweeper(SweeperOptions{Symbol: "TESTUSDT", Logger: testLogger()})
	best, all, err := sweeper.GridSearch(context.Background(), series, grid, testBase())
	if err != nil {
		t.Fatalf("GridSearch failed: %v", err)
	}

	if all[0].Err == nil {
		t.Error("expected combination 0 to fail validation")
	}
	if best == nil || best.Params.StopLossPct != 0.02 {
		t.Errorf("expected surviving combination to win, got %+v", best)
	}
}

func TestGridSearch_EmptyGrid(t *testing.T) {
	sweeper := NewSweeper(SweeperOptions{Symbol: "TESTUSDT", Logger: testLogger()})
	_, _, err := sweeper.GridSearch(context.Background(), makeSeries(5), Grid{}, testBase())
	if !errors.Is(err, ErrNoRuns) {
		t.Errorf("expected ErrNoRuns for empty grid, got %v", err)
	}
}

func TestResample_SeedReproducibility(t *testing.T) {
	series := makeSeries(50)
	sweeper := NewSweeper(SweeperOptions{Symbol: "TESTUSDT", Logger: testLogger()})

	a, err := sweeper.Resample(context.Background(), series, testBase(), 20, 42)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	b, err := sweeper.Resample(context.Background(), series, testBase(), 20, 42)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}

	if a.MeanTotalReturn != b.MeanTotalReturn || a.StdTotalReturn != b.StdTotalReturn {
		t.Errorf("same seed produced different aggregates: %+v vs %+v", a, b)
	}

	c, err := sweeper.Resample(context.Background(), series, testBase(), 20, 7)
	if err != nil {
		t.Fatalf("Resample failed: %v", err)
	}
	if a.MeanTotalReturn == c.MeanTotalReturn && a.StdTotalReturn == c.StdTotalReturn {
		t.Log("different seeds produced identical aggregates; permutations may coincide on small inputs")
	}
}

func TestResample_InvalidCount(t *testing.T) {
	sweeper := NewSweeper(SweeperOptions{Symbol: "TESTUSDT", Logger: testLogger()})
	_, err := sweeper.Resample(context.Background(), makeSeries(10), testBase(), 0, 1)
	if !errors.Is(err, ErrNoRuns) {
		t.Errorf("expected ErrNoRuns for n=0, got %v", err)
	}
}

func TestPermute_PreservesTimestampsAndPayloads(t *testing.T) {
	series := makeSeries(10)
	perm := []int{9, 8, 7, 6, 5, 4, 3, 2, 1, 0}

	shuffled := permute(series, perm)

	if !shuffled.IsOrdered() {
		t.Error("permuted series must keep ordered timestamps")
	}
	for slot, src := range perm {
		if shuffled[slot].TimestampMs != series[slot].TimestampMs {
			t.Errorf("slot %d: timestamp must stay in place", slot)
		}
		if shuffled[slot].Close != series[src].Close {
			t.Errorf("slot %d: close should come from source bar %d", slot, src)
		}
		if shuffled[slot].EntryConfidence != series[src].EntryConfidence {
			t.Errorf("slot %d: confidence must travel with its payload", slot)
		}
	}

	// Source series untouched.
	for i, bar := range series {
		if bar.TimestampMs != 1_000_000+int64(i)*60_000 {
			t.Error("permute must not mutate the source series")
			break
		}
	}
}

func TestMoments(t *testing.T) {
	mean, std := moments([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	if mean != 5 {
		t.Errorf("mean = %g, want 5", mean)
	}
	if math.Abs(std-2) > 1e-12 {
		t.Errorf("std = %g, want 2 (population)", std)
	}

	mean, std = moments(nil)
	if mean != 0 || std != 0 {
		t.Errorf("empty moments should be zeros, got %g %g", mean, std)
	}
}
