package harness

import (
	"context"
	"math"
	"math/rand"

	"trade-sim-lab/internal/domain"
)

// RobustnessResult aggregates headline metrics across N resampled runs.
// Profit-factor moments cover only runs with a finite profit factor (a run
// with no losers is +Inf and would poison the mean); FiniteProfitFactors
// reports how many runs contributed.
type RobustnessResult struct {
	Runs     int // simulations attempted
	Failures int // runs whose slot carries an error
	Empty    int // runs with zero material trades

	MeanTotalReturn float64
	StdTotalReturn  float64

	MeanWinRate float64
	StdWinRate  float64

	MeanProfitFactor    float64
	StdProfitFactor     float64
	FiniteProfitFactors int
}

// Resample runs n independent simulations over the same series with the bar
// payloads randomly permuted across the original time slots. Each bar's
// entry confidence travels with its payload.
//
// Permuting bars discards temporal causality: a confidence value computed
// from history ends up attached to a bar whose history has been rewritten.
// That is a deliberate simplification of this bootstrap mode, kept as an
// explicit documented behavior rather than silently corrected, and it means
// resampled statistics measure sensitivity to trade ordering, not predictive
// power.
//
// Runs draw from a single seeded source, so a fixed (seed, n) pair replays
// the identical set of permutations. Per-run failures are counted, not fatal.
func (s *Sweeper) Resample(ctx context.Context, series domain.BarSeries, params domain.SimParams, n int, seed int64) (*RobustnessResult, error) {
	if n <= 0 {
		return nil, ErrNoRuns
	}

	rng := rand.New(rand.NewSource(seed))

	// Pre-draw each run's permutation from the shared source so results do
	// not depend on scheduling when runs execute in parallel.
	perms := make([][]int, n)
	for i := range perms {
		perms[i] = rng.Perm(len(series))
	}

	results := make([]RunResult, n)
	s.runAll(ctx, n, func(i int) {
		results[i] = s.runOne(ctx, permute(series, perms[i]), params)
	})

	agg := &RobustnessResult{Runs: n}
	var totalReturns, winRates, profitFactors []float64
	for i := range results {
		switch {
		case results[i].Err != nil:
			agg.Failures++
			s.logger.Printf("resample run %d failed: %v", i, results[i].Err)
		case results[i].Report.Empty():
			agg.Empty++
		default:
			report := results[i].Report
			totalReturns = append(totalReturns, report.TotalReturn)
			winRates = append(winRates, report.WinRate)
			if !math.IsInf(report.ProfitFactor, 0) {
				profitFactors = append(profitFactors, report.ProfitFactor)
			}
		}
	}

	if len(totalReturns) == 0 && agg.Failures == n {
		return nil, ErrNoRuns
	}

	agg.MeanTotalReturn, agg.StdTotalReturn = moments(totalReturns)
	agg.MeanWinRate, agg.StdWinRate = moments(winRates)
	agg.MeanProfitFactor, agg.StdProfitFactor = moments(profitFactors)
	agg.FiniteProfitFactors = len(profitFactors)

	return agg, nil
}

// permute rebuilds the series with bar payloads shuffled across the original
// timestamp slots. Keeping timestamps in place preserves the series' ordering
// contract while the price path and confidences are resampled together.
func permute(series domain.BarSeries, perm []int) domain.BarSeries {
	out := make(domain.BarSeries, len(series))
	for slot, src := range perm {
		bar := *series[src]
		bar.TimestampMs = series[slot].TimestampMs
		out[slot] = &bar
	}
	return out
}

// moments returns the mean and population standard deviation.
func moments(values []float64) (mean, std float64) {
	if len(values) == 0 {
		return 0, 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	sumSq := 0.0
	for _, v := range values {
		d := v - mean
		sumSq += d * d
	}
	return mean, math.Sqrt(sumSq / float64(len(values)))
}
