// Package harness drives many independent simulations over one shared bar
// series: grid search across parameter combinations and resampling
// robustness across permuted series. Each run owns its machine, ledger, and
// result slot, so runs parallelize without locking.
package harness

import (
	"context"
	"errors"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"trade-sim-lab/internal/domain"
	"trade-sim-lab/internal/perf"
	"trade-sim-lab/internal/sim"
)

// ErrNoRuns is returned when a sweep completes without a single successful run.
var ErrNoRuns = errors.New("no successful runs in sweep")

// Grid defines the parameter values to combine. Iteration is by nested loops,
// outer to inner: stop-loss, take-profit, commission.
type Grid struct {
	StopLoss   []float64
	TakeProfit []float64
	Commission []float64
}

// Combinations expands the grid in its documented iteration order.
func (g Grid) Combinations(base domain.SimParams) []domain.SimParams {
	var combos []domain.SimParams
	for _, sl := range g.StopLoss {
		for _, tp := range g.TakeProfit {
			for _, com := range g.Commission {
				p := base
				p.StopLossPct = sl
				p.TakeProfitPct = tp
				p.Commission = com
				combos = append(combos, p)
			}
		}
	}
	return combos
}

// RunResult is one simulation's slot in a sweep. Err isolates that run's
// failure from the rest of the sweep.
type RunResult struct {
	Params domain.SimParams
	Ledger domain.Ledger
	Report *domain.Report
	Err    error
}

// Sweeper executes sweeps for one instrument.
type Sweeper struct {
	symbol      string
	parallelism int
	logger      *log.Logger
}

// SweeperOptions contains configuration for creating a Sweeper.
type SweeperOptions struct {
	Symbol      string
	Parallelism int         // concurrent runs; <= 1 means strictly sequential
	Logger      *log.Logger // defaults to log.Default()
}

// NewSweeper creates a sweep executor.
func NewSweeper(opts SweeperOptions) *Sweeper {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	parallelism := opts.Parallelism
	if parallelism < 1 {
		parallelism = 1
	}
	return &Sweeper{
		symbol:      opts.Symbol,
		parallelism: parallelism,
		logger:      logger,
	}
}

// GridSearch runs a full simulation per grid combination and returns the one
// maximizing total return, together with every run's result slot.
//
// Ties break toward the first combination in iteration order. Best selection
// scans the slots in that same order after all runs finish, so sequential and
// parallel sweeps pick the same winner.
func (s *Sweeper) GridSearch(ctx context.Context, series domain.BarSeries, grid Grid, base domain.SimParams) (*RunResult, []RunResult, error) {
	combos := grid.Combinations(base)
	if len(combos) == 0 {
		return nil, nil, fmt.Errorf("%w: empty grid", ErrNoRuns)
	}

	results := make([]RunResult, len(combos))
	s.runAll(ctx, len(combos), func(i int) {
		results[i] = s.runOne(ctx, series, combos[i])
	})

	var best *RunResult
	failures := 0
	for i := range results {
		if results[i].Err != nil {
			failures++
			s.logger.Printf("grid combination %d failed: %v", i, results[i].Err)
			continue
		}
		if best == nil || results[i].Report.TotalReturn > best.Report.TotalReturn {
			best = &results[i]
		}
	}

	if best == nil {
		return nil, results, fmt.Errorf("%w: all %d combinations failed", ErrNoRuns, failures)
	}
	return best, results, nil
}

// runOne executes a single simulation and analysis, capturing any failure in
// the result slot.
func (s *Sweeper) runOne(ctx context.Context, series domain.BarSeries, params domain.SimParams) RunResult {
	result := RunResult{Params: params}

	machine, err := sim.NewMachine(s.symbol, params)
	if err != nil {
		result.Err = err
		return result
	}

	ledger, err := machine.Run(ctx, series)
	if err != nil {
		result.Err = err
		return result
	}
	result.Ledger = ledger

	report, err := perf.AnalyzeLedger(ledger, perf.Options{
		CapitalInitial:       params.CapitalInitial,
		AnnualizationFactor:  params.AnnualizationFactor,
		MaterialityThreshold: params.MaterialityThreshold,
	})
	if err != nil {
		result.Err = err
		return result
	}
	result.Report = report

	return result
}

// runAll invokes fn(i) for i in [0, n), sequentially or fanned out over an
// errgroup depending on the configured parallelism. Each invocation writes
// only its own slot.
func (s *Sweeper) runAll(ctx context.Context, n int, fn func(i int)) {
	if s.parallelism <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for i := 0; i < n; i++ {
		g.Go(func() error {
			fn(i)
			return nil
		})
	}
	// Workers never return errors; failures live in their result slots.
	_ = g.Wait()
}
