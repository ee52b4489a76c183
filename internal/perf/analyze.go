// Package perf converts realized trade returns into risk/reward statistics.
// Every function is pure: same inputs, same report, no I/O.
package perf

import (
	"errors"
	"math"

	"trade-sim-lab/internal/domain"
)

// ErrMismatchedInput is returned when returns and exit reasons differ in
// length. Fatal to the call only, never to the surrounding run.
var ErrMismatchedInput = errors.New("returns and exit reasons must have the same length")

// Options parameterize the analyzer. Zero values are replaced by the
// conventional defaults so a zero Options is usable.
type Options struct {
	CapitalInitial       float64 // starting notional for the capital curve
	AnnualizationFactor  float64 // trading periods per year
	MaterialityThreshold float64 // minimum |return| for a trade to count
}

// withDefaults fills unset fields.
func (o Options) withDefaults() Options {
	if o.CapitalInitial == 0 {
		o.CapitalInitial = 10_000
	}
	if o.AnnualizationFactor == 0 {
		o.AnnualizationFactor = 252
	}
	if o.MaterialityThreshold == 0 {
		o.MaterialityThreshold = 1e-6
	}
	return o
}

// Analyze maps realized returns and their exit reasons to a metrics report.
//
// Trades whose absolute return is below the materiality threshold are
// filtered out first: they are numerical noise, neither wins nor losses, and
// every statistic (including TotalTrades) is computed from the filtered set.
// A run with zero material trades yields a report with TotalTrades=0 and no
// other field defined.
func Analyze(returns []float64, exitReasons []string, opts Options) (*domain.Report, error) {
	if len(returns) != len(exitReasons) {
		return nil, ErrMismatchedInput
	}
	opts = opts.withDefaults()

	// 1. Materiality filter.
	var (
		material []float64
		reasons  []string
	)
	for i, r := range returns {
		if math.Abs(r) > opts.MaterialityThreshold {
			material = append(material, r)
			reasons = append(reasons, exitReasons[i])
		}
	}

	// 2. Degenerate-but-valid empty result.
	total := len(material)
	if total == 0 {
		return &domain.Report{TotalTrades: 0}, nil
	}

	// 3. Partition winners and losers; exact zeros belong to neither.
	var (
		winners, losers       []float64
		sumWinners, sumLosers float64
	)
	for _, r := range material {
		switch {
		case r > 0:
			winners = append(winners, r)
			sumWinners += r
		case r < 0:
			losers = append(losers, r)
			sumLosers += r
		}
	}

	winRate := float64(len(winners)) / float64(total)
	avgGain := mean(winners)
	avgLoss := mean(losers)

	profitFactor := math.Inf(1)
	if len(losers) > 0 {
		profitFactor = math.Abs(sumWinners / sumLosers)
	}

	// 4. Capital curve and drawdown over material returns in order.
	capital, maxDrawdown := capitalCurve(opts.CapitalInitial, material)
	finalCapital := capital[len(capital)-1]

	// 5. Annualized risk ratios on log returns.
	logReturns := make([]float64, total)
	for i, r := range material {
		logReturns[i] = math.Log1p(r)
	}
	sharpe := ratioOrZero(mean(logReturns), stddev(logReturns), opts.AnnualizationFactor)

	var downside []float64
	for _, lr := range logReturns {
		if lr < 0 {
			downside = append(downside, lr)
		}
	}
	sortino := ratioOrZero(mean(logReturns), stddev(downside), opts.AnnualizationFactor)

	// 6. Per-exit-reason breakdown.
	expectancyByReason, countByReason := groupByReason(material, reasons)

	return &domain.Report{
		TotalTrades:        total,
		WinRate:            winRate,
		AvgGain:            avgGain,
		AvgLoss:            avgLoss,
		ProfitFactor:       profitFactor,
		Expectancy:         winRate*avgGain - (1-winRate)*math.Abs(avgLoss),
		MaxDrawdown:        maxDrawdown,
		Sharpe:             sharpe,
		Sortino:            sortino,
		FinalCapital:       finalCapital,
		TotalReturn:        (finalCapital - opts.CapitalInitial) / opts.CapitalInitial,
		ExpectancyByReason: expectancyByReason,
		CountByReason:      countByReason,
	}, nil
}

// AnalyzeLedger runs Analyze over a trade ledger's returns and reasons.
func AnalyzeLedger(ledger domain.Ledger, opts Options) (*domain.Report, error) {
	report, err := Analyze(ledger.Returns(), ledger.ExitReasons(), opts)
	if err != nil {
		return nil, err
	}
	if len(ledger) > 0 {
		report.RunID = ledger[0].RunID
	}
	return report, nil
}

// capitalCurve compounds capital through each return and tracks the worst
// fractional decline from the running peak. The returned curve includes the
// starting notional at index 0.
func capitalCurve(initial float64, returns []float64) (curve []float64, maxDrawdown float64) {
	curve = make([]float64, len(returns)+1)
	curve[0] = initial

	peak := initial
	for i, r := range returns {
		capital := curve[i] * (1 + r)
		curve[i+1] = capital

		if capital > peak {
			peak = capital
		}
		if dd := (peak - capital) / peak; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}
	return curve, maxDrawdown
}

// groupByReason computes mean return and count per exit reason.
func groupByReason(returns []float64, reasons []string) (map[string]float64, map[string]int) {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for i, r := range returns {
		sums[reasons[i]] += r
		counts[reasons[i]]++
	}

	means := make(map[string]float64, len(sums))
	for reason, sum := range sums {
		means[reason] = sum / float64(counts[reason])
	}
	return means, counts
}

// mean calculates the arithmetic mean, 0 for an empty slice.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// stddev calculates the population standard deviation (n denominator) for
// parity with analyzers in other languages, 0 for fewer than one value.
func stddev(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}

	m := mean(values)
	sumSq := 0.0
	for _, v := range values {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n))
}

// ratioOrZero returns num/denom scaled by sqrt(annualization), or 0 when the
// denominator is 0.
func ratioOrZero(num, denom, annualization float64) float64 {
	if denom == 0 {
		return 0
	}
	return num / denom * math.Sqrt(annualization)
}
