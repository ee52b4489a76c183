package sim

import (
	"context"
	"errors"
	"fmt"

	"trade-sim-lab/internal/domain"
	"trade-sim-lab/internal/idhash"
)

// ErrInvalidParameter is returned before simulation starts when a supplied
// parameter cannot be simulated (non-positive leverage, negative fractions).
var ErrInvalidParameter = errors.New("invalid parameter")

// Machine is the position state machine. It consumes a bar series
// sequentially, owns at most one open position at a time, and emits completed
// trades in chronological order.
//
// A Machine is stateless between Run calls; independent runs over a shared
// read-only series may execute in parallel, each with its own Machine.
type Machine struct {
	symbol string
	params domain.SimParams
}

// NewMachine validates params and creates a state machine for one instrument.
func NewMachine(symbol string, params domain.SimParams) (*Machine, error) {
	if err := ValidateParams(params); err != nil {
		return nil, err
	}
	return &Machine{symbol: symbol, params: params}, nil
}

// ValidateParams fails fast on parameters the simulation cannot run with.
func ValidateParams(p domain.SimParams) error {
	if p.Leverage <= 0 {
		return fmt.Errorf("%w: leverage must be > 0, got %g", ErrInvalidParameter, p.Leverage)
	}
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"stop_loss_pct", p.StopLossPct},
		{"take_profit_pct", p.TakeProfitPct},
		{"commission", p.Commission},
		{"slippage", p.Slippage},
		{"trailing_offset", p.TrailingOffset},
		{"confidence_threshold", p.Entry.ConfidenceThreshold},
	} {
		if f.value < 0 {
			return fmt.Errorf("%w: %s must be >= 0, got %g", ErrInvalidParameter, f.name, f.value)
		}
	}
	if p.MaxHoldBars < 0 {
		return fmt.Errorf("%w: max_hold_bars must be >= 0, got %d", ErrInvalidParameter, p.MaxHoldBars)
	}
	if p.Step == domain.StepLookahead && p.MaxHoldBars == 0 {
		return fmt.Errorf("%w: lookahead step requires max_hold_bars > 0", ErrInvalidParameter)
	}
	return nil
}

// RunID returns the deterministic identifier for a run over the given series.
func (m *Machine) RunID(series domain.BarSeries) string {
	startMs, endMs := series.Span()
	return idhash.ComputeRunID(m.symbol, startMs, endMs, m.params)
}

// Run simulates the full series and returns the trade ledger.
// An empty series yields an empty ledger, not an error.
//
// The per-bar loop threads an explicit position value through a fold over the
// series: state never escapes the run, so callers may fan out many runs over
// one shared series without locking.
func (m *Machine) Run(_ context.Context, series domain.BarSeries) (domain.Ledger, error) {
	if m.params.Step == domain.StepLookahead {
		return m.runLookahead(series), nil
	}
	return m.runSingleStep(series), nil
}

// runSingleStep advances one bar at a time. Exactly one entry check or one
// exit evaluation happens per bar; a position opened on bar i is first
// eligible to exit on bar i+1.
func (m *Machine) runSingleStep(series domain.BarSeries) domain.Ledger {
	runID := m.RunID(series)

	var (
		ledger domain.Ledger
		open   *Position
	)

	for i, bar := range series {
		if open != nil {
			pos, trade := m.step(open, bar, i, runID)
			if trade != nil {
				ledger = append(ledger, trade)
			}
			open = pos
			continue
		}

		if m.params.Entry.Accepts(bar) {
			open = m.enter(bar, i)
		}
	}

	// A position still open when the data ends is abandoned: no exit bar
	// exists, so no trade is emitted.
	return ledger
}

// runLookahead re-scans a fixed window after each entry and resumes the entry
// scan past the exit bar.
func (m *Machine) runLookahead(series domain.BarSeries) domain.Ledger {
	runID := m.RunID(series)

	var ledger domain.Ledger

	for i := 0; i < len(series); i++ {
		if !m.params.Entry.Accepts(series[i]) {
			continue
		}

		pos := m.enter(series[i], i)
		end := i + m.params.MaxHoldBars
		if end >= len(series) {
			end = len(series) - 1
		}

		exited := false
		for j := i + 1; j <= end; j++ {
			next, trade := m.step(pos, series[j], j, runID)
			if trade != nil {
				ledger = append(ledger, trade)
				i = j // resume entry scan after the exit bar
				exited = true
				break
			}
			pos = next
		}

		if !exited {
			if i+1 > end {
				// Entry on the final bar has no exit bar; abandon it.
				continue
			}
			// Window exhausted without a trigger: timeout at the window's
			// last close.
			last := series[end]
			ledger = append(ledger, m.exit(pos, last, last.Close, domain.ExitReasonTimeout, runID))
			i = end
		}
	}

	return ledger
}

// enter opens a position on the given bar. The execution price moves against
// the trader by the slippage fraction; stop and take-profit distances shrink
// with leverage so the capital at risk stays constant.
func (m *Machine) enter(bar *domain.Bar, index int) *Position {
	entryPrice := bar.Close * (1 + m.params.Slippage)
	return &Position{
		EntryTimeMs: bar.TimestampMs,
		EntryPrice:  entryPrice,
		Stop:        entryPrice * (1 - m.params.StopLossPct/m.params.Leverage),
		TakeProfit:  entryPrice * (1 + m.params.TakeProfitPct/m.params.Leverage),
		Peak:        entryPrice,
		Leverage:    m.params.Leverage,
		EntryBar:    index,
	}
}

// step advances an open position by one bar. It applies the trailing update
// first, then evaluates exits in priority order: stop, take-profit, timeout.
// Returns the surviving position, or nil plus the completed trade.
func (m *Machine) step(pos *Position, bar *domain.Bar, index int, runID string) (*Position, *domain.Trade) {
	if bar.Close > pos.Peak {
		pos.Peak = bar.Close
		if m.params.TrailingStop {
			pos.RaiseStop(pos.Peak*(1-m.params.TrailingOffset), raiseRuleTrailing)
		}
	}

	switch {
	case bar.Close <= pos.Stop:
		reason := domain.ExitReasonStopLoss
		if pos.StopRaised {
			reason = domain.ExitReasonTrailingStop
		}
		return nil, m.exit(pos, bar, pos.Stop, reason, runID)

	case bar.Close >= pos.TakeProfit:
		return nil, m.exit(pos, bar, pos.TakeProfit, domain.ExitReasonTakeProfit, runID)

	case m.params.MaxHoldBars > 0 && index-pos.EntryBar >= m.params.MaxHoldBars:
		return nil, m.exit(pos, bar, bar.Close, domain.ExitReasonTimeout, runID)
	}

	return pos, nil
}

// exit closes the position at the given price and emits the trade record.
// Realized return is fractional and net of commission and slippage, scaled by
// leverage.
func (m *Machine) exit(pos *Position, bar *domain.Bar, price float64, reason, runID string) *domain.Trade {
	ret := (price - pos.EntryPrice) / pos.EntryPrice *
		(1 - m.params.Commission - m.params.Slippage) *
		pos.Leverage

	return &domain.Trade{
		TradeID:     idhash.ComputeTradeID(runID, m.symbol, pos.EntryTimeMs),
		RunID:       runID,
		Symbol:      m.symbol,
		EntryTimeMs: pos.EntryTimeMs,
		EntryPrice:  pos.EntryPrice,
		ExitTimeMs:  bar.TimestampMs,
		ExitPrice:   price,
		ExitReason:  reason,
		Return:      ret,
		Leverage:    pos.Leverage,
	}
}
