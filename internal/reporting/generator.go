package reporting

import (
	"context"
	"fmt"
	"log"
	"time"

	"trade-sim-lab/internal/domain"
	"trade-sim-lab/internal/storage"
)

// Generator assembles report summaries from persisted runs.
type Generator struct {
	trades  storage.TradeStore
	reports storage.ReportStore
	logger  *log.Logger
}

// NewGenerator creates a report generator backed by the given stores.
func NewGenerator(trades storage.TradeStore, reports storage.ReportStore, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{trades: trades, reports: reports, logger: logger}
}

// Build loads the report and ledger for runID and assembles a summary.
// Params are not persisted alongside reports, so callers supply them.
func (g *Generator) Build(ctx context.Context, runID string, params domain.SimParams) (*Summary, error) {
	report, err := g.reports.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", runID, err)
	}

	trades, err := g.trades.GetByRunID(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("load trades %s: %w", runID, err)
	}

	ledger := make(domain.Ledger, len(trades))
	symbol := ""
	for i, t := range trades {
		ledger[i] = t
		symbol = t.Symbol
	}

	g.logger.Printf("[report] assembled summary for run %s: %d trades", runID, len(ledger))

	return &Summary{
		GeneratedAt: time.Now().UTC(),
		Symbol:      symbol,
		Params:      params,
		Report:      report,
		Trades:      ledger,
	}, nil
}
