package storage

import (
	"context"

	"trade-sim-lab/internal/domain"
)

// BarStore provides access to bars storage.
type BarStore interface {
	// InsertBulk adds multiple bars. Fails entire batch on duplicate (symbol, timestamp_ms).
	InsertBulk(ctx context.Context, bars []*domain.Bar) error

	// GetBySymbol retrieves all bars for a symbol, ordered by timestamp ASC.
	GetBySymbol(ctx context.Context, symbol string) (domain.BarSeries, error)

	// GetByTimeRange retrieves bars for a symbol within [start, end] (inclusive).
	GetByTimeRange(ctx context.Context, symbol string, start, end int64) (domain.BarSeries, error)
}

// TradeStore provides access to trades storage.
type TradeStore interface {
	// Insert adds a new trade. Returns ErrDuplicateKey if trade_id exists.
	Insert(ctx context.Context, t *domain.Trade) error

	// InsertBulk adds multiple trades atomically. Fails entire batch on any duplicate.
	InsertBulk(ctx context.Context, trades []*domain.Trade) error

	// GetByID retrieves a trade by its ID. Returns ErrNotFound if not exists.
	GetByID(ctx context.Context, tradeID string) (*domain.Trade, error)

	// GetByRunID retrieves all trades for a run, ordered by entry_time_ms ASC.
	GetByRunID(ctx context.Context, runID string) ([]*domain.Trade, error)

	// GetBySymbol retrieves all trades for a symbol, ordered by entry_time_ms ASC.
	GetBySymbol(ctx context.Context, symbol string) ([]*domain.Trade, error)
}

// ReportStore provides access to reports storage.
type ReportStore interface {
	// Insert adds a new report. Returns ErrDuplicateKey if run_id exists.
	Insert(ctx context.Context, r *domain.Report) error

	// GetByRunID retrieves a report by run ID. Returns ErrNotFound if not exists.
	GetByRunID(ctx context.Context, runID string) (*domain.Report, error)

	// GetAll retrieves all reports.
	GetAll(ctx context.Context) ([]*domain.Report, error)
}
