package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"trade-sim-lab/internal/domain"
	"trade-sim-lab/internal/storage"
)

// ReportStore implements storage.ReportStore using PostgreSQL.
// The per-exit-reason breakdown maps are stored as JSONB columns.
type ReportStore struct {
	pool *Pool
}

// NewReportStore creates a new ReportStore.
func NewReportStore(pool *Pool) *ReportStore {
	return &ReportStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ReportStore = (*ReportStore)(nil)

const selectReportColumns = `
	run_id, total_trades,
	win_rate, avg_gain, avg_loss, profit_factor, expectancy,
	max_drawdown, sharpe, sortino,
	final_capital, total_return,
	expectancy_by_reason, count_by_reason
`

// Insert adds a new report. Returns ErrDuplicateKey if run_id exists.
func (s *ReportStore) Insert(ctx context.Context, r *domain.Report) error {
	query := `
		INSERT INTO reports (
			run_id, total_trades,
			win_rate, avg_gain, avg_loss, profit_factor, expectancy,
			max_drawdown, sharpe, sortino,
			final_capital, total_return,
			expectancy_by_reason, count_by_reason
		) VALUES (
			$1, $2,
			$3, $4, $5, $6, $7,
			$8, $9, $10,
			$11, $12,
			$13, $14
		)
	`

	_, err := s.pool.Exec(ctx, query,
		r.RunID, r.TotalTrades,
		r.WinRate, r.AvgGain, r.AvgLoss, r.ProfitFactor, r.Expectancy,
		r.MaxDrawdown, r.Sharpe, r.Sortino,
		r.FinalCapital, r.TotalReturn,
		r.ExpectancyByReason, r.CountByReason,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

// GetByRunID retrieves a report by run ID. Returns ErrNotFound if not exists.
func (s *ReportStore) GetByRunID(ctx context.Context, runID string) (*domain.Report, error) {
	query := `SELECT ` + selectReportColumns + ` FROM reports WHERE run_id = $1`

	row := s.pool.QueryRow(ctx, query, runID)
	r, err := scanReport(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get report by run id: %w", err)
	}
	return r, nil
}

// GetAll retrieves all reports, ordered by run_id.
func (s *ReportStore) GetAll(ctx context.Context) ([]*domain.Report, error) {
	query := `SELECT ` + selectReportColumns + ` FROM reports ORDER BY run_id ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all reports: %w", err)
	}
	defer rows.Close()

	var reports []*domain.Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report row: %w", err)
		}
		reports = append(reports, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate report rows: %w", err)
	}

	return reports, nil
}

// scanReport scans a single row into a Report.
func scanReport(row pgx.Row) (*domain.Report, error) {
	var r domain.Report

	err := row.Scan(
		&r.RunID, &r.TotalTrades,
		&r.WinRate, &r.AvgGain, &r.AvgLoss, &r.ProfitFactor, &r.Expectancy,
		&r.MaxDrawdown, &r.Sharpe, &r.Sortino,
		&r.FinalCapital, &r.TotalReturn,
		&r.ExpectancyByReason, &r.CountByReason,
	)
	if err != nil {
		return nil, err
	}

	return &r, nil
}
