// Package reporting renders simulation results as Markdown and CSV.
package reporting

import (
	"time"

	"trade-sim-lab/internal/domain"
	"trade-sim-lab/internal/harness"
)

// Summary bundles everything a rendered report draws from. Only Report is
// required; the optional sections are skipped by the renderers when absent.
type Summary struct {
	GeneratedAt time.Time
	Symbol      string

	Params domain.SimParams
	Report *domain.Report
	Trades domain.Ledger

	// Optional harness sections
	GridResults []harness.RunResult
	Robustness  *harness.RobustnessResult
}
