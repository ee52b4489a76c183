package reporting

import (
	"fmt"
	"strings"

	"trade-sim-lab/internal/domain"
	"trade-sim-lab/internal/harness"
)

// RenderTradesCSV renders a trade ledger as CSV string.
func RenderTradesCSV(trades domain.Ledger) string {
	var sb strings.Builder

	sb.WriteString("trade_id,run_id,symbol,entry_time_ms,entry_price,exit_time_ms,exit_price,exit_reason,return,leverage\n")

	for _, t := range trades {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%d,%.8f,%d,%.8f,%s,%.8f,%.2f\n",
			t.TradeID,
			t.RunID,
			t.Symbol,
			t.EntryTimeMs,
			t.EntryPrice,
			t.ExitTimeMs,
			t.ExitPrice,
			t.ExitReason,
			t.Return,
			t.Leverage,
		))
	}

	return sb.String()
}

// RenderSweepCSV renders grid search results as CSV string. Failed runs
// carry the error text in the last column and empty metric fields.
func RenderSweepCSV(results []harness.RunResult) string {
	var sb strings.Builder

	sb.WriteString("stop_loss,take_profit,commission,total_trades,win_rate,expectancy,")
	sb.WriteString("max_drawdown,sharpe,total_return,error\n")

	for _, r := range results {
		if r.Err != nil {
			sb.WriteString(fmt.Sprintf("%.6f,%.6f,%.6f,,,,,,,%q\n",
				r.Params.StopLossPct, r.Params.TakeProfitPct, r.Params.Commission, r.Err.Error()))
			continue
		}
		sb.WriteString(fmt.Sprintf("%.6f,%.6f,%.6f,%d,%.6f,%.6f,%.6f,%.6f,%.6f,\n",
			r.Params.StopLossPct,
			r.Params.TakeProfitPct,
			r.Params.Commission,
			r.Report.TotalTrades,
			r.Report.WinRate,
			r.Report.Expectancy,
			r.Report.MaxDrawdown,
			r.Report.Sharpe,
			r.Report.TotalReturn,
		))
	}

	return sb.String()
}
