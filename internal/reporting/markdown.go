package reporting

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

// RenderMarkdown renders a summary as a Markdown string.
func RenderMarkdown(s *Summary) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", s.GeneratedAt.Format(time.RFC3339)))
	if s.Symbol != "" {
		sb.WriteString(fmt.Sprintf("Symbol: %s\n\n", s.Symbol))
	}
	if s.Report != nil && s.Report.RunID != "" {
		sb.WriteString(fmt.Sprintf("Run: `%s`\n\n", s.Report.RunID))
	}

	// Parameters
	sb.WriteString("## Parameters\n\n")
	sb.WriteString("| Parameter | Value |\n")
	sb.WriteString("|-----------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Stop Loss | %.4f |\n", s.Params.StopLossPct))
	sb.WriteString(fmt.Sprintf("| Take Profit | %.4f |\n", s.Params.TakeProfitPct))
	sb.WriteString(fmt.Sprintf("| Commission | %.4f |\n", s.Params.Commission))
	sb.WriteString(fmt.Sprintf("| Slippage | %.4f |\n", s.Params.Slippage))
	sb.WriteString(fmt.Sprintf("| Leverage | %.1f |\n", s.Params.Leverage))
	sb.WriteString(fmt.Sprintf("| Trailing Stop | %t |\n", s.Params.TrailingStop))
	if s.Params.TrailingStop {
		sb.WriteString(fmt.Sprintf("| Trailing Offset | %.4f |\n", s.Params.TrailingOffset))
	}
	sb.WriteString(fmt.Sprintf("| Confidence Threshold | %.2f |\n", s.Params.Entry.ConfidenceThreshold))
	sb.WriteString("\n")

	// Performance
	sb.WriteString("## Performance\n\n")
	if s.Report == nil || s.Report.TotalTrades == 0 {
		sb.WriteString("No material trades.\n\n")
	} else {
		r := s.Report
		sb.WriteString("| Metric | Value |\n")
		sb.WriteString("|--------|-------|\n")
		sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.TotalTrades))
		sb.WriteString(fmt.Sprintf("| Win Rate | %.4f |\n", r.WinRate))
		sb.WriteString(fmt.Sprintf("| Avg Gain | %.4f |\n", r.AvgGain))
		sb.WriteString(fmt.Sprintf("| Avg Loss | %.4f |\n", r.AvgLoss))
		sb.WriteString(fmt.Sprintf("| Profit Factor | %s |\n", formatFloat(r.ProfitFactor)))
		sb.WriteString(fmt.Sprintf("| Expectancy | %.4f |\n", r.Expectancy))
		sb.WriteString(fmt.Sprintf("| Max Drawdown | %.4f |\n", r.MaxDrawdown))
		sb.WriteString(fmt.Sprintf("| Sharpe | %.4f |\n", r.Sharpe))
		sb.WriteString(fmt.Sprintf("| Sortino | %.4f |\n", r.Sortino))
		sb.WriteString(fmt.Sprintf("| Final Capital | %.2f |\n", r.FinalCapital))
		sb.WriteString(fmt.Sprintf("| Total Return | %.4f |\n", r.TotalReturn))
		sb.WriteString("\n")

		// Exit reason breakdown
		if len(r.CountByReason) > 0 {
			sb.WriteString("### By Exit Reason\n\n")
			sb.WriteString("| Exit Reason | Trades | Mean Return |\n")
			sb.WriteString("|-------------|--------|-------------|\n")
			for _, reason := range sortedReasons(r.CountByReason) {
				sb.WriteString(fmt.Sprintf("| %s | %d | %.4f |\n",
					reason, r.CountByReason[reason], r.ExpectancyByReason[reason]))
			}
			sb.WriteString("\n")
		}
	}

	// Grid search
	if len(s.GridResults) > 0 {
		sb.WriteString("## Parameter Sweep\n\n")
		sb.WriteString("| Stop Loss | Take Profit | Commission | Trades | Expectancy | Total Return | Status |\n")
		sb.WriteString("|-----------|-------------|------------|--------|------------|--------------|--------|\n")
		for _, result := range s.GridResults {
			if result.Err != nil {
				sb.WriteString(fmt.Sprintf("| %.4f | %.4f | %.4f | - | - | - | FAILED |\n",
					result.Params.StopLossPct, result.Params.TakeProfitPct, result.Params.Commission))
				continue
			}
			sb.WriteString(fmt.Sprintf("| %.4f | %.4f | %.4f | %d | %.4f | %.4f | ok |\n",
				result.Params.StopLossPct, result.Params.TakeProfitPct, result.Params.Commission,
				result.Report.TotalTrades, result.Report.Expectancy, result.Report.TotalReturn))
		}
		sb.WriteString("\n")
	}

	// Robustness
	if s.Robustness != nil {
		rb := s.Robustness
		sb.WriteString("## Robustness\n\n")
		sb.WriteString(fmt.Sprintf("Resampled runs: %d (failed: %d, empty: %d)\n\n", rb.Runs, rb.Failures, rb.Empty))
		sb.WriteString("| Metric | Mean | Stddev |\n")
		sb.WriteString("|--------|------|--------|\n")
		sb.WriteString(fmt.Sprintf("| Total Return | %.4f | %.4f |\n", rb.MeanTotalReturn, rb.StdTotalReturn))
		sb.WriteString(fmt.Sprintf("| Win Rate | %.4f | %.4f |\n", rb.MeanWinRate, rb.StdWinRate))
		sb.WriteString(fmt.Sprintf("| Profit Factor | %.4f | %.4f |\n", rb.MeanProfitFactor, rb.StdProfitFactor))
		sb.WriteString("\n")
	}

	return sb.String()
}

// formatFloat renders +Inf as "inf" so Markdown tables stay readable.
func formatFloat(v float64) string {
	if math.IsInf(v, 1) {
		return "inf"
	}
	return fmt.Sprintf("%.4f", v)
}

func sortedReasons(counts map[string]int) []string {
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	return reasons
}
