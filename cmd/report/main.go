package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"trade-sim-lab/internal/config"
	"trade-sim-lab/internal/domain"
	"trade-sim-lab/internal/observability"
	"trade-sim-lab/internal/reporting"
	pgstore "trade-sim-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	runID := flag.String("run-id", "", "Run ID to render (required unless --list)")
	list := flag.Bool("list", false, "List stored runs instead of rendering one")
	configPath := flag.String("config", "", "YAML config file for display parameters (optional)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (required)")
	format := flag.String("format", "markdown", "Output format: markdown, csv, json")
	outputPath := flag.String("output", "", "Write output to this file instead of stdout")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[report] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatal("--postgres-dsn is required")
	}
	if !*list && *runID == "" {
		logger.Fatal("--run-id is required (or use --list)")
	}

	params := domain.DefaultSimParams()
	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		params = cfg.SimParams()
	}

	ctx := context.Background()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	reportStore := pgstore.NewReportStore(pool)
	tradeStore := pgstore.NewTradeStore(pool)

	if *list {
		if err := listRuns(ctx, reportStore); err != nil {
			logger.Fatalf("list runs: %v", err)
		}
		return
	}

	generator := reporting.NewGenerator(tradeStore, reportStore, logger)
	summary, err := generator.Build(ctx, *runID, params)
	if err != nil {
		logger.Fatalf("build summary: %v", err)
	}

	output, err := render(summary, *format)
	if err != nil {
		logger.Fatal(err)
	}
	observability.RecordReportGenerated()

	if *outputPath != "" {
		if err := os.WriteFile(*outputPath, []byte(output), 0o644); err != nil {
			logger.Fatalf("write output: %v", err)
		}
		logger.Printf("Wrote %s report for run %s to %s", *format, *runID, *outputPath)
		return
	}
	fmt.Print(output)
}

// listRuns prints one line per stored report.
func listRuns(ctx context.Context, reports *pgstore.ReportStore) error {
	all, err := reports.GetAll(ctx)
	if err != nil {
		return err
	}

	if len(all) == 0 {
		fmt.Println("No stored runs.")
		return nil
	}

	fmt.Printf("%-16s  %7s  %9s  %13s\n", "RUN ID", "TRADES", "WIN RATE", "TOTAL RETURN")
	for _, r := range all {
		if r.Empty() {
			fmt.Printf("%-16s  %7d  %9s  %13s\n", r.RunID, 0, "-", "-")
			continue
		}
		fmt.Printf("%-16s  %7d  %8.1f%%  %12.2f%%\n",
			r.RunID, r.TotalTrades, r.WinRate*100, r.TotalReturn*100)
	}
	return nil
}

// render serializes the summary in the requested format.
func render(summary *reporting.Summary, format string) (string, error) {
	switch format {
	case "markdown":
		return reporting.RenderMarkdown(summary), nil
	case "csv":
		return reporting.RenderTradesCSV(summary.Trades), nil
	case "json":
		output, err := json.MarshalIndent(summary.Report, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal report: %w", err)
		}
		return string(output) + "\n", nil
	default:
		return "", fmt.Errorf("unknown format: %s (use markdown, csv, or json)", format)
	}
}
