package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"trade-sim-lab/internal/config"
	"trade-sim-lab/internal/domain"
	"trade-sim-lab/internal/harness"
	"trade-sim-lab/internal/indicator"
	"trade-sim-lab/internal/ingestion"
	"trade-sim-lab/internal/observability"
	"trade-sim-lab/internal/reporting"
	chstore "trade-sim-lab/internal/storage/clickhouse"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file (optional)")
	symbol := flag.String("symbol", "", "Instrument symbol, e.g. BTCUSDT")
	csvPath := flag.String("csv", "", "CSV file with OHLCV bars")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")

	// Grid values
	gridStopLoss := flag.String("grid-stop-loss", "", "Comma-separated stop-loss values")
	gridTakeProfit := flag.String("grid-take-profit", "", "Comma-separated take-profit values")
	gridCommission := flag.String("grid-commission", "", "Comma-separated commission values")
	parallelism := flag.Int("parallelism", 1, "Concurrent runs; 1 means sequential")

	// Resampling
	resampleRuns := flag.Int("resample-runs", 0, "Resampled robustness runs (0 to skip)")
	resampleSeed := flag.Int64("resample-seed", 1, "Seed for resampling permutations")

	// Output
	sweepCSVPath := flag.String("sweep-csv", "", "Write per-combination results to this CSV file")
	tradesCSVPath := flag.String("trades-csv", "", "Write the best run's trades to this CSV file")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[optimize] ", log.LstdFlags)

	params := domain.DefaultSimParams()
	grid := harness.Grid{}
	resolvedSymbol := *symbol

	if *configPath != "" {
		cfg, err := config.Load(*configPath)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		params = cfg.SimParams()
		grid = harness.Grid{
			StopLoss:   cfg.Grid.StopLoss,
			TakeProfit: cfg.Grid.TakeProfit,
			Commission: cfg.Grid.Commission,
		}
		if *parallelism == 1 && cfg.Grid.Parallelism > 0 {
			*parallelism = cfg.Grid.Parallelism
		}
		if *resampleRuns == 0 {
			*resampleRuns = cfg.Resample.Runs
		}
		if cfg.Resample.Seed != 0 {
			*resampleSeed = cfg.Resample.Seed
		}
		if resolvedSymbol == "" {
			resolvedSymbol = cfg.Symbol
		}
	}

	// Flag grids override the config
	overrideGrid(logger, &grid.StopLoss, *gridStopLoss)
	overrideGrid(logger, &grid.TakeProfit, *gridTakeProfit)
	overrideGrid(logger, &grid.Commission, *gridCommission)
	fillGridDefaults(&grid, params)

	if resolvedSymbol == "" {
		logger.Fatal("--symbol is required (or set symbol in the config file)")
	}
	if *csvPath == "" && *clickhouseDSN == "" {
		logger.Fatal("either --csv or --clickhouse-dsn is required")
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	series, err := loadSeries(ctx, resolvedSymbol, *csvPath, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("load bars: %v", err)
	}
	logger.Printf("Loaded %d bars for %s", len(series), resolvedSymbol)

	sweeper := harness.NewSweeper(harness.SweeperOptions{
		Symbol:      resolvedSymbol,
		Parallelism: *parallelism,
		Logger:      logger,
	})

	combos := len(grid.Combinations(params))
	logger.Printf("Grid search: %d combinations, parallelism %d", combos, *parallelism)

	best, results, err := sweeper.GridSearch(ctx, series, grid, params)
	if err != nil {
		observability.RecordSweepRun("error")
		logger.Fatalf("grid search failed: %v", err)
	}
	observability.RecordSweepRun("ok")
	logger.Printf("Best combination: stop_loss=%.4g take_profit=%.4g commission=%.4g total_return=%.2f%%",
		best.Params.StopLossPct, best.Params.TakeProfitPct, best.Params.Commission,
		best.Report.TotalReturn*100)

	summary := &reporting.Summary{
		GeneratedAt: time.Now().UTC(),
		Symbol:      resolvedSymbol,
		Params:      best.Params,
		Report:      best.Report,
		Trades:      best.Ledger,
		GridResults: results,
	}

	if *resampleRuns > 0 {
		logger.Printf("Resampling: %d runs, seed %d", *resampleRuns, *resampleSeed)
		robustness, err := sweeper.Resample(ctx, series, best.Params, *resampleRuns, *resampleSeed)
		if err != nil {
			observability.RecordResampleRun("error")
			logger.Fatalf("resampling failed: %v", err)
		}
		observability.RecordResampleRun("ok")
		summary.Robustness = robustness
	}

	if *sweepCSVPath != "" {
		if err := os.WriteFile(*sweepCSVPath, []byte(reporting.RenderSweepCSV(results)), 0o644); err != nil {
			logger.Fatalf("write sweep csv: %v", err)
		}
		logger.Printf("Wrote sweep results to %s", *sweepCSVPath)
	}
	if *tradesCSVPath != "" {
		if err := os.WriteFile(*tradesCSVPath, []byte(reporting.RenderTradesCSV(best.Ledger)), 0o644); err != nil {
			logger.Fatalf("write trades csv: %v", err)
		}
		logger.Printf("Wrote best-run trades to %s", *tradesCSVPath)
	}

	fmt.Print(reporting.RenderMarkdown(summary))
}

// overrideGrid replaces dst with values parsed from the flag when given.
func overrideGrid(logger *log.Logger, dst *[]float64, raw string) {
	if raw == "" {
		return
	}
	values, err := parseFloats(raw)
	if err != nil {
		logger.Fatalf("parse grid values %q: %v", raw, err)
	}
	*dst = values
}

// fillGridDefaults substitutes the base parameter for any axis left empty, so
// a partial grid still expands to at least one combination.
func fillGridDefaults(g *harness.Grid, base domain.SimParams) {
	if len(g.StopLoss) == 0 {
		g.StopLoss = []float64{base.StopLossPct}
	}
	if len(g.TakeProfit) == 0 {
		g.TakeProfit = []float64{base.TakeProfitPct}
	}
	if len(g.Commission) == 0 {
		g.Commission = []float64{base.Commission}
	}
}

// parseFloats splits a comma-separated list of floats.
func parseFloats(raw string) ([]float64, error) {
	parts := strings.Split(raw, ",")
	values := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// loadSeries reads bars from the CSV file or the ClickHouse store and
// annotates them with indicator values and filter flags.
func loadSeries(ctx context.Context, symbol, csvPath, clickhouseDSN string) (domain.BarSeries, error) {
	var (
		series domain.BarSeries
		err    error
	)

	if csvPath != "" {
		series, err = ingestion.ReadBarsFile(csvPath, symbol)
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
	} else {
		conn, err := chstore.NewConn(ctx, clickhouseDSN)
		if err != nil {
			return nil, fmt.Errorf("connect to clickhouse: %w", err)
		}
		defer conn.Close()

		series, err = chstore.NewBarStore(conn).GetBySymbol(ctx, symbol)
		if err != nil {
			return nil, fmt.Errorf("load bars: %w", err)
		}
	}

	return indicator.Annotate(series), nil
}
