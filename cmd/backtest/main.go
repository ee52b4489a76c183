package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-sim-lab/internal/config"
	"trade-sim-lab/internal/domain"
	"trade-sim-lab/internal/indicator"
	"trade-sim-lab/internal/ingestion"
	"trade-sim-lab/internal/monitor"
	"trade-sim-lab/internal/observability"
	"trade-sim-lab/internal/perf"
	"trade-sim-lab/internal/reporting"
	"trade-sim-lab/internal/sim"
	chstore "trade-sim-lab/internal/storage/clickhouse"
	"trade-sim-lab/internal/storage/migrations"
	pgstore "trade-sim-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	configPath := flag.String("config", "", "YAML config file (optional)")
	symbol := flag.String("symbol", "", "Instrument symbol, e.g. BTCUSDT")
	csvPath := flag.String("csv", "", "CSV file with OHLCV bars")

	// Simulation parameters (override config when set)
	stopLoss := flag.Float64("stop-loss", 0, "Stop-loss fraction of entry price")
	takeProfit := flag.Float64("take-profit", 0, "Take-profit fraction of entry price")
	commission := flag.Float64("commission", 0, "Commission fraction per round trip")
	slippage := flag.Float64("slippage", 0, "Slippage fraction at execution")
	leverage := flag.Float64("leverage", 0, "Leverage multiplier")
	threshold := flag.Float64("confidence-threshold", 0, "Minimum entry confidence")
	confirm := flag.String("confirm", "", "Trend confirmation rule: off, any, all")
	step := flag.String("step", "", "Step policy: single_bar, lookahead")
	maxHoldBars := flag.Int("max-hold-bars", 0, "Bars before a forced timeout exit")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")

	// Live mode
	watch := flag.Bool("watch", false, "Poll the bar store and re-simulate continuously")
	watchInterval := flag.Duration("watch-interval", 15*time.Second, "Poll interval in watch mode")

	// Output
	outputJSON := flag.Bool("json", false, "Output the report as JSON")
	persistResult := flag.Bool("persist", false, "Persist trades and report to PostgreSQL")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	params, resolvedSymbol, err := resolveParams(*configPath, *symbol)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	overrideParams(&params, *stopLoss, *takeProfit, *commission, *slippage,
		*leverage, *threshold, *confirm, *step, *maxHoldBars)

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

	if *watch {
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required for --watch")
		}
		if err := runWatch(ctx, logger, resolvedSymbol, params, *clickhouseDSN, *watchInterval); err != nil && err != context.Canceled {
			logger.Fatalf("watch failed: %v", err)
		}
		return
	}

	series, err := loadSeries(ctx, resolvedSymbol, *csvPath, *clickhouseDSN)
	if err != nil {
		logger.Fatalf("load bars: %v", err)
	}
	logger.Printf("Loaded %d bars for %s", len(series), resolvedSymbol)

	summary, err := runOnce(ctx, resolvedSymbol, series, params)
	if err != nil {
		logger.Fatalf("backtest failed: %v", err)
	}

	if *persistResult {
		if *postgresDSN == "" {
			logger.Fatal("--postgres-dsn is required with --persist")
		}
		if err := persist(ctx, logger, *postgresDSN, summary); err != nil {
			logger.Fatalf("persist results: %v", err)
		}
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(summary.Report, "", "  ")
		fmt.Println(string(output))
	} else {
		fmt.Print(reporting.RenderMarkdown(summary))
	}
}

// resolveParams loads simulation parameters from the config file when given,
// falling back to defaults. The returned symbol prefers the flag.
func resolveParams(configPath, flagSymbol string) (domain.SimParams, string, error) {
	if configPath == "" {
		return domain.DefaultSimParams(), flagSymbol, nil
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return domain.SimParams{}, "", err
	}

	symbol := flagSymbol
	if symbol == "" {
		symbol = cfg.Symbol
	}
	return cfg.SimParams(), symbol, nil
}

// overrideParams applies non-zero flag values on top of the resolved params.
func overrideParams(p *domain.SimParams, stopLoss, takeProfit, commission, slippage,
	leverage, threshold float64, confirm, step string, maxHoldBars int) {
	if stopLoss > 0 {
		p.StopLossPct = stopLoss
	}
	if takeProfit > 0 {
		p.TakeProfitPct = takeProfit
	}
	if commission > 0 {
		p.Commission = commission
	}
	if slippage > 0 {
		p.Slippage = slippage
	}
	if leverage > 0 {
		p.Leverage = leverage
	}
	if threshold > 0 {
		p.Entry.ConfidenceThreshold = threshold
	}
	if confirm != "" {
		p.Entry.Confirm = domain.ConfirmRule(confirm)
	}
	if step != "" {
		p.Step = domain.StepPolicy(step)
	}
	if maxHoldBars > 0 {
		p.MaxHoldBars = maxHoldBars
	}
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

// runOnce simulates the series, analyzes the ledger, and records metrics.
func runOnce(ctx context.Context, symbol string, series domain.BarSeries, params domain.SimParams) (*reporting.Summary, error) {
	machine, err := sim.NewMachine(symbol, params)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ledger, err := machine.Run(ctx, series)
	if err != nil {
		observability.RecordSimulationRun("error", time.Since(start).Seconds(), 0)
		return nil, err
	}
	observability.RecordSimulationRun("ok", time.Since(start).Seconds(), len(ledger))
	for _, t := range ledger {
		observability.RecordTradeExit(t.ExitReason)
	}

	report, err := perf.AnalyzeLedger(ledger, perf.Options{
		CapitalInitial:       params.CapitalInitial,
		AnnualizationFactor:  params.AnnualizationFactor,
		MaterialityThreshold: params.MaterialityThreshold,
	})
	if err != nil {
		return nil, err
	}
	if report.RunID == "" {
		report.RunID = machine.RunID(series)
	}

	return &reporting.Summary{
		GeneratedAt: time.Now().UTC(),
		Symbol:      symbol,
		Params:      params,
		Report:      report,
		Trades:      ledger,
	}, nil
}

// persist runs migrations and writes the trade ledger and report to PostgreSQL.
func persist(ctx context.Context, logger *log.Logger, dsn string, summary *reporting.Summary) error {
	pool, err := pgstore.NewPool(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	if len(summary.Trades) > 0 {
		if err := pgstore.NewTradeStore(pool).InsertBulk(ctx, summary.Trades); err != nil {
			return fmt.Errorf("insert trades: %w", err)
		}
	}
	if err := pgstore.NewReportStore(pool).Insert(ctx, summary.Report); err != nil {
		return fmt.Errorf("insert report: %w", err)
	}

	logger.Printf("Persisted %d trades and report for run %s", len(summary.Trades), summary.Report.RunID)
	return nil
}

// runWatch polls the bar store on a fixed interval and logs headline metrics
// after each re-simulation. Empty or unreadable data is transient; simulation
// failures trigger the monitor's backoff.
func runWatch(ctx context.Context, logger *log.Logger, symbol string, params domain.SimParams, clickhouseDSN string, interval time.Duration) error {
	conn, err := chstore.NewConn(ctx, clickhouseDSN)
	if err != nil {
		return fmt.Errorf("connect to clickhouse: %w", err)
	}
	defer conn.Close()
	barStore := chstore.NewBarStore(conn)

	logger.Printf("Watching %s every %v", symbol, interval)

	loop := monitor.New(monitor.Options{
		Interval: interval,
		Logger:   logger,
	})
	return loop.Run(ctx, func(ctx context.Context) error {
		series, err := barStore.GetBySymbol(ctx, symbol)
		if err != nil {
			return fmt.Errorf("load bars: %v: %w", err, monitor.ErrTransient)
		}
		if len(series) == 0 {
			return fmt.Errorf("no bars for %s: %w", symbol, monitor.ErrTransient)
		}

		summary, err := runOnce(ctx, symbol, indicator.Annotate(series), params)
		if err != nil {
			return err
		}

		r := summary.Report
		if r.Empty() {
			logger.Printf("%s: %d bars, no material trades", symbol, len(series))
			return nil
		}
		logger.Printf("%s: %d bars, %d trades, win rate %.1f%%, total return %.2f%%",
			symbol, len(series), r.TotalTrades, r.WinRate*100, r.TotalReturn*100)
		return nil
	})
}
