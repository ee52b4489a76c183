package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade-sim-lab/internal/domain"
	"trade-sim-lab/internal/ingestion"
	"trade-sim-lab/internal/observability"
	"trade-sim-lab/internal/storage"
	chstore "trade-sim-lab/internal/storage/clickhouse"
	"trade-sim-lab/internal/storage/memory"
	"trade-sim-lab/internal/storage/migrations"
)

func main() {
	// Parse flags
	mode := flag.String("mode", "stream", "Ingestion mode: stream or csv")
	symbol := flag.String("symbol", "", "Instrument symbol, e.g. BTCUSDT (required)")
	wsEndpoint := flag.String("ws-endpoint", "wss://stream.binance.com:9443/ws", "Kline WebSocket endpoint")
	interval := flag.String("interval", "15m", "Kline interval, e.g. 1m, 15m, 1h")
	csvPath := flag.String("csv", "", "CSV file with OHLCV bars (csv mode)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage instead of ClickHouse")
	metricsAddr := flag.String("metrics-addr", ":9090", "Prometheus metrics HTTP address (empty to disable)")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[ingest] ", log.LstdFlags|log.Lshortfile)

	if *symbol == "" {
		logger.Fatal("--symbol is required")
	}

	// Start metrics server if enabled
	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			logger.Printf("Starting metrics server on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil && err != http.ErrServerClosed {
				logger.Printf("Metrics server error: %v", err)
			}
		}()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Handle shutdown signals with graceful timeout
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	barStore, closeStore, err := openBarStore(ctx, logger, *clickhouseDSN, *useMemory)
	if err != nil {
		logger.Fatalf("open bar store: %v", err)
	}
	defer closeStore()

	switch *mode {
	case "stream":
		err = runStream(ctx, logger, barStore, *wsEndpoint, *symbol, *interval)
	case "csv":
		err = runCSV(ctx, logger, barStore, *csvPath, *symbol)
	default:
		logger.Fatalf("Unknown mode: %s", *mode)
	}

	done <- err
	cancel()

	if err != nil && err != context.Canceled {
		logger.Fatalf("Error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// openBarStore creates the bar store, running ClickHouse migrations when a
// DSN is used. The returned close function is a no-op for the memory store.
func openBarStore(ctx context.Context, logger *log.Logger, clickhouseDSN string, useMemory bool) (storage.BarStore, func(), error) {
	if useMemory {
		return memory.NewBarStore(), func() {}, nil
	}
	if clickhouseDSN == "" {
		return nil, nil, fmt.Errorf("--clickhouse-dsn is required (use --use-memory for in-memory storage)")
	}

	conn, err := migrations.RunClickhouseMigrations(ctx, clickhouseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("run clickhouse migrations: %w", err)
	}
	logger.Println("ClickHouse migrations applied")

	return chstore.NewBarStore(conn), func() { conn.Close() }, nil
}

// runStream subscribes to the kline WebSocket feed and stores each closed
// candle as it arrives. Duplicate candles (replayed after a reconnect) are
// skipped, not fatal.
func runStream(ctx context.Context, logger *log.Logger, barStore storage.BarStore, endpoint, symbol, interval string) error {
	source := ingestion.NewKlineSource(ingestion.DefaultKlineConfig(endpoint, symbol, interval), logger)
	defer source.Close()

	bars, err := source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to kline stream: %w", err)
	}

	logger.Printf("Streaming %s %s klines from %s", symbol, interval, endpoint)

	stored := 0
	for bar := range bars {
		observability.RecordBarIngested("websocket")

		if err := barStore.InsertBulk(ctx, []*domain.Bar{bar}); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				logger.Printf("Skipping duplicate bar at %d", bar.TimestampMs)
				continue
			}
			observability.RecordIngestionError("store")
			return fmt.Errorf("store bar: %w", err)
		}

		observability.RecordBarsStored(1)
		stored++
		if stored%100 == 0 {
			logger.Printf("Stored %d bars", stored)
		}
	}

	logger.Printf("Stream closed after %d bars", stored)
	return ctx.Err()
}

// runCSV loads a CSV bar file and bulk-inserts it.
func runCSV(ctx context.Context, logger *log.Logger, barStore storage.BarStore, csvPath, symbol string) error {
	if csvPath == "" {
		return fmt.Errorf("--csv is required for csv mode")
	}

	series, err := ingestion.ReadBarsFile(csvPath, symbol)
	if err != nil {
		observability.RecordIngestionError("parse")
		return fmt.Errorf("read csv: %w", err)
	}
	for range series {
		observability.RecordBarIngested("csv")
	}

	if err := barStore.InsertBulk(ctx, series); err != nil {
		observability.RecordIngestionError("store")
		return fmt.Errorf("store bars: %w", err)
	}
	observability.RecordBarsStored(len(series))

	logger.Printf("Stored %d bars for %s", len(series), symbol)
	return nil
}
