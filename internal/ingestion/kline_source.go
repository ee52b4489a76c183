// Package ingestion brings market data into the lab: a live websocket
// kline source and a CSV reader for historical files. Adapters only, the
// simulation core never performs I/O.
package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"trade-sim-lab/internal/domain"
)

// KlineConfig configures the websocket kline source.
type KlineConfig struct {
	Endpoint         string        // base websocket URL, e.g. wss://stream.binance.com:9443/ws
	Symbol           string        // instrument, e.g. BTCUSDT
	Interval         string        // kline interval, e.g. 15m
	HandshakeTimeout time.Duration // dial timeout
	ReadTimeout      time.Duration // per-message read deadline
	ReconnectDelay   time.Duration // wait between reconnect attempts
}

// DefaultKlineConfig returns a config with sane timeouts.
func DefaultKlineConfig(endpoint, symbol, interval string) KlineConfig {
	return KlineConfig{
		Endpoint:         endpoint,
		Symbol:           symbol,
		Interval:         interval,
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      90 * time.Second,
		ReconnectDelay:   5 * time.Second,
	}
}

// klineMessage is the wire format of a kline stream event.
type klineMessage struct {
	EventType string       `json:"e"`
	Symbol    string       `json:"s"`
	Kline     klinePayload `json:"k"`
}

type klinePayload struct {
	OpenTimeMs int64  `json:"t"`
	Symbol     string `json:"s"`
	Open       string `json:"o"`
	High       string `json:"h"`
	Low        string `json:"l"`
	Close      string `json:"c"`
	Volume     string `json:"v"`
	Closed     bool   `json:"x"`
}

// KlineSource streams closed klines as bars over a channel. Open candles
// are skipped so downstream consumers only ever see final bar values.
type KlineSource struct {
	config KlineConfig
	logger *log.Logger
	closed atomic.Bool
}

// NewKlineSource creates a new websocket kline source.
func NewKlineSource(config KlineConfig, logger *log.Logger) *KlineSource {
	if logger == nil {
		logger = log.Default()
	}
	return &KlineSource{config: config, logger: logger}
}

// streamURL builds the combined stream path for the configured symbol/interval.
func (s *KlineSource) streamURL() string {
	return fmt.Sprintf("%s/%s@kline_%s",
		strings.TrimSuffix(s.config.Endpoint, "/"),
		strings.ToLower(s.config.Symbol),
		s.config.Interval,
	)
}

// Subscribe starts streaming bars. The returned channel is closed when the
// context is cancelled or the source is closed. The source reconnects with
// a fixed delay after a dropped connection.
func (s *KlineSource) Subscribe(ctx context.Context) (<-chan *domain.Bar, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("kline source closed")
	}

	// Dial eagerly so configuration errors surface on Subscribe, not later
	// inside the read loop.
	conn, err := s.dial(ctx)
	if err != nil {
		return nil, err
	}

	bars := make(chan *domain.Bar, 100)
	go s.readLoop(ctx, conn, bars)
	return bars, nil
}

// Close stops the source. Subsequent Subscribe calls fail.
func (s *KlineSource) Close() {
	s.closed.Store(true)
}

func (s *KlineSource) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.config.HandshakeTimeout,
	}

	url := s.streamURL()
	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", url, err)
	}
	s.logger.Printf("[kline-ws] connected to %s", url)
	return conn, nil
}

// readLoop reads messages until the context ends, reconnecting on failure.
func (s *KlineSource) readLoop(ctx context.Context, conn *websocket.Conn, bars chan<- *domain.Bar) {
	defer close(bars)
	defer func() {
		if conn != nil {
			conn.Close()
		}
	}()

	for {
		if ctx.Err() != nil || s.closed.Load() {
			return
		}

		if conn == nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(s.config.ReconnectDelay):
			}
			var err error
			conn, err = s.dial(ctx)
			if err != nil {
				s.logger.Printf("[kline-ws] reconnect failed: %v", err)
				conn = nil
				continue
			}
		}

		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || s.closed.Load() {
				return
			}
			s.logger.Printf("[kline-ws] read error, reconnecting: %v", err)
			conn.Close()
			conn = nil
			continue
		}

		bar, ok, err := parseKline(data)
		if err != nil {
			s.logger.Printf("[kline-ws] skipping malformed message: %v", err)
			continue
		}
		if !ok {
			continue // candle still open
		}

		select {
		case bars <- bar:
		case <-ctx.Done():
			return
		}
	}
}

// parseKline decodes a kline event. Returns ok=false for open candles and
// non-kline events.
func parseKline(data []byte) (*domain.Bar, bool, error) {
	var msg klineMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, false, fmt.Errorf("decode kline message: %w", err)
	}
	if msg.EventType != "kline" {
		return nil, false, nil
	}
	if !msg.Kline.Closed {
		return nil, false, nil
	}

	bar := &domain.Bar{
		Symbol:      msg.Kline.Symbol,
		TimestampMs: msg.Kline.OpenTimeMs,
	}

	fields := []struct {
		name string
		raw  string
		dst  *float64
	}{
		{"open", msg.Kline.Open, &bar.Open},
		{"high", msg.Kline.High, &bar.High},
		{"low", msg.Kline.Low, &bar.Low},
		{"close", msg.Kline.Close, &bar.Close},
		{"volume", msg.Kline.Volume, &bar.Volume},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(f.raw, 64)
		if err != nil {
			return nil, false, fmt.Errorf("parse %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = v
	}

	return bar, true, nil
}
