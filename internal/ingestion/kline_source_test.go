package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// klineServer serves the given raw messages to any client, then holds the
// connection open.
func klineServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for _, msg := range messages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
}

func testConfig(serverURL string) KlineConfig {
	config := DefaultKlineConfig("ws"+strings.TrimPrefix(serverURL, "http"), "BTCUSDT", "1m")
	config.ReadTimeout = 2 * time.Second
	config.ReconnectDelay = 100 * time.Millisecond
	return config
}

func TestKlineSource_EmitsClosedCandlesOnly(t *testing.T) {
	messages := []string{
		// open candle, must be skipped
		`{"e":"kline","s":"BTCUSDT","k":{"t":1000,"s":"BTCUSDT","o":"100","h":"101","l":"99","c":"100.5","v":"500","x":false}}`,
		// closed candle
		`{"e":"kline","s":"BTCUSDT","k":{"t":1000,"s":"BTCUSDT","o":"100","h":"101","l":"99","c":"100.7","v":"550","x":true}}`,
	}
	server := klineServer(t, messages)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	source := NewKlineSource(testConfig(server.URL), nil)
	bars, err := source.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	select {
	case bar := <-bars:
		if bar.Close != 100.7 {
			t.Errorf("Close = %f, want 100.7", bar.Close)
		}
		if bar.Volume != 550 {
			t.Errorf("Volume = %f, want 550", bar.Volume)
		}
		if bar.TimestampMs != 1000 {
			t.Errorf("TimestampMs = %d, want 1000", bar.TimestampMs)
		}
	case <-ctx.Done():
		t.Fatal("Timed out waiting for bar")
	}
}

func TestKlineSource_SkipsMalformedAndForeignEvents(t *testing.T) {
	messages := []string{
		`not json`,
		`{"e":"trade","s":"BTCUSDT"}`,
		`{"e":"kline","s":"BTCUSDT","k":{"t":2000,"s":"BTCUSDT","o":"100","h":"101","l":"99","c":"100.9","v":"500","x":true}}`,
	}
	server := klineServer(t, messages)
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	source := NewKlineSource(testConfig(server.URL), nil)
	bars, err := source.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	select {
	case bar := <-bars:
		if bar.TimestampMs != 2000 {
			t.Errorf("TimestampMs = %d, want 2000", bar.TimestampMs)
		}
	case <-ctx.Done():
		t.Fatal("Timed out waiting for bar")
	}
}

func TestKlineSource_ChannelClosesOnCancel(t *testing.T) {
	server := klineServer(t, nil)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())

	source := NewKlineSource(testConfig(server.URL), nil)
	bars, err := source.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}

	cancel()

	select {
	case _, ok := <-bars:
		if ok {
			t.Fatal("Expected closed channel, got bar")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Channel not closed after cancel")
	}
}

func TestKlineSource_SubscribeAfterClose(t *testing.T) {
	source := NewKlineSource(DefaultKlineConfig("ws://localhost:1", "BTCUSDT", "1m"), nil)
	source.Close()

	if _, err := source.Subscribe(context.Background()); err == nil {
		t.Fatal("Expected error subscribing on closed source")
	}
}

func TestParseKline_StreamURL(t *testing.T) {
	source := NewKlineSource(DefaultKlineConfig("wss://example.com/ws/", "BTCUSDT", "15m"), nil)
	got := source.streamURL()
	want := "wss://example.com/ws/btcusdt@kline_15m"
	if got != want {
		t.Errorf("streamURL = %s, want %s", got, want)
	}
}
