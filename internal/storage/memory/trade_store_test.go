package memory

import (
	"context"
	"errors"
	"testing"

	"trade-sim-lab/internal/domain"
	"trade-sim-lab/internal/storage"
)

func TestTradeStore_InsertAndGet(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trade := &domain.Trade{
		TradeID:     "trade1",
		RunID:       "run1",
		Symbol:      "BTCUSDT",
		EntryTimeMs: 1000,
		EntryPrice:  100.05,
		ExitTimeMs:  2000,
		ExitPrice:   104.0,
		ExitReason:  domain.ExitReasonTakeProfit,
		Return:      0.039,
		Leverage:    2.0,
	}

	err := store.Insert(ctx, trade)
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "trade1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}

	if got.Return != 0.039 {
		t.Errorf("Return mismatch: got %f, want %f", got.Return, 0.039)
	}
	if got.ExitReason != domain.ExitReasonTakeProfit {
		t.Errorf("ExitReason mismatch: got %s", got.ExitReason)
	}
}

func TestTradeStore_DuplicateKey(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	trade := &domain.Trade{TradeID: "trade1", RunID: "run1", Symbol: "BTCUSDT"}

	if err := store.Insert(ctx, trade); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, trade)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeStore_NotFound(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	_, err := store.GetByID(ctx, "nonexistent")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestTradeStore_InvalidInput(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	err := store.Insert(ctx, &domain.Trade{})
	if !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestTradeStore_InsertBulk_Atomic(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.Trade{TradeID: "trade2", RunID: "run1"}); err != nil {
		t.Fatalf("Seed insert failed: %v", err)
	}

	// Batch contains a trade that already exists; nothing must be written.
	batch := []*domain.Trade{
		{TradeID: "trade3", RunID: "run1"},
		{TradeID: "trade2", RunID: "run1"},
	}
	err := store.InsertBulk(ctx, batch)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey, got %v", err)
	}

	_, err = store.GetByID(ctx, "trade3")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("trade3 leaked from failed batch: %v", err)
	}
}

func TestTradeStore_InsertBulk_IntraBatchDuplicate(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	batch := []*domain.Trade{
		{TradeID: "trade1", RunID: "run1"},
		{TradeID: "trade1", RunID: "run1"},
	}
	err := store.InsertBulk(ctx, batch)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestTradeStore_GetByRunID_Ordered(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	batch := []*domain.Trade{
		{TradeID: "b", RunID: "run1", EntryTimeMs: 3000},
		{TradeID: "a", RunID: "run1", EntryTimeMs: 1000},
		{TradeID: "c", RunID: "run2", EntryTimeMs: 2000},
	}
	if err := store.InsertBulk(ctx, batch); err != nil {
		t.Fatalf("InsertBulk failed: %v", err)
	}

	got, err := store.GetByRunID(ctx, "run1")
	if err != nil {
		t.Fatalf("GetByRunID failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 trades, got %d", len(got))
	}
	if got[0].TradeID != "a" || got[1].TradeID != "b" {
		t.Errorf("Wrong order: %s, %s", got[0].TradeID, got[1].TradeID)
	}
}

func TestTradeStore_ReturnsCopies(t *testing.T) {
	store := NewTradeStore()
	ctx := context.Background()

	if err := store.Insert(ctx, &domain.Trade{TradeID: "trade1", RunID: "run1", Return: 0.01}); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "trade1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	got.Return = 99

	again, err := store.GetByID(ctx, "trade1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if again.Return != 0.01 {
		t.Errorf("Stored trade mutated through returned copy: %f", again.Return)
	}
}
