package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-sim-lab/internal/domain"
	"trade-sim-lab/internal/storage"
)

func sampleTrade(tradeID, runID string, entryMs int64) *domain.Trade {
	return &domain.Trade{
		TradeID:     tradeID,
		RunID:       runID,
		Symbol:      "BTCUSDT",
		EntryTimeMs: entryMs,
		EntryPrice:  100.05,
		ExitTimeMs:  entryMs + 60_000,
		ExitPrice:   104.0,
		ExitReason:  domain.ExitReasonTakeProfit,
		Return:      0.039,
		Leverage:    2.0,
	}
}

func TestTradeStore_InsertAndGetByID(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	trade := sampleTrade("trade-1", "run-1", 1000)
	require.NoError(t, store.Insert(ctx, trade))

	got, err := store.GetByID(ctx, "trade-1")
	require.NoError(t, err)
	assert.Equal(t, trade.RunID, got.RunID)
	assert.Equal(t, trade.EntryPrice, got.EntryPrice)
	assert.Equal(t, trade.ExitReason, got.ExitReason)
	assert.Equal(t, trade.Return, got.Return)
	assert.Equal(t, trade.Leverage, got.Leverage)
}

func TestTradeStore_Insert_Duplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	trade := sampleTrade("trade-1", "run-1", 1000)
	require.NoError(t, store.Insert(ctx, trade))

	err := store.Insert(ctx, trade)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestTradeStore_GetByID_NotFound(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)

	_, err := store.GetByID(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeStore_InsertBulk_AtomicOnDuplicate(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, sampleTrade("trade-1", "run-1", 1000)))

	batch := []*domain.Trade{
		sampleTrade("trade-2", "run-1", 2000),
		sampleTrade("trade-1", "run-1", 3000), // duplicate
	}
	err := store.InsertBulk(ctx, batch)
	require.ErrorIs(t, err, storage.ErrDuplicateKey)

	// The transaction must have rolled back trade-2.
	_, err = store.GetByID(ctx, "trade-2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTradeStore_GetByRunID_Ordered(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	batch := []*domain.Trade{
		sampleTrade("trade-b", "run-1", 3000),
		sampleTrade("trade-a", "run-1", 1000),
		sampleTrade("trade-c", "run-2", 2000),
	}
	require.NoError(t, store.InsertBulk(ctx, batch))

	got, err := store.GetByRunID(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "trade-a", got[0].TradeID)
	assert.Equal(t, "trade-b", got[1].TradeID)
}

func TestTradeStore_GetBySymbol(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	store := NewTradeStore(pool)
	ctx := context.Background()

	other := sampleTrade("trade-eth", "run-1", 1000)
	other.Symbol = "ETHUSDT"

	require.NoError(t, store.InsertBulk(ctx, []*domain.Trade{
		sampleTrade("trade-1", "run-1", 2000),
		other,
	}))

	got, err := store.GetBySymbol(ctx, "ETHUSDT")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "trade-eth", got[0].TradeID)
}
