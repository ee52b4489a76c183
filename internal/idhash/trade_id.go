package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade_id using SHA256.
// Formula: SHA256(run_id|symbol|entry_time_ms)
// Returns hex-encoded hash (64 characters).
//
// At most one position is open per run at any bar, so (run_id, entry_time_ms)
// uniquely identifies a trade.
func ComputeTradeID(runID, symbol string, entryTimeMs int64) string {
	data := fmt.Sprintf("%s|%s|%d", runID, symbol, entryTimeMs)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
