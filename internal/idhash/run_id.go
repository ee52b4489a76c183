package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"trade-sim-lab/internal/domain"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(symbol|start_ms|end_ms|stop_loss|take_profit|commission|slippage|leverage|trailing|offset|threshold|confirm|step|max_hold)
// Returns hex-encoded hash (64 characters).
//
// Two runs over the same series span with the same parameters share an ID, so
// re-running a sweep upserts rather than duplicates results.
func ComputeRunID(symbol string, startMs, endMs int64, p domain.SimParams) string {
	data := fmt.Sprintf("%s|%d|%d|%g|%g|%g|%g|%g|%t|%g|%g|%s|%s|%d",
		symbol,
		startMs,
		endMs,
		p.StopLossPct,
		p.TakeProfitPct,
		p.Commission,
		p.Slippage,
		p.Leverage,
		p.TrailingStop,
		p.TrailingOffset,
		p.Entry.ConfidenceThreshold,
		string(p.Entry.Confirm),
		string(p.Step),
		p.MaxHoldBars,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
