package idhash

import (
	"testing"

	"trade-sim-lab/internal/domain"
)

func TestComputeRunID(t *testing.T) {
	p := domain.DefaultSimParams()

	got := ComputeRunID("BTCUSDT", 1704067200000, 1704153600000, p)
	if len(got) != 64 {
		t.Errorf("ComputeRunID() length = %d, want 64", len(got))
	}

	// Verify determinism: same inputs should produce same output
	got2 := ComputeRunID("BTCUSDT", 1704067200000, 1704153600000, p)
	if got != got2 {
		t.Errorf("ComputeRunID() not deterministic: %s != %s", got, got2)
	}
}

func TestComputeRunID_ParameterSensitivity(t *testing.T) {
	base := domain.DefaultSimParams()

	baseID := ComputeRunID("BTCUSDT", 1000, 2000, base)

	mutations := []func(*domain.SimParams){
		func(p *domain.SimParams) { p.StopLossPct = 0.02 },
		func(p *domain.SimParams) { p.TakeProfitPct = 0.05 },
		func(p *domain.SimParams) { p.Commission = 0.002 },
		func(p *domain.SimParams) { p.Leverage = 3.0 },
		func(p *domain.SimParams) { p.TrailingStop = !p.TrailingStop },
		func(p *domain.SimParams) { p.Entry.ConfidenceThreshold = 0.70 },
		func(p *domain.SimParams) { p.Entry.Confirm = domain.ConfirmAll },
		func(p *domain.SimParams) { p.Step = domain.StepLookahead },
		func(p *domain.SimParams) { p.MaxHoldBars = 50 },
	}

	for i, mutate := range mutations {
		p := base
		mutate(&p)
		if ComputeRunID("BTCUSDT", 1000, 2000, p) == baseID {
			t.Errorf("mutation %d did not change run_id", i)
		}
	}
}

func TestComputeTradeID(t *testing.T) {
	tests := []struct {
		name        string
		runID       string
		symbol      string
		entryTimeMs int64
	}{
		{name: "basic trade", runID: "abc123def456", symbol: "BTCUSDT", entryTimeMs: 1704067234567},
		{name: "another entry", runID: "abc123def456", symbol: "BTCUSDT", entryTimeMs: 1704067300000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTradeID(tt.runID, tt.symbol, tt.entryTimeMs)

			if len(got) != 64 {
				t.Errorf("ComputeTradeID() length = %d, want 64", len(got))
			}

			got2 := ComputeTradeID(tt.runID, tt.symbol, tt.entryTimeMs)
			if got != got2 {
				t.Errorf("ComputeTradeID() not deterministic: %s != %s", got, got2)
			}
		})
	}
}

func TestComputeTradeID_DifferentEntriesDiffer(t *testing.T) {
	a := ComputeTradeID("run-1", "BTCUSDT", 1000)
	b := ComputeTradeID("run-1", "BTCUSDT", 2000)
	if a == b {
		t.Error("trade_ids for different entry times should differ")
	}
}
