// Package config handles application configuration.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"trade-sim-lab/internal/domain"
)

// Config defines the structure for all application configuration.
type Config struct {
	Symbol   string       `yaml:"symbol"`
	Sim      SimConf      `yaml:"sim"`
	Grid     GridConf     `yaml:"grid"`
	Resample ResampleConf `yaml:"resample"`
	Monitor  MonitorConf  `yaml:"monitor"`
	Storage  StorageConf  `yaml:"storage"`
	Stream   StreamConf   `yaml:"stream"`
}

// SimConf holds simulation parameters.
type SimConf struct {
	StopLoss            float64 `yaml:"stop_loss"`
	TakeProfit          float64 `yaml:"take_profit"`
	Commission          float64 `yaml:"commission"`
	Slippage            float64 `yaml:"slippage"`
	Leverage            float64 `yaml:"leverage"`
	TrailingStop        bool    `yaml:"trailing_stop"`
	TrailingOffset      float64 `yaml:"trailing_offset"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	Confirm             string  `yaml:"confirm"` // off, any, all
	Step                string  `yaml:"step"`    // single_bar, lookahead
	MaxHoldBars         int     `yaml:"max_hold_bars"`
	CapitalInitial      float64 `yaml:"capital_initial"`
}

// GridConf holds grid search axes.
type GridConf struct {
	StopLoss    []float64 `yaml:"stop_loss"`
	TakeProfit  []float64 `yaml:"take_profit"`
	Commission  []float64 `yaml:"commission"`
	Parallelism int       `yaml:"parallelism"`
}

// ResampleConf holds robustness analysis settings.
type ResampleConf struct {
	Runs int   `yaml:"runs"`
	Seed int64 `yaml:"seed"`
}

// MonitorConf holds live monitor settings.
type MonitorConf struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	BackoffSeconds  int `yaml:"backoff_seconds"`
}

// StorageConf holds database DSNs. Empty values select in-memory stores.
type StorageConf struct {
	PostgresDSN   string `yaml:"postgres_dsn"`
	ClickhouseDSN string `yaml:"clickhouse_dsn"`
}

// StreamConf holds websocket ingestion settings.
type StreamConf struct {
	Endpoint string `yaml:"endpoint"`
	Interval string `yaml:"interval"`
}

// Load reads a YAML config file. Unknown keys are rejected. DSNs may be
// overridden by the POSTGRES_DSN and CLICKHOUSE_DSN environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	if dsn := os.Getenv("CLICKHOUSE_DSN"); dsn != "" {
		cfg.Storage.ClickhouseDSN = dsn
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks config invariants beyond what SimParams validation covers.
func (c *Config) Validate() error {
	if c.Symbol == "" {
		return fmt.Errorf("config: symbol is required")
	}
	switch c.Sim.Confirm {
	case "", string(domain.ConfirmOff), string(domain.ConfirmAny), string(domain.ConfirmAll):
	default:
		return fmt.Errorf("config: unknown confirm rule %q", c.Sim.Confirm)
	}
	switch c.Sim.Step {
	case "", string(domain.StepSingleBar), string(domain.StepLookahead):
	default:
		return fmt.Errorf("config: unknown step policy %q", c.Sim.Step)
	}
	if c.Sim.ConfidenceThreshold < 0 || c.Sim.ConfidenceThreshold > 1 {
		return fmt.Errorf("config: confidence_threshold %v outside [0,1]", c.Sim.ConfidenceThreshold)
	}
	if c.Resample.Runs < 0 {
		return fmt.Errorf("config: resample runs must be non-negative")
	}
	if c.Grid.Parallelism < 0 {
		return fmt.Errorf("config: grid parallelism must be non-negative")
	}
	return nil
}

// SimParams builds domain parameters from the config, falling back to
// defaults for unset values.
func (c *Config) SimParams() domain.SimParams {
	p := domain.DefaultSimParams()

	if c.Sim.StopLoss > 0 {
		p.StopLossPct = c.Sim.StopLoss
	}
	if c.Sim.TakeProfit > 0 {
		p.TakeProfitPct = c.Sim.TakeProfit
	}
	if c.Sim.Commission > 0 {
		p.Commission = c.Sim.Commission
	}
	if c.Sim.Slippage > 0 {
		p.Slippage = c.Sim.Slippage
	}
	if c.Sim.Leverage > 0 {
		p.Leverage = c.Sim.Leverage
	}
	p.TrailingStop = c.Sim.TrailingStop
	if c.Sim.TrailingOffset > 0 {
		p.TrailingOffset = c.Sim.TrailingOffset
	}
	if c.Sim.ConfidenceThreshold > 0 {
		p.Entry.ConfidenceThreshold = c.Sim.ConfidenceThreshold
	}
	if c.Sim.Confirm != "" {
		p.Entry.Confirm = domain.ConfirmRule(c.Sim.Confirm)
	}
	if c.Sim.Step != "" {
		p.Step = domain.StepPolicy(c.Sim.Step)
	}
	if c.Sim.MaxHoldBars > 0 {
		p.MaxHoldBars = c.Sim.MaxHoldBars
	}
	if c.Sim.CapitalInitial > 0 {
		p.CapitalInitial = c.Sim.CapitalInitial
	}

	return p
}
