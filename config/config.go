// Package config loads and validates the run configuration.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/quantlab/breakout/features"
	"github.com/quantlab/breakout/risk"
	"github.com/quantlab/breakout/signal"
	"github.com/quantlab/breakout/sim"
)

// Config is the complete run configuration. A config that fails Validate
// never starts a run: configuration errors are fatal before the first
// tick.
type Config struct {
	Symbols    []string         `yaml:"symbols"`
	Account    AccountConfig    `yaml:"account"`
	Lookbacks  LookbackConfig   `yaml:"lookbacks"`
	Strategies []StrategyConfig `yaml:"strategies"`
	Risk       RiskConfig       `yaml:"risk"`
	Sim        SimConfig        `yaml:"sim"`
	Journal    JournalConfig    `yaml:"journal"`
}

// AccountConfig initializes the simulated account.
type AccountConfig struct {
	InitialCash float64 `yaml:"initial_cash"`
	CloseEnd    bool    `yaml:"close_end"`
}

// LookbackConfig sets per-indicator window lengths in bars.
type LookbackConfig struct {
	Return     int `yaml:"return"`
	Volatility int `yaml:"volatility"`
	Volume     int `yaml:"volume"`
	Range      int `yaml:"range"`
	MAFast     int `yaml:"ma_fast"`
	MASlow     int `yaml:"ma_slow"`
}

// StrategyConfig declares one strategy. Order in the list is
// registration order, which the risk controller uses as the final
// conflict tie-break.
type StrategyConfig struct {
	Name string `yaml:"name"`
	Kind string `yaml:"kind"` // "rule" or "model"

	// Rule parameters.
	VolumeZMin float64 `yaml:"volume_z_min"`
	MarginRef  float64 `yaml:"margin_ref"`

	// Model parameters.
	WeightsFile   string  `yaml:"weights_file"`
	LongThreshold float64 `yaml:"long_threshold"`
}

// RiskConfig mirrors risk.Limits.
type RiskConfig struct {
	MaxOpenPositions    int     `yaml:"max_open_positions"`
	MaxPositionValue    float64 `yaml:"max_position_value"`
	MaxExposureFraction float64 `yaml:"max_aggregate_exposure_fraction"`
	CooldownBars        int     `yaml:"cooldown_bars"`
	SameSidePolicy      string  `yaml:"same_side_policy"`
}

// SimConfig mirrors the simulator's execution model.
type SimConfig struct {
	StopLossPct    float64 `yaml:"stop_loss_pct"`
	TakeProfitPct  float64 `yaml:"take_profit_pct"`
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct"`
	AllowScaleIn   bool    `yaml:"allow_scale_in"`
	FeeBps         float64 `yaml:"fee_bps"`
	SlippageBps    float64 `yaml:"slippage_bps"`
}

// JournalConfig selects the output sink.
type JournalConfig struct {
	Type       string `yaml:"type"` // "sqlite" or "csv"
	DBPath     string `yaml:"db_path,omitempty"`
	FillsFile  string `yaml:"fills_file,omitempty"`
	PnLFile    string `yaml:"pnl_file,omitempty"`
	EquityFile string `yaml:"equity_file,omitempty"`
}

// Default returns a runnable configuration for a single rule strategy.
func Default() *Config {
	return &Config{
		Symbols: []string{"BTC-USD"},
		Account: AccountConfig{
			InitialCash: 100000,
			CloseEnd:    true,
		},
		Lookbacks: LookbackConfig{
			Return:     12,
			Volatility: 24,
			Volume:     20,
			Range:      14,
			MAFast:     10,
			MASlow:     30,
		},
		Strategies: []StrategyConfig{
			{Name: "breakout-rule", Kind: "rule", VolumeZMin: 2.0, MarginRef: 0.02},
		},
		Risk: RiskConfig{
			MaxOpenPositions:    3,
			MaxPositionValue:    10000,
			MaxExposureFraction: 0.5,
			CooldownBars:        4,
		},
		Sim: SimConfig{
			StopLossPct:   0.05,
			TakeProfitPct: 0.10,
			FeeBps:        10,
			SlippageBps:   5,
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./breakout.sqlite",
		},
	}
}

// LoadFromFile reads and validates a YAML config.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the whole configuration surface.
func (c *Config) Validate() error {
	if len(c.Symbols) == 0 {
		return fmt.Errorf("symbols is required")
	}
	if c.Account.InitialCash <= 0 {
		return fmt.Errorf("account.initial_cash must be positive")
	}

	lb := c.Lookbacks
	for _, w := range []struct {
		name string
		val  int
	}{
		{"return", lb.Return}, {"volatility", lb.Volatility},
		{"volume", lb.Volume}, {"range", lb.Range},
		{"ma_fast", lb.MAFast}, {"ma_slow", lb.MASlow},
	} {
		if w.val <= 0 {
			return fmt.Errorf("lookbacks.%s must be positive", w.name)
		}
	}
	if lb.MASlow <= lb.MAFast {
		return fmt.Errorf("lookbacks.ma_slow must exceed lookbacks.ma_fast")
	}

	if len(c.Strategies) == 0 {
		return fmt.Errorf("at least one strategy is required")
	}
	seen := map[string]bool{}
	for i, sc := range c.Strategies {
		if sc.Name == "" {
			return fmt.Errorf("strategies[%d].name is required", i)
		}
		if seen[sc.Name] {
			return fmt.Errorf("duplicate strategy name %q", sc.Name)
		}
		seen[sc.Name] = true
		switch sc.Kind {
		case "rule":
		case "model":
			if sc.WeightsFile == "" {
				return fmt.Errorf("strategy %q: weights_file is required for model strategies", sc.Name)
			}
		default:
			return fmt.Errorf("strategy %q: unknown kind %q (rule|model)", sc.Name, sc.Kind)
		}
	}

	if err := c.RiskLimits().Validate(); err != nil {
		return err
	}
	if err := c.SimulatorConfig().Validate(); err != nil {
		return err
	}

	switch c.Journal.Type {
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal.db_path is required for sqlite journals")
		}
	case "csv":
		if c.Journal.FillsFile == "" || c.Journal.PnLFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal fills_file, pnl_file and equity_file are required for csv journals")
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite' or 'csv'")
	}
	return nil
}

// Indicators builds the configured indicator set.
func (c *Config) Indicators() []features.Indicator {
	lb := c.Lookbacks
	return []features.Indicator{
		features.Close{},
		features.RollingReturn{Period: lb.Return},
		features.RollingVolatility{Period: lb.Volatility},
		features.VolumeZScore{Period: lb.Volume},
		features.RangeHigh{Period: lb.Range},
		features.RangeLow{Period: lb.Range},
		features.MACross{Fast: lb.MAFast, Slow: lb.MASlow},
	}
}

// BuildRegistry instantiates the configured strategies in order.
func (c *Config) BuildRegistry() (*signal.Registry, error) {
	reg := signal.NewRegistry()
	for _, sc := range c.Strategies {
		var strat signal.Strategy
		switch sc.Kind {
		case "rule":
			strat = signal.NewRule(sc.Name, signal.RuleConfig{
				VolumeZMin: sc.VolumeZMin,
				MarginRef:  sc.MarginRef,
			})
		case "model":
			m, err := signal.LoadModel(sc.Name, signal.ModelConfig{
				LongThreshold: sc.LongThreshold,
			}, sc.WeightsFile)
			if err != nil {
				return nil, fmt.Errorf("strategy %q: %w", sc.Name, err)
			}
			strat = m
		default:
			return nil, fmt.Errorf("strategy %q: unknown kind %q", sc.Name, sc.Kind)
		}
		if err := reg.Register(strat); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// RiskLimits maps the config onto risk.Limits.
func (c *Config) RiskLimits() risk.Limits {
	return risk.Limits{
		MaxOpenPositions:    c.Risk.MaxOpenPositions,
		MaxPositionValue:    c.Risk.MaxPositionValue,
		MaxExposureFraction: c.Risk.MaxExposureFraction,
		CooldownBars:        c.Risk.CooldownBars,
		SameSidePolicy:      risk.SameSidePolicy(c.Risk.SameSidePolicy),
	}
}

// SimulatorConfig maps the config onto sim.Config.
func (c *Config) SimulatorConfig() sim.Config {
	return sim.Config{
		InitialCash:    c.Account.InitialCash,
		StopLossPct:    c.Sim.StopLossPct,
		TakeProfitPct:  c.Sim.TakeProfitPct,
		MaxDrawdownPct: c.Sim.MaxDrawdownPct,
		AllowScaleIn:   c.Sim.AllowScaleIn,
		FeeBps:         c.Sim.FeeBps,
		SlippageBps:    c.Sim.SlippageBps,
	}
}

// SaveToFile writes the config as YAML.
func (c *Config) SaveToFile(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
