package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/propguard/market"
	"github.com/rustyeddy/propguard/risk"
	"gopkg.in/yaml.v3"
)

// Config is the complete application configuration.
type Config struct {
	Risk     risk.Config      `json:"risk" yaml:"risk"`
	Sizer    risk.SizerConfig `json:"sizer" yaml:"sizer"`
	Limits   risk.Limits      `json:"limits" yaml:"limits"`
	Backtest BacktestConfig   `json:"backtest" yaml:"backtest"`
	Journal  JournalConfig    `json:"journal" yaml:"journal"`
	Log      LogConfig        `json:"log" yaml:"log"`
}

// BacktestConfig holds request defaults for the backtest command.
type BacktestConfig struct {
	Mode             string `json:"mode" yaml:"mode"`
	Window           int    `json:"window" yaml:"window"`
	ReturnConvention string `json:"return_convention" yaml:"return_convention"`
	Interval         string `json:"interval" yaml:"interval"` // "24h", "1h" or a timeframe like "H1"

	// Instrument is the default symbol of the size command.
	Instrument string `json:"instrument,omitempty" yaml:"instrument,omitempty"`
}

// ParseInterval converts the interval string to time.Duration. Empty means
// zero, the runner default.
func (b BacktestConfig) ParseInterval() (time.Duration, error) {
	if b.Interval == "" {
		return 0, nil
	}
	return market.ParseInterval(b.Interval)
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type   string `json:"type" yaml:"type"` // "sqlite", "file" or "none"
	DBPath string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	Dir    string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// LogConfig selects the zerolog level and console output.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// LoadFromFile loads configuration from a file, JSON for a .json extension
// and YAML otherwise. Fields absent from the file keep their Default
// values; unknown fields are an error.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data, isJSON(path))
}

// Parse decodes data over Default and validates the result.
func Parse(data []byte, asJSON bool) (*Config, error) {
	cfg := Default()

	if asJSON {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		err := dec.Decode(cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		err := dec.Decode(cfg)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if isJSON(path) {
		data, err = json.MarshalIndent(c, "", "  ")
	} else {
		data, err = yaml.Marshal(c)
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	if err := c.Sizer.Validate(); err != nil {
		return fmt.Errorf("sizer: %w", err)
	}
	if _, err := risk.NewLimitsPolicy(c.Limits); err != nil {
		return fmt.Errorf("limits: %w", err)
	}

	switch c.Backtest.Mode {
	case "", "graph", "python":
	default:
		return fmt.Errorf("%w: backtest.mode must be 'graph' or 'python'", risk.ErrConfig)
	}
	switch c.Backtest.ReturnConvention {
	case "", "multiplicative", "additive":
	default:
		return fmt.Errorf("%w: backtest.return_convention must be 'multiplicative' or 'additive'", risk.ErrConfig)
	}
	if c.Backtest.Window < 0 {
		return fmt.Errorf("%w: backtest.window must not be negative", risk.ErrConfig)
	}
	if d, err := c.Backtest.ParseInterval(); err != nil || d < 0 {
		return fmt.Errorf("%w: backtest.interval %q is not a positive duration", risk.ErrConfig, c.Backtest.Interval)
	}
	// Validate that the instrument exists in the market
	if c.Backtest.Instrument != "" {
		if _, ok := market.Lookup(c.Backtest.Instrument); !ok {
			return fmt.Errorf("%w: unknown instrument: %s", risk.ErrConfig, c.Backtest.Instrument)
		}
	}

	switch c.Journal.Type {
	case "", "none":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("%w: journal db_path required for sqlite type", risk.ErrConfig)
		}
	case "file":
		if c.Journal.Dir == "" {
			return fmt.Errorf("%w: journal dir required for file type", risk.ErrConfig)
		}
	default:
		return fmt.Errorf("%w: journal.type must be 'sqlite', 'file' or 'none'", risk.ErrConfig)
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level)); err != nil {
		return fmt.Errorf("%w: unknown log level %q", risk.ErrConfig, c.Log.Level)
	}
	return nil
}

// Default returns a configuration with sensible defaults. The risk rules
// carry no initial equity: backtests start from a unit account and the size
// command binds the account's own balance.
func Default() *Config {
	rc := risk.DefaultConfig()
	rc.InitialEquity = nil

	return &Config{
		Risk:  rc,
		Sizer: risk.DefaultSizerConfig(),
		Limits: risk.Limits{
			MaxDailyLossPct:  0.015,
			MaxWeeklyLossPct: 0.03,
			MaxOpenTrades:    3,
			MaxMarginPct:     0.20,
		},
		Backtest: BacktestConfig{
			Mode:             "graph",
			Window:           20,
			ReturnConvention: "multiplicative",
			Interval:         "24h",
		},
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./propguard.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
