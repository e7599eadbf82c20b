package risk

import (
	"bytes"
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the immutable FTMO rule bundle. Percent fields are percentage
// points (3.0 means 3%). A zero threshold disables its rule.
type Config struct {
	// InitialEquity is bound at the first observation when nil.
	InitialEquity *float64 `json:"initial_equity,omitempty" yaml:"initial_equity,omitempty"`

	DailySoftStopPct float64 `json:"daily_soft_stop_pct" yaml:"daily_soft_stop_pct"`
	DailyHardStopPct float64 `json:"daily_hard_stop_pct" yaml:"daily_hard_stop_pct"`

	// MaxTotalLossPct is the firm's rule; SafetyOverallLossPct, when set,
	// is the tighter internal trigger actually tested.
	MaxTotalLossPct      float64 `json:"max_total_loss_pct" yaml:"max_total_loss_pct"`
	SafetyOverallLossPct float64 `json:"safety_overall_loss_pct" yaml:"safety_overall_loss_pct"`

	SafetyBufferPct float64 `json:"safety_buffer_pct" yaml:"safety_buffer_pct"`

	// Timezone names the IANA zone whose calendar date defines a trading
	// day. Empty means UTC.
	Timezone string `json:"timezone,omitempty" yaml:"timezone,omitempty"`
}

// Float returns a pointer to v, for Config.InitialEquity literals.
func Float(v float64) *float64 { return &v }

// DefaultConfig returns the usual two-step challenge rules: 5% daily,
// 10% overall, with a soft stop at 4% and an internal overall trigger
// at 8.5%.
func DefaultConfig() Config {
	return Config{
		InitialEquity:        Float(100_000),
		DailySoftStopPct:     4.0,
		DailyHardStopPct:     5.0,
		MaxTotalLossPct:      10.0,
		SafetyOverallLossPct: 8.5,
		SafetyBufferPct:      0,
		Timezone:             "UTC",
	}
}

// Validate checks the bundle. Every failure wraps ErrConfig.
func (c Config) Validate() error {
	if c.InitialEquity != nil && *c.InitialEquity <= 0 {
		return fmt.Errorf("%w: initial_equity must be positive, got %v", ErrConfig, *c.InitialEquity)
	}

	pcts := []struct {
		name string
		v    float64
	}{
		{"daily_soft_stop_pct", c.DailySoftStopPct},
		{"daily_hard_stop_pct", c.DailyHardStopPct},
		{"max_total_loss_pct", c.MaxTotalLossPct},
		{"safety_overall_loss_pct", c.SafetyOverallLossPct},
		{"safety_buffer_pct", c.SafetyBufferPct},
	}
	for _, p := range pcts {
		if p.v < 0 {
			return fmt.Errorf("%w: %s must not be negative, got %v", ErrConfig, p.name, p.v)
		}
		if p.v >= 100 {
			return fmt.Errorf("%w: %s must be below 100, got %v", ErrConfig, p.name, p.v)
		}
	}

	if c.DailySoftStopPct > 0 && c.DailyHardStopPct > 0 && c.DailySoftStopPct >= c.DailyHardStopPct {
		return fmt.Errorf("%w: daily_soft_stop_pct %.2f must be below daily_hard_stop_pct %.2f",
			ErrConfig, c.DailySoftStopPct, c.DailyHardStopPct)
	}
	if c.SafetyOverallLossPct > 0 && c.MaxTotalLossPct > 0 && c.SafetyOverallLossPct > c.MaxTotalLossPct {
		return fmt.Errorf("%w: safety_overall_loss_pct %.2f exceeds max_total_loss_pct %.2f",
			ErrConfig, c.SafetyOverallLossPct, c.MaxTotalLossPct)
	}

	if c.SafetyBufferPct > 0 {
		for _, p := range []struct {
			name string
			v    float64
		}{
			{"daily_soft_stop_pct", c.DailySoftStopPct},
			{"daily_hard_stop_pct", c.DailyHardStopPct},
			{"total loss limit", c.totalLimitPct()},
		} {
			if p.v > 0 && c.SafetyBufferPct >= p.v {
				return fmt.Errorf("%w: safety_buffer_pct %.2f leaves no headroom under %s %.2f",
					ErrConfig, c.SafetyBufferPct, p.name, p.v)
			}
		}
	}

	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrConfig, c.Timezone, err)
	}
	return loc, nil
}

func (c Config) totalLimitPct() float64 {
	if c.SafetyOverallLossPct > 0 {
		return c.SafetyOverallLossPct
	}
	return c.MaxTotalLossPct
}

// thresholds are effective limits as loss fractions; zero means disabled.
type thresholds struct {
	dailySoft float64
	dailyHard float64
	total     float64
}

func (c Config) effective() thresholds {
	eff := func(pct float64) float64 {
		if pct <= 0 {
			return 0
		}
		return (pct - c.SafetyBufferPct) / 100
	}
	return thresholds{
		dailySoft: eff(c.DailySoftStopPct),
		dailyHard: eff(c.DailyHardStopPct),
		total:     eff(c.totalLimitPct()),
	}
}

// ConfigFromMap builds a Config from a flat key/value map, as collaborators
// hand it over. Unknown keys are rejected.
func ConfigFromMap(m map[string]any) (Config, error) {
	var cfg Config

	raw, err := yaml.Marshal(m)
	if err != nil {
		return cfg, fmt.Errorf("%w: encode risk config: %v", ErrConfig, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("%w: decode risk config: %v", ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
