package risk

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100_000.0, *cfg.InitialEquity)

	eff := cfg.effective()
	assert.InDelta(t, 0.04, eff.dailySoft, 1e-12)
	assert.InDelta(t, 0.05, eff.dailyHard, 1e-12)
	assert.InDelta(t, 0.085, eff.total, 1e-12)
}

func TestConfigEffectiveThresholds(t *testing.T) {
	t.Parallel()

	cfg := Config{DailyHardStopPct: 5, MaxTotalLossPct: 10, SafetyBufferPct: 0.5}
	eff := cfg.effective()
	assert.Equal(t, 0.0, eff.dailySoft)
	assert.InDelta(t, 0.045, eff.dailyHard, 1e-12)
	assert.InDelta(t, 0.095, eff.total, 1e-12)
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"zero config", Config{}, false},
		{"soft only", Config{DailySoftStopPct: 3}, false},
		{"negative initial", Config{InitialEquity: Float(-1)}, true},
		{"zero initial", Config{InitialEquity: Float(0)}, true},
		{"negative pct", Config{MaxTotalLossPct: -1}, true},
		{"hundred pct", Config{DailyHardStopPct: 100}, true},
		{"soft equals hard", Config{DailySoftStopPct: 4, DailyHardStopPct: 4}, true},
		{"safety above total", Config{MaxTotalLossPct: 8, SafetyOverallLossPct: 9}, true},
		{"safety equals total", Config{MaxTotalLossPct: 8, SafetyOverallLossPct: 8}, false},
		{"buffer swallows soft", Config{DailySoftStopPct: 1, DailyHardStopPct: 5, SafetyBufferPct: 1}, true},
		{"buffer below limits", Config{DailySoftStopPct: 3, DailyHardStopPct: 5, SafetyBufferPct: 0.5}, false},
		{"unknown timezone", Config{Timezone: "Mars/Olympus"}, true},
		{"named timezone", Config{Timezone: "Europe/Prague"}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfig)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestConfigFromMap(t *testing.T) {
	t.Parallel()

	cfg, err := ConfigFromMap(map[string]any{
		"initial_equity":          50_000.0,
		"daily_soft_stop_pct":     3.0,
		"daily_hard_stop_pct":     4.0,
		"max_total_loss_pct":      10,
		"safety_overall_loss_pct": 8.5,
		"timezone":                "Europe/Prague",
	})
	require.NoError(t, err)
	require.NotNil(t, cfg.InitialEquity)
	assert.Equal(t, 50_000.0, *cfg.InitialEquity)
	assert.Equal(t, 3.0, cfg.DailySoftStopPct)
	assert.Equal(t, 10.0, cfg.MaxTotalLossPct)
	assert.Equal(t, "Europe/Prague", cfg.Timezone)

	cfg, err = ConfigFromMap(map[string]any{"max_total_loss_pct": 10.0})
	require.NoError(t, err)
	assert.Nil(t, cfg.InitialEquity)
}

func TestConfigFromMapRejects(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		m    map[string]any
	}{
		{"unknown key", map[string]any{"max_daily_loss": 5.0}},
		{"wrong type", map[string]any{"daily_hard_stop_pct": "five"}},
		{"invalid ordering", map[string]any{"daily_soft_stop_pct": 5.0, "daily_hard_stop_pct": 4.0}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg, err := ConfigFromMap(tt.m)
			assert.ErrorIs(t, err, ErrConfig)
			assert.Equal(t, Config{}, cfg)
		})
	}
}

func TestConfigJSONRoundTripKeepsNilInitial(t *testing.T) {
	t.Parallel()

	raw, err := json.Marshal(Config{MaxTotalLossPct: 10})
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "initial_equity")
}
