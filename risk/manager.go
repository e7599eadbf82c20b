package risk

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Reasons emitted when the FTMO engine blocks.
const (
	ReasonFTMOTotal     = "ftmo_total_safety"
	ReasonFTMODailyHard = "ftmo_daily_hard_stop"
	ReasonFTMODailySoft = "ftmo_daily_soft_stop"

	reasonEnginePrefix = "engine_error:"
)

// Meta keys always present on a Manager decision.
const (
	MetaDailyLossPct   = "ftmo_daily_loss_pct"
	MetaOverallLossPct = "ftmo_overall_loss_pct"
)

// Manager combines a pluggable base policy with the FTMO engine into the
// single admission decision the trading loop consults. It satisfies Policy
// itself so it can be chained.
type Manager struct {
	base   Policy
	engine *Engine
	log    zerolog.Logger
}

// NewManager wires base and engine. A nil base allows everything.
func NewManager(base Policy, engine *Engine, log zerolog.Logger) *Manager {
	if base == nil {
		base = AllowAll{}
	}
	return &Manager{
		base:   base,
		engine: engine,
		log:    log.With().Str("component", "risk_manager").Logger(),
	}
}

// NewFTMOManager builds the engine from cfg and wraps it. Misconfigured
// thresholds are rejected here.
func NewFTMOManager(base Policy, cfg Config, log zerolog.Logger) (*Manager, error) {
	e, err := NewEngine(cfg)
	if err != nil {
		return nil, err
	}
	return NewManager(base, e, log), nil
}

// Engine returns the wrapped FTMO engine.
func (m *Manager) Engine() *Engine { return m.engine }

// BeforeNewOrders feeds state.Equity at ts into the FTMO engine and merges
// its verdict with the base policy. It never panics: engine errors and base
// policy panics become a blocking hard stop with an engine_error reason.
func (m *Manager) BeforeNewOrders(state AccountState, ts time.Time) (d Decision) {
	defer func() {
		if r := recover(); r != nil {
			d = m.engineError(fmt.Errorf("panic: %v", r))
		}
	}()

	if m.engine == nil {
		return m.engineError(fmt.Errorf("no ftmo engine"))
	}

	v, err := m.engine.OnNewEquity(ts, state.Equity, state.UnrealizedPnL)
	if err != nil {
		return m.engineError(err)
	}

	base := m.base.Evaluate(state, ts)

	d = Decision{
		Allow:    base.Allow && v.CanOpenNewTrade(),
		HardStop: base.HardStop || v.ShouldForceClose(),
		Reason:   base.Reason,
		Meta:     make(map[string]float64, len(base.Meta)+2),
	}
	for k, val := range base.Meta {
		d.Meta[k] = val
	}
	d.Meta[MetaDailyLossPct] = v.DailyLossPct
	d.Meta[MetaOverallLossPct] = v.TotalLossPct

	if reason := ftmoReason(v); reason != "" {
		d.Reason = reason
	}

	if !d.Allow {
		ev := m.log.Debug()
		if d.HardStop {
			ev = m.log.Warn()
		}
		ev.Str("reason", d.Reason).
			Bool("hard_stop", d.HardStop).
			Float64("daily_loss_pct", v.DailyLossPct).
			Float64("overall_loss_pct", v.TotalLossPct).
			Time("ts", ts).
			Msg("new orders blocked")
	}
	return d
}

// ftmoReason names the most severe FTMO condition, or "" when clear.
func ftmoReason(v Verdict) string {
	switch {
	case v.TotalSafetyBreached:
		return ReasonFTMOTotal
	case v.DailyHardBreached:
		return ReasonFTMODailyHard
	case v.DailySoftBreached:
		return ReasonFTMODailySoft
	}
	return ""
}

func (m *Manager) engineError(err error) Decision {
	m.log.Error().Err(err).Msg("risk evaluation failed, halting")
	d := Decision{
		Allow:    false,
		HardStop: true,
		Reason:   reasonEnginePrefix + err.Error(),
		Meta: map[string]float64{
			MetaDailyLossPct:   0,
			MetaOverallLossPct: 0,
		},
	}
	if m.engine != nil {
		d.Meta[MetaDailyLossPct] = m.engine.CurrentDailyLossPct()
		d.Meta[MetaOverallLossPct] = m.engine.CurrentTotalLossPct()
	}
	return d
}

// Evaluate implements Policy.
func (m *Manager) Evaluate(state AccountState, ts time.Time) Decision {
	return m.BeforeNewOrders(state, ts)
}

// Reset forwards to the base policy. The FTMO engine has no reset: its day
// boundaries follow the calendar and its breach latch is irrevocable.
func (m *Manager) Reset(ts time.Time) {
	m.base.Reset(ts)
}
