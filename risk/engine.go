package risk

import (
	"time"
)

// lossEpsilon absorbs float noise when a loss lands exactly on a limit.
const lossEpsilon = 1e-12

// Verdict is the engine's reading of the latest observation.
type Verdict struct {
	DailySoftBreached   bool    `json:"daily_soft_breached"`
	DailyHardBreached   bool    `json:"daily_hard_breached"`
	TotalSafetyBreached bool    `json:"total_safety_breached"`
	DailyLossPct        float64 `json:"daily_loss_pct"`
	TotalLossPct        float64 `json:"total_loss_pct"`
}

// CanOpenNewTrade is false on any soft or hard condition.
func (v Verdict) CanOpenNewTrade() bool {
	return !(v.DailySoftBreached || v.DailyHardBreached || v.TotalSafetyBreached)
}

// ShouldForceClose is true on hard conditions only.
func (v Verdict) ShouldForceClose() bool {
	return v.DailyHardBreached || v.TotalSafetyBreached
}

// Summary is the end-of-run risk report.
type Summary struct {
	Passed                bool    `json:"passed"`
	FirstBreach           *Breach `json:"first_breach"`
	WorstDailyDrawdownPct float64 `json:"worst_daily_drawdown_pct"`
	WorstTotalDrawdownPct float64 `json:"worst_total_drawdown_pct"`
	Config                Config  `json:"config"`
}

// Engine evaluates ledger state against the FTMO daily and total loss
// limits. One Engine serves one run; it is not safe for concurrent use.
type Engine struct {
	cfg    Config
	limits thresholds
	ledger *Ledger
	latch  BreachLatch

	verdict Verdict
}

// NewEngine validates cfg and returns an empty engine.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	if cfg.InitialEquity != nil {
		v := *cfg.InitialEquity
		cfg.InitialEquity = &v
	}
	return &Engine{
		cfg:    cfg,
		limits: cfg.effective(),
		ledger: NewLedger(cfg.InitialEquity, loc),
	}, nil
}

// OnNewEquity feeds one observation through the ledger, re-derives the
// verdict and offers it to the breach latch. On ErrOrdering the engine
// keeps its previous state.
func (e *Engine) OnNewEquity(ts time.Time, equity, unrealized float64) (Verdict, error) {
	if err := e.ledger.OnNewEquity(equity, unrealized, ts); err != nil {
		return e.verdict, err
	}

	v := e.evaluate(equity)
	e.verdict = v
	e.latch.Observe(v, e.ledger.Last(), e.ledger.Current().Day)
	return v, nil
}

func (e *Engine) evaluate(equity float64) Verdict {
	v := Verdict{
		DailyLossPct: e.ledger.DailyLossPct(equity),
		TotalLossPct: e.ledger.TotalLossPct(equity),
	}
	v.DailySoftBreached = breached(v.DailyLossPct, e.limits.dailySoft)
	v.DailyHardBreached = breached(v.DailyLossPct, e.limits.dailyHard)
	v.TotalSafetyBreached = breached(v.TotalLossPct, e.limits.total)
	return v
}

func breached(loss, limit float64) bool {
	if limit <= 0 {
		return false
	}
	return loss+lossEpsilon >= limit
}

// Config returns the engine's configuration.
func (e *Engine) Config() Config { return e.cfg }

// Ledger exposes the underlying ledger for inspection.
func (e *Engine) Ledger() *Ledger { return e.ledger }

// Verdict returns the verdict of the latest observation.
func (e *Engine) Verdict() Verdict { return e.verdict }

func (e *Engine) CanOpenNewTrade() bool              { return e.verdict.CanOpenNewTrade() }
func (e *Engine) ShouldForceCloseAllPositions() bool { return e.verdict.ShouldForceClose() }
func (e *Engine) IsDailySoftBreached() bool          { return e.verdict.DailySoftBreached }
func (e *Engine) IsDailyHardBreached() bool          { return e.verdict.DailyHardBreached }
func (e *Engine) IsTotalSafetyBreached() bool        { return e.verdict.TotalSafetyBreached }
func (e *Engine) CurrentDailyLossPct() float64       { return e.verdict.DailyLossPct }
func (e *Engine) CurrentTotalLossPct() float64       { return e.verdict.TotalLossPct }

// FirstBreach returns the latched breach, or nil.
func (e *Engine) FirstBreach() *Breach { return e.latch.First() }

// Summary reports the run so far.
func (e *Engine) Summary() Summary {
	fb := e.latch.First()
	return Summary{
		Passed:                fb == nil,
		FirstBreach:           fb,
		WorstDailyDrawdownPct: e.ledger.WorstDailyDrawdownPct(),
		WorstTotalDrawdownPct: e.ledger.WorstTotalDrawdownPct(),
		Config:                e.cfg,
	}
}
