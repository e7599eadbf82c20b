package risk

import "time"

// Decision is the admission verdict seen by the trading layer. When
// HardStop is set the caller must also liquidate open positions.
type Decision struct {
	Allow    bool               `json:"allow"`
	HardStop bool               `json:"hard_stop"`
	Reason   string             `json:"reason,omitempty"`
	Meta     map[string]float64 `json:"meta,omitempty"`
}

// Allowed is the zero-reason pass decision.
func Allowed() Decision { return Decision{Allow: true} }

// Policy is an admission rule. Evaluate must not panic or block; Reset is
// the start-of-session hook.
type Policy interface {
	Evaluate(state AccountState, ts time.Time) Decision
	Reset(ts time.Time)
}

// AccountState is what the trading layer knows about the account when it
// considers new orders.
type AccountState struct {
	Balance       float64 `json:"balance"`
	Equity        float64 `json:"equity"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`

	// Broker-provided or computed
	MarginUsed float64 `json:"margin_used"`
	OpenTrades int     `json:"open_trades"`

	DayRealized  float64 `json:"day_realized"`  // realized P/L for day in account currency
	WeekRealized float64 `json:"week_realized"` // realized P/L for week
}

// Limits are the account-level circuit breakers of LimitsPolicy. Fractions,
// not percent points: 0.015 is 1.5%. Zero disables a limit.
type Limits struct {
	// Circuit breakers
	MaxDailyLossPct  float64 `json:"max_daily_loss_pct" yaml:"max_daily_loss_pct"`   // 0.015
	MaxWeeklyLossPct float64 `json:"max_weekly_loss_pct" yaml:"max_weekly_loss_pct"` // 0.03

	// Exposure limits
	MaxOpenTrades int     `json:"max_open_trades" yaml:"max_open_trades"` // 3
	MaxMarginPct  float64 `json:"max_margin_pct" yaml:"max_margin_pct"`   // 0.20
}

// AllowAll is the base policy that never blocks.
type AllowAll struct{}

func (AllowAll) Evaluate(AccountState, time.Time) Decision { return Allowed() }
func (AllowAll) Reset(time.Time)                          {}

// Chain evaluates policies in order. Allow is the conjunction, HardStop the
// disjunction; the first blocking policy supplies the reason. Meta keys
// from later policies overwrite earlier ones.
type Chain []Policy

func (c Chain) Evaluate(state AccountState, ts time.Time) Decision {
	out := Allowed()
	for _, p := range c {
		d := p.Evaluate(state, ts)
		if !d.Allow && out.Allow {
			out.Reason = d.Reason
		}
		out.Allow = out.Allow && d.Allow
		out.HardStop = out.HardStop || d.HardStop
		for k, v := range d.Meta {
			if out.Meta == nil {
				out.Meta = make(map[string]float64, len(d.Meta))
			}
			out.Meta[k] = v
		}
	}
	return out
}

func (c Chain) Reset(ts time.Time) {
	for _, p := range c {
		p.Reset(ts)
	}
}
