package risk

import (
	"fmt"
	"strings"
	"time"
)

type Violation struct {
	Code string
	Msg  string
}

// LimitsPolicy is the account-level base policy: open-trade cap, margin cap
// and realized daily/weekly loss breakers. Loss breakers hard-stop; the
// exposure caps only block new entries.
type LimitsPolicy struct {
	Limits Limits
}

// NewLimitsPolicy validates l.
func NewLimitsPolicy(l Limits) (*LimitsPolicy, error) {
	for name, v := range map[string]float64{
		"max_daily_loss_pct":  l.MaxDailyLossPct,
		"max_weekly_loss_pct": l.MaxWeeklyLossPct,
		"max_margin_pct":      l.MaxMarginPct,
	} {
		if v < 0 {
			return nil, fmt.Errorf("%w: %s must not be negative", ErrConfig, name)
		}
	}
	if l.MaxOpenTrades < 0 {
		return nil, fmt.Errorf("%w: max_open_trades must not be negative", ErrConfig)
	}
	return &LimitsPolicy{Limits: l}, nil
}

// Check lists every violated limit. Order is fixed so reasons are stable.
func (p *LimitsPolicy) Check(acct AccountState) (violations []Violation, hard bool) {
	l := p.Limits

	// Exposure constraints
	if l.MaxOpenTrades > 0 && acct.OpenTrades >= l.MaxOpenTrades {
		violations = append(violations, Violation{"TOO_MANY_OPEN_TRADES",
			fmt.Sprintf("open trades %d >= max %d", acct.OpenTrades, l.MaxOpenTrades)})
	}

	// Margin cap
	if l.MaxMarginPct > 0 && acct.Equity > 0 && acct.MarginUsed/acct.Equity > l.MaxMarginPct {
		violations = append(violations, Violation{"MARGIN_TOO_HIGH",
			fmt.Sprintf("margin used %.2f%% exceeds max %.2f%%",
				100*(acct.MarginUsed/acct.Equity), 100*l.MaxMarginPct)})
	}

	// Circuit breakers (loss limits)
	if l.MaxDailyLossPct > 0 {
		dayLimit := -l.MaxDailyLossPct * acct.Equity
		if acct.DayRealized <= dayLimit {
			violations = append(violations, Violation{"DAILY_LOSS_LIMIT",
				fmt.Sprintf("day realized %.2f <= limit %.2f", acct.DayRealized, dayLimit)})
			hard = true
		}
	}
	if l.MaxWeeklyLossPct > 0 {
		weekLimit := -l.MaxWeeklyLossPct * acct.Equity
		if acct.WeekRealized <= weekLimit {
			violations = append(violations, Violation{"WEEKLY_LOSS_LIMIT",
				fmt.Sprintf("week realized %.2f <= limit %.2f", acct.WeekRealized, weekLimit)})
			hard = true
		}
	}
	return violations, hard
}

func (p *LimitsPolicy) Evaluate(acct AccountState, _ time.Time) Decision {
	violations, hard := p.Check(acct)
	if len(violations) == 0 {
		return Allowed()
	}
	codes := make([]string, 0, len(violations))
	for _, v := range violations {
		codes = append(codes, strings.ToLower(v.Code))
	}
	return Decision{
		Allow:    false,
		HardStop: hard,
		Reason:   "limits_" + strings.Join(codes, ","),
		Meta: map[string]float64{
			"limits_violations": float64(len(violations)),
		},
	}
}

// Reset is a no-op: every input comes from the account snapshot.
func (p *LimitsPolicy) Reset(time.Time) {}
