package risk

import (
	"fmt"
	"time"

	"github.com/rustyeddy/propguard/market"
)

// Observation is one equity sample. UnrealizedPnL is informational.
type Observation struct {
	TS            time.Time `json:"ts"`
	Equity        float64   `json:"equity"`
	UnrealizedPnL float64   `json:"unrealized_pnl"`
}

// DaySlice tracks one calendar day. OpeningEquity is never rewritten once
// the slice exists; MinEquity only ever decreases.
type DaySlice struct {
	Day           string  `json:"day"`
	OpeningEquity float64 `json:"opening_equity"`
	MinEquity     float64 `json:"min_equity"`
}

// DrawdownPct is the fractional loss from the opening to the running
// minimum, never negative.
func (d DaySlice) DrawdownPct() float64 {
	return lossFraction(d.OpeningEquity, d.MinEquity)
}

// Ledger ingests equity observations in time order and keeps the running
// extremes the policy engine reads. It is not safe for concurrent use.
type Ledger struct {
	loc *time.Location

	initial     float64
	initialSet  bool
	initialized bool

	current DaySlice
	closed  []DaySlice

	last          Observation
	count         int
	minEquityEver float64
	maxEquityEver float64
	worstDaily    float64
}

// NewLedger creates an empty ledger. A nil initial equity is bound from the
// first observation; a nil location means UTC.
func NewLedger(initial *float64, loc *time.Location) *Ledger {
	if loc == nil {
		loc = time.UTC
	}
	l := &Ledger{loc: loc}
	if initial != nil {
		l.initial = *initial
		l.initialSet = true
	}
	return l
}

// EnsureInitialized binds the initial equity if it is still unset and opens
// the first day slice for ts. Calling it again is a no-op. Binding a
// non-positive initial equity fails with ErrInvalidInput.
func (l *Ledger) EnsureInitialized(equity float64, ts time.Time) error {
	if l.initialized {
		return nil
	}
	if !l.initialSet {
		if !(equity > 0) {
			return fmt.Errorf("%w: initial equity must be positive, got %v", ErrInvalidInput, equity)
		}
		l.initial = equity
		l.initialSet = true
	}
	// The account opened at the initial equity, so that is where the first
	// day starts.
	l.current = DaySlice{
		Day:           market.DayKey(ts, l.loc),
		OpeningEquity: l.initial,
		MinEquity:     l.initial,
	}
	l.minEquityEver = l.initial
	l.maxEquityEver = l.initial
	l.last.TS = ts
	l.initialized = true
	return nil
}

// OnNewEquity records an observation. It fails with ErrOrdering when ts is
// earlier than the previous observation; equal timestamps are accepted.
// The first observation fails with ErrInvalidInput when it would bind a
// non-positive initial equity. The ledger is left untouched on error.
func (l *Ledger) OnNewEquity(equity, unrealized float64, ts time.Time) error {
	if l.initialized && ts.Before(l.last.TS) {
		return fmt.Errorf("%w: observation at %s precedes %s",
			ErrOrdering, market.FormatTimestamp(ts), market.FormatTimestamp(l.last.TS))
	}
	if err := l.EnsureInitialized(equity, ts); err != nil {
		return err
	}

	day := market.DayKey(ts, l.loc)
	if day != l.current.Day {
		l.closed = append(l.closed, l.current)
		l.current = DaySlice{Day: day, OpeningEquity: equity, MinEquity: equity}
	} else if equity < l.current.MinEquity {
		l.current.MinEquity = equity
	}

	if dd := l.current.DrawdownPct(); dd > l.worstDaily {
		l.worstDaily = dd
	}
	if equity < l.minEquityEver {
		l.minEquityEver = equity
	}
	if equity > l.maxEquityEver {
		l.maxEquityEver = equity
	}

	l.last = Observation{TS: ts, Equity: equity, UnrealizedPnL: unrealized}
	l.count++
	return nil
}

// Initialized reports whether the first observation has been seen.
func (l *Ledger) Initialized() bool { return l.initialized }

// InitialEquity returns the bound initial equity and whether it is bound.
func (l *Ledger) InitialEquity() (float64, bool) { return l.initial, l.initialSet }

// Current returns the open day slice.
func (l *Ledger) Current() DaySlice { return l.current }

// Last returns the most recent observation.
func (l *Ledger) Last() Observation { return l.last }

// Count returns how many observations were accepted.
func (l *Ledger) Count() int { return l.count }

// Days returns every day slice seen so far, the open one last.
func (l *Ledger) Days() []DaySlice {
	if !l.initialized {
		return nil
	}
	out := make([]DaySlice, 0, len(l.closed)+1)
	out = append(out, l.closed...)
	return append(out, l.current)
}

func (l *Ledger) MinEquityEver() float64 { return l.minEquityEver }
func (l *Ledger) MaxEquityEver() float64 { return l.maxEquityEver }

// DailyLossPct is the fractional loss of equity against today's opening,
// clamped at zero.
func (l *Ledger) DailyLossPct(equity float64) float64 {
	return lossFraction(l.current.OpeningEquity, equity)
}

// TotalLossPct is the fractional loss of equity against the initial
// equity, clamped at zero.
func (l *Ledger) TotalLossPct(equity float64) float64 {
	return lossFraction(l.initial, equity)
}

// WorstDailyDrawdownPct is the largest day drawdown seen so far.
func (l *Ledger) WorstDailyDrawdownPct() float64 { return l.worstDaily }

// WorstTotalDrawdownPct is the drawdown from the initial equity to the
// lowest equity ever seen.
func (l *Ledger) WorstTotalDrawdownPct() float64 {
	if !l.initialized {
		return 0
	}
	return lossFraction(l.initial, l.minEquityEver)
}

func lossFraction(ref, equity float64) float64 {
	if ref <= 0 || equity >= ref {
		return 0
	}
	return (ref - equity) / ref
}
