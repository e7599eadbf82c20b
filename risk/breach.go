package risk

import (
	"fmt"
	"time"
)

// BreachKind classifies a hard-limit breach.
type BreachKind uint8

const (
	BreachNone BreachKind = iota
	BreachDaily
	BreachTotal
)

func (k BreachKind) String() string {
	switch k {
	case BreachNone:
		return "none"
	case BreachDaily:
		return "daily"
	case BreachTotal:
		return "total"
	}
	return fmt.Sprintf("breach(%d)", uint8(k))
}

func (k BreachKind) MarshalText() ([]byte, error) {
	if k > BreachTotal {
		return nil, fmt.Errorf("invalid breach kind %d", uint8(k))
	}
	return []byte(k.String()), nil
}

func (k *BreachKind) UnmarshalText(b []byte) error {
	switch string(b) {
	case "none", "":
		*k = BreachNone
	case "daily":
		*k = BreachDaily
	case "total":
		*k = BreachTotal
	default:
		return fmt.Errorf("unknown breach kind %q", b)
	}
	return nil
}

// Breach is the earliest hard-limit violation of a run.
type Breach struct {
	TS          time.Time  `json:"ts"`
	Kind        BreachKind `json:"breach_type"`
	Equity      float64    `json:"equity"`
	DrawdownPct float64    `json:"drawdown_pct"`
	Day         string     `json:"day"`
}

// BreachLatch is a forward-only state machine: Clean moves to DailyBreach
// or TotalBreach once, and never moves again.
type BreachLatch struct {
	breach Breach
}

// State returns the latch state; BreachNone means Clean.
func (b *BreachLatch) State() BreachKind { return b.breach.Kind }

// Latched reports whether a breach has been recorded.
func (b *BreachLatch) Latched() bool { return b.breach.Kind != BreachNone }

// Observe latches the first observation with a hard condition. Soft breaches
// never latch. Daily wins when both hard conditions appear together. It
// returns true only on the observation that latched.
func (b *BreachLatch) Observe(v Verdict, obs Observation, day string) bool {
	if b.Latched() {
		return false
	}

	switch {
	case v.DailyHardBreached:
		b.breach = Breach{
			Kind:        BreachDaily,
			DrawdownPct: v.DailyLossPct,
		}
	case v.TotalSafetyBreached:
		b.breach = Breach{
			Kind:        BreachTotal,
			DrawdownPct: v.TotalLossPct,
		}
	default:
		return false
	}

	b.breach.TS = obs.TS.UTC()
	b.breach.Equity = obs.Equity
	b.breach.Day = day
	return true
}

// First returns a copy of the latched breach, or nil while Clean.
func (b *BreachLatch) First() *Breach {
	if !b.Latched() {
		return nil
	}
	cp := b.breach
	return &cp
}
