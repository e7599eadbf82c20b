package market

import (
	"fmt"
	"time"
)

// Bar is one OHLC observation. Only TS is required by the backtest core;
// prices feed the ATR indicator and returns derived from closes.
type Bar struct {
	TS    time.Time `json:"ts"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`
}

// Valid reports whether the OHLC prices are internally consistent.
func (b Bar) Valid() bool {
	if b.High < b.Low {
		return false
	}
	if b.Open > b.High || b.Open < b.Low {
		return false
	}
	if b.Close > b.High || b.Close < b.Low {
		return false
	}
	return true
}

// CheckOrdered returns an error naming the first bar whose timestamp
// precedes its predecessor.
func CheckOrdered(bars []Bar) error {
	for i := 1; i < len(bars); i++ {
		if bars[i].TS.Before(bars[i-1].TS) {
			return fmt.Errorf("bar %d at %s precedes bar %d at %s",
				i, bars[i].TS.Format(time.RFC3339), i-1, bars[i-1].TS.Format(time.RFC3339))
		}
	}
	return nil
}

// ReturnsFromBars converts closes into simple per-bar returns. The first
// bar is measured against its own open so the result has len(bars) entries.
func ReturnsFromBars(bars []Bar) ([]float64, error) {
	out := make([]float64, 0, len(bars))
	for i, b := range bars {
		prev := b.Open
		if i > 0 {
			prev = bars[i-1].Close
		}
		if prev <= 0 {
			return nil, fmt.Errorf("bar %d: non-positive reference price %v", i, prev)
		}
		out = append(out, b.Close/prev-1)
	}
	return out, nil
}
