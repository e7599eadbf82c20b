// Package kpi computes rolling performance windows and summary statistics
// over a return series.
package kpi

import (
	"fmt"
	"math"

	"github.com/rustyeddy/propguard/risk"
	"gonum.org/v1/gonum/stat"
)

// ErrInvalidInput is risk.ErrInvalidInput so callers need test only one.
var ErrInvalidInput = risk.ErrInvalidInput

// Window holds the KPIs of returns[StartIndex..EndIndex], both inclusive.
type Window struct {
	StartIndex   int     `json:"start_index"`
	EndIndex     int     `json:"end_index"`
	ProfitFactor Ratio   `json:"profit_factor"`
	WinRate      float64 `json:"win_rate"`
	AvgWin       float64 `json:"avg_win"`
	AvgLoss      float64 `json:"avg_loss"`
	MaxDrawdown  float64 `json:"max_drawdown"`
}

// Rolling slides a window of w returns across the series and yields
// len(returns)-w+1 windows. A window wider than the series yields none.
func Rolling(returns []float64, w int) ([]Window, error) {
	if len(returns) == 0 {
		return nil, fmt.Errorf("%w: empty return series", ErrInvalidInput)
	}
	if w <= 0 {
		return nil, fmt.Errorf("%w: window must be positive, got %d", ErrInvalidInput, w)
	}
	for i, r := range returns {
		if math.IsNaN(r) || math.IsInf(r, 0) {
			return nil, fmt.Errorf("%w: return %d is not finite", ErrInvalidInput, i)
		}
	}
	if w > len(returns) {
		return []Window{}, nil
	}

	out := make([]Window, 0, len(returns)-w+1)
	for i := 0; i+w <= len(returns); i++ {
		out = append(out, window(returns[i:i+w], i))
	}
	return out, nil
}

func window(rs []float64, start int) Window {
	var gains, losses float64
	wins := make([]float64, 0, len(rs))
	lost := make([]float64, 0, len(rs))
	for _, r := range rs {
		switch {
		case r > 0:
			gains += r
			wins = append(wins, r)
		case r < 0:
			losses -= r
			lost = append(lost, r)
		}
	}

	w := Window{
		StartIndex:   start,
		EndIndex:     start + len(rs) - 1,
		ProfitFactor: profitFactor(gains, losses),
		WinRate:      float64(len(wins)) / float64(len(rs)),
		MaxDrawdown:  cumulativeDrawdown(rs),
	}
	if len(wins) > 0 {
		w.AvgWin = stat.Mean(wins, nil)
	}
	if len(lost) > 0 {
		w.AvgLoss = stat.Mean(lost, nil)
	}
	return w
}

func profitFactor(gains, losses float64) Ratio {
	switch {
	case losses == 0 && gains > 0:
		return Ratio(math.Inf(1))
	case losses == 0:
		return 0
	}
	return Ratio(gains / losses)
}

// cumulativeDrawdown is the largest fall of the running sum below its
// running peak, both starting at zero.
func cumulativeDrawdown(rs []float64) float64 {
	var cum, peak, dd float64
	for _, r := range rs {
		cum += r
		if cum > peak {
			peak = cum
		}
		if peak-cum > dd {
			dd = peak - cum
		}
	}
	return dd
}
