package kpi

import (
	"fmt"
	"math"
)

// Summary is the whole-series KPI block of a backtest.
type Summary struct {
	TotalReturn float64 `json:"total_return"`
	TradeCount  int     `json:"trade_count"`
	WinRate     float64 `json:"win_rate"`
	MaxDrawdown float64 `json:"max_drawdown"`
}

// MaxDrawdown is the worst peak-to-trough fall of an equity curve as a
// fraction of the peak. Non-positive peaks are skipped.
func MaxDrawdown(equity []float64) float64 {
	var peak, dd float64
	for i, e := range equity {
		if i == 0 || e > peak {
			peak = e
		}
		if peak <= 0 {
			continue
		}
		if d := (peak - e) / peak; d > dd {
			dd = d
		}
	}
	return dd
}

// Summarize reports the series as a whole. TotalReturn compares the last
// equity point with the first; a non-zero return counts as one trade.
func Summarize(returns, equity []float64) (Summary, error) {
	if len(returns) == 0 {
		return Summary{}, fmt.Errorf("%w: empty return series", ErrInvalidInput)
	}
	var s Summary
	wins := 0
	for _, r := range returns {
		if r != 0 {
			s.TradeCount++
		}
		if r > 0 {
			wins++
		}
	}
	if s.TradeCount > 0 {
		s.WinRate = float64(wins) / float64(s.TradeCount)
	}
	if len(equity) > 1 && equity[0] != 0 {
		s.TotalReturn = equity[len(equity)-1]/equity[0] - 1
	}
	s.MaxDrawdown = MaxDrawdown(equity)
	if math.IsNaN(s.TotalReturn) {
		s.TotalReturn = 0
	}
	return s, nil
}
