package journal

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/rustyeddy/propguard/backtest"
)

// WriteEquityCSV writes the equity curve of res.
func WriteEquityCSV(w io.Writer, res *backtest.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"index", "time", "equity", "daily_loss_pct", "total_loss_pct", "can_open", "force_close"}); err != nil {
		return err
	}
	for _, p := range res.Equity {
		err := cw.Write([]string{
			strconv.Itoa(p.Index),
			p.TS.UTC().Format(time.RFC3339),
			f(p.Equity),
			f(p.DailyLossPct),
			f(p.TotalLossPct),
			strconv.FormatBool(p.CanOpen),
			strconv.FormatBool(p.ForceClose),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSnapshotsCSV writes equity points as read back from a Store.
func WriteSnapshotsCSV(w io.Writer, snaps []EquitySnapshot) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"run_id", "index", "time", "equity", "daily_loss_pct", "total_loss_pct"}); err != nil {
		return err
	}
	for _, e := range snaps {
		err := cw.Write([]string{
			e.RunID,
			strconv.Itoa(e.Index),
			e.Time.UTC().Format(time.RFC3339),
			f(e.Equity),
			f(e.DailyLossPct),
			f(e.TotalLossPct),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteWindowsCSV writes the rolling KPI windows of res. An infinite
// profit factor is written as "inf".
func WriteWindowsCSV(w io.Writer, res *backtest.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"start_index", "end_index", "profit_factor", "win_rate", "avg_win", "avg_loss", "max_drawdown"}); err != nil {
		return err
	}
	for _, win := range res.Windows {
		pf := "inf"
		if !win.ProfitFactor.IsInf() {
			pf = f(float64(win.ProfitFactor))
		}
		err := cw.Write([]string{
			strconv.Itoa(win.StartIndex),
			strconv.Itoa(win.EndIndex),
			pf,
			f(win.WinRate),
			f(win.AvgWin),
			f(win.AvgLoss),
			f(win.MaxDrawdown),
		})
		if err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
