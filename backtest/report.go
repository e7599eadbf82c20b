package backtest

import (
	"fmt"
	"io"
	"time"
)

// PrintResult writes a human-readable report of res.
func PrintResult(w io.Writer, res *Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Risk Assessment")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", res.ID)
	fmt.Fprintf(w, "Mode:          %s\n", res.Mode)
	fmt.Fprintf(w, "Convention:    %s\n", res.EngineDetail.ReturnConvention)
	fmt.Fprintf(w, "Timezone:      %s\n", res.EngineDetail.Timezone)

	if n := len(res.Equity); n > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Period")
		fmt.Fprintln(w, "--------------------------------------------------")
		fmt.Fprintf(w, "Start:         %s\n", res.Equity[0].TS.Format(time.RFC3339))
		fmt.Fprintf(w, "End:           %s\n", res.Equity[n-1].TS.Format(time.RFC3339))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Equity:  %.2f\n", res.EngineDetail.InitialEquity)
	fmt.Fprintf(w, "End Equity:    %.2f\n", res.EngineDetail.FinalEquity)
	fmt.Fprintf(w, "Return:        %.2f%%\n", res.KPISummary.TotalReturn*100)
	fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", res.KPISummary.MaxDrawdown*100)
	fmt.Fprintf(w, "Trades:        %d\n", res.KPISummary.TradeCount)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", res.KPISummary.WinRate*100)

	rs := res.FTMORiskSummary
	fmt.Fprintln(w)
	fmt.Fprintln(w, "FTMO Risk")
	fmt.Fprintln(w, "--------------------------------------------------")
	status := "PASSED"
	if !rs.Passed {
		status = "FAILED"
	}
	fmt.Fprintf(w, "Status:        %s\n", status)
	fmt.Fprintf(w, "Worst Daily:   %.2f%%\n", rs.WorstDailyDrawdownPct*100)
	fmt.Fprintf(w, "Worst Total:   %.2f%%\n", rs.WorstTotalDrawdownPct*100)
	if fb := rs.FirstBreach; fb != nil {
		fmt.Fprintf(w, "First Breach:  %s on %s (index %d)\n", fb.Kind, fb.Day, res.EngineDetail.FirstBreachIndex)
		fmt.Fprintf(w, "  at:          %s\n", fb.TS.Format(time.RFC3339))
		fmt.Fprintf(w, "  equity:      %.2f\n", fb.Equity)
		fmt.Fprintf(w, "  drawdown:    %.2f%%\n", fb.DrawdownPct*100)
	}

	if len(res.Windows) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Rolling Windows (%d)\n", len(res.Windows))
		fmt.Fprintln(w, "--------------------------------------------------")
		fmt.Fprintln(w, "  start    end      pf  win%   max_dd")
		for _, win := range res.Windows {
			fmt.Fprintf(w, "%7d %6d %7s %5.1f %8.4f\n",
				win.StartIndex, win.EndIndex, win.ProfitFactor, win.WinRate*100, win.MaxDrawdown)
		}
	}

	fmt.Fprintln(w)
}
