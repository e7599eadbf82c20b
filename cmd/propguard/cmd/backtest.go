package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/propguard/backtest"
	"github.com/rustyeddy/propguard/journal"
	"github.com/rustyeddy/propguard/market"
	"github.com/spf13/cobra"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay a return series through the FTMO risk engine",
	Long: `Backtest replays a return series, advancing equity step by step through
the FTMO daily and overall loss rules, and computes rolling KPI windows.

Input is one of:
  --request  a JSON request document ("-" for stdin)
  --returns  a comma separated list of returns
  --bars     an OHLC CSV (ts,open,high,low,close); returns come from closes

Examples:
  propguard backtest --returns 0.01,-0.02,0.015 --window 2
  propguard backtest --bars data/eurusd_d1.csv --window 20 --org run.org
  propguard backtest --request req.json --json`,
	RunE: runBacktest,
}

var (
	btRequestPath string
	btReturns     string
	btBarsPath    string
	btFrom        string
	btTo          string
	btWindow      int
	btMode        string
	btConvention  string
	btInterval    string

	btJSON        bool
	btSummaryJSON bool
	btEquityCSV   string
	btWindowsCSV  string
	btOrgPath     string
	btJournal     string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btRequestPath, "request", "r", "", "path to JSON request (\"-\" for stdin)")
	backtestCmd.Flags().StringVar(&btReturns, "returns", "", "comma separated returns")
	backtestCmd.Flags().StringVarP(&btBarsPath, "bars", "b", "", "path to OHLC CSV (ts,open,high,low,close)")
	backtestCmd.Flags().StringVar(&btFrom, "from", "", "with --bars: first bar time to include")
	backtestCmd.Flags().StringVar(&btTo, "to", "", "with --bars: exclude bars at or after this time")

	backtestCmd.Flags().IntVarP(&btWindow, "window", "w", 0, "rolling KPI window (default from config)")
	backtestCmd.Flags().StringVar(&btMode, "mode", "", "graph or python (default from config)")
	backtestCmd.Flags().StringVar(&btConvention, "convention", "", "multiplicative or additive (default from config)")
	backtestCmd.Flags().StringVar(&btInterval, "interval", "", "spacing of synthetic timestamps, e.g. 1h or H1 (default from config)")

	backtestCmd.Flags().BoolVar(&btJSON, "json", false, "print the full result as JSON")
	backtestCmd.Flags().BoolVar(&btSummaryJSON, "summary-json", false, "print only the reproducible summary JSON")
	backtestCmd.Flags().StringVar(&btEquityCSV, "equity-csv", "", "write the equity curve CSV to this path")
	backtestCmd.Flags().StringVar(&btWindowsCSV, "windows-csv", "", "write the KPI windows CSV to this path")
	backtestCmd.Flags().StringVar(&btOrgPath, "org", "", "write an Org-mode report to this path")
	backtestCmd.Flags().StringVar(&btJournal, "journal", "", "sqlite, file or none (default from config)")

	backtestCmd.MarkFlagsMutuallyExclusive("request", "returns", "bars")
	backtestCmd.MarkFlagsOneRequired("request", "returns", "bars")
	backtestCmd.MarkFlagsMutuallyExclusive("json", "summary-json")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	req, err := buildRequest(cmd)
	if err != nil {
		return err
	}

	runner := backtest.NewRunner(appLog)
	res, err := runner.Run(contextOf(cmd), req)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	jc := appCfg.Journal
	if btJournal != "" {
		jc.Type = btJournal
	}
	store, err := openStore(jc)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
		if err := store.SaveRun(contextOf(cmd), res); err != nil {
			return fmt.Errorf("journal run: %w", err)
		}
		appLog.Info().Str("run_id", res.ID).Str("journal", jc.Type).Msg("run journaled")
	}

	if err := writeExports(res); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case btJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case btSummaryJSON:
		b, err := backtest.SummaryJSON(res)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(out, string(b))
		return err
	}
	backtest.PrintResult(out, res)
	return nil
}

// buildRequest assembles the request from the input flags, filling gaps
// from the loaded config. Flags given explicitly override the request file.
func buildRequest(cmd *cobra.Command) (backtest.Request, error) {
	var req backtest.Request

	switch {
	case btRequestPath != "":
		var r io.Reader = cmd.InOrStdin()
		if btRequestPath != "-" {
			f, err := os.Open(btRequestPath)
			if err != nil {
				return req, fmt.Errorf("open request: %w", err)
			}
			defer f.Close()
			r = f
		}
		var err error
		req, err = backtest.DecodeRequest(r)
		if err != nil {
			return req, err
		}

	case btReturns != "":
		rs, err := parseReturns(btReturns)
		if err != nil {
			return req, err
		}
		req.Returns = rs

	case btBarsPath != "":
		bars, err := loadBars(btBarsPath, btFrom, btTo)
		if err != nil {
			return req, err
		}
		rs, err := market.ReturnsFromBars(bars)
		if err != nil {
			return req, err
		}
		req.Returns = rs
		req.Bars = bars
	}

	bc := appCfg.Backtest
	if cmd.Flags().Changed("window") || req.Window == 0 {
		req.Window = pick(btWindow, bc.Window)
	}
	if cmd.Flags().Changed("mode") || req.Mode == "" {
		req.Mode = backtest.Mode(pickStr(btMode, bc.Mode))
	}
	if cmd.Flags().Changed("convention") || req.ReturnConvention == "" {
		req.ReturnConvention = backtest.ReturnConvention(pickStr(btConvention, bc.ReturnConvention))
	}
	if cmd.Flags().Changed("interval") || req.Interval == 0 {
		s := pickStr(btInterval, bc.Interval)
		if s != "" {
			d, err := market.ParseInterval(s)
			if err != nil {
				return req, err
			}
			req.Interval = backtest.Duration(d)
		}
	}
	if req.FTMORisk == nil {
		rc := appCfg.Risk
		req.FTMORisk = &rc
	}
	return req, nil
}

func parseReturns(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	out := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("bad return %q: %w", p, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func loadBars(path, from, to string) ([]market.Bar, error) {
	var fromT, toT time.Time
	var err error
	if from != "" {
		if fromT, err = market.ParseTimestamp(from); err != nil {
			return nil, fmt.Errorf("from: %w", err)
		}
	}
	if to != "" {
		if toT, err = market.ParseTimestamp(to); err != nil {
			return nil, fmt.Errorf("to: %w", err)
		}
	}
	feed, err := backtest.NewCSVBarsFeed(path, fromT, toT)
	if err != nil {
		return nil, fmt.Errorf("open bars: %w", err)
	}
	bars, err := backtest.ReadBars(feed)
	if err != nil {
		return nil, fmt.Errorf("read bars %s: %w", path, err)
	}
	return bars, nil
}

// writeFile creates path and hands it to fn; an empty path is a no-op.
func writeFile(path string, fn func(io.Writer) error) error {
	if path == "" {
		return nil
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func writeExports(res *backtest.Result) error {
	if err := writeFile(btEquityCSV, func(w io.Writer) error { return journal.WriteEquityCSV(w, res) }); err != nil {
		return fmt.Errorf("equity csv: %w", err)
	}
	if err := writeFile(btWindowsCSV, func(w io.Writer) error { return journal.WriteWindowsCSV(w, res) }); err != nil {
		return fmt.Errorf("windows csv: %w", err)
	}
	if btOrgPath != "" {
		if err := journal.WriteOrgFile(btOrgPath, res, time.Now()); err != nil {
			return fmt.Errorf("org report: %w", err)
		}
	}
	return nil
}

func pick(flag, def int) int {
	if flag != 0 {
		return flag
	}
	return def
}

func pickStr(flag, def string) string {
	if flag != "" {
		return flag
	}
	return def
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
