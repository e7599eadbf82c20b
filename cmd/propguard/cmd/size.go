package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rustyeddy/propguard/indicators"
	"github.com/rustyeddy/propguard/market"
	"github.com/rustyeddy/propguard/risk"
	"github.com/spf13/cobra"
)

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Size a position under the risk caps and FTMO admission",
	Long: `Size computes a position size from the requested risk, the stop
distance and account equity, applying the configured risk clamps.

When --day-open is given the account is first checked against the FTMO
rules: a soft or hard stop blocks the entry and the size is 0.

The stop comes from --sl, else from --atr, else from the ATR of --bars.

Examples:
  propguard size --entry 100 --sl 99 --equity 10000 --risk 5
  propguard size --symbol EUR_USD --entry 1.085 --bars eurusd_h1.csv --equity 50000 --risk 1`,
	RunE: runSize,
}

var (
	szSymbol      string
	szSide        string
	szEntry       float64
	szSL          float64
	szTP          float64
	szEquity      float64
	szRisk        float64
	szATR         float64
	szBarsPath    string
	szATRPeriod   int
	szStep        float64
	szMinNotional float64
	szDayOpen     float64
	szOpenTrades  int
	szMarginUsed  float64
	szDayRealized float64
	szAccountCcy  string

	szInitialEquity float64
)

func init() {
	rootCmd.AddCommand(sizeCmd)

	sizeCmd.Flags().StringVarP(&szSymbol, "symbol", "s", "", "instrument; fills step and min notional when known (default backtest.instrument)")
	sizeCmd.Flags().StringVar(&szSide, "side", "long", "long or short")
	sizeCmd.Flags().Float64VarP(&szEntry, "entry", "e", 0, "entry price (required)")
	sizeCmd.Flags().Float64Var(&szSL, "sl", 0, "stop-loss price")
	sizeCmd.Flags().Float64Var(&szTP, "tp", 0, "take-profit price")
	sizeCmd.Flags().Float64Var(&szEquity, "equity", 0, "account equity (required)")
	sizeCmd.Flags().Float64VarP(&szRisk, "risk", "r", 1.0, "requested risk in percent of equity")
	sizeCmd.Flags().Float64Var(&szATR, "atr", 0, "average true range for a default stop")
	sizeCmd.Flags().StringVar(&szBarsPath, "bars", "", "OHLC CSV to compute the ATR from")
	sizeCmd.Flags().IntVar(&szATRPeriod, "atr-period", 14, "ATR period with --bars")
	sizeCmd.Flags().Float64Var(&szStep, "step", 0, "exchange quantity step")
	sizeCmd.Flags().Float64Var(&szMinNotional, "min-notional", 0, "exchange minimum notional")
	sizeCmd.Flags().StringVar(&szAccountCcy, "account-currency", "", "account currency; converts quote-currency risk with --symbol")
	sizeCmd.Flags().Float64Var(&szDayOpen, "day-open", 0, "equity at the start of the trading day; enables the FTMO check")
	sizeCmd.Flags().Float64Var(&szInitialEquity, "initial-equity", 0, "challenge starting balance for the overall rule (default from config, else --day-open)")
	sizeCmd.Flags().IntVar(&szOpenTrades, "open-trades", 0, "open trades, for the account limits")
	sizeCmd.Flags().Float64Var(&szMarginUsed, "margin-used", 0, "margin in use, for the account limits")
	sizeCmd.Flags().Float64Var(&szDayRealized, "day-realized", 0, "realized P/L today, for the account limits")

	sizeCmd.MarkFlagRequired("entry")
	sizeCmd.MarkFlagRequired("equity")
}

// sizeOutput is what the size command prints.
type sizeOutput struct {
	Symbol   string          `json:"symbol,omitempty"`
	Side     market.Side     `json:"side"`
	Decision *risk.Decision  `json:"decision,omitempty"`
	Result   risk.SizeResult `json:"result"`
}

func runSize(cmd *cobra.Command, args []string) error {
	side, err := market.ParseSide(szSide)
	if err != nil {
		return err
	}

	symbol := szSymbol
	if !cmd.Flags().Changed("symbol") && appCfg.Backtest.Instrument != "" {
		symbol = appCfg.Backtest.Instrument
	}

	req := risk.SizeRequest{
		Symbol:       symbol,
		Side:         side,
		EntryPrice:   szEntry,
		Equity:       szEquity,
		AgentRiskPct: szRisk,
		Step:         szStep,
		MinNotional:  szMinNotional,
	}
	if cmd.Flags().Changed("sl") {
		req.StopPrice = risk.Float(szSL)
	}
	if cmd.Flags().Changed("tp") {
		req.TakeProfit = risk.Float(szTP)
	}
	if meta, ok := market.Lookup(symbol); ok {
		if req.Step == 0 {
			req.Step = meta.Step
		}
		if req.MinNotional == 0 {
			req.MinNotional = meta.MinNotional
		}
		if szAccountCcy != "" {
			rate, err := market.QuoteToAccountRate(symbol, szAccountCcy, szEntry)
			if err != nil {
				return err
			}
			req.QuoteToAccount = rate
		}
	}

	switch {
	case szATR > 0:
		req.ATR = risk.Float(szATR)
	case szBarsPath != "":
		bars, err := loadBars(szBarsPath, "", "")
		if err != nil {
			return err
		}
		atr, err := indicators.ATRFunc(bars, szATRPeriod)
		if err != nil {
			return fmt.Errorf("atr: %w", err)
		}
		req.ATR = risk.Float(atr)
	}

	sizer, err := risk.NewSizer(appCfg.Sizer)
	if err != nil {
		return err
	}

	out := sizeOutput{Symbol: symbol, Side: side}
	if szDayOpen > 0 {
		d, err := admission(szDayOpen, time.Now())
		if err != nil {
			return err
		}
		out.Decision = &d
		out.Result = sizer.SizeWithDecision(req, d)
	} else {
		out.Result = sizer.Size(req)
	}

	appLog.Debug().
		Str("symbol", symbol).
		Float64("size", out.Result.Size).
		Strs("capped_by", out.Result.CappedBy).
		Msg("position sized")

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// admission rebuilds the account's day in the risk manager and returns
// its decision for new orders. The initial equity is observed on the
// previous day, dayOpen at today's open in the configured zone, then the
// current equity at now. Today's slice therefore opens at dayOpen while the
// total rule measures from the initial equity, which defaults to dayOpen.
func admission(dayOpen float64, now time.Time) (risk.Decision, error) {
	limits, err := risk.NewLimitsPolicy(appCfg.Limits)
	if err != nil {
		return risk.Decision{}, err
	}
	cfg := appCfg.Risk
	if szInitialEquity > 0 {
		cfg.InitialEquity = risk.Float(szInitialEquity)
	}
	if cfg.InitialEquity == nil {
		cfg.InitialEquity = risk.Float(dayOpen)
	}
	m, err := risk.NewFTMOManager(limits, cfg, appLog)
	if err != nil {
		return risk.Decision{}, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return risk.Decision{}, err
	}
	now = now.In(loc)
	open := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	initial := *cfg.InitialEquity

	m.BeforeNewOrders(risk.AccountState{Balance: initial, Equity: initial}, open.AddDate(0, 0, -1))
	m.BeforeNewOrders(risk.AccountState{Balance: dayOpen, Equity: dayOpen}, open)
	return m.BeforeNewOrders(risk.AccountState{
		Balance:     szEquity,
		Equity:      szEquity,
		MarginUsed:  szMarginUsed,
		OpenTrades:  szOpenTrades,
		DayRealized: szDayRealized,
	}, now), nil
}
