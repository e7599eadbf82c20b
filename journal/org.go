package journal

import (
	"bytes"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/propguard/backtest"
	"github.com/shopspring/decimal"
)

// orgView is what the Org template renders.
type orgView struct {
	*backtest.Result
	Created time.Time
}

var backtestOrgFuncs = template.FuncMap{
	"pct": func(x float64) string {
		return decimal.NewFromFloat(x).Mul(decimal.NewFromInt(100)).StringFixed(2)
	},
	"money": func(x float64) string {
		return decimal.NewFromFloat(x).StringFixed(2)
	},
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var backtestOrg = template.Must(template.New("backtest").Funcs(backtestOrgFuncs).Parse(BacktestOrgTemplate))

// WriteOrg renders res as an Org-mode entry.
func WriteOrg(w io.Writer, res *backtest.Result, created time.Time) error {
	return backtestOrg.Execute(w, orgView{Result: res, Created: created})
}

// WriteOrgFile renders res into path.
func WriteOrgFile(path string, res *backtest.Result, created time.Time) error {
	buf := new(bytes.Buffer)
	if err := WriteOrg(buf, res, created); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

const BacktestOrgTemplate = `
* BACKTEST: {{.Mode}} {{if .FTMORiskSummary.Passed}}PASSED{{else}}FAILED{{end}}
:PROPERTIES:
:RUN_ID:      {{if .ID}}{{.ID}}{{else}}(run-id?){{end}}
:MODE:        {{.Mode}}
:CONVENTION:  {{.EngineDetail.ReturnConvention}}
:TIMEZONE:    {{.EngineDetail.Timezone}}
:START_EQ:    {{money .EngineDetail.InitialEquity}}
:END_EQ:      {{money .EngineDetail.FinalEquity}}
:RETURN_PCT:  {{pct .KPISummary.TotalReturn}}
:MAX_DD_PCT:  {{pct .KPISummary.MaxDrawdown}}
:TRADES:      {{.KPISummary.TradeCount}}
:WIN_RATE:    {{pct .KPISummary.WinRate}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** FTMO Risk
| Measure          | Value |
|------------------+-------|
| Worst daily %    | {{pct .FTMORiskSummary.WorstDailyDrawdownPct}} |
| Worst total %    | {{pct .FTMORiskSummary.WorstTotalDrawdownPct}} |
| Observations     | {{.EngineDetail.Observations}} |
{{- with .FTMORiskSummary.FirstBreach }}
| First breach     | {{.Kind}} on {{.Day}} |
| Breach equity    | {{money .Equity}} |
| Breach drawdown% | {{pct .DrawdownPct}} |
{{- end }}

** Rolling Windows
{{- if .Windows }}
| Start | End | PF | Win % | Max DD |
|-------+-----+----+-------+--------|
{{- range .Windows }}
| {{.StartIndex}} | {{.EndIndex}} | {{.ProfitFactor}} | {{pct .WinRate}} | {{printf "%.4f" .MaxDrawdown}} |
{{- end }}
{{- else }}
# window wider than the series
{{- end }}
`
