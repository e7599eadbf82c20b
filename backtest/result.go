package backtest

import (
	"encoding/json"
	"time"

	"github.com/rustyeddy/propguard/kpi"
	"github.com/rustyeddy/propguard/risk"
)

// Result is everything a backtest produces.
type Result struct {
	ID              string        `json:"id"`
	Mode            Mode          `json:"mode"`
	KPISummary      kpi.Summary   `json:"kpi_summary"`
	Windows         []kpi.Window  `json:"windows"`
	FTMORiskSummary risk.Summary  `json:"ftmo_risk_summary"`
	EngineDetail    EngineDetail  `json:"engine_detail"`
	Equity          []EquityPoint `json:"equity,omitempty"`
}

// EngineDetail records how the sweep was run.
type EngineDetail struct {
	ReturnConvention ReturnConvention `json:"return_convention"`
	InitialEquity    float64          `json:"initial_equity"`
	FinalEquity      float64          `json:"final_equity"`
	Observations     int              `json:"observations"`
	FirstBreachIndex int              `json:"first_breach_index"`
	Timezone         string           `json:"timezone"`
}

// EquityPoint is the engine's view after observation Index.
type EquityPoint struct {
	Index        int       `json:"index"`
	TS           time.Time `json:"ts"`
	Equity       float64   `json:"equity"`
	DailyLossPct float64   `json:"daily_loss_pct"`
	TotalLossPct float64   `json:"total_loss_pct"`
	CanOpen      bool      `json:"can_open"`
	ForceClose   bool      `json:"force_close"`
}

// summaryDoc is the reproducible part of a Result: no run id, no curve.
type summaryDoc struct {
	Mode            Mode         `json:"mode"`
	KPISummary      kpi.Summary  `json:"kpi_summary"`
	Windows         []kpi.Window `json:"windows"`
	FTMORiskSummary risk.Summary `json:"ftmo_risk_summary"`
	EngineDetail    EngineDetail `json:"engine_detail"`
}

// SummaryJSON encodes the reproducible summary of res. Identical requests
// yield identical bytes.
func SummaryJSON(res *Result) ([]byte, error) {
	return json.Marshal(summaryDoc{
		Mode:            res.Mode,
		KPISummary:      res.KPISummary,
		Windows:         res.Windows,
		FTMORiskSummary: res.FTMORiskSummary,
		EngineDetail:    res.EngineDetail,
	})
}
