// Package journal persists backtest runs: one JSON document per run id,
// with the equity curve alongside for querying.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/rustyeddy/propguard/backtest"
	"github.com/rustyeddy/propguard/risk"
)

// ErrNotFound wraps risk.ErrNotFound.
var ErrNotFound = fmt.Errorf("journal: %w", risk.ErrNotFound)

// RunRecord is the indexed header of a stored run.
type RunRecord struct {
	RunID       string    `json:"run_id"`
	Created     time.Time `json:"created"`
	Mode        string    `json:"mode"`
	Passed      bool      `json:"passed"`
	FinalEquity float64   `json:"final_equity"`
	FirstBreach string    `json:"first_breach"`
}

// EquitySnapshot is one point of a stored equity curve.
type EquitySnapshot struct {
	RunID        string    `json:"run_id"`
	Index        int       `json:"index"`
	Time         time.Time `json:"time"`
	Equity       float64   `json:"equity"`
	DailyLossPct float64   `json:"daily_loss_pct"`
	TotalLossPct float64   `json:"total_loss_pct"`
}

// Store saves and loads runs.
type Store interface {
	SaveRun(ctx context.Context, res *backtest.Result) error
	GetRun(ctx context.Context, runID string) (*backtest.Result, error)
	ListRuns(ctx context.Context) ([]RunRecord, error)
	// ListEquity returns the curve of one run in index order; an unknown
	// run yields an empty slice.
	ListEquity(ctx context.Context, runID string) ([]EquitySnapshot, error)
	// ListEquityBetween returns the points of every run with
	// start <= time < end, ordered by time, run id and index.
	ListEquityBetween(ctx context.Context, start, end time.Time) ([]EquitySnapshot, error)
	Close() error
}

var (
	_ Store = (*SQLite)(nil)
	_ Store = (*FileStore)(nil)
)

func snapshotsOf(res *backtest.Result) []EquitySnapshot {
	out := make([]EquitySnapshot, 0, len(res.Equity))
	for _, p := range res.Equity {
		out = append(out, EquitySnapshot{
			RunID:        res.ID,
			Index:        p.Index,
			Time:         p.TS.UTC(),
			Equity:       p.Equity,
			DailyLossPct: p.DailyLossPct,
			TotalLossPct: p.TotalLossPct,
		})
	}
	return out
}

func recordOf(res *backtest.Result, created time.Time) RunRecord {
	rec := RunRecord{
		RunID:       res.ID,
		Created:     created.UTC(),
		Mode:        string(res.Mode),
		Passed:      res.FTMORiskSummary.Passed,
		FinalEquity: res.EngineDetail.FinalEquity,
		FirstBreach: risk.BreachNone.String(),
	}
	if fb := res.FTMORiskSummary.FirstBreach; fb != nil {
		rec.FirstBreach = fb.Kind.String()
	}
	return rec
}
