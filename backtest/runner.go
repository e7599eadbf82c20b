package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/propguard/kpi"
	"github.com/rustyeddy/propguard/pkg/id"
	"github.com/rustyeddy/propguard/risk"
)

// Runner replays a request through the FTMO engine and the KPI evaluator.
// A Runner holds no per-run state and may be reused.
type Runner struct {
	log   zerolog.Logger
	newID func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithIDSource replaces the ULID generator, for reproducible run ids.
func WithIDSource(f func() string) Option {
	return func(r *Runner) { r.newID = f }
}

func NewRunner(log zerolog.Logger, opts ...Option) *Runner {
	r := &Runner{
		log:   log.With().Str("component", "backtest").Logger(),
		newID: id.New,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Run executes the backtest:
//  1. start equity at the configured initial equity, or 1.0
//  2. advance equity by each return and push it into the engine
//  3. compute the rolling KPI windows over the same returns
//
// A breach never stops the sweep; the summary reports the first one.
func (r *Runner) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.WithDefaults()

	// Without ftmo_risk the default thresholds apply to a unit account.
	cfg := risk.DefaultConfig()
	cfg.InitialEquity = nil
	if req.FTMORisk != nil {
		cfg = *req.FTMORisk
	}
	start := 1.0
	if cfg.InitialEquity != nil {
		start = *cfg.InitialEquity
	}
	cfg.InitialEquity = risk.Float(start)

	engine, err := risk.NewEngine(cfg)
	if err != nil {
		return nil, err
	}

	runID := r.newID()
	log := r.log.With().Str("run_id", runID).Logger()
	log.Info().
		Str("mode", string(req.Mode)).
		Int("returns", len(req.Returns)).
		Int("window", req.Window).
		Str("convention", string(req.ReturnConvention)).
		Msg("backtest started")

	equity := start
	curve := make([]float64, 0, len(req.Returns)+1)
	curve = append(curve, start)
	points := make([]EquityPoint, 0, len(req.Returns))
	breachIdx := -1

	for i, ret := range req.Returns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch req.ReturnConvention {
		case Additive:
			equity += ret
		default:
			equity *= 1 + ret
		}
		ts := req.timestamp(i)

		v, err := engine.OnNewEquity(ts, equity, 0)
		if err != nil {
			return nil, fmt.Errorf("backtest: observation %d: %w", i, err)
		}
		if breachIdx < 0 && engine.FirstBreach() != nil {
			breachIdx = i
			fb := engine.FirstBreach()
			log.Warn().
				Int("index", i).
				Str("kind", fb.Kind.String()).
				Float64("equity", fb.Equity).
				Float64("drawdown_pct", fb.DrawdownPct).
				Msg("first breach")
		}

		curve = append(curve, equity)
		points = append(points, EquityPoint{
			Index:        i,
			TS:           ts,
			Equity:       equity,
			DailyLossPct: v.DailyLossPct,
			TotalLossPct: v.TotalLossPct,
			CanOpen:      v.CanOpenNewTrade(),
			ForceClose:   v.ShouldForceClose(),
		})
	}

	windows, err := kpi.Rolling(req.Returns, req.Window)
	if err != nil {
		return nil, err
	}
	summary, err := kpi.Summarize(req.Returns, curve)
	if err != nil {
		return nil, err
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = "UTC"
	}
	res := &Result{
		ID:              runID,
		Mode:            req.Mode,
		KPISummary:      summary,
		Windows:         windows,
		FTMORiskSummary: engine.Summary(),
		EngineDetail: EngineDetail{
			ReturnConvention: req.ReturnConvention,
			InitialEquity:    start,
			FinalEquity:      equity,
			Observations:     engine.Ledger().Count(),
			FirstBreachIndex: breachIdx,
			Timezone:         tz,
		},
		Equity: points,
	}

	log.Info().
		Bool("passed", res.FTMORiskSummary.Passed).
		Float64("final_equity", equity).
		Int("windows", len(windows)).
		Msg("backtest finished")
	return res, nil
}

// timestamp is the bar time of observation i, or the synthetic
// Start + i*Interval. Bar times are normalized to UTC.
func (r Request) timestamp(i int) time.Time {
	if len(r.Bars) > 0 {
		return r.Bars[i].TS.UTC()
	}
	return r.Start.UTC().Add(time.Duration(i) * time.Duration(r.Interval))
}
