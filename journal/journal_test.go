package journal

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/rustyeddy/propguard/backtest"
	"github.com/rustyeddy/propguard/risk"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return created }

// runFixture produces a failed run with id runID.
func runFixture(t *testing.T, runID string) *backtest.Result {
	t.Helper()

	r := backtest.NewRunner(zerolog.Nop(), backtest.WithIDSource(func() string { return runID }))
	res, err := r.Run(context.Background(), backtest.Request{
		Returns:  []float64{0.01, -0.07, 0.02, 0.01},
		Window:   2,
		Interval: backtest.Duration(time.Hour),
		FTMORisk: &risk.Config{
			InitialEquity:    risk.Float(100_000),
			DailySoftStopPct: 4,
			DailyHardStopPct: 5,
			MaxTotalLossPct:  10,
		},
	})
	require.NoError(t, err)
	return res
}
