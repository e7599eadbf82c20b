package risk

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerEnsureInitializedIsIdempotent(t *testing.T) {
	t.Parallel()

	l := NewLedger(nil, nil)
	assert.False(t, l.Initialized())

	require.NoError(t, l.EnsureInitialized(1000, jan1))
	require.NoError(t, l.EnsureInitialized(5000, jan1.AddDate(0, 0, 3)))

	initial, ok := l.InitialEquity()
	require.True(t, ok)
	assert.Equal(t, 1000.0, initial)
	assert.Equal(t, "2025-01-01", l.Current().Day)
	assert.Equal(t, 0, l.Count())
}

func TestLedgerRejectsNonPositiveInitialEquity(t *testing.T) {
	t.Parallel()

	for _, equity := range []float64{0, -250} {
		l := NewLedger(nil, nil)
		err := l.OnNewEquity(equity, 0, jan1)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidInput))
		assert.False(t, l.Initialized())
		_, bound := l.InitialEquity()
		assert.False(t, bound)
		assert.Equal(t, 0, l.Count())

		require.NoError(t, l.OnNewEquity(1000, 0, jan1))
		initial, _ := l.InitialEquity()
		assert.Equal(t, 1000.0, initial)
	}

	// A configured initial equity makes a later zero observation a plain loss.
	l := NewLedger(Float(1000), nil)
	require.NoError(t, l.OnNewEquity(0, 0, jan1))
	assert.InDelta(t, 1.0, l.TotalLossPct(0), 1e-12)
}

func TestLedgerDaySlices(t *testing.T) {
	t.Parallel()

	l := NewLedger(Float(100), time.UTC)
	steps := []struct {
		ts     time.Time
		equity float64
	}{
		{jan1, 99},
		{jan1.Add(time.Hour), 97},
		{jan1.Add(2 * time.Hour), 98},
		{jan1.AddDate(0, 0, 1), 105},
		{jan1.AddDate(0, 0, 1).Add(time.Hour), 104},
		{jan1.AddDate(0, 0, 1).Add(2 * time.Hour), 110},
	}
	for _, s := range steps {
		require.NoError(t, l.OnNewEquity(s.equity, 0, s.ts))
	}

	days := l.Days()
	require.Len(t, days, 2)

	assert.Equal(t, DaySlice{Day: "2025-01-01", OpeningEquity: 100, MinEquity: 97}, days[0])
	assert.Equal(t, DaySlice{Day: "2025-01-02", OpeningEquity: 105, MinEquity: 104}, days[1])

	assert.Equal(t, 97.0, l.MinEquityEver())
	assert.Equal(t, 110.0, l.MaxEquityEver())
	assert.Equal(t, 6, l.Count())
	assert.InDelta(t, 0.03, l.WorstDailyDrawdownPct(), 1e-12)
	assert.InDelta(t, 0.03, l.WorstTotalDrawdownPct(), 1e-12)
	assert.Equal(t, 110.0, l.Last().Equity)
}

func TestLedgerOpeningNeverRewritten(t *testing.T) {
	t.Parallel()

	l := NewLedger(nil, nil)
	require.NoError(t, l.OnNewEquity(200, 0, jan1))
	require.NoError(t, l.OnNewEquity(250, 0, jan1.Add(time.Minute)))
	require.NoError(t, l.OnNewEquity(150, 0, jan1.Add(2*time.Minute)))

	assert.Equal(t, 200.0, l.Current().OpeningEquity)
	assert.Equal(t, 150.0, l.Current().MinEquity)
	assert.InDelta(t, 0.25, l.DailyLossPct(150), 1e-12)
	assert.Equal(t, 0.0, l.DailyLossPct(260))
}

func TestLedgerRejectsTimestampRegression(t *testing.T) {
	t.Parallel()

	l := NewLedger(nil, nil)
	require.NoError(t, l.OnNewEquity(100, 0, jan1))
	require.NoError(t, l.OnNewEquity(101, 0, jan1))

	err := l.OnNewEquity(90, 0, jan1.Add(-time.Nanosecond))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOrdering))
	assert.Equal(t, 100.0, l.MinEquityEver())
	assert.Equal(t, 2, l.Count())
}

func TestLedgerEmpty(t *testing.T) {
	t.Parallel()

	l := NewLedger(Float(100), nil)
	assert.Nil(t, l.Days())
	assert.Equal(t, 0.0, l.WorstTotalDrawdownPct())
	assert.Equal(t, 0.0, l.WorstDailyDrawdownPct())
}
