package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rustyeddy/propguard/backtest"
	"github.com/rustyeddy/propguard/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)
	j.now = fixedClock
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	_, path := newTestSQLite(t)

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('backtest_runs','equity')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		require.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	require.NoError(t, rows.Err())

	assert.True(t, found["backtest_runs"])
	assert.True(t, found["equity"])
}

func TestSQLiteRunRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)
	res := runFixture(t, "01RUN")

	require.NoError(t, j.SaveRun(ctx, res))

	got, err := j.GetRun(ctx, "01RUN")
	require.NoError(t, err)

	want, err := backtest.SummaryJSON(res)
	require.NoError(t, err)
	have, err := backtest.SummaryJSON(got)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(have))
	assert.Equal(t, res.ID, got.ID)
	assert.Len(t, got.Equity, len(res.Equity))
	assert.True(t, got.Windows[0].ProfitFactor.IsInf() == res.Windows[0].ProfitFactor.IsInf())
}

func TestSQLiteGetRunNotFound(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	_, err := j.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, risk.ErrNotFound)
}

func TestSQLiteListRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	require.NoError(t, j.SaveRun(ctx, runFixture(t, "B")))
	require.NoError(t, j.SaveRun(ctx, runFixture(t, "A")))
	// Saving again replaces rather than duplicates.
	require.NoError(t, j.SaveRun(ctx, runFixture(t, "A")))

	runs, err := j.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "A", runs[0].RunID)
	assert.Equal(t, "B", runs[1].RunID)
	assert.False(t, runs[0].Passed)
	assert.Equal(t, "daily", runs[0].FirstBreach)
	assert.Equal(t, string(backtest.ModeGraph), runs[0].Mode)
	assert.True(t, created.Equal(runs[0].Created))

	eq, err := j.ListEquity(ctx, "A")
	require.NoError(t, err)
	assert.Len(t, eq, 4)
}

func TestSQLiteListEquity(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)
	res := runFixture(t, "R1")
	require.NoError(t, j.SaveRun(ctx, res))

	eq, err := j.ListEquity(ctx, "R1")
	require.NoError(t, err)
	require.Len(t, eq, 4)
	for i, e := range eq {
		assert.Equal(t, i, e.Index)
		assert.Equal(t, "R1", e.RunID)
		assert.InDelta(t, res.Equity[i].Equity, e.Equity, 1e-9)
		assert.True(t, res.Equity[i].TS.Equal(e.Time))
	}

	start := backtest.DefaultStart.Add(time.Hour)
	between, err := j.ListEquityBetween(ctx, start, start.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, between, 2)
	assert.Equal(t, 1, between[0].Index)
	assert.Equal(t, 2, between[1].Index)

	none, err := j.ListEquity(ctx, "nope")
	require.NoError(t, err)
	assert.Empty(t, none)
}
