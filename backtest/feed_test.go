package backtest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rustyeddy/propguard/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBarRow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		row     []string
		wantOk  bool
		wantErr bool
		want    market.Bar
	}{
		{
			name:   "valid row",
			row:    []string{"2026-01-24T09:30:00Z", "1.10", "1.12", "1.09", "1.11"},
			wantOk: true,
			want: market.Bar{TS: time.Date(2026, 1, 24, 9, 30, 0, 0, time.UTC),
				Open: 1.10, High: 1.12, Low: 1.09, Close: 1.11},
		},
		{
			name:   "naive timestamp is utc",
			row:    []string{"2026-01-24 09:30:00", "1", "1", "1", "1"},
			wantOk: true,
			want:   market.Bar{TS: time.Date(2026, 1, 24, 9, 30, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1},
		},
		{
			name:   "extra columns",
			row:    []string{"2026-01-24T09:30:00Z", "1", "2", "1", "2", "1500"},
			wantOk: true,
			want:   market.Bar{TS: time.Date(2026, 1, 24, 9, 30, 0, 0, time.UTC), Open: 1, High: 2, Low: 1, Close: 2},
		},
		{name: "too few columns", row: []string{"2026-01-24T09:30:00Z", "1", "1", "1"}},
		{name: "empty timestamp", row: []string{"", "1", "1", "1", "1"}},
		{name: "invalid timestamp", row: []string{"yesterday", "1", "1", "1", "1"}, wantErr: true},
		{name: "invalid price", row: []string{"2026-01-24T09:30:00Z", "x", "1", "1", "1"}, wantErr: true},
		{name: "high below low", row: []string{"2026-01-24T09:30:00Z", "1", "1", "2", "1"}, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b, ok, err := parseBarRow(tt.row)
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if ok {
				assert.Equal(t, tt.want, b)
			}
		})
	}
}

func TestInRange(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, 1, 24, 12, 0, 0, 0, time.UTC)
	before := base.Add(-time.Hour)
	after := base.Add(time.Hour)

	tests := []struct {
		name     string
		t        time.Time
		from, to time.Time
		want     bool
	}{
		{"no range", base, time.Time{}, time.Time{}, true},
		{"within range", base, before, after, true},
		{"before range", before, base, after, false},
		{"after range", after, before, base, false},
		{"at from boundary", base, base, after, true},
		{"at to boundary", base, before, base, false},
		{"only from constraint", after, base, time.Time{}, true},
		{"only to constraint", before, time.Time{}, base, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, inRange(tt.t, tt.from, tt.to))
		})
	}
}

const barsCSV = `ts,open,high,low,close
2025-01-01T00:00:00Z,100,101,99,100.5

2025-01-02T00:00:00Z,100.5,102,100,101
2025-01-03T00:00:00Z,101,101,98,98.5
`

func TestCSVBarsFeedFromFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bars.csv")
	require.NoError(t, os.WriteFile(path, []byte(barsCSV), 0o644))

	feed, err := NewCSVBarsFeed(path, time.Time{}, time.Time{})
	require.NoError(t, err)
	bars, err := ReadBars(feed)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, 98.5, bars[2].Close)
	require.NoError(t, market.CheckOrdered(bars))
}

func TestCSVBarsFeedFilter(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC)
	bars, err := ReadBars(NewCSVBarsReader(strings.NewReader(barsCSV), from, to))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, from, bars[0].TS)
}

func TestCSVBarsFeedWithoutHeader(t *testing.T) {
	t.Parallel()

	body := "2025-01-01,1,1,1,1\n2025-01-02,1,2,1,2\n"
	bars, err := ReadBars(NewCSVBarsReader(strings.NewReader(body), time.Time{}, time.Time{}))
	require.NoError(t, err)
	assert.Len(t, bars, 2)
}

func TestCSVBarsFeedErrors(t *testing.T) {
	t.Parallel()

	_, err := NewCSVBarsFeed(filepath.Join(t.TempDir(), "missing.csv"), time.Time{}, time.Time{})
	assert.Error(t, err)

	_, err = ReadBars(NewCSVBarsReader(strings.NewReader("ts,open,high,low,close\nbad,1,1,1,1\n"), time.Time{}, time.Time{}))
	assert.Error(t, err)
}
