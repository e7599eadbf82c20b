package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/propguard/market"
)

// BarFeed yields bars one at a time. Implementations should be
// deterministic and return (ok=false, err=nil) at EOF.
type BarFeed interface {
	Next() (b market.Bar, ok bool, err error)
	Close() error
}

// CSVBarsFeed reads OHLC CSV rows:
//
//	ts,open,high,low,close[,extra...]
//
// where ts is RFC3339 or a naive timestamp taken as UTC.
//
// It optionally filters bars to [From, To) if provided.
// Header row ("ts,..." or "time,...") is allowed.
// Empty/short rows are skipped.
type CSVBarsFeed struct {
	rc   io.Closer
	r    *csv.Reader
	from time.Time
	to   time.Time

	sawFirst bool
}

func NewCSVBarsFeed(path string, from, to time.Time) (*CSVBarsFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	feed := NewCSVBarsReader(f, from, to)
	feed.rc = f
	return feed, nil
}

// NewCSVBarsReader reads from r; Close is then a no-op.
func NewCSVBarsReader(r io.Reader, from, to time.Time) *CSVBarsFeed {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &CSVBarsFeed{r: cr, from: from, to: to}
}

func (f *CSVBarsFeed) Close() error {
	if f.rc != nil {
		return f.rc.Close()
	}
	return nil
}

func (f *CSVBarsFeed) Next() (market.Bar, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return market.Bar{}, false, nil
		}
		if err != nil {
			return market.Bar{}, false, err
		}
		if len(row) == 0 {
			continue
		}

		// Allow a single header row
		if !f.sawFirst {
			f.sawFirst = true
			switch strings.ToLower(strings.TrimSpace(row[0])) {
			case "ts", "time", "timestamp":
				continue
			}
		}

		b, ok, err := parseBarRow(row)
		if err != nil {
			return market.Bar{}, false, err
		}
		if !ok {
			continue
		}
		if !inRange(b.TS, f.from, f.to) {
			continue
		}
		return b, true, nil
	}
}

// ReadBars drains a feed.
func ReadBars(feed BarFeed) ([]market.Bar, error) {
	defer feed.Close()

	var bars []market.Bar
	for {
		b, ok, err := feed.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return bars, nil
		}
		bars = append(bars, b)
	}
}

func parseBarRow(row []string) (market.Bar, bool, error) {
	// Need at least: ts,open,high,low,close
	if len(row) < 5 {
		return market.Bar{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return market.Bar{}, false, nil
	}
	t, err := market.ParseTimestamp(ts)
	if err != nil {
		return market.Bar{}, false, fmt.Errorf("bad time %q: %w", ts, err)
	}

	var px [4]float64
	for i, name := range []string{"open", "high", "low", "close"} {
		v, err := strconv.ParseFloat(strings.TrimSpace(row[i+1]), 64)
		if err != nil {
			return market.Bar{}, false, fmt.Errorf("bad %s %q: %w", name, row[i+1], err)
		}
		px[i] = v
	}

	b := market.Bar{TS: t, Open: px[0], High: px[1], Low: px[2], Close: px[3]}
	if !b.Valid() {
		return market.Bar{}, false, fmt.Errorf("inconsistent bar at %s", ts)
	}
	return b, true, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}
