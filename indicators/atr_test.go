package indicators

import (
	"testing"

	"github.com/rustyeddy/propguard/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bar(o, h, l, c float64) market.Bar {
	return market.Bar{Open: o, High: h, Low: l, Close: c}
}

func TestTrueRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		cur, prev market.Bar
		want      float64
	}{
		{"inside range", bar(10, 12, 9, 11), bar(10, 11, 9, 10), 3},
		{"gap up", bar(15, 16, 14, 15), bar(10, 11, 9, 10), 6},
		{"gap down", bar(5, 6, 4, 5), bar(10, 11, 9, 10), 6},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, trueRange(tt.cur, tt.prev))
		})
	}
}

func TestATRStreaming(t *testing.T) {
	t.Parallel()

	a := NewATR(3)
	var _ Indicator = a
	assert.Equal(t, "ATR(3)", a.Name())
	assert.Equal(t, 4, a.Warmup())

	bars := []market.Bar{
		bar(10, 11, 9, 10),  // seed
		bar(10, 12, 9, 11),  // tr 3
		bar(11, 12, 10, 11), // tr 2
		bar(11, 13, 10, 12), // tr 3
		bar(12, 17, 12, 16), // tr 5
	}
	for i, b := range bars[:3] {
		a.Update(b)
		assert.False(t, a.Ready(), "bar %d", i)
		assert.Equal(t, 0.0, a.Value())
	}

	a.Update(bars[3])
	require.True(t, a.Ready())
	assert.InDelta(t, 8.0/3.0, a.Value(), 1e-12)

	a.Update(bars[4])
	assert.InDelta(t, (8.0/3.0*2+5)/3, a.Value(), 1e-12)

	a.Reset()
	assert.False(t, a.Ready())
	assert.Equal(t, 0.0, a.Value())
}

func TestATRFunc(t *testing.T) {
	t.Parallel()

	bars := []market.Bar{
		bar(10, 11, 9, 10),
		bar(10, 12, 9, 11),
		bar(11, 12, 10, 11),
	}
	v, err := ATRFunc(bars, 2)
	require.NoError(t, err)
	assert.InDelta(t, 2.5, v, 1e-12)

	_, err = ATRFunc(bars, 3)
	assert.Error(t, err)
	_, err = ATRFunc(bars, 0)
	assert.Error(t, err)
}
