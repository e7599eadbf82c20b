package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteToAccountRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		instrument string
		account    string
		mid        float64
		want       float64
		wantErr    bool
	}{
		{name: "unknown instrument", instrument: "NO_SUCH_INSTRUMENT", account: "USD", mid: 1, wantErr: true},
		{name: "quote equals account", instrument: "EUR_USD", account: "USD", want: 1.0},
		{name: "base equals account", instrument: "USD_JPY", account: "USD", mid: 150, want: 1.0 / 150},
		{name: "base equals account needs mid", instrument: "USD_JPY", account: "USD", wantErr: true},
		{name: "cross not implemented", instrument: "EUR_USD", account: "GBP", mid: 1.08, wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rate, err := QuoteToAccountRate(tt.instrument, tt.account, tt.mid)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Equal(t, 0.0, rate)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, rate, 1e-12)
		})
	}
}
