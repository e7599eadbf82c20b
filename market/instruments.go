// market/instruments.go
package market

// InstrumentMeta carries the exchange filters the position sizer needs.
// Step is the size increment; MinNotional is the smallest accepted
// size*price. Zero disables either filter.
type InstrumentMeta struct {
	Name          string
	BaseCurrency  string
	QuoteCurrency string
	PipLocation   int
	Step          float64
	MinNotional   float64
	MarginRate    float64
}

var Instruments = map[string]InstrumentMeta{
	"EUR_USD": {
		Name:          "EUR_USD",
		BaseCurrency:  "EUR",
		QuoteCurrency: "USD",
		PipLocation:   -4,
		Step:          1,
		MarginRate:    0.02,
	},
	"USD_JPY": {
		Name:          "USD_JPY",
		BaseCurrency:  "USD",
		QuoteCurrency: "JPY",
		PipLocation:   -2,
		Step:          1,
		MarginRate:    0.02,
	},
	"BTC_USDT": {
		Name:          "BTC_USDT",
		BaseCurrency:  "BTC",
		QuoteCurrency: "USDT",
		Step:          0.00001,
		MinNotional:   5,
		MarginRate:    0.1,
	},
	"US30": {
		Name:          "US30",
		BaseCurrency:  "US30",
		QuoteCurrency: "USD",
		PipLocation:   0,
		Step:          0.01,
		MarginRate:    0.05,
	},
}

// Lookup returns the metadata for name, or a zero meta with no filters.
func Lookup(name string) (InstrumentMeta, bool) {
	m, ok := Instruments[name]
	return m, ok
}
