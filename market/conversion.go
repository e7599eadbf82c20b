package market

import (
	"fmt"
)

// QuoteToAccountRate converts one unit of the instrument's quote currency
// into accountCurrency. mid is the instrument's current mid price and is
// only needed when the account currency is the base currency.
func QuoteToAccountRate(instrument, accountCurrency string, mid float64) (float64, error) {
	meta, ok := Instruments[instrument]
	if !ok {
		return 0, fmt.Errorf("unknown instrument %s", instrument)
	}

	// quote == account (EUR_USD for a USD account)
	if meta.QuoteCurrency == accountCurrency {
		return 1.0, nil
	}

	// base == account (USD_JPY mid is JPY per USD; we want USD per JPY)
	if meta.BaseCurrency == accountCurrency {
		if mid <= 0 {
			return 0, fmt.Errorf("%s: mid price must be positive, got %v", instrument, mid)
		}
		return 1.0 / mid, nil
	}

	return 0, fmt.Errorf(
		"cross conversion not implemented for %s → %s",
		meta.QuoteCurrency,
		accountCurrency,
	)
}
