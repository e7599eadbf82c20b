package risk

import "math"

// PlannedRiskUSD computes absolute account-currency risk if the stop is hit.
func PlannedRiskUSD(units, entry, stop, quoteToAccountRate float64) float64 {
	// price move in quote currency per 1 unit of base:
	move := math.Abs(entry - stop)
	// P/L in quote currency = units * move
	plQuote := math.Abs(units) * move
	// Convert quote currency -> account currency (1.0 when they match)
	return plQuote * quoteToAccountRate
}

// RR is reward over risk; zero when there is no risk.
func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	reward := math.Abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// RiskPct is planned risk as a fraction of equity; +Inf on empty equity.
func RiskPct(plannedRiskUSD, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return plannedRiskUSD / equity
}
