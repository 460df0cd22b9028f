// Package tariffs derives retail tariff time series from the regulated tariff
// cycles published by ERSE. Rates are applied per 15-minute step of the
// requested horizon.
package tariffs

import (
	"time"

	"github.com/rec-operation/lem-api/core/registry"
)

// Regulated rates in EUR/kWh for BTN supply.
const (
	simplesRate = 0.1665

	biOffPeakRate = 0.1085
	biPeakRate    = 0.1952

	triValleyRate   = 0.1072
	triStandardRate = 0.1792
	triPeakRate     = 0.2399

	// selfConsumptionRate is the grid access tariff applicable to
	// self-consumed energy.
	selfConsumptionRate = 0.0272
)

// SellRatio converts buy tariffs into the rate the retailer pays for
// injected surplus.
const SellRatio = 0.25

// BuyRate returns the purchase rate of a tariff cycle at a given instant.
func BuyRate(cycle registry.TariffCycle, t time.Time) float64 {
	switch cycle {
	case registry.CycleBi:
		if offPeak(t) {
			return biOffPeakRate
		}
		return biPeakRate
	case registry.CycleTri:
		switch {
		case offPeak(t):
			return triValleyRate
		case triPeak(t):
			return triPeakRate
		default:
			return triStandardRate
		}
	default:
		return simplesRate
	}
}

// BuySeries returns the purchase rates of a tariff cycle over a horizon.
func BuySeries(cycle registry.TariffCycle, horizon []time.Time) []float64 {
	out := make([]float64, len(horizon))
	for i, t := range horizon {
		out[i] = BuyRate(cycle, t)
	}
	return out
}

// SellSeries returns the injection rates paired with the given purchase
// rates.
func SellSeries(buy []float64) []float64 {
	out := make([]float64, len(buy))
	for i, v := range buy {
		out[i] = v * SellRatio
	}
	return out
}

// SelfConsumptionSeries returns the grid access tariffs applicable to
// self-consumed energy over a horizon.
func SelfConsumptionSeries(horizon []time.Time) []float64 {
	out := make([]float64, len(horizon))
	for i := range horizon {
		out[i] = selfConsumptionRate
	}
	return out
}

// offPeak covers the daily 22:00 to 08:00 window shared by the bi-horária
// off-peak and tri-horária valley periods.
func offPeak(t time.Time) bool {
	h := t.Hour()
	return h >= 22 || h < 8
}

// triPeak covers the tri-horária peak windows, 09:00 to 10:30 and 18:00 to
// 20:30.
func triPeak(t time.Time) bool {
	m := t.Hour()*60 + t.Minute()
	return (m >= 9*60 && m < 10*60+30) || (m >= 18*60 && m < 20*60+30)
}
