package model

import "time"

// MeterPoint is one 15-minute energy record of a meter.
type MeterPoint struct {
	EC         float64 // consumed energy, kWh
	EG         float64 // generated energy, kWh
	BuyTariff  float64 // EUR/kWh
	SellTariff float64 // EUR/kWh
}

// MeterDataset is the assembled input of a computation: per-meter energy
// series aligned to the 15-minute horizon, the self-consumption grid tariffs
// and the availability report used for the 412/422 error ladder.
type MeterDataset struct {
	Horizon     []time.Time
	Meters      map[string][]MeterPoint
	GridTariffs []float64

	MissingMeterIDs  []string
	MissingDatetimes map[string][]string
}

// Incomplete reports whether any meter ID or data point is missing.
func (d *MeterDataset) Incomplete() bool {
	if len(d.MissingMeterIDs) > 0 {
		return true
	}
	for _, dts := range d.MissingDatetimes {
		if len(dts) > 0 {
			return true
		}
	}
	return false
}

// MissingPairs returns the meter IDs with missing datetimes, pruned of empty
// entries.
func (d *MeterDataset) MissingPairs() map[string][]string {
	out := make(map[string][]string)
	for id, dts := range d.MissingDatetimes {
		if len(dts) > 0 {
			out[id] = dts
		}
	}
	return out
}

// HorizonSteps builds the 15-minute datetime range [start, end], matching the
// horizon the original data series are aligned to.
func HorizonSteps(start, end time.Time) []time.Time {
	var steps []time.Time
	for t := start; !t.After(end); t = t.Add(Step) {
		steps = append(steps, t)
	}
	return steps
}
