// Package registry holds the static information known about the meters of
// each REC: regulated tariff cycle, initially installed PV capacity, dataspace
// access parameters and the community's reference location.
package registry

import "github.com/rec-operation/lem-api/core/model"

// TariffCycle is one of the regulated retail tariff structures published by
// ERSE.
type TariffCycle string

const (
	CycleSimples TariffCycle = "simples"
	CycleBi      TariffCycle = "bi-horárias"
	CycleTri     TariffCycle = "tri-horárias"
)

// Location is a community's reference coordinates, used when estimating PV
// generation profiles.
type Location struct {
	Latitude  float64
	Longitude float64
}

// SELSensor identifies one device stream of a SEL meter. A nil SubSensorID
// means the stream is not multiplexed.
type SELSensor struct {
	DeviceType  string
	SubSensorID *string
}

// Community aggregates everything the service knows statically about one
// dataset origin.
type Community struct {
	Location     Location
	TariffCycles map[string]TariffCycle
	InstalledPV  map[string]float64
}

func communityFor(origin model.DatasetOrigin) Community {
	if origin == model.OriginSEL {
		return Community{
			Location:     selLocation,
			TariffCycles: selTariffCycles,
			InstalledPV:  selPVInfo,
		}
	}
	return Community{
		Location:     indataLocation,
		TariffCycles: indataTariffCycles,
		InstalledPV:  indataPVInfo,
	}
}

// LocationOf returns the reference coordinates of a dataset origin.
func LocationOf(origin model.DatasetOrigin) Location {
	return communityFor(origin).Location
}

// TariffCycleOf returns the regulated tariff cycle of a meter. Shared meters,
// which have no retail contract of their own, fall under the "shared" entry.
func TariffCycleOf(origin model.DatasetOrigin, meterID string) (TariffCycle, bool) {
	c, ok := communityFor(origin).TariffCycles[meterID]
	return c, ok
}

// InstalledPVOf returns the registered PV capacity of a meter, in kWp.
func InstalledPVOf(origin model.DatasetOrigin, meterID string) (float64, bool) {
	kwp, ok := communityFor(origin).InstalledPV[meterID]
	return kwp, ok
}

// MeterIDs returns every meter ID registered for a dataset origin, excluding
// the synthetic "shared" entry.
func MeterIDs(origin model.DatasetOrigin) []string {
	cycles := communityFor(origin).TariffCycles
	ids := make([]string, 0, len(cycles))
	for id := range cycles {
		if id == SharedMeterKey {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// SELSensorsOf returns the device streams to request for a SEL meter.
func SELSensorsOf(meterID string) ([]SELSensor, bool) {
	s, ok := selSensors[meterID]
	return s, ok
}

// INDATAPhaseOf returns the shelly phase carrying the net load of an INDATA
// meter.
func INDATAPhaseOf(meterID string) (string, bool) {
	p, ok := indataPhases[meterID]
	return p, ok
}

// SharedMeterKey indexes the tariff cycle applied to shared meters.
const SharedMeterKey = "shared"
