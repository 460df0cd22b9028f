package model

import (
	"fmt"
	"time"
)

// Step is the market time step shared by every computation.
const Step = 15 * time.Minute

// DeltaT is Step expressed in hours.
const DeltaT = 0.25

// DefaultContractedPower is the maximum low voltage (BTN) contracted power in
// kVA, assumed when a meter does not declare one.
const DefaultContractedPower = 41.4

// InstalledPVCapacity overrides the registered PV capacity of a meter, in kVA.
type InstalledPVCapacity struct {
	MeterID             string  `json:"meter_id"`
	InstalledPVCapacity float64 `json:"installed_pv_capacity"`
}

// StorageParams describes a behind-the-meter BESS asset.
type StorageParams struct {
	MeterID string  `json:"meter_id"`
	EBn     float64 `json:"e_bn"`     // energy capacity, kWh
	PMax    float64 `json:"p_max"`    // max charge/discharge power, kW
	SoCMin  float64 `json:"soc_min"`  // %
	SoCMax  float64 `json:"soc_max"`  // %
	EffBC   float64 `json:"eff_bc"`   // charging efficiency, %
	EffBD   float64 `json:"eff_bd"`   // discharging efficiency, %
	DegCost float64 `json:"deg_cost"` // degradation cost, EUR/kWh
}

func (s StorageParams) validate() error {
	if s.EBn < 0 || s.PMax < 0 || s.DegCost < 0 {
		return fmt.Errorf("meter %s: storage capacities and costs must be non-negative", s.MeterID)
	}
	for name, v := range map[string]float64{
		"soc_min": s.SoCMin, "soc_max": s.SoCMax, "eff_bc": s.EffBC, "eff_bd": s.EffBD,
	} {
		if v < 0 || v > 100 {
			return fmt.Errorf("meter %s: %s must be within [0, 100]", s.MeterID, name)
		}
	}
	if s.SoCMax < s.SoCMin {
		return fmt.Errorf("meter %s: soc_max < soc_min", s.MeterID)
	}
	return nil
}

// ContractedPower overrides the contracted power of a meter, in kVA.
type ContractedPower struct {
	MeterID         string  `json:"meter_id"`
	ContractedPower float64 `json:"contracted_power"`
}

// BaseParams are the fields common to every computation request.
type BaseParams struct {
	StartDatetime                time.Time             `json:"start_datetime"`
	EndDatetime                  time.Time             `json:"end_datetime"`
	DatasetOrigin                DatasetOrigin         `json:"dataset_origin"`
	MeterIDs                     []string              `json:"meter_ids"`
	MeterInstalledPVCapacities   []InstalledPVCapacity `json:"meter_installed_pv_capacities"`
	SharedMeterIDs               []string              `json:"shared_meter_ids"`
	SharedMeterPVCapacities      []InstalledPVCapacity `json:"shared_meter_installed_pv_capacities"`
}

// Normalize converts the horizon limits to UTC and validates the common
// request constraints.
func (p *BaseParams) Normalize() error {
	p.StartDatetime = p.StartDatetime.UTC()
	p.EndDatetime = p.EndDatetime.UTC()
	if !p.EndDatetime.After(p.StartDatetime) {
		return fmt.Errorf("end_datetime <= start_datetime")
	}
	if _, err := ParseDatasetOrigin(string(p.DatasetOrigin)); err != nil {
		return err
	}
	if len(p.MeterIDs) < 2 {
		return fmt.Errorf("please define at least 2 meters for the REC")
	}
	if id, ok := duplicated(p.MeterIDs); ok {
		return fmt.Errorf("duplicated meter_id %q", id)
	}
	if id, ok := duplicated(p.SharedMeterIDs); ok {
		return fmt.Errorf("duplicated shared meter_id %q", id)
	}
	if err := within("meter_installed_pv_capacities", pvMeterIDs(p.MeterInstalledPVCapacities), p.MeterIDs); err != nil {
		return err
	}
	return within("shared_meter_installed_pv_capacities", pvMeterIDs(p.SharedMeterPVCapacities), p.SharedMeterIDs)
}

// PricingParams tune the vanilla pricing mechanisms.
type PricingParams struct {
	// SDRCompensation incentivizes internal trades when the REC has a net
	// surplus. Only used by the "sdr" mechanism.
	SDRCompensation float64 `json:"sdr_compensation"`
	// MMRDivisor is the divisor of the MMR expression; values above 2 favor
	// buyers, below 2 favor sellers. Only used by the "mmr" mechanism.
	MMRDivisor float64 `json:"mmr_divisor"`
}

func (p *PricingParams) Normalize() error {
	if p.MMRDivisor == 0 {
		p.MMRDivisor = 2
	}
	if p.MMRDivisor < 0 {
		return fmt.Errorf("mmr_divisor must be positive")
	}
	if p.SDRCompensation < 0 || p.SDRCompensation > 1 {
		return fmt.Errorf("sdr_compensation must be within [0, 1]")
	}
	return nil
}

// VanillaParams is the payload of a price-only computation.
type VanillaParams struct {
	BaseParams
	PricingParams
}

func (p *VanillaParams) Normalize() error {
	if err := p.BaseParams.Normalize(); err != nil {
		return err
	}
	return p.PricingParams.Normalize()
}

// MILPParams extends BaseParams with the scheduling inputs.
type MILPParams struct {
	BaseParams
	MeterStorage               []StorageParams   `json:"meter_storage"`
	SharedMeterStorage         []StorageParams   `json:"shared_meter_storage"`
	MeterContractedPower       []ContractedPower `json:"meter_contracted_power"`
	SharedMeterContractedPower []ContractedPower `json:"shared_meter_contracted_power"`
}

func (p *MILPParams) Normalize() error {
	if err := p.BaseParams.Normalize(); err != nil {
		return err
	}
	for _, s := range append(append([]StorageParams{}, p.MeterStorage...), p.SharedMeterStorage...) {
		if err := s.validate(); err != nil {
			return err
		}
	}
	if err := within("meter_storage", storageMeterIDs(p.MeterStorage), p.MeterIDs); err != nil {
		return err
	}
	if err := within("shared_meter_storage", storageMeterIDs(p.SharedMeterStorage), p.SharedMeterIDs); err != nil {
		return err
	}
	if err := within("meter_contracted_power", cpMeterIDs(p.MeterContractedPower), p.MeterIDs); err != nil {
		return err
	}
	return within("shared_meter_contracted_power", cpMeterIDs(p.SharedMeterContractedPower), p.SharedMeterIDs)
}

// DualParams is the payload of a collective optimization request.
type DualParams struct {
	MILPParams
}

// LoopParams is the payload of an iterative two-stage request.
type LoopParams struct {
	MILPParams
	PricingParams
}

func (p *LoopParams) Normalize() error {
	if err := p.MILPParams.Normalize(); err != nil {
		return err
	}
	return p.PricingParams.Normalize()
}

func duplicated(ids []string) (string, bool) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return id, true
		}
		seen[id] = struct{}{}
	}
	return "", false
}

func within(field string, ids, allowed []string) error {
	set := make(map[string]struct{}, len(allowed))
	for _, id := range allowed {
		set[id] = struct{}{}
	}
	for _, id := range ids {
		if _, ok := set[id]; !ok {
			return fmt.Errorf("%s: meter_id %q not found in the request's meter list", field, id)
		}
	}
	return nil
}

func pvMeterIDs(in []InstalledPVCapacity) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = v.MeterID
	}
	return out
}

func storageMeterIDs(in []StorageParams) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = v.MeterID
	}
	return out
}

func cpMeterIDs(in []ContractedPower) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = v.MeterID
	}
	return out
}
