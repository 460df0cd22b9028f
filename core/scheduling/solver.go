// Package scheduling solves the REC operation problem: given each meter's
// energy series, retail tariffs and optional behind-the-meter storage, it
// computes the storage schedules, the internal market trades and the clearing
// prices that minimize the community's operation cost over the horizon.
package scheduling

import (
	"context"
	"sort"
	"time"

	"github.com/rec-operation/lem-api/core/model"
)

// MeterSpec is one meter's share of the problem. All series are aligned to
// the horizon, energies in kWh per step, tariffs in EUR/kWh.
type MeterSpec struct {
	ID              string
	EC              []float64
	EG              []float64
	LBuy            []float64
	LSell           []float64
	Storage         *model.StorageParams
	ContractedPower float64 // kVA
}

// Problem is one complete scheduling request.
type Problem struct {
	Horizon      []time.Time
	Meters       []MeterSpec
	LGrid        []float64 // self-consumption tariff per step, EUR/kWh
	Organization model.LemOrganization
}

// MeterSchedule is the computed operation of one meter.
type MeterSchedule struct {
	NetLoad     []float64 // kWh, after storage
	Surplus     []float64 // sold to the retailer, kWh
	Supplied    []float64 // bought from the retailer, kWh
	LemBought   []float64 // kWh
	LemSold     []float64 // kWh
	BessCharge    []float64 // kWh
	BessDischarge []float64 // kWh
	BessContent   []float64 // kWh at end of step
}

// Solution is the outcome of a scheduling run.
type Solution struct {
	Status         model.SolverStatus
	ObjectiveValue float64
	TotalRECCost   float64
	Costs          map[string]float64 // per meter, without degradation
	Schedules      map[string]*MeterSchedule
	Prices         []float64
	Bilateral      []model.BilateralTransaction
}

// Solver computes REC operation schedules.
type Solver interface {
	// SolveDual runs a single collective pass; the returned prices are the
	// pool equilibrium prices of the scheduled community.
	SolveDual(ctx context.Context, p Problem) (*Solution, error)
	// SolveLoop iterates scheduling and market clearing with the given
	// mechanism until the price vector stabilizes.
	SolveLoop(ctx context.Context, p Problem, mechanism model.PricingMechanism, params model.PricingParams) (*Solution, error)
}

// BuildProblem assembles a Problem from the fetched dataset and the request's
// storage and contracted power overrides. Shared meter parameters are merged
// with the regular ones, mirroring how requests declare them separately.
func BuildProblem(ds *model.MeterDataset, params model.MILPParams, organization model.LemOrganization) Problem {
	storage := make(map[string]model.StorageParams)
	for _, s := range params.MeterStorage {
		storage[s.MeterID] = s
	}
	for _, s := range params.SharedMeterStorage {
		storage[s.MeterID] = s
	}
	contracted := make(map[string]float64)
	for _, c := range params.MeterContractedPower {
		contracted[c.MeterID] = c.ContractedPower
	}
	for _, c := range params.SharedMeterContractedPower {
		contracted[c.MeterID] = c.ContractedPower
	}

	ids := make([]string, 0, len(ds.Meters))
	for id := range ds.Meters {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	meters := make([]MeterSpec, 0, len(ids))
	for _, id := range ids {
		points := ds.Meters[id]
		spec := MeterSpec{
			ID:              id,
			EC:              make([]float64, len(points)),
			EG:              make([]float64, len(points)),
			LBuy:            make([]float64, len(points)),
			LSell:           make([]float64, len(points)),
			ContractedPower: model.DefaultContractedPower,
		}
		for t, pt := range points {
			spec.EC[t] = pt.EC
			spec.EG[t] = pt.EG
			spec.LBuy[t] = pt.BuyTariff
			spec.LSell[t] = pt.SellTariff
		}
		if s, ok := storage[id]; ok {
			sc := s
			spec.Storage = &sc
		}
		if cp, ok := contracted[id]; ok {
			spec.ContractedPower = cp
		}
		meters = append(meters, spec)
	}

	return Problem{
		Horizon:      ds.Horizon,
		Meters:       meters,
		LGrid:        ds.GridTariffs,
		Organization: organization,
	}
}
