package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rec-operation/lem-api/core/model"
)

func horizon(n int) []time.Time {
	start := time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, n)
	for i := range out {
		out[i] = start.Add(time.Duration(i) * model.Step)
	}
	return out
}

func flat(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func twoMeterProblem(org model.LemOrganization) Problem {
	n := 4
	return Problem{
		Horizon: horizon(n),
		Meters: []MeterSpec{
			{
				ID:              "buyer",
				EC:              flat(n, 1.0),
				EG:              flat(n, 0.0),
				LBuy:            flat(n, 0.20),
				LSell:           flat(n, 0.05),
				ContractedPower: model.DefaultContractedPower,
			},
			{
				ID:              "seller",
				EC:              flat(n, 0.0),
				EG:              flat(n, 0.6),
				LBuy:            flat(n, 0.16),
				LSell:           flat(n, 0.04),
				ContractedPower: model.DefaultContractedPower,
			},
		},
		LGrid:        flat(n, 0.03),
		Organization: org,
	}
}

func TestSolveDualPool(t *testing.T) {
	engine := NewDPEngine(Config{}, nil)
	sol, err := engine.SolveDual(context.Background(), twoMeterProblem(model.OrganizationPool))
	require.NoError(t, err)
	require.Equal(t, model.StatusOptimal, sol.Status)
	require.Len(t, sol.Prices, 4)

	// price lands between the seller's and buyer's opportunity costs
	for _, p := range sol.Prices {
		assert.GreaterOrEqual(t, p, 0.04)
		assert.LessOrEqual(t, p, 0.20)
	}

	// the seller's whole surplus clears internally: demand exceeds supply
	s := sol.Schedules["seller"]
	b := sol.Schedules["buyer"]
	for tIdx := 0; tIdx < 4; tIdx++ {
		assert.InDelta(t, 0.6, s.LemSold[tIdx], 1e-9)
		assert.InDelta(t, 0.0, s.Surplus[tIdx], 1e-9)
		assert.InDelta(t, 0.6, b.LemBought[tIdx], 1e-9)
		assert.InDelta(t, 0.4, b.Supplied[tIdx], 1e-9)
	}

	assert.InDelta(t, sol.TotalRECCost, sol.ObjectiveValue, 1e-9)
	assert.Len(t, sol.Costs, 2)
}

func TestSolveDualDegenerate(t *testing.T) {
	engine := NewDPEngine(Config{}, nil)
	sol, err := engine.SolveDual(context.Background(), Problem{})
	require.NoError(t, err)
	assert.Equal(t, model.StatusInfeasible, sol.Status)
}

func TestSolveLoopConverges(t *testing.T) {
	engine := NewDPEngine(Config{LoopMaxIterations: 5}, nil)
	p := twoMeterProblem(model.OrganizationPool)
	sol, err := engine.SolveLoop(context.Background(), p, model.MechanismMMR, model.PricingParams{MMRDivisor: 2})
	require.NoError(t, err)
	require.Equal(t, model.StatusOptimal, sol.Status)
	require.Len(t, sol.Prices, len(p.Horizon))
	for _, price := range sol.Prices {
		assert.GreaterOrEqual(t, price, 0.0)
	}
}

func TestSolveLoopBilateralTrades(t *testing.T) {
	engine := NewDPEngine(Config{}, nil)
	p := twoMeterProblem(model.OrganizationBilateral)
	sol, err := engine.SolveLoop(context.Background(), p, model.MechanismCrossingValue, model.PricingParams{})
	require.NoError(t, err)
	require.NotEmpty(t, sol.Bilateral)
	for _, tr := range sol.Bilateral {
		assert.Equal(t, "seller", tr.ProviderMeterID)
		assert.Equal(t, "buyer", tr.ReceiverMeterID)
		assert.InDelta(t, 0.6, tr.Energy, 1e-9)
	}
}

func TestStorageShiftsConsumption(t *testing.T) {
	n := 8
	// cheap first half, expensive second half
	lBuy := append(flat(n/2, 0.05), flat(n/2, 0.30)...)
	p := Problem{
		Horizon: horizon(n),
		Meters: []MeterSpec{
			{
				ID:              "bess",
				EC:              flat(n, 1.0),
				EG:              flat(n, 0.0),
				LBuy:            lBuy,
				LSell:           flat(n, 0.01),
				ContractedPower: model.DefaultContractedPower,
				Storage: &model.StorageParams{
					MeterID: "bess",
					EBn:     10,
					PMax:    8,
					SoCMin:  0,
					SoCMax:  100,
					EffBC:   100,
					EffBD:   100,
					DegCost: 0,
				},
			},
			{
				ID:              "passive",
				EC:              flat(n, 0.2),
				EG:              flat(n, 0.0),
				LBuy:            lBuy,
				LSell:           flat(n, 0.01),
				ContractedPower: model.DefaultContractedPower,
			},
		},
		LGrid:        flat(n, 0.0),
		Organization: model.OrganizationPool,
	}

	engine := NewDPEngine(Config{}, nil)
	sol, err := engine.SolveDual(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, model.StatusOptimal, sol.Status)

	s := sol.Schedules["bess"]
	var charged, discharged float64
	for tIdx := 0; tIdx < n/2; tIdx++ {
		charged += s.BessCharge[tIdx]
	}
	for tIdx := n / 2; tIdx < n; tIdx++ {
		discharged += s.BessDischarge[tIdx]
	}
	assert.Greater(t, charged, 0.0, "expected charging while cheap")
	assert.Greater(t, discharged, 0.0, "expected discharging while expensive")

	// a battery can never exceed its content bounds
	for tIdx := 0; tIdx < n; tIdx++ {
		assert.GreaterOrEqual(t, s.BessContent[tIdx], 0.0)
		assert.LessOrEqual(t, s.BessContent[tIdx], 10.0+1e-9)
	}
}

func TestBuildProblemOverrides(t *testing.T) {
	ds := &model.MeterDataset{
		Horizon: horizon(2),
		Meters: map[string][]model.MeterPoint{
			"m1": {{EC: 1}, {EC: 2}},
			"m2": {{EG: 1}, {EG: 2}},
		},
		GridTariffs: flat(2, 0.03),
	}
	params := model.MILPParams{
		MeterStorage:         []model.StorageParams{{MeterID: "m1", EBn: 5, PMax: 2, SoCMax: 100, EffBC: 90, EffBD: 90}},
		MeterContractedPower: []model.ContractedPower{{MeterID: "m2", ContractedPower: 6.9}},
	}

	p := BuildProblem(ds, params, model.OrganizationPool)
	require.Len(t, p.Meters, 2)
	assert.Equal(t, "m1", p.Meters[0].ID)
	require.NotNil(t, p.Meters[0].Storage)
	assert.InDelta(t, 5.0, p.Meters[0].Storage.EBn, 1e-9)
	assert.InDelta(t, model.DefaultContractedPower, p.Meters[0].ContractedPower, 1e-9)
	assert.Nil(t, p.Meters[1].Storage)
	assert.InDelta(t, 6.9, p.Meters[1].ContractedPower, 1e-9)
}

func TestBuildResultsPool(t *testing.T) {
	engine := NewDPEngine(Config{}, nil)
	p := twoMeterProblem(model.OrganizationPool)
	sol, err := engine.SolveDual(context.Background(), p)
	require.NoError(t, err)

	r := BuildResults(p, sol)
	assert.Equal(t, model.StatusOptimal, r.General.MILPStatus)
	assert.Len(t, r.IndividualCosts, 2)
	assert.Len(t, r.MeterInputs, 8)
	assert.Len(t, r.MeterOutputs, 8)
	assert.Len(t, r.Pool, 8)
	assert.Empty(t, r.Bilateral)
	assert.Len(t, r.Prices, 4)
	assert.Len(t, r.PoolSC, 4)
	assert.Empty(t, r.BilateralSC)
}
