package scheduling

import (
	"math"

	"github.com/rec-operation/lem-api/core/model"
)

// Results holds a solution flattened into the API's record shapes, ready to
// be persisted.
type Results struct {
	General         model.GeneralMILPOutputs
	IndividualCosts []model.IndividualCost
	MeterInputs     []model.MeterInput
	MeterOutputs    []model.MeterOutput
	Pool            []model.PoolTransaction
	Bilateral       []model.BilateralTransaction
	Prices          []model.LemPrice
	PoolSC          []model.PoolSelfConsumptionTariff
	BilateralSC     []model.BilateralSelfConsumptionTariff
}

// BuildResults flattens a solution into storable records. Energies are
// rounded to Wh resolution, monetary values to cents.
func BuildResults(p Problem, sol *Solution) *Results {
	r := &Results{
		General: model.GeneralMILPOutputs{
			ObjectiveValue: round2(sol.ObjectiveValue),
			MILPStatus:     sol.Status,
			TotalRECCost:   round2(sol.TotalRECCost),
		},
	}
	if sol.Status != model.StatusOptimal {
		return r
	}

	for _, m := range p.Meters {
		r.IndividualCosts = append(r.IndividualCosts, model.IndividualCost{
			MeterID:        m.ID,
			IndividualCost: round2(sol.Costs[m.ID]),
		})
	}

	for t, dt := range p.Horizon {
		r.Prices = append(r.Prices, model.LemPrice{Datetime: dt, Value: sol.Prices[t]})
		if p.Organization == model.OrganizationPool {
			r.PoolSC = append(r.PoolSC, model.PoolSelfConsumptionTariff{
				Datetime:              dt,
				SelfConsumptionTariff: p.LGrid[t],
			})
		} else {
			for _, provider := range p.Meters {
				for _, receiver := range p.Meters {
					if provider.ID == receiver.ID {
						continue
					}
					r.BilateralSC = append(r.BilateralSC, model.BilateralSelfConsumptionTariff{
						Datetime:              dt,
						ProviderMeterID:       provider.ID,
						ReceiverMeterID:       receiver.ID,
						SelfConsumptionTariff: p.LGrid[t],
					})
				}
			}
		}

		for _, m := range p.Meters {
			s := sol.Schedules[m.ID]
			r.MeterInputs = append(r.MeterInputs, model.MeterInput{
				MeterID:         m.ID,
				Datetime:        dt,
				EnergyGenerated: round3(m.EG[t]),
				EnergyConsumed:  round3(m.EC[t]),
				BuyTariff:       round2(m.LBuy[t]),
				SellTariff:      round2(m.LSell[t]),
			})
			r.MeterOutputs = append(r.MeterOutputs, model.MeterOutput{
				MeterID:              m.ID,
				Datetime:             dt,
				EnergySurplus:        round3(s.Surplus[t]),
				EnergySupplied:       round3(s.Supplied[t]),
				NetLoad:              round3(s.NetLoad[t]),
				BessEnergyCharged:    round3(s.BessCharge[t]),
				BessEnergyDischarged: round3(s.BessDischarge[t]),
				BessEnergyContent:    round3(s.BessContent[t]),
			})
			if p.Organization == model.OrganizationPool {
				r.Pool = append(r.Pool, model.PoolTransaction{
					MeterID:         m.ID,
					Datetime:        dt,
					EnergyPurchased: round3(s.LemBought[t]),
					EnergySold:      round3(s.LemSold[t]),
					SoldPosition:    round3(s.LemSold[t] - s.LemBought[t]),
				})
			}
		}
	}

	if p.Organization == model.OrganizationBilateral {
		for _, tr := range sol.Bilateral {
			tr.Energy = round3(tr.Energy)
			r.Bilateral = append(r.Bilateral, tr)
		}
	}
	return r
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
