package scheduling

import (
	"context"
	"math"

	"github.com/rec-operation/lem-api/core/model"
	"github.com/rec-operation/lem-api/core/pricing"
)

// SolveDual runs one collective pass. Meters are first scheduled against the
// community's raw equilibrium prices; the final prices are the equilibrium of
// the scheduled net loads, the marginal value of one more traded kWh.
func (e *DPEngine) SolveDual(ctx context.Context, p Problem) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if degenerate(p) {
		return &Solution{Status: model.StatusInfeasible}, nil
	}

	warmup := pricing.Clear(model.MechanismCrossingValue, e.rawBooks(p), model.PricingParams{})
	schedules := e.scheduleAll(p, warmup)
	prices := pricing.Clear(model.MechanismCrossingValue, e.scheduledBooks(p, schedules), model.PricingParams{})
	e.clearMarket(p, schedules, prices)

	sol := e.assemble(p, schedules, prices)
	e.log.Infof("dual solve finished: %d meters, %d steps, objective %.4f",
		len(p.Meters), len(p.Horizon), sol.ObjectiveValue)
	return sol, nil
}

// SolveLoop iterates the two stages: schedule every meter against the current
// price vector, then clear the market with the chosen mechanism on the
// resulting net loads. Stops when the price vector moves less than the
// tolerance or the iteration cap is reached.
func (e *DPEngine) SolveLoop(ctx context.Context, p Problem, mechanism model.PricingMechanism, params model.PricingParams) (*Solution, error) {
	if degenerate(p) {
		return &Solution{Status: model.StatusInfeasible}, nil
	}

	prices := pricing.Clear(mechanism, e.rawBooks(p), params)
	var schedules map[string]*MeterSchedule
	for iter := 0; iter < e.cfg.LoopMaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		schedules = e.scheduleAll(p, prices)
		next := pricing.Clear(mechanism, e.scheduledBooks(p, schedules), params)
		delta := maxDelta(prices, next)
		prices = next
		e.log.Debugf("loop iteration %d: max price delta %.6f", iter+1, delta)
		if delta < e.cfg.LoopTolerance {
			break
		}
	}
	e.clearMarket(p, schedules, prices)

	sol := e.assemble(p, schedules, prices)
	e.log.Infof("loop solve finished: %d meters, %d steps, objective %.4f",
		len(p.Meters), len(p.Horizon), sol.ObjectiveValue)
	return sol, nil
}

func degenerate(p Problem) bool {
	if len(p.Horizon) == 0 || len(p.Meters) == 0 {
		return true
	}
	for _, m := range p.Meters {
		if len(m.EC) != len(p.Horizon) || len(m.EG) != len(p.Horizon) {
			return true
		}
	}
	return len(p.LGrid) != len(p.Horizon)
}

func (e *DPEngine) scheduleAll(p Problem, prices []float64) map[string]*MeterSchedule {
	schedules := make(map[string]*MeterSchedule, len(p.Meters))
	for _, spec := range p.Meters {
		schedules[spec.ID] = e.scheduleMeter(spec, p.Horizon, prices, p.LGrid)
	}
	return schedules
}

// rawBooks builds the session books from the meters' unscheduled net loads.
func (e *DPEngine) rawBooks(p Problem) []pricing.Book {
	books := make([]pricing.Book, len(p.Horizon))
	for t := range p.Horizon {
		for _, m := range p.Meters {
			net := m.EC[t] - m.EG[t]
			appendOffer(&books[t], m.ID, net, m.LBuy[t], m.LSell[t])
		}
	}
	return books
}

// scheduledBooks builds the session books from the net loads left after
// storage operation.
func (e *DPEngine) scheduledBooks(p Problem, schedules map[string]*MeterSchedule) []pricing.Book {
	books := make([]pricing.Book, len(p.Horizon))
	for t := range p.Horizon {
		for _, m := range p.Meters {
			net := schedules[m.ID].NetLoad[t]
			appendOffer(&books[t], m.ID, net, m.LBuy[t], m.LSell[t])
		}
	}
	return books
}

func appendOffer(book *pricing.Book, id string, net, lBuy, lSell float64) {
	switch {
	case net > 0:
		book.Buys = append(book.Buys, pricing.Offer{Origin: id, Amount: net, Value: lBuy})
	case net < 0:
		book.Sells = append(book.Sells, pricing.Offer{Origin: id, Amount: -net, Value: lSell})
	}
}

// clearMarket matches the community's deficits and surpluses per step and
// splits every meter's net load into retailer and LEM quantities. Cleared
// energy is allocated pro-rata on both sides.
func (e *DPEngine) clearMarket(p Problem, schedules map[string]*MeterSchedule, prices []float64) {
	for t := range p.Horizon {
		var deficit, surplus float64
		for _, m := range p.Meters {
			net := schedules[m.ID].NetLoad[t]
			if net > 0 {
				deficit += net
			} else {
				surplus -= net
			}
		}
		traded := math.Min(deficit, surplus)

		for _, m := range p.Meters {
			s := schedules[m.ID]
			net := s.NetLoad[t]
			if net > 0 {
				bought := 0.0
				if deficit > 0 {
					bought = traded * net / deficit
				}
				s.LemBought[t] = bought
				s.Supplied[t] = net - bought
			} else if net < 0 {
				sold := 0.0
				if surplus > 0 {
					sold = traded * -net / surplus
				}
				s.LemSold[t] = sold
				s.Surplus[t] = -net - sold
			}
		}
	}
}

// bilateralTrades decomposes each step's cleared energy into pairwise
// transactions, pro-rata across providers and receivers.
func bilateralTrades(p Problem, schedules map[string]*MeterSchedule) []model.BilateralTransaction {
	var trades []model.BilateralTransaction
	for t, dt := range p.Horizon {
		for _, provider := range p.Meters {
			sold := schedules[provider.ID].LemSold[t]
			if sold <= 0 {
				continue
			}
			var totalBought float64
			for _, receiver := range p.Meters {
				totalBought += schedules[receiver.ID].LemBought[t]
			}
			if totalBought <= 0 {
				continue
			}
			for _, receiver := range p.Meters {
				bought := schedules[receiver.ID].LemBought[t]
				if bought <= 0 {
					continue
				}
				trades = append(trades, model.BilateralTransaction{
					ProviderMeterID: provider.ID,
					ReceiverMeterID: receiver.ID,
					Datetime:        dt,
					Energy:          sold * bought / totalBought,
				})
			}
		}
	}
	return trades
}

// assemble computes the cost breakdown and packs the solution.
func (e *DPEngine) assemble(p Problem, schedules map[string]*MeterSchedule, prices []float64) *Solution {
	costs := make(map[string]float64, len(p.Meters))
	var total, degradation float64
	for _, m := range p.Meters {
		s := schedules[m.ID]
		var cost float64
		for t := range p.Horizon {
			cost += s.Supplied[t]*m.LBuy[t] - s.Surplus[t]*m.LSell[t]
			cost += s.LemBought[t]*(prices[t]+p.LGrid[t]) - s.LemSold[t]*prices[t]
		}
		costs[m.ID] = cost
		total += cost
		if m.Storage != nil {
			for t := range p.Horizon {
				degradation += m.Storage.DegCost * (s.BessCharge[t] + s.BessDischarge[t])
			}
		}
	}

	sol := &Solution{
		Status:         model.StatusOptimal,
		ObjectiveValue: total + degradation,
		TotalRECCost:   total,
		Costs:          costs,
		Schedules:      schedules,
		Prices:         prices,
	}
	if p.Organization == model.OrganizationBilateral {
		sol.Bilateral = bilateralTrades(p, schedules)
	}
	return sol
}

func maxDelta(a, b []float64) float64 {
	var d float64
	for i := range a {
		d = math.Max(d, math.Abs(a[i]-b[i]))
	}
	return d
}
