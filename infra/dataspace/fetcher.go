// Package dataspace assembles computation datasets from the INDATA and SEL
// metering endpoints, the PVGIS service and the regulated tariff tables.
package dataspace

import (
	"context"
	"fmt"
	"time"

	"github.com/rec-operation/lem-api/core/model"
	"github.com/rec-operation/lem-api/core/registry"
	"github.com/rec-operation/lem-api/core/tariffs"
	"github.com/rec-operation/lem-api/infra/logger"
)

// meterClient retrieves one meter's energy series from a dataset origin.
type meterClient interface {
	FetchMeter(ctx context.Context, meterID string, horizon []time.Time) (ec, eg []float64, covered []bool, found bool, err error)
}

// pvProvider estimates normalized PV generation profiles.
type pvProvider interface {
	GenerationFactors(ctx context.Context, loc registry.Location, horizon []time.Time) ([]float64, error)
}

// Fetcher implements the data retrieval step of every computation: metered
// series per meter, PV profiles for meters without their own generation and
// the applicable retail tariffs.
type Fetcher struct {
	indata meterClient
	sel    meterClient
	pv     pvProvider
	log    logger.Logger
}

// NewFetcher wires the per-origin connectors and the PVGIS client.
func NewFetcher(indata, sel meterClient, pv pvProvider, log logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Fetcher{indata: indata, sel: sel, pv: pv, log: log}
}

// Fetch assembles the dataset of a request. Meters absent from the dataspace
// and steps without data are reported in the dataset rather than failing the
// call; only transport and upstream errors return an error.
func (f *Fetcher) Fetch(ctx context.Context, p model.BaseParams) (*model.MeterDataset, error) {
	// requests carry civil dates; the last step starts one step before the end
	horizon := model.HorizonSteps(p.StartDatetime, p.EndDatetime.Add(-model.Step))
	if len(horizon) == 0 {
		return nil, fmt.Errorf("empty horizon")
	}

	client := f.indata
	if p.DatasetOrigin == model.OriginSEL {
		client = f.sel
	}

	// PVGIS profiles are shared by every meter of the community
	var factors []float64
	profile := func() ([]float64, error) {
		if factors != nil {
			return factors, nil
		}
		var err error
		factors, err = f.pv.GenerationFactors(ctx, registry.LocationOf(p.DatasetOrigin), horizon)
		if err != nil {
			return nil, fmt.Errorf("fetching PVGIS profile: %w", err)
		}
		return factors, nil
	}

	ds := &model.MeterDataset{
		Horizon:          horizon,
		Meters:           make(map[string][]model.MeterPoint, len(p.MeterIDs)+len(p.SharedMeterIDs)),
		GridTariffs:      tariffs.SelfConsumptionSeries(horizon),
		MissingDatetimes: make(map[string][]string),
	}

	for _, id := range p.MeterIDs {
		ec, eg, covered, found, err := client.FetchMeter(ctx, id, horizon)
		if err != nil {
			return nil, fmt.Errorf("fetching meter %s: %w", id, err)
		}
		if !found {
			f.log.Warnf("meter %s not found in the %s dataspace", id, p.DatasetOrigin)
			ds.MissingMeterIDs = append(ds.MissingMeterIDs, id)
			continue
		}
		if missing := missingDatetimes(horizon, covered); len(missing) > 0 {
			f.log.Warnf("meter %s: %d of %d steps missing", id, len(missing), len(horizon))
			ds.MissingDatetimes[id] = missing
		}

		registeredKWp, _ := registry.InstalledPVOf(p.DatasetOrigin, id)
		capacity := pvCapacity(p.MeterInstalledPVCapacities, id, registeredKWp)
		if registeredKWp == 0 {
			// no own generation; model the requested capacity from PVGIS
			if eg, err = scaledProfile(profile, capacity, len(horizon)); err != nil {
				return nil, err
			}
		} else {
			// normalize the kWh series by the registered capacity, then scale
			for i := range eg {
				eg[i] = eg[i] / registeredKWp * capacity
			}
		}

		cycle, ok := registry.TariffCycleOf(p.DatasetOrigin, id)
		if !ok {
			cycle = registry.CycleSimples
		}
		ds.Meters[id] = meterSeries(horizon, ec, eg, cycle)
	}

	sharedCycle, ok := registry.TariffCycleOf(p.DatasetOrigin, registry.SharedMeterKey)
	if !ok {
		sharedCycle = registry.CycleSimples
	}
	for _, id := range p.SharedMeterIDs {
		capacity := pvCapacity(p.SharedMeterPVCapacities, id, 0)
		eg, err := scaledProfile(profile, capacity, len(horizon))
		if err != nil {
			return nil, err
		}
		ds.Meters[id] = meterSeries(horizon, nil, eg, sharedCycle)
	}

	return ds, nil
}

// pvCapacity resolves the installed PV capacity of a meter: the request's
// override when present, the fallback otherwise.
func pvCapacity(overrides []model.InstalledPVCapacity, meterID string, fallback float64) float64 {
	for _, o := range overrides {
		if o.MeterID == meterID {
			return o.InstalledPVCapacity
		}
	}
	return fallback
}

func scaledProfile(profile func() ([]float64, error), capacity float64, steps int) ([]float64, error) {
	eg := make([]float64, steps)
	if capacity == 0 {
		return eg, nil
	}
	factors, err := profile()
	if err != nil {
		return nil, err
	}
	for i, fac := range factors {
		eg[i] = fac * capacity
	}
	return eg, nil
}

func meterSeries(horizon []time.Time, ec, eg []float64, cycle registry.TariffCycle) []model.MeterPoint {
	points := make([]model.MeterPoint, len(horizon))
	for i, t := range horizon {
		buy := tariffs.BuyRate(cycle, t)
		p := model.MeterPoint{BuyTariff: buy, SellTariff: buy * tariffs.SellRatio}
		if ec != nil {
			p.EC = ec[i]
		}
		if eg != nil {
			p.EG = eg[i]
		}
		points[i] = p
	}
	return points
}
