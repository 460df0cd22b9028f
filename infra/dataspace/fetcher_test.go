package dataspace

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rec-operation/lem-api/core/model"
	"github.com/rec-operation/lem-api/core/registry"
)

type fakeMeterClient struct {
	ec, eg  map[string][]float64
	partial map[string][]bool
}

func (f *fakeMeterClient) FetchMeter(_ context.Context, meterID string, horizon []time.Time) ([]float64, []float64, []bool, bool, error) {
	ec, ok := f.ec[meterID]
	if !ok {
		return nil, nil, nil, false, nil
	}
	covered := f.partial[meterID]
	if covered == nil {
		covered = make([]bool, len(horizon))
		for i := range covered {
			covered[i] = true
		}
	}
	return ec, f.eg[meterID], covered, true, nil
}

type fakePVProvider struct {
	factor float64
	calls  int
}

func (f *fakePVProvider) GenerationFactors(_ context.Context, _ registry.Location, horizon []time.Time) ([]float64, error) {
	f.calls++
	out := make([]float64, len(horizon))
	for i := range out {
		out[i] = f.factor
	}
	return out, nil
}

func baseParams(origin model.DatasetOrigin, meterIDs ...string) model.BaseParams {
	return model.BaseParams{
		StartDatetime: time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC),
		EndDatetime:   time.Date(2024, 5, 16, 1, 0, 0, 0, time.UTC),
		DatasetOrigin: origin,
		MeterIDs:      meterIDs,
	}
}

func TestFetchAssemblesDataset(t *testing.T) {
	// both INDATA meters have no registered PV; generation comes from PVGIS
	m1, m2 := "0cb815fd4dec", "0cb815fd4bcc"
	client := &fakeMeterClient{
		ec: map[string][]float64{
			m1: {1, 1, 1, 1},
			m2: {0.5, 0.5, 0.5, 0.5},
		},
		eg: map[string][]float64{},
	}
	pv := &fakePVProvider{factor: 0.1}
	f := NewFetcher(client, nil, pv, nil)

	p := baseParams(model.OriginINDATA, m1, m2)
	p.MeterInstalledPVCapacities = []model.InstalledPVCapacity{{MeterID: m1, InstalledPVCapacity: 2}}

	ds, err := f.Fetch(context.Background(), p)
	require.NoError(t, err)
	require.Len(t, ds.Horizon, 4)
	assert.Equal(t, time.Date(2024, 5, 16, 0, 45, 0, 0, time.UTC), ds.Horizon[3])
	assert.False(t, ds.Incomplete())

	require.Contains(t, ds.Meters, m1)
	// capacity override of 2 kWp applied to the PVGIS factor
	assert.InDelta(t, 0.2, ds.Meters[m1][0].EG, 1e-12)
	// no override and no registered PV: zero generation
	assert.Zero(t, ds.Meters[m2][0].EG)
	assert.InDelta(t, 1.0, ds.Meters[m1][0].EC, 1e-12)

	// m1 is "simples", m2 is "bi-horárias" (off-peak at midnight)
	assert.InDelta(t, 0.1665, ds.Meters[m1][0].BuyTariff, 1e-12)
	assert.InDelta(t, 0.1085, ds.Meters[m2][0].BuyTariff, 1e-12)
	assert.InDelta(t, 0.1665*0.25, ds.Meters[m1][0].SellTariff, 1e-12)

	require.Len(t, ds.GridTariffs, 4)
	assert.InDelta(t, 0.0272, ds.GridTariffs[0], 1e-12)

	// the PVGIS profile is fetched once for the whole community
	assert.Equal(t, 1, pv.calls)
}

func TestFetchNormalizesRegisteredPV(t *testing.T) {
	// SEL meter with 9.2 kWp registered
	id := "2e7aa1e3f706"
	other := "00e61ee19628"
	client := &fakeMeterClient{
		ec: map[string][]float64{id: {1, 1, 1, 1}, other: {1, 1, 1, 1}},
		eg: map[string][]float64{id: {2.3, 2.3, 2.3, 2.3}},
	}
	f := NewFetcher(nil, client, &fakePVProvider{}, nil)

	p := baseParams(model.OriginSEL, id, other)
	p.MeterInstalledPVCapacities = []model.InstalledPVCapacity{{MeterID: id, InstalledPVCapacity: 4.6}}

	ds, err := f.Fetch(context.Background(), p)
	require.NoError(t, err)
	// 2.3 kWh from 9.2 kWp, rescaled to 4.6 kWp, stays in kWh
	assert.InDelta(t, 2.3/9.2*4.6, ds.Meters[id][0].EG, 1e-12)
}

func TestFetchReportsMissingMeters(t *testing.T) {
	m1 := "0cb815fd4dec"
	client := &fakeMeterClient{ec: map[string][]float64{m1: {1, 1, 1, 1}}}
	f := NewFetcher(client, nil, &fakePVProvider{}, nil)

	ds, err := f.Fetch(context.Background(), baseParams(model.OriginINDATA, m1, "ghost"))
	require.NoError(t, err)
	assert.Equal(t, []string{"ghost"}, ds.MissingMeterIDs)
	assert.True(t, ds.Incomplete())
	assert.NotContains(t, ds.Meters, "ghost")
}

func TestFetchReportsMissingDatetimes(t *testing.T) {
	m1, m2 := "0cb815fd4dec", "0cb815fd4bcc"
	client := &fakeMeterClient{
		ec: map[string][]float64{
			m1: {1, 1, 0, 0},
			m2: {1, 1, 1, 1},
		},
		partial: map[string][]bool{m1: {true, true, false, false}},
	}
	f := NewFetcher(client, nil, &fakePVProvider{}, nil)

	ds, err := f.Fetch(context.Background(), baseParams(model.OriginINDATA, m1, m2))
	require.NoError(t, err)
	assert.True(t, ds.Incomplete())
	assert.Equal(t, map[string][]string{
		m1: {"2024-05-16T00:30:00Z", "2024-05-16T00:45:00Z"},
	}, ds.MissingPairs())
}

func TestFetchSharedMeters(t *testing.T) {
	m1, m2 := "0cb815fd4dec", "0cb815fd4bcc"
	client := &fakeMeterClient{ec: map[string][]float64{
		m1: {1, 1, 1, 1},
		m2: {1, 1, 1, 1},
	}}
	f := NewFetcher(client, nil, &fakePVProvider{factor: 0.1}, nil)

	p := baseParams(model.OriginINDATA, m1, m2)
	p.SharedMeterIDs = []string{"new-pv"}
	p.SharedMeterPVCapacities = []model.InstalledPVCapacity{{MeterID: "new-pv", InstalledPVCapacity: 10}}

	ds, err := f.Fetch(context.Background(), p)
	require.NoError(t, err)
	require.Contains(t, ds.Meters, "new-pv")
	shared := ds.Meters["new-pv"]
	assert.Zero(t, shared[0].EC)
	assert.InDelta(t, 1.0, shared[0].EG, 1e-12)
	assert.InDelta(t, 0.1665, shared[0].BuyTariff, 1e-12)
	assert.False(t, ds.Incomplete())
}
