package orders

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rec-operation/lem-api/core/model"
	"github.com/rec-operation/lem-api/core/scheduling"
)

type fakeStore struct {
	mu      sync.Mutex
	orders  map[string]*Order
	vanilla map[string]*model.VanillaOutputs
	milp    map[string]*scheduling.Results
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:  make(map[string]*Order),
		vanilla: make(map[string]*model.VanillaOutputs),
		milp:    make(map[string]*scheduling.Results),
	}
}

func (f *fakeStore) CreateOrder(_ context.Context, o *Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *o
	f.orders[o.ID] = &cp
	return nil
}

func (f *fakeStore) Order(_ context.Context, id string) (*Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (f *fakeStore) CompleteOrder(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.orders[id].Processed = true
	return nil
}

func (f *fakeStore) FailOrder(_ context.Context, id, code, message string, missingIDs []string, missingDataPoints map[string][]string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	o := f.orders[id]
	o.Processed = true
	o.Error = code
	o.Message = message
	o.MissingIDs = missingIDs
	o.MissingDataPoints = missingDataPoints
	return nil
}

func (f *fakeStore) SaveVanillaResults(_ context.Context, id string, prices []model.LemPrice, offers []model.Offer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.vanilla[id] = &model.VanillaOutputs{OrderID: id, LemPrices: prices, Offers: offers}
	return nil
}

func (f *fakeStore) SaveMILPResults(_ context.Context, id string, r *scheduling.Results) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.milp[id] = r
	return nil
}

func (f *fakeStore) VanillaResults(_ context.Context, id string) (*model.VanillaOutputs, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out, ok := f.vanilla[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return out, nil
}

func (f *fakeStore) PoolMILPResults(context.Context, string) (*model.PoolMILPOutputs, error) {
	return nil, ErrOrderNotFound
}

func (f *fakeStore) BilateralMILPResults(context.Context, string) (*model.BilateralMILPOutputs, error) {
	return nil, ErrOrderNotFound
}

func (f *fakeStore) PurgeBefore(context.Context, time.Time) (int64, error) { return 0, nil }
func (f *fakeStore) Close() error                                          { return nil }

type fakeFetcher struct {
	ds  *model.MeterDataset
	err error
}

func (f *fakeFetcher) Fetch(context.Context, model.BaseParams) (*model.MeterDataset, error) {
	return f.ds, f.err
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []bool
}

func (n *recordingNotifier) OrderCompleted(_ context.Context, _ string, _ model.RequestType, failed bool) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, failed)
	return nil
}

func completeDataset() *model.MeterDataset {
	start := time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC)
	return &model.MeterDataset{
		Horizon: []time.Time{start, start.Add(model.Step)},
		Meters: map[string][]model.MeterPoint{
			"m1": {{EC: 1, BuyTariff: 0.2, SellTariff: 0.05}, {EC: 1, BuyTariff: 0.2, SellTariff: 0.05}},
			"m2": {{EG: 1, BuyTariff: 0.16, SellTariff: 0.04}, {EG: 1, BuyTariff: 0.16, SellTariff: 0.04}},
		},
		GridTariffs: []float64{0.03, 0.03},
	}
}

func vanillaParams() model.VanillaParams {
	return model.VanillaParams{
		BaseParams: model.BaseParams{
			StartDatetime: time.Date(2024, 5, 16, 0, 0, 0, 0, time.UTC),
			EndDatetime:   time.Date(2024, 5, 17, 0, 0, 0, 0, time.UTC),
			DatasetOrigin: model.OriginSEL,
			MeterIDs:      []string{"m1", "m2"},
		},
		PricingParams: model.PricingParams{MMRDivisor: 2},
	}
}

func TestNewOrderIDLength(t *testing.T) {
	id, err := NewOrderID()
	require.NoError(t, err)
	assert.Len(t, id, 60)

	other, err := NewOrderID()
	require.NoError(t, err)
	assert.NotEqual(t, id, other)
}

func TestSubmitVanillaProcessesOrder(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := NewService(store, &fakeFetcher{ds: completeDataset()}, scheduling.NewDPEngine(scheduling.Config{}, nil), notifier, nil, nil, time.Minute)

	id, err := svc.SubmitVanilla(context.Background(), model.MechanismCrossingValue, vanillaParams())
	require.NoError(t, err)
	assert.Len(t, id, 60)
	svc.Wait()

	order, err := svc.Order(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, order.Processed)
	assert.Empty(t, order.Error)

	out, err := svc.VanillaResults(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, out.LemPrices, 2)
	assert.NotEmpty(t, out.Offers)

	require.Len(t, notifier.events, 1)
	assert.False(t, notifier.events[0])
}

func TestSubmitVanillaMissingMeterIDs(t *testing.T) {
	ds := completeDataset()
	ds.MissingMeterIDs = []string{"m3"}
	store := newFakeStore()
	svc := NewService(store, &fakeFetcher{ds: ds}, scheduling.NewDPEngine(scheduling.Config{}, nil), nil, nil, nil, time.Minute)

	id, err := svc.SubmitVanilla(context.Background(), model.MechanismCrossingValue, vanillaParams())
	require.NoError(t, err)
	svc.Wait()

	order, err := svc.Order(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, order.Processed)
	assert.Equal(t, CodeMissingMeters, order.Error)
	assert.Equal(t, []string{"m3"}, order.MissingIDs)
}

func TestSubmitVanillaMissingDataPoints(t *testing.T) {
	ds := completeDataset()
	ds.MissingDatetimes = map[string][]string{"m1": {"2024-05-16T00:15:00Z"}, "m2": {}}
	store := newFakeStore()
	svc := NewService(store, &fakeFetcher{ds: ds}, scheduling.NewDPEngine(scheduling.Config{}, nil), nil, nil, nil, time.Minute)

	id, err := svc.SubmitVanilla(context.Background(), model.MechanismCrossingValue, vanillaParams())
	require.NoError(t, err)
	svc.Wait()

	order, err := svc.Order(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, CodeMissingData, order.Error)
	require.Contains(t, order.MissingDataPoints, "m1")
	assert.NotContains(t, order.MissingDataPoints, "m2")
}

func TestSubmitVanillaFetchError(t *testing.T) {
	store := newFakeStore()
	notifier := &recordingNotifier{}
	svc := NewService(store, &fakeFetcher{err: errors.New("connector down")}, scheduling.NewDPEngine(scheduling.Config{}, nil), notifier, nil, nil, time.Minute)

	id, err := svc.SubmitVanilla(context.Background(), model.MechanismCrossingValue, vanillaParams())
	require.NoError(t, err)
	svc.Wait()

	order, err := svc.Order(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, CodeInternal, order.Error)
	require.Len(t, notifier.events, 1)
	assert.True(t, notifier.events[0])
}

func TestSubmitDualStoresResults(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, &fakeFetcher{ds: completeDataset()}, scheduling.NewDPEngine(scheduling.Config{}, nil), nil, nil, nil, time.Minute)

	params := model.DualParams{MILPParams: model.MILPParams{BaseParams: vanillaParams().BaseParams}}
	id, err := svc.SubmitDual(context.Background(), params)
	require.NoError(t, err)
	svc.Wait()

	order, err := svc.Order(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, order.Processed)
	assert.Empty(t, order.Error)

	store.mu.Lock()
	defer store.mu.Unlock()
	r, ok := store.milp[id]
	require.True(t, ok)
	assert.Equal(t, model.StatusOptimal, r.General.MILPStatus)
	assert.Len(t, r.Prices, 2)
}
