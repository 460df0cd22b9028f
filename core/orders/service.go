package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rec-operation/lem-api/core/metrics"
	"github.com/rec-operation/lem-api/core/model"
	"github.com/rec-operation/lem-api/core/pricing"
	"github.com/rec-operation/lem-api/core/scheduling"
	"github.com/rec-operation/lem-api/infra/logger"
)

// Service runs the order workflow.
type Service struct {
	store    Store
	fetcher  DataFetcher
	solver   scheduling.Solver
	notifier Notifier
	sink     metrics.Sink
	log      logger.Logger

	timeout time.Duration
	wg      sync.WaitGroup
}

// NewService wires the workflow's collaborators. timeout bounds each order's
// background processing.
func NewService(store Store, fetcher DataFetcher, solver scheduling.Solver, notifier Notifier, sink metrics.Sink, log logger.Logger, timeout time.Duration) *Service {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if timeout <= 0 {
		timeout = 10 * time.Minute
	}
	return &Service{
		store:    store,
		fetcher:  fetcher,
		solver:   solver,
		notifier: notifier,
		sink:     sink,
		log:      log,
		timeout:  timeout,
	}
}

// Wait blocks until all in-flight workers finish.
func (s *Service) Wait() {
	s.wg.Wait()
}

// SubmitVanilla registers a price-only order and starts its worker.
func (s *Service) SubmitVanilla(ctx context.Context, mechanism model.PricingMechanism, params model.VanillaParams) (string, error) {
	order := &Order{
		RequestType:      model.RequestVanilla,
		PricingMechanism: mechanism,
	}
	if err := s.create(ctx, order); err != nil {
		return "", err
	}
	s.spawn(order, params.BaseParams, func(ctx context.Context, ds *model.MeterDataset) error {
		books := pricing.BuildBooks(ds)
		prices := pricing.Clear(mechanism, books, params.PricingParams)
		for _, p := range prices {
			s.sink.LemPriceComputed(string(mechanism), p)
		}
		lemPrices, offers := pricing.Outputs(books, prices, ds.Horizon)
		return s.store.SaveVanillaResults(ctx, order.ID, lemPrices, offers)
	})
	return order.ID, nil
}

// SubmitDual registers a collective optimization order and starts its worker.
// Dual orders always use the pool organization.
func (s *Service) SubmitDual(ctx context.Context, params model.DualParams) (string, error) {
	order := &Order{
		RequestType:     model.RequestDual,
		LemOrganization: model.OrganizationPool,
	}
	if err := s.create(ctx, order); err != nil {
		return "", err
	}
	s.spawn(order, params.BaseParams, func(ctx context.Context, ds *model.MeterDataset) error {
		problem := scheduling.BuildProblem(ds, params.MILPParams, model.OrganizationPool)
		sol, err := s.solver.SolveDual(ctx, problem)
		if err != nil {
			return err
		}
		return s.store.SaveMILPResults(ctx, order.ID, scheduling.BuildResults(problem, sol))
	})
	return order.ID, nil
}

// SubmitLoop registers an iterative two-stage order and starts its worker.
func (s *Service) SubmitLoop(ctx context.Context, organization model.LemOrganization, mechanism model.PricingMechanism, params model.LoopParams) (string, error) {
	order := &Order{
		RequestType:      model.RequestLoop,
		LemOrganization:  organization,
		PricingMechanism: mechanism,
	}
	if err := s.create(ctx, order); err != nil {
		return "", err
	}
	s.spawn(order, params.BaseParams, func(ctx context.Context, ds *model.MeterDataset) error {
		problem := scheduling.BuildProblem(ds, params.MILPParams, organization)
		sol, err := s.solver.SolveLoop(ctx, problem, mechanism, params.PricingParams)
		if err != nil {
			return err
		}
		for _, p := range sol.Prices {
			s.sink.LemPriceComputed(string(mechanism), p)
		}
		return s.store.SaveMILPResults(ctx, order.ID, scheduling.BuildResults(problem, sol))
	})
	return order.ID, nil
}

// Order returns the persisted state of an order. ErrOrderNotFound is wrapped
// by the store when the ID is unknown.
func (s *Service) Order(ctx context.Context, id string) (*Order, error) {
	return s.store.Order(ctx, id)
}

// VanillaResults returns the stored outputs of a processed vanilla order.
func (s *Service) VanillaResults(ctx context.Context, id string) (*model.VanillaOutputs, error) {
	return s.store.VanillaResults(ctx, id)
}

// PoolMILPResults returns the stored outputs of a processed dual or pool loop
// order.
func (s *Service) PoolMILPResults(ctx context.Context, id string) (*model.PoolMILPOutputs, error) {
	return s.store.PoolMILPResults(ctx, id)
}

// BilateralMILPResults returns the stored outputs of a processed bilateral
// loop order.
func (s *Service) BilateralMILPResults(ctx context.Context, id string) (*model.BilateralMILPOutputs, error) {
	return s.store.BilateralMILPResults(ctx, id)
}

func (s *Service) create(ctx context.Context, order *Order) error {
	id, err := NewOrderID()
	if err != nil {
		return err
	}
	order.ID = id
	order.CreatedAt = time.Now().UTC()
	if err := s.store.CreateOrder(ctx, order); err != nil {
		return fmt.Errorf("persisting order: %w", err)
	}
	s.sink.OrderSubmitted(string(order.RequestType))
	s.log.Infof("order %s accepted (%s)", order.ID, order.RequestType)
	return nil
}

// spawn runs the order's computation in the background. The worker owns its
// own context so a finished HTTP request does not cancel it.
func (s *Service) spawn(order *Order, base model.BaseParams, compute func(context.Context, *model.MeterDataset) error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		started := time.Now()

		ok, err := s.process(ctx, order, base, compute)
		if err != nil {
			s.log.Errorf("order %s failed: %v", order.ID, err)
			s.sink.OrderFailed(string(order.RequestType), CodeInternal)
			if ferr := s.store.FailOrder(ctx, order.ID, CodeInternal, err.Error(), nil, nil); ferr != nil {
				s.log.Errorf("order %s: recording failure: %v", order.ID, ferr)
			}
			s.notify(ctx, order, true)
			return
		}
		if ok {
			s.sink.OrderCompleted(string(order.RequestType), time.Since(started))
		}
		s.notify(ctx, order, !ok)
	}()
}

// process runs the order to completion. It returns false when the order was
// closed through the missing-data ladder instead of producing results.
func (s *Service) process(ctx context.Context, order *Order, base model.BaseParams, compute func(context.Context, *model.MeterDataset) error) (bool, error) {
	s.log.Infof("order %s: fetching data from dataspace", order.ID)
	ds, err := s.fetcher.Fetch(ctx, base)
	if err != nil {
		return false, fmt.Errorf("fetching dataspace data: %w", err)
	}

	if len(ds.MissingMeterIDs) > 0 {
		s.log.Warnf("order %s: missing meter IDs in dataspace: %v", order.ID, ds.MissingMeterIDs)
		s.sink.OrderFailed(string(order.RequestType), CodeMissingMeters)
		return false, s.store.FailOrder(ctx, order.ID, CodeMissingMeters, MsgMissingMeters, ds.MissingMeterIDs, nil)
	}
	if missing := ds.MissingPairs(); len(missing) > 0 {
		s.log.Warnf("order %s: missing data points in dataspace", order.ID)
		s.sink.OrderFailed(string(order.RequestType), CodeMissingData)
		return false, s.store.FailOrder(ctx, order.ID, CodeMissingData, MsgMissingData, nil, missing)
	}

	if err := compute(ctx, ds); err != nil {
		return false, fmt.Errorf("computing results: %w", err)
	}
	if err := s.store.CompleteOrder(ctx, order.ID); err != nil {
		return false, fmt.Errorf("marking order processed: %w", err)
	}
	s.log.Infof("order %s processed", order.ID)
	return true, nil
}

func (s *Service) notify(ctx context.Context, order *Order, failed bool) {
	if err := s.notifier.OrderCompleted(ctx, order.ID, order.RequestType, failed); err != nil {
		s.log.Warnf("order %s: completion notification failed: %v", order.ID, err)
	}
}
