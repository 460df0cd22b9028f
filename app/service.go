// Package app wires the service's components from the configuration.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	coremetrics "github.com/rec-operation/lem-api/core/metrics"
	"github.com/rec-operation/lem-api/core/orders"
	"github.com/rec-operation/lem-api/core/scheduling"

	"github.com/rec-operation/lem-api/api"
	"github.com/rec-operation/lem-api/config"
	"github.com/rec-operation/lem-api/infra/dataspace"
	"github.com/rec-operation/lem-api/infra/logger"
	"github.com/rec-operation/lem-api/infra/metrics"
	"github.com/rec-operation/lem-api/infra/mqtt"
	"github.com/rec-operation/lem-api/infra/pvgis"
	"github.com/rec-operation/lem-api/infra/store"
	"github.com/rec-operation/lem-api/jobs"
)

// Service aggregates every running component of the API.
type Service struct {
	cfg       *config.Config
	store     orders.Store
	orders    *orders.Service
	retention *jobs.Retention
	notifier  *mqtt.Notifier
	sink      coremetrics.Sink
	log       logger.Logger
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	db, err := store.NewSQLiteStore(cfg.Store.Path)
	if err != nil {
		return nil, fmt.Errorf("opening order store: %w", err)
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PromAddr != "" {
		sink, err := metrics.NewPromSink(nil)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.Influx.URL != "" {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics.Influx))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	var notifier *mqtt.Notifier
	if cfg.MQTT.Broker != "" {
		notifier, err = mqtt.NewNotifier(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt notifier: %w", err)
		}
	}

	pv := pvgis.NewClient(cfg.PVGIS, logger.New("pvgis"))
	fetcher := dataspace.NewFetcher(
		dataspace.NewIndataClient(cfg.Indata, logger.New("indata")),
		dataspace.NewSELClient(cfg.SEL, logger.New("sel")),
		pv,
		logger.New("dataspace"),
	)
	solver := scheduling.NewDPEngine(cfg.Engine.Config, logger.New("scheduler"))

	var orderNotifier orders.Notifier
	if notifier != nil {
		orderNotifier = notifier
	}
	svc := orders.NewService(db, fetcher, solver, orderNotifier, sink, logger.New("orders"), cfg.Engine.Timeout())

	return &Service{
		cfg:       cfg,
		store:     db,
		orders:    svc,
		retention: jobs.NewRetention(db, cfg.Retention.MaxAgeDuration(), logger.New("retention")),
		notifier:  notifier,
		sink:      sink,
		log:       log,
	}, nil
}

// Orders exposes the workflow service, mainly for the CLI commands.
func (s *Service) Orders() *orders.Service { return s.orders }

// Run serves the API and blocks until the context is cancelled. In-flight
// orders are drained before returning.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Retention.Schedule != "" {
		if err := s.retention.Start(s.cfg.Retention.Schedule); err != nil {
			return fmt.Errorf("starting retention job: %w", err)
		}
	}
	if s.cfg.Metrics.PromAddr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PromAddr, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	srv := &http.Server{
		Addr:    s.cfg.API.Addr,
		Handler: api.Handler(s.cfg.API, s.orders, logger.New("api")),
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Infof("serving API on %s", s.cfg.API.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Errorf("api shutdown: %v", err)
	}
	s.log.Infof("waiting for in-flight orders")
	s.orders.Wait()
	return nil
}

// Close releases every resource held by the service.
func (s *Service) Close() error {
	if s.cfg.Retention.Schedule != "" {
		s.retention.Stop()
	}
	if s.notifier != nil {
		s.notifier.Close()
	}
	if err := s.sink.Close(); err != nil {
		s.log.Errorf("closing metrics sink: %v", err)
	}
	return s.store.Close()
}
