// Package jobs runs the service's periodic maintenance tasks.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/rec-operation/lem-api/core/orders"
	"github.com/rec-operation/lem-api/infra/logger"
)

// Retention periodically purges orders older than the configured age.
type Retention struct {
	store  orders.Store
	maxAge time.Duration
	log    logger.Logger
	cron   *cron.Cron
}

// NewRetention builds the purge job.
func NewRetention(store orders.Store, maxAge time.Duration, log logger.Logger) *Retention {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Retention{store: store, maxAge: maxAge, log: log, cron: cron.New()}
}

// Start schedules the purge with the given cron expression and runs it until
// Stop is called.
func (r *Retention) Start(schedule string) error {
	if _, err := r.cron.AddFunc(schedule, r.purge); err != nil {
		return err
	}
	r.cron.Start()
	r.log.Infof("retention job scheduled (%s, max age %s)", schedule, r.maxAge)
	return nil
}

// Stop halts the scheduler and waits for a running purge to finish.
func (r *Retention) Stop() {
	<-r.cron.Stop().Done()
}

func (r *Retention) purge() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().UTC().Add(-r.maxAge)
	n, err := r.store.PurgeBefore(ctx, cutoff)
	if err != nil {
		r.log.Errorf("purging orders: %v", err)
		return
	}
	if n > 0 {
		r.log.Infof("purged %d orders created before %s", n, cutoff.Format(time.RFC3339))
	}
}
