package jobs

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rec-operation/lem-api/core/model"
	"github.com/rec-operation/lem-api/core/orders"
	"github.com/rec-operation/lem-api/core/scheduling"
)

type purgeStore struct {
	mu      sync.Mutex
	cutoffs []time.Time
}

func (s *purgeStore) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cutoffs = append(s.cutoffs, cutoff)
	return 3, nil
}

func (s *purgeStore) CreateOrder(context.Context, *orders.Order) error { return nil }
func (s *purgeStore) Order(context.Context, string) (*orders.Order, error) {
	return nil, orders.ErrOrderNotFound
}
func (s *purgeStore) CompleteOrder(context.Context, string) error { return nil }
func (s *purgeStore) FailOrder(context.Context, string, string, string, []string, map[string][]string) error {
	return nil
}
func (s *purgeStore) SaveVanillaResults(context.Context, string, []model.LemPrice, []model.Offer) error {
	return nil
}
func (s *purgeStore) SaveMILPResults(context.Context, string, *scheduling.Results) error { return nil }
func (s *purgeStore) VanillaResults(context.Context, string) (*model.VanillaOutputs, error) {
	return nil, orders.ErrOrderNotFound
}
func (s *purgeStore) PoolMILPResults(context.Context, string) (*model.PoolMILPOutputs, error) {
	return nil, orders.ErrOrderNotFound
}
func (s *purgeStore) BilateralMILPResults(context.Context, string) (*model.BilateralMILPOutputs, error) {
	return nil, orders.ErrOrderNotFound
}
func (s *purgeStore) Close() error { return nil }

func TestRetentionPurgeCutoff(t *testing.T) {
	store := &purgeStore{}
	r := NewRetention(store, 30*24*time.Hour, nil)

	before := time.Now().UTC().Add(-30 * 24 * time.Hour)
	r.purge()
	after := time.Now().UTC().Add(-30 * 24 * time.Hour)

	require.Len(t, store.cutoffs, 1)
	cutoff := store.cutoffs[0]
	assert.False(t, cutoff.Before(before))
	assert.False(t, cutoff.After(after))
}

func TestRetentionRejectsBadSchedule(t *testing.T) {
	r := NewRetention(&purgeStore{}, time.Hour, nil)
	assert.Error(t, r.Start("not a schedule"))
}

func TestRetentionStartStop(t *testing.T) {
	r := NewRetention(&purgeStore{}, time.Hour, nil)
	require.NoError(t, r.Start("@hourly"))
	r.Stop()
}
