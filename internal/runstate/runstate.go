package runstate

import (
	"context"
	"fmt"

	"github.com/wonny/factorpool/internal/contracts"
	"github.com/wonny/factorpool/pkg/redis"
)

// Store keeps the last run record of every factor in Redis. With Redis
// disabled every call is a no-op.
type Store struct {
	cache *redis.Cache
}

// New creates a run-state store
func New(client *redis.Client) *Store {
	return &Store{cache: redis.NewCache(client, client.Prefix())}
}

// Record stores run as the factor's last run of its operation and as its last run overall
func (s *Store) Record(ctx context.Context, run *contracts.FactorRun) error {
	if err := s.cache.Set(ctx, redis.FactorRunKey(run.Factor), run, redis.TTLWeek); err != nil {
		return fmt.Errorf("record run %s: %w", run.Factor, err)
	}
	key := redis.FactorRunKey(run.Factor) + ":" + string(run.Operation)
	if err := s.cache.Set(ctx, key, run, redis.TTLWeek); err != nil {
		return fmt.Errorf("record run %s: %w", run.Factor, err)
	}
	return nil
}

// Last returns the factor's last recorded run
func (s *Store) Last(ctx context.Context, factor string) (*contracts.FactorRun, bool, error) {
	var run contracts.FactorRun
	found, err := s.cache.Get(ctx, redis.FactorRunKey(factor), &run)
	if err != nil || !found {
		return nil, false, err
	}
	return &run, true, nil
}

// LastOf returns the factor's last recorded run of one operation
func (s *Store) LastOf(ctx context.Context, factor string, op contracts.Operation) (*contracts.FactorRun, bool, error) {
	var run contracts.FactorRun
	found, err := s.cache.Get(ctx, redis.FactorRunKey(factor)+":"+string(op), &run)
	if err != nil || !found {
		return nil, false, err
	}
	return &run, true, nil
}
