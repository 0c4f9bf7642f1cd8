// Package budget maps engine token budget counters onto the counter store.
package budget

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// A daily key outlives its day, a monthly key its month.
const (
	DefaultDailyTTL   = 48 * time.Hour
	DefaultMonthlyTTL = 62 * 24 * time.Hour
)

type counters interface {
	Counter(ctx context.Context, key string) (int64, error)
	AddToCounter(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}

// Store implements engine.BudgetStore. The period of a key (":daily:" or
// ":monthly:") selects its TTL.
type Store struct {
	counters counters
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store. Zero TTLs select the defaults.
func New(c counters, dailyTTL, monthTTL time.Duration) *Store {
	if dailyTTL <= 0 {
		dailyTTL = DefaultDailyTTL
	}
	if monthTTL <= 0 {
		monthTTL = DefaultMonthlyTTL
	}
	return &Store{counters: c, dailyTTL: dailyTTL, monthTTL: monthTTL}
}

// IncrBy adds tokens to the period counter.
func (s *Store) IncrBy(ctx context.Context, key string, tokens int64) error {
	if _, err := s.counters.AddToCounter(ctx, key, tokens, s.ttlForKey(key)); err != nil {
		return fmt.Errorf("record budget usage: %w", err)
	}
	return nil
}

// Get returns the tokens spent in the period; 0 for a period with no usage.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	n, err := s.counters.Counter(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("load budget usage: %w", err)
	}
	return n, nil
}

func (s *Store) ttlForKey(key string) time.Duration {
	if strings.Contains(key, ":daily:") {
		return s.dailyTTL
	}
	return s.monthTTL
}
