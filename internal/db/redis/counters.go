package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/reag/internal/db"
)

// Counter reads an integer counter. A missing key reads as 0.
func (s *Store) Counter(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Do(ctx, s.client.B().Get().Key(key).Build()).AsInt64()
	switch {
	case err == nil:
		return n, nil
	case rueidis.IsRedisNil(err):
		return 0, nil
	default:
		return 0, &db.OpError{Op: db.OpGet, Key: key, Err: err}
	}
}

// AddToCounter sends INCRBY and EXPIRE NX in one round trip.
func (s *Store) AddToCounter(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error) {
	incr := s.client.B().Incrby().Key(key).Increment(delta).Build()
	if ttl < time.Second {
		n, err := s.client.Do(ctx, incr).AsInt64()
		if err != nil {
			return 0, &db.OpError{Op: db.OpIncrBy, Key: key, Err: err}
		}
		return n, nil
	}

	expire := s.client.B().Expire().Key(key).Seconds(int64(ttl / time.Second)).Nx().Build()
	results := s.client.DoMulti(ctx, incr, expire)

	n, err := results[0].AsInt64()
	if err != nil {
		return 0, &db.OpError{Op: db.OpIncrBy, Key: key, Err: err}
	}
	if err := results[1].Error(); err != nil {
		return n, &db.OpError{Op: db.OpExpire, Key: key, Err: err}
	}
	return n, nil
}
