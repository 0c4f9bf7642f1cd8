// Package redis keeps token counters in Redis, or any RESP server, via rueidis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/reag/internal/db"
)

var _ db.Store = (*Store)(nil)

const (
	clientName     = "reag"
	firstPingDelay = 50 * time.Millisecond
	maxPingDelay   = time.Second
)

// Config holds connection parameters.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store is a db.Store backed by a rueidis client.
type Store struct {
	client rueidis.Client
}

// NewStore connects to the configured servers. Client-side caching is off:
// counters are written from several replicas.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("redis: at least one address is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		ClientName:   clientName,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("redis: connect %v: %w", cfg.Addrs, err)
	}
	return newStore(client), nil
}

func newStore(c rueidis.Client) *Store { return &Store{client: c} }

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return &db.OpError{Op: db.OpPing, Err: err}
	}
	return nil
}

// Close releases the connections.
func (s *Store) Close() { s.client.Close() }

// WaitForReady pings with a doubling delay until the server answers or
// timeout elapses. The last ping error is kept in the returned error.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	delay := firstPingDelay
	timer := time.NewTimer(delay)
	defer timer.Stop()

	var lastErr error
	for {
		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("redis not ready: %w (last ping: %v)", ctx.Err(), lastErr)
			}
			return fmt.Errorf("redis not ready: %w", ctx.Err())
		case <-timer.C:
			if lastErr = s.Ping(ctx); lastErr == nil {
				return nil
			}
			delay = min(delay*2, maxPingDelay)
			timer.Reset(delay)
		}
	}
}
