// Package db defines the storage contract for persisted token counters.
package db

import (
	"context"
	"time"
)

// Store is what the server opens at startup. Consumers depend on the narrow
// interfaces below.
type Store interface {
	Pinger
	Counters
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Counters holds integer counters that expire together with the period they count.
type Counters interface {
	// Counter returns the value of key, or 0 when the key does not exist.
	Counter(ctx context.Context, key string) (int64, error)
	// AddToCounter adds delta to key and returns the new value. The first write
	// of a key fixes its expiry to ttl; later writes keep it.
	AddToCounter(ctx context.Context, key string, delta int64, ttl time.Duration) (int64, error)
}
