package health

import "context"

// EngineChecker probes the reasoning engine's API.
type EngineChecker interface {
	HealthCheck(ctx context.Context) error
}

// DBPinger probes the budget counter store.
type DBPinger interface {
	Ping(ctx context.Context) error
}
