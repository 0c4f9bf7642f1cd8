package health

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/reag/internal/logger"
)

// Status is the aggregated health of the service.
type Status string

const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded" // budget store down; queries still run
	Unhealthy Status = "error"    // engine unreachable
)

// CheckResult is one component's outcome.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	ComponentEngine   = "engine"
	ComponentDatabase = "database"
)

const defaultCheckTimeout = 5 * time.Second

// Report aggregates component outcomes. Err joins the failures, nil when healthy.
type Report struct {
	Status Status
	Checks map[string]CheckResult
	Err    error
}

// Service runs the component probes concurrently.
type Service struct {
	engine  EngineChecker
	db      DBPinger
	timeout time.Duration
	logger  *zap.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithTimeout bounds each probe.
func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithLogger logs failing probes at warn level.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = logger.OrNop(l) }
}

// New creates a Service. db is nil when no budget store is configured.
func New(engine EngineChecker, db DBPinger, opts ...Option) *Service {
	s := &Service{engine: engine, db: db, timeout: defaultCheckTimeout, logger: zap.NewNop()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Check probes every configured component.
func (s *Service) Check(ctx context.Context) Report {
	probes := map[string]func(context.Context) error{
		ComponentEngine: s.engine.HealthCheck,
	}
	if s.db != nil {
		probes[ComponentDatabase] = s.db.Ping
	}

	var (
		mu     sync.Mutex
		failed = make(map[string]error, len(probes))
	)
	var g errgroup.Group
	for name, probe := range probes {
		g.Go(func() error {
			pctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			if err := probe(pctx); err != nil {
				mu.Lock()
				failed[name] = err
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	report := Report{Status: Healthy, Checks: make(map[string]CheckResult, len(probes))}
	var errs []error
	for name := range probes {
		err, bad := failed[name]
		if !bad {
			report.Checks[name] = CheckOK
			continue
		}
		report.Checks[name] = CheckError
		errs = append(errs, fmt.Errorf("%s: %w", name, err))
		s.logger.Warn("Health probe failed", zap.String("component", name), zap.Error(err))
	}

	switch {
	case failed[ComponentEngine] != nil:
		report.Status = Unhealthy
	case len(failed) > 0:
		report.Status = Degraded
	}
	report.Err = errors.Join(errs...)
	return report
}
