package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/reag/internal/config"
	"github.com/kailas-cloud/reag/internal/db"
	dbRedis "github.com/kailas-cloud/reag/internal/db/redis"
	logpkg "github.com/kailas-cloud/reag/internal/logger"
	"github.com/kailas-cloud/reag/internal/metrics"
	chiTransport "github.com/kailas-cloud/reag/internal/transport/chi"
	engineuc "github.com/kailas-cloud/reag/internal/usecase/engine"
	healthuc "github.com/kailas-cloud/reag/internal/usecase/health"
	queryuc "github.com/kailas-cloud/reag/internal/usecase/query"
	usageuc "github.com/kailas-cloud/reag/internal/usecase/usage"
	"github.com/kailas-cloud/reag/internal/version"
)

func newServeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logpkg.NewLogger(g.env, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("create logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, g.env, cfg, logger)
		},
	}
}

// serve is the composition root. It blocks until ctx is done, then shuts
// the HTTP server down gracefully.
func serve(ctx context.Context, env string, cfg config.Config, logger *zap.Logger) error {
	logger.Info("Starting reag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("engine_provider", cfg.Engine.Provider),
		zap.String("engine_model", cfg.Engine.Model),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	// The budget store is optional; without it counters live in memory only.
	var counters db.Counters
	var pinger healthuc.DBPinger
	if cfg.Database.Enabled() {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Password: cfg.Database.Password,
		})
		if err != nil {
			return fmt.Errorf("create database store: %w", err)
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			return fmt.Errorf("database not ready: %w", err)
		}
		logger.Info("Connected to database")
		counters, pinger = store, store
	}

	// Register metrics explicitly (no init())
	metrics.RegisterEngineMetrics()
	metrics.RegisterQueryMetrics()
	metrics.RegisterHTTPMetrics()

	budget := buildBudget(ctx, cfg.Budget, cfg.Engine.Provider, counters, logger)

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	var budgetChecker engineuc.BudgetChecker
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetChecker = budget
		budgetReader = budget
	}

	engine, err := buildEngine(cfg.Engine, budgetChecker, logger)
	if err != nil {
		return err
	}
	logger.Info("Engine created",
		zap.String("provider", engine.Provider()),
		zap.String("model", engine.Model()),
		zap.String("filtration_model", cfg.Engine.FiltrationModel),
		zap.Int("batch_size", cfg.Engine.BatchSize),
	)

	policy, err := queryuc.ParsePolicy(cfg.Query.IrrelevantPolicy)
	if err != nil {
		return err
	}
	querySvc := queryuc.New(engine, logger).
		WithPolicy(policy).
		WithInstructions(cfg.Query.Instructions)
	usageSvc := usageuc.New(budgetReader, cfg.Engine.Provider)
	healthSvc := healthuc.New(engine, pinger, healthuc.WithLogger(logger))

	server := chiTransport.NewServer(querySvc, usageSvc, healthSvc, logger)
	handler := newRouter(server, cfg.Auth.APIKeys, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		ReadHeaderTimeout: time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
		return err
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func newRouter(server *chiTransport.Server, apiKeys []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(apiKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)
	return r
}
