// Package scheduler drives the round-robin sweep over every process kind
// and owns the long-lived connections to the three external systems.
package scheduler

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/redis/go-redis/v9"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/Nomadcxx/movieindexd/internal/config"
	"github.com/Nomadcxx/movieindexd/internal/loader"
	"github.com/Nomadcxx/movieindexd/internal/logging"
	"github.com/Nomadcxx/movieindexd/internal/process"
	"github.com/Nomadcxx/movieindexd/internal/runner"
	"github.com/Nomadcxx/movieindexd/internal/statestore"
)

// Scheduler owns the three external connections and loops runner.Run over
// every process kind in declaration order, forever.
type Scheduler struct {
	db             *sql.DB
	store          statestore.Store
	loader         *loader.Loader
	bufferSize     int
	restartInterval time.Duration
	logger         *logging.Logger
}

// Open connects to Postgres, Elasticsearch, and Redis once — the
// connections are long-lived, not re-opened per sweep — and bootstraps the
// sink's indexes. The caller owns the returned Scheduler's lifetime; there
// is no separate Close — process exit tears the connections down.
func Open(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Scheduler, error) {
	db, err := sql.Open("pgx", cfg.Postgres.DSN())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	esClient, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.Elastic.Address()},
	})
	if err != nil {
		return nil, fmt.Errorf("open elasticsearch: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address()})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	store := statestore.NewRedisStore(redisClient, logger)
	ldr := loader.New(esClient, logger)

	if err := ldr.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap indexes: %w", err)
	}

	return &Scheduler{
		db:              db,
		store:           store,
		loader:          ldr,
		bufferSize:      cfg.Pipeline.DBBufferSize,
		restartInterval: cfg.Pipeline.RestartInterval(),
		logger:          logger,
	}, nil
}

// Run loops the seven process kinds in fixed declaration order, running
// one runner.Run at a time, then sleeps restartInterval before starting
// the next full round. The sleep is a cancellable time.NewTimer/select,
// not time.Sleep, so ctx cancellation interrupts it immediately.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		for _, spec := range process.All {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.runOne(ctx, spec.Kind)
		}

		timer := time.NewTimer(s.restartInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (s *Scheduler) runOne(ctx context.Context, kind process.Kind) {
	r, err := runner.New(kind, s.db, s.bufferSize, s.store, s.loader, s.logger)
	if err != nil {
		s.logger.Error("scheduler", "failed to construct runner", err, logging.F("kind", string(kind)))
		return
	}
	if err := r.Run(ctx); err != nil {
		s.logger.Error("scheduler", "sweep failed", err, logging.F("kind", string(kind)))
	}
}
