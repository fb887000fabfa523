package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/league-ledger/internal/config"
	"github.com/league-ledger/internal/postgres"
	"github.com/league-ledger/internal/redis"
)

// NameCacheWorker keeps the Redis display-name cache warm from Postgres.
// The cache is read-through anyway; this worker only shortens the cold path
// after deploys and picks up renames without waiting for a miss.
type NameCacheWorker struct {
	cache    *redis.Cache
	postgres *postgres.Repository
	config   *config.CacheRefreshConfig
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	mu       sync.Mutex
	running  bool
}

// NewNameCacheWorker creates a new name-cache refresh worker
func NewNameCacheWorker(
	cache *redis.Cache,
	postgres *postgres.Repository,
	cfg *config.CacheRefreshConfig,
	logger *slog.Logger,
) *NameCacheWorker {
	return &NameCacheWorker{
		cache:    cache,
		postgres: postgres,
		config:   cfg,
		logger:   logger,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins the background refresh process
func (w *NameCacheWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("name cache worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background refresh process
func (w *NameCacheWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("name cache worker stopped")
	return nil
}

// run is the main worker loop
func (w *NameCacheWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			if err := w.Refresh(ctx); err != nil {
				w.logger.Error("name cache refresh failed", "error", err)
			}
		}
	}
}

// Refresh loads all player and team names from Postgres into Redis. Also
// used at startup to warm the cache.
func (w *NameCacheWorker) Refresh(ctx context.Context) error {
	start := time.Now()

	players, err := w.postgres.ListPlayers(ctx)
	if err != nil {
		return err
	}
	if err := w.cache.SetPlayerNames(ctx, players); err != nil {
		return err
	}

	teams, err := w.postgres.ListTeams(ctx)
	if err != nil {
		return err
	}
	if err := w.cache.SetTeamNames(ctx, teams); err != nil {
		return err
	}

	w.logger.Info("name cache refreshed",
		"players", len(players),
		"teams", len(teams),
		"duration", time.Since(start),
	)
	return nil
}

// IsRunning returns whether the worker is currently running
func (w *NameCacheWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}
