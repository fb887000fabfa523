package redis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/league-ledger/internal/config"
	"github.com/league-ledger/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Cache provides Redis-backed display-name caching and vote rate limiting.
// Everything in here is best-effort: callers degrade gracefully when Redis
// is unavailable, since the ledger's source of truth lives in Postgres.
type Cache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewCache creates a new Redis cache service
func NewCache(cfg *config.RedisConfig, logger *slog.Logger) (*Cache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return &Cache{
		client: client,
		logger: logger,
	}, nil
}

// Close closes the Redis connection
func (c *Cache) Close() error {
	return c.client.Close()
}

// Client returns the underlying Redis client
func (c *Cache) Client() *redis.Client {
	return c.client
}

func (c *Cache) playerNamesKey() string { return "names:players" }
func (c *Cache) teamNamesKey() string   { return "names:teams" }

func (c *Cache) rateLimitKey(deviceID string) string {
	return fmt.Sprintf("ratelimit:vote:%s", deviceID)
}

// SetPlayerNames stores player display names in the cache.
func (c *Cache) SetPlayerNames(ctx context.Context, players []domain.Player) error {
	if len(players) == 0 {
		return nil
	}
	fields := make([]any, 0, len(players)*2)
	for _, p := range players {
		fields = append(fields, p.ID, p.Name)
	}
	if err := c.client.HSet(ctx, c.playerNamesKey(), fields...).Err(); err != nil {
		return fmt.Errorf("setting player names: %w", err)
	}
	return nil
}

// SetTeamNames stores team display names in the cache.
func (c *Cache) SetTeamNames(ctx context.Context, teams []domain.Team) error {
	if len(teams) == 0 {
		return nil
	}
	fields := make([]any, 0, len(teams)*2)
	for _, t := range teams {
		fields = append(fields, t.ID, t.Name)
	}
	if err := c.client.HSet(ctx, c.teamNamesKey(), fields...).Err(); err != nil {
		return fmt.Errorf("setting team names: %w", err)
	}
	return nil
}

// GetPlayerNames resolves cached player names for the given ids. Missing
// entries are simply absent from the result.
func (c *Cache) GetPlayerNames(ctx context.Context, playerIDs []string) (map[string]string, error) {
	return c.lookupNames(ctx, c.playerNamesKey(), playerIDs)
}

// GetTeamNames resolves cached team names for the given ids.
func (c *Cache) GetTeamNames(ctx context.Context, teamIDs []string) (map[string]string, error) {
	return c.lookupNames(ctx, c.teamNamesKey(), teamIDs)
}

func (c *Cache) lookupNames(ctx context.Context, key string, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return map[string]string{}, nil
	}
	values, err := c.client.HMGet(ctx, key, ids...).Result()
	if err != nil {
		return nil, fmt.Errorf("getting names: %w", err)
	}

	names := make(map[string]string, len(ids))
	for i, v := range values {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s != "" {
			names[ids[i]] = s
		}
	}
	return names, nil
}

// AllowVoteAttempt counts a vote attempt for a device and reports whether it
// is still within the limit. The counter and its expiry are set in one
// pipeline; the window starts at the first attempt.
func (c *Cache) AllowVoteAttempt(ctx context.Context, deviceID string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	key := c.rateLimitKey(deviceID)

	pipe := c.client.Pipeline()
	countCmd := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("counting vote attempt: %w", err)
	}

	return countCmd.Val() <= int64(limit), nil
}
