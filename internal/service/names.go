package service

import (
	"context"
	"log/slog"

	"github.com/league-ledger/internal/domain"
)

// NameCache is the Redis-backed display-name cache. May be absent.
type NameCache interface {
	GetPlayerNames(ctx context.Context, playerIDs []string) (map[string]string, error)
	SetPlayerNames(ctx context.Context, players []domain.Player) error
}

// NameSource is the authoritative name lookup (Postgres).
type NameSource interface {
	GetPlayerNames(ctx context.Context, playerIDs []string) (map[string]string, error)
}

// Names resolves player display names through the cache with a database
// fallback. Resolution is best-effort: a failed lookup leaves names empty
// rather than failing the read that asked for them.
type Names struct {
	cache  NameCache
	source NameSource
	logger *slog.Logger
}

// NewNames creates a name resolver. cache may be nil.
func NewNames(cache NameCache, source NameSource, logger *slog.Logger) *Names {
	return &Names{cache: cache, source: source, logger: logger}
}

// Players resolves display names for the given player ids.
func (n *Names) Players(ctx context.Context, playerIDs []string) map[string]string {
	if len(playerIDs) == 0 {
		return map[string]string{}
	}

	names := map[string]string{}
	if n.cache != nil {
		cached, err := n.cache.GetPlayerNames(ctx, playerIDs)
		if err != nil {
			n.logger.Warn("name cache lookup failed", "error", err)
		} else {
			names = cached
		}
	}

	var missing []string
	for _, id := range playerIDs {
		if _, ok := names[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return names
	}

	fromDB, err := n.source.GetPlayerNames(ctx, missing)
	if err != nil {
		n.logger.Warn("name lookup failed", "error", err)
		return names
	}

	backfill := make([]domain.Player, 0, len(fromDB))
	for id, name := range fromDB {
		names[id] = name
		backfill = append(backfill, domain.Player{ID: id, Name: name})
	}
	if n.cache != nil && len(backfill) > 0 {
		if err := n.cache.SetPlayerNames(ctx, backfill); err != nil {
			n.logger.Warn("name cache backfill failed", "error", err)
		}
	}
	return names
}
