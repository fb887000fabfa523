package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/league-ledger/internal/config"
	"github.com/league-ledger/internal/domain"
	"github.com/league-ledger/internal/ranking"
	"github.com/league-ledger/internal/standings"
)

// LedgerStore is the read-only query surface the competition service needs
// over the match/event/registration records.
type LedgerStore interface {
	CompetitionExists(ctx context.Context, competitionID string) (bool, error)
	PlayerExists(ctx context.Context, playerID string) (bool, error)
	ListCompetitions(ctx context.Context) ([]domain.Competition, error)
	ListCompetitionTeams(ctx context.Context, competitionID string) ([]domain.Team, error)
	ListFinishedMatches(ctx context.Context, competitionID string) ([]domain.Match, error)
	GetMatch(ctx context.Context, matchID string) (*domain.Match, error)
	ListCompetitionEvents(ctx context.Context, competitionID string) ([]domain.MatchEvent, error)
	ListPlayerEvents(ctx context.Context, playerID string) ([]domain.MatchEvent, error)
}

// CompetitionService serves the derived read models: standings and rankings.
// Every result is recomputed from the event log on each call; the only
// consistency requirement on the store is a point-in-time-consistent read.
type CompetitionService struct {
	store  LedgerStore
	names  *Names
	config *config.RankingsConfig
	logger *slog.Logger
}

// NewCompetitionService creates a new competition service
func NewCompetitionService(store LedgerStore, names *Names, cfg *config.RankingsConfig, logger *slog.Logger) *CompetitionService {
	return &CompetitionService{
		store:  store,
		names:  names,
		config: cfg,
		logger: logger,
	}
}

func (s *CompetitionService) clampLimit(limit int) int {
	if limit <= 0 {
		return s.config.DefaultLimit
	}
	if limit > s.config.MaxLimit {
		return s.config.MaxLimit
	}
	return limit
}

func (s *CompetitionService) requireCompetition(ctx context.Context, competitionID string) error {
	exists, err := s.store.CompetitionExists(ctx, competitionID)
	if err != nil {
		return fmt.Errorf("checking competition: %w", err)
	}
	if !exists {
		return domain.ErrCompetitionNotFound
	}
	return nil
}

// ListCompetitions returns all competitions.
func (s *CompetitionService) ListCompetitions(ctx context.Context) ([]domain.Competition, error) {
	return s.store.ListCompetitions(ctx)
}

// Match returns a single match record.
func (s *CompetitionService) Match(ctx context.Context, matchID string) (*domain.Match, error) {
	return s.store.GetMatch(ctx, matchID)
}

// Standings computes the ordered table for a competition.
func (s *CompetitionService) Standings(ctx context.Context, competitionID string) ([]domain.Standing, error) {
	if err := s.requireCompetition(ctx, competitionID); err != nil {
		return nil, err
	}

	teams, err := s.store.ListCompetitionTeams(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	matches, err := s.store.ListFinishedMatches(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}

	return standings.Compute(teams, matches), nil
}

// TopScorers computes the top-scorers ranking for a competition.
func (s *CompetitionService) TopScorers(ctx context.Context, competitionID string, limit int) ([]domain.ScorerEntry, error) {
	if err := s.requireCompetition(ctx, competitionID); err != nil {
		return nil, err
	}

	events, err := s.store.ListCompetitionEvents(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	entries := ranking.TopScorers(events, s.clampLimit(limit))

	ids := make([]string, len(entries))
	for i := range entries {
		ids[i] = entries[i].PlayerID
	}
	names := s.names.Players(ctx, ids)
	for i := range entries {
		entries[i].PlayerName = names[entries[i].PlayerID]
	}
	return entries, nil
}

// DisciplinaryRanking computes the player disciplinary ranking for a
// competition.
func (s *CompetitionService) DisciplinaryRanking(ctx context.Context, competitionID string, limit int) ([]domain.DisciplinaryEntry, error) {
	if err := s.requireCompetition(ctx, competitionID); err != nil {
		return nil, err
	}

	events, err := s.store.ListCompetitionEvents(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	entries := ranking.Disciplinary(events, s.clampLimit(limit))

	ids := make([]string, len(entries))
	for i := range entries {
		ids[i] = entries[i].PlayerID
	}
	names := s.names.Players(ctx, ids)
	for i := range entries {
		entries[i].PlayerName = names[entries[i].PlayerID]
	}
	return entries, nil
}

// FairPlayRanking computes the team fair-play ranking for a competition.
func (s *CompetitionService) FairPlayRanking(ctx context.Context, competitionID string) ([]domain.FairPlayEntry, error) {
	if err := s.requireCompetition(ctx, competitionID); err != nil {
		return nil, err
	}

	teams, err := s.store.ListCompetitionTeams(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	events, err := s.store.ListCompetitionEvents(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}

	return ranking.FairPlay(teams, events), nil
}

// CareerTotals aggregates a player's output across all competitions.
func (s *CompetitionService) CareerTotals(ctx context.Context, playerID string) (*domain.CareerTotals, error) {
	exists, err := s.store.PlayerExists(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("checking player: %w", err)
	}
	if !exists {
		return nil, domain.ErrPlayerNotFound
	}

	events, err := s.store.ListPlayerEvents(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("listing player events: %w", err)
	}

	totals := ranking.CareerTotals(playerID, events)
	totals.PlayerName = s.names.Players(ctx, []string{playerID})[playerID]
	return &totals, nil
}
