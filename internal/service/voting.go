package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/league-ledger/internal/config"
	"github.com/league-ledger/internal/domain"
)

// VoteStore is the storage surface of the voting engine. InsertVote must be
// atomic with respect to the duplicate check: the store's uniqueness
// guarantee, not an in-process lock, is what keeps one-vote-per-identity true
// when the service runs as several replicas.
type VoteStore interface {
	GetMatch(ctx context.Context, matchID string) (*domain.Match, error)
	SetVotingWindow(ctx context.Context, matchID string, open bool, deadline *time.Time) error
	IsPlayerRegistered(ctx context.Context, competitionID, playerID string, teamIDs ...string) (bool, error)
	InsertVote(ctx context.Context, vote domain.Vote) error
	CountVotes(ctx context.Context, matchID string) (int64, error)
	VoteTallies(ctx context.Context, matchID string) ([]domain.VoteResultEntry, error)
}

// RateLimiter throttles vote attempts per device. May be absent.
type RateLimiter interface {
	AllowVoteAttempt(ctx context.Context, deviceID string, limit int, window time.Duration) (bool, error)
}

// VotingService owns the player-of-the-match voting lifecycle: the window
// state machine, vote validation and recording, and live result computation.
type VotingService struct {
	store   VoteStore
	limiter RateLimiter
	names   *Names
	config  *config.VotingConfig
	logger  *slog.Logger
	now     func() time.Time
}

// NewVotingService creates a new voting service. limiter may be nil.
func NewVotingService(store VoteStore, limiter RateLimiter, names *Names, cfg *config.VotingConfig, logger *slog.Logger) *VotingService {
	return &VotingService{
		store:   store,
		limiter: limiter,
		names:   names,
		config:  cfg,
		logger:  logger,
		now:     time.Now,
	}
}

// SetClock overrides the service clock. Test hook.
func (s *VotingService) SetClock(now func() time.Time) {
	s.now = now
}

// OpenVoting opens the voting window for a match, optionally with a
// deadline. Re-opening a closed window is allowed and keeps all prior votes
// valid and counted.
func (s *VotingService) OpenVoting(ctx context.Context, matchID string, deadline *time.Time) error {
	if err := s.store.SetVotingWindow(ctx, matchID, true, deadline); err != nil {
		return err
	}
	s.logger.Info("voting opened", "match_id", matchID, "deadline", deadline)
	return nil
}

// CloseVoting closes the voting window for a match.
func (s *VotingService) CloseVoting(ctx context.Context, matchID string) error {
	if err := s.store.SetVotingWindow(ctx, matchID, false, nil); err != nil {
		return err
	}
	s.logger.Info("voting closed", "match_id", matchID)
	return nil
}

// CastVote validates and records one vote. Preconditions are checked in
// order, short-circuiting on the first failure: the match exists, the window
// is open at the current instant, the candidate is registered to one of the
// match's two teams in that competition, and the identity has not voted yet.
// The last check is the insert itself: a uniqueness violation from the store
// surfaces as the same ErrDuplicateVote a pre-check would have produced.
func (s *VotingService) CastVote(ctx context.Context, matchID, candidateID string, voter domain.VoterIdentity) error {
	if candidateID == "" || voter.DeviceID == "" {
		return domain.ErrInvalidRequest
	}

	if s.limiter != nil && s.config.RateLimitAttempts > 0 {
		allowed, err := s.limiter.AllowVoteAttempt(ctx, voter.DeviceID, s.config.RateLimitAttempts, s.config.RateLimitWindow)
		if err != nil {
			// The limiter is anti-abuse, not correctness; fail open.
			s.logger.Warn("vote rate limiter unavailable", "error", err)
		} else if !allowed {
			return domain.ErrRateLimited
		}
	}

	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return err
	}

	if !match.VotingOpenAt(s.now()) {
		return domain.ErrVotingClosed
	}

	eligible, err := s.store.IsPlayerRegistered(ctx, match.CompetitionID, candidateID, match.HomeTeamID, match.AwayTeamID)
	if err != nil {
		return fmt.Errorf("checking candidate eligibility: %w", err)
	}
	if !eligible {
		return domain.ErrIneligibleCandidate
	}

	vote := domain.Vote{
		MatchID:     matchID,
		CandidateID: candidateID,
		UserID:      voter.UserID,
		DeviceID:    voter.DeviceID,
		CastAt:      s.now(),
	}
	if err := s.store.InsertVote(ctx, vote); err != nil {
		return err
	}

	s.logger.Info("vote recorded",
		"match_id", matchID,
		"candidate_id", candidateID,
		"authenticated", voter.Authenticated(),
	)
	return nil
}

// Results returns the live tally for a match, one entry per candidate with
// votes and a percentage rounded to one decimal, ordered by votes descending
// with stable ties. No votes yields an empty result set, never a
// divide-by-zero and never a list of zero-percent candidates.
func (s *VotingService) Results(ctx context.Context, matchID string) ([]domain.VoteResultEntry, error) {
	if _, err := s.store.GetMatch(ctx, matchID); err != nil {
		return nil, err
	}
	return s.results(ctx, matchID)
}

func (s *VotingService) results(ctx context.Context, matchID string) ([]domain.VoteResultEntry, error) {
	entries, err := s.store.VoteTallies(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("querying tallies: %w", err)
	}
	if len(entries) == 0 {
		return []domain.VoteResultEntry{}, nil
	}

	var total int64
	for _, e := range entries {
		total += e.Votes
	}

	ids := make([]string, len(entries))
	for i := range entries {
		ids[i] = entries[i].PlayerID
	}
	names := s.names.Players(ctx, ids)

	for i := range entries {
		entries[i].Percentage = roundPercentage(entries[i].Votes, total)
		entries[i].PlayerName = names[entries[i].PlayerID]
	}
	return entries, nil
}

func roundPercentage(votes, total int64) float64 {
	return math.Round(float64(votes)/float64(total)*1000) / 10
}

// Status reports the voting window state and current tally summary for a
// match. IsOpen is the evaluated window predicate: a stored open flag with an
// expired deadline reads as closed.
func (s *VotingService) Status(ctx context.Context, matchID string) (*domain.VotingStatus, error) {
	match, err := s.store.GetMatch(ctx, matchID)
	if err != nil {
		return nil, err
	}

	total, err := s.store.CountVotes(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("counting votes: %w", err)
	}

	status := &domain.VotingStatus{
		MatchID:    matchID,
		IsOpen:     match.VotingOpenAt(s.now()),
		Deadline:   match.VotingDeadline,
		TotalVotes: total,
	}

	if total > 0 {
		entries, err := s.results(ctx, matchID)
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			status.Winner = &entries[0]
		}
	}
	return status, nil
}
