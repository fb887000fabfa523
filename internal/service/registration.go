package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/league-ledger/internal/domain"
)

// registrationNumberWidth is the zero-padding width of the human-readable
// sequential registration number ("0001", "0002", ...).
const registrationNumberWidth = 4

// RegistrationStore is the storage surface of the registration numbering
// service. NextRegistrationNumber must be a single atomic
// increment-and-reserve; two concurrent callers must never observe the same
// value even across service replicas.
type RegistrationStore interface {
	CompetitionExists(ctx context.Context, competitionID string) (bool, error)
	PlayerExists(ctx context.Context, playerID string) (bool, error)
	NextRegistrationNumber(ctx context.Context, competitionID string) (int64, error)
	InsertRegistration(ctx context.Context, reg domain.Registration) error
	DeactivateRegistrations(ctx context.Context, competitionID, playerID string) error
}

// RegistrationService assigns unique sequential registration numbers and
// records player-to-competition registrations.
type RegistrationService struct {
	store  RegistrationStore
	logger *slog.Logger
}

// NewRegistrationService creates a new registration service
func NewRegistrationService(store RegistrationStore, logger *slog.Logger) *RegistrationService {
	return &RegistrationService{
		store:  store,
		logger: logger,
	}
}

// FormatRegistrationNumber renders a reserved sequence value as the
// human-readable registration number.
func FormatRegistrationNumber(seq int64) string {
	return fmt.Sprintf("%0*d", registrationNumberWidth, seq)
}

// AssignRegistrationNumber reserves and returns the next registration number
// for a competition.
func (s *RegistrationService) AssignRegistrationNumber(ctx context.Context, competitionID string) (string, error) {
	exists, err := s.store.CompetitionExists(ctx, competitionID)
	if err != nil {
		return "", fmt.Errorf("checking competition: %w", err)
	}
	if !exists {
		return "", domain.ErrCompetitionNotFound
	}

	seq, err := s.store.NextRegistrationNumber(ctx, competitionID)
	if err != nil {
		return "", err
	}
	return FormatRegistrationNumber(seq), nil
}

// RegisterPlayer registers a player to a team within a competition, retiring
// any prior active registration (a swap keeps the old row and its number,
// inactive). The number comes from the atomic counter; if the insert still
// collides on the uniqueness constraint — possible when a counter was reset
// against existing rows — one retry reserves a fresh number before the
// conflict is surfaced.
func (s *RegistrationService) RegisterPlayer(ctx context.Context, competitionID string, req domain.RegistrationRequest) (*domain.Registration, error) {
	if req.PlayerID == "" || req.TeamID == "" {
		return nil, domain.ErrInvalidRequest
	}

	exists, err := s.store.CompetitionExists(ctx, competitionID)
	if err != nil {
		return nil, fmt.Errorf("checking competition: %w", err)
	}
	if !exists {
		return nil, domain.ErrCompetitionNotFound
	}

	exists, err = s.store.PlayerExists(ctx, req.PlayerID)
	if err != nil {
		return nil, fmt.Errorf("checking player: %w", err)
	}
	if !exists {
		return nil, domain.ErrPlayerNotFound
	}

	if err := s.store.DeactivateRegistrations(ctx, competitionID, req.PlayerID); err != nil {
		return nil, fmt.Errorf("retiring prior registration: %w", err)
	}

	const maxAttempts = 2
	for attempt := 1; ; attempt++ {
		seq, err := s.store.NextRegistrationNumber(ctx, competitionID)
		if err != nil {
			return nil, err
		}

		reg := domain.Registration{
			PlayerID:           req.PlayerID,
			TeamID:             req.TeamID,
			CompetitionID:      competitionID,
			ShirtNumber:        req.ShirtNumber,
			RegistrationNumber: FormatRegistrationNumber(seq),
			Active:             true,
		}

		err = s.store.InsertRegistration(ctx, reg)
		if err == nil {
			s.logger.Info("player registered",
				"competition_id", competitionID,
				"player_id", req.PlayerID,
				"registration_number", reg.RegistrationNumber,
			)
			return &reg, nil
		}
		if errors.Is(err, domain.ErrConflict) && attempt < maxAttempts {
			s.logger.Warn("registration number collision, retrying",
				"competition_id", competitionID,
				"registration_number", reg.RegistrationNumber,
			)
			continue
		}
		return nil, err
	}
}
