package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/league-ledger/internal/config"
	"github.com/league-ledger/internal/domain"
)

// pgUniqueViolation is the SQLSTATE for unique constraint violations. A
// violation on the vote or registration indexes is the synchronization
// primitive here: concurrent duplicate writes lose the race inside Postgres,
// not inside this process, so the guarantee holds across scaled-out replicas.
const pgUniqueViolation = "23505"

// Names of the constraints that carry domain meaning.
const (
	constraintVoteUser        = "uq_votes_match_user"
	constraintVoteDevice      = "uq_votes_match_device"
	constraintRegistrationNum = "uq_registrations_comp_number"
)

// Repository provides PostgreSQL-based access to the competition ledger.
type Repository struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewRepository creates a new PostgreSQL repository
func NewRepository(cfg *config.PostgresConfig, logger *slog.Logger) (*Repository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parsing connection string: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxConnections)
	poolConfig.MinConns = int32(cfg.MinConnections)
	poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	return &Repository{
		pool:   pool,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// RunMigrations executes database migrations
func (r *Repository) RunMigrations(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS competitions (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			season VARCHAR(32),
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS teams (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS players (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS competition_teams (
			competition_id VARCHAR(64) NOT NULL REFERENCES competitions(id) ON DELETE CASCADE,
			team_id VARCHAR(64) NOT NULL REFERENCES teams(id),
			PRIMARY KEY (competition_id, team_id)
		)`,
		`CREATE TABLE IF NOT EXISTS matches (
			id VARCHAR(64) PRIMARY KEY,
			competition_id VARCHAR(64) NOT NULL REFERENCES competitions(id),
			home_team_id VARCHAR(64) NOT NULL REFERENCES teams(id),
			away_team_id VARCHAR(64) NOT NULL REFERENCES teams(id),
			home_score INT,
			away_score INT,
			status VARCHAR(20) NOT NULL DEFAULT 'scheduled',
			voting_open BOOLEAN NOT NULL DEFAULT FALSE,
			voting_deadline TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS match_events (
			id BIGSERIAL PRIMARY KEY,
			match_id VARCHAR(64) NOT NULL REFERENCES matches(id),
			player_id VARCHAR(64) NOT NULL,
			team_id VARCHAR(64) NOT NULL,
			event_type VARCHAR(20) NOT NULL,
			minute INT NOT NULL,
			half INT NOT NULL,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS registrations (
			id BIGSERIAL PRIMARY KEY,
			competition_id VARCHAR(64) NOT NULL REFERENCES competitions(id),
			team_id VARCHAR(64) NOT NULL REFERENCES teams(id),
			player_id VARCHAR(64) NOT NULL REFERENCES players(id),
			shirt_number INT NOT NULL,
			registration_number VARCHAR(16) NOT NULL,
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT uq_registrations_comp_number UNIQUE (competition_id, registration_number)
		)`,
		`CREATE TABLE IF NOT EXISTS registration_counters (
			competition_id VARCHAR(64) PRIMARY KEY,
			last_value BIGINT NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS votes (
			id BIGSERIAL PRIMARY KEY,
			match_id VARCHAR(64) NOT NULL REFERENCES matches(id),
			candidate_player_id VARCHAR(64) NOT NULL,
			user_id VARCHAR(64),
			device_id VARCHAR(128) NOT NULL,
			cast_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		// One vote per user per match, one vote per anonymous device per
		// match. The two identity spaces are separate indexes and are never
		// cross-checked.
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_votes_match_user
			ON votes(match_id, user_id) WHERE user_id IS NOT NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_votes_match_device
			ON votes(match_id, device_id) WHERE user_id IS NULL`,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_registrations_active_player
			ON registrations(competition_id, player_id) WHERE active`,
		`CREATE INDEX IF NOT EXISTS idx_match_events_match ON match_events(match_id)`,
		`CREATE INDEX IF NOT EXISTS idx_match_events_player ON match_events(player_id)`,
		`CREATE INDEX IF NOT EXISTS idx_matches_competition ON matches(competition_id, status)`,
		`CREATE INDEX IF NOT EXISTS idx_votes_match ON votes(match_id)`,
	}

	for _, migration := range migrations {
		_, err := r.pool.Exec(ctx, migration)
		if err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}

	r.logger.Info("database migrations completed")
	return nil
}

// CompetitionExists checks if a competition exists
func (r *Repository) CompetitionExists(ctx context.Context, competitionID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM competitions WHERE id = $1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, competitionID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking competition existence: %w", err)
	}
	return exists, nil
}

// PlayerExists checks if a player exists
func (r *Repository) PlayerExists(ctx context.Context, playerID string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM players WHERE id = $1)`
	var exists bool
	err := r.pool.QueryRow(ctx, query, playerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking player existence: %w", err)
	}
	return exists, nil
}

// ListCompetitions retrieves all competitions
func (r *Repository) ListCompetitions(ctx context.Context) ([]domain.Competition, error) {
	query := `SELECT id, name, COALESCE(season, '') FROM competitions ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing competitions: %w", err)
	}
	defer rows.Close()

	var competitions []domain.Competition
	for rows.Next() {
		var c domain.Competition
		if err := rows.Scan(&c.ID, &c.Name, &c.Season); err != nil {
			return nil, fmt.Errorf("scanning competition: %w", err)
		}
		competitions = append(competitions, c)
	}
	return competitions, rows.Err()
}

// ListCompetitionTeams retrieves the teams enrolled in a competition. The
// order is deterministic (team id) so that stable sorts downstream always see
// the same input order.
func (r *Repository) ListCompetitionTeams(ctx context.Context, competitionID string) ([]domain.Team, error) {
	query := `
		SELECT t.id, t.name
		FROM competition_teams ct
		JOIN teams t ON t.id = ct.team_id
		WHERE ct.competition_id = $1
		ORDER BY t.id
	`
	rows, err := r.pool.Query(ctx, query, competitionID)
	if err != nil {
		return nil, fmt.Errorf("listing competition teams: %w", err)
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// ListFinishedMatches retrieves the finished matches of a competition.
func (r *Repository) ListFinishedMatches(ctx context.Context, competitionID string) ([]domain.Match, error) {
	query := `
		SELECT id, competition_id, home_team_id, away_team_id,
		       home_score, away_score, status, voting_open, voting_deadline
		FROM matches
		WHERE competition_id = $1 AND status = $2
		ORDER BY id
	`
	rows, err := r.pool.Query(ctx, query, competitionID, string(domain.MatchFinished))
	if err != nil {
		return nil, fmt.Errorf("listing finished matches: %w", err)
	}
	defer rows.Close()

	var matches []domain.Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// GetMatch retrieves a match by ID
func (r *Repository) GetMatch(ctx context.Context, matchID string) (*domain.Match, error) {
	query := `
		SELECT id, competition_id, home_team_id, away_team_id,
		       home_score, away_score, status, voting_open, voting_deadline
		FROM matches
		WHERE id = $1
	`
	row := r.pool.QueryRow(ctx, query, matchID)
	m, err := scanMatch(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrMatchNotFound
		}
		return nil, err
	}
	return &m, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMatch(row rowScanner) (domain.Match, error) {
	var m domain.Match
	err := row.Scan(
		&m.ID,
		&m.CompetitionID,
		&m.HomeTeamID,
		&m.AwayTeamID,
		&m.HomeScore,
		&m.AwayScore,
		&m.Status,
		&m.VotingOpen,
		&m.VotingDeadline,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Match{}, err
		}
		return domain.Match{}, fmt.Errorf("scanning match: %w", err)
	}
	return m, nil
}

// ListCompetitionEvents retrieves all match events of a competition in
// recorded order.
func (r *Repository) ListCompetitionEvents(ctx context.Context, competitionID string) ([]domain.MatchEvent, error) {
	query := `
		SELECT e.id, e.match_id, e.player_id, e.team_id, e.event_type, e.minute, e.half
		FROM match_events e
		JOIN matches m ON m.id = e.match_id
		WHERE m.competition_id = $1
		ORDER BY e.id
	`
	return r.queryEvents(ctx, query, competitionID)
}

// ListPlayerEvents retrieves every event a player generated, across all
// competitions, in recorded order.
func (r *Repository) ListPlayerEvents(ctx context.Context, playerID string) ([]domain.MatchEvent, error) {
	query := `
		SELECT id, match_id, player_id, team_id, event_type, minute, half
		FROM match_events
		WHERE player_id = $1
		ORDER BY id
	`
	return r.queryEvents(ctx, query, playerID)
}

// ListMatchEvents retrieves the events of a single match in recorded order.
func (r *Repository) ListMatchEvents(ctx context.Context, matchID string) ([]domain.MatchEvent, error) {
	query := `
		SELECT id, match_id, player_id, team_id, event_type, minute, half
		FROM match_events
		WHERE match_id = $1
		ORDER BY id
	`
	return r.queryEvents(ctx, query, matchID)
}

func (r *Repository) queryEvents(ctx context.Context, query string, args ...any) ([]domain.MatchEvent, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []domain.MatchEvent
	for rows.Next() {
		var e domain.MatchEvent
		if err := rows.Scan(&e.ID, &e.MatchID, &e.PlayerID, &e.TeamID, &e.Type, &e.Minute, &e.Half); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// InsertMatchEvent appends an event to the match event log.
func (r *Repository) InsertMatchEvent(ctx context.Context, event domain.MatchEvent) error {
	query := `
		INSERT INTO match_events (match_id, player_id, team_id, event_type, minute, half)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.pool.Exec(ctx, query,
		event.MatchID,
		event.PlayerID,
		event.TeamID,
		string(event.Type),
		event.Minute,
		event.Half,
	)
	if err != nil {
		return fmt.Errorf("inserting match event: %w", err)
	}
	return nil
}

// SetVotingWindow stores the operator's open/close decision for a match.
// Closing always clears the deadline; the implicit deadline close is a
// read-time predicate and is never written back here.
func (r *Repository) SetVotingWindow(ctx context.Context, matchID string, open bool, deadline *time.Time) error {
	query := `UPDATE matches SET voting_open = $2, voting_deadline = $3 WHERE id = $1`
	result, err := r.pool.Exec(ctx, query, matchID, open, deadline)
	if err != nil {
		return fmt.Errorf("setting voting window: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrMatchNotFound
	}
	return nil
}

// IsPlayerRegistered checks whether a player holds an active registration in
// the competition for any of the given teams.
func (r *Repository) IsPlayerRegistered(ctx context.Context, competitionID, playerID string, teamIDs ...string) (bool, error) {
	query := `
		SELECT EXISTS(
			SELECT 1 FROM registrations
			WHERE competition_id = $1 AND player_id = $2 AND active AND team_id = ANY($3)
		)
	`
	var exists bool
	err := r.pool.QueryRow(ctx, query, competitionID, playerID, teamIDs).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking registration: %w", err)
	}
	return exists, nil
}

// InsertVote records a vote. The partial unique indexes are the only
// duplicate gate: a violation on either identity index comes back as
// ErrDuplicateVote, indistinguishable from the pre-check outcome.
func (r *Repository) InsertVote(ctx context.Context, vote domain.Vote) error {
	query := `
		INSERT INTO votes (match_id, candidate_player_id, user_id, device_id, cast_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	var userID *string
	if vote.UserID != "" {
		userID = &vote.UserID
	}
	_, err := r.pool.Exec(ctx, query, vote.MatchID, vote.CandidateID, userID, vote.DeviceID, vote.CastAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			switch pgErr.ConstraintName {
			case constraintVoteUser, constraintVoteDevice:
				return domain.ErrDuplicateVote
			}
			return domain.ErrConflict
		}
		return fmt.Errorf("inserting vote: %w", err)
	}
	return nil
}

// CountVotes returns the number of votes cast for a match. Counts are always
// derived from vote rows; there is no separate counter to drift.
func (r *Repository) CountVotes(ctx context.Context, matchID string) (int64, error) {
	query := `SELECT COUNT(*) FROM votes WHERE match_id = $1`
	var count int64
	err := r.pool.QueryRow(ctx, query, matchID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting votes: %w", err)
	}
	return count, nil
}

// VoteTallies returns the per-candidate vote counts for a match, ordered by
// votes descending. Ties keep the order of each candidate's first vote so
// repeated reads never reshuffle equal candidates.
func (r *Repository) VoteTallies(ctx context.Context, matchID string) ([]domain.VoteResultEntry, error) {
	query := `
		SELECT candidate_player_id, COUNT(*) AS votes
		FROM votes
		WHERE match_id = $1
		GROUP BY candidate_player_id
		ORDER BY votes DESC, MIN(cast_at) ASC
	`
	rows, err := r.pool.Query(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("querying vote tallies: %w", err)
	}
	defer rows.Close()

	var entries []domain.VoteResultEntry
	for rows.Next() {
		var e domain.VoteResultEntry
		if err := rows.Scan(&e.PlayerID, &e.Votes); err != nil {
			return nil, fmt.Errorf("scanning tally: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// NextRegistrationNumber reserves the next sequential number for a
// competition. The increment-and-read is one atomic statement, so concurrent
// registrations can never observe the same value.
func (r *Repository) NextRegistrationNumber(ctx context.Context, competitionID string) (int64, error) {
	query := `
		INSERT INTO registration_counters (competition_id, last_value)
		VALUES ($1, 1)
		ON CONFLICT (competition_id)
		DO UPDATE SET last_value = registration_counters.last_value + 1
		RETURNING last_value
	`
	var next int64
	err := r.pool.QueryRow(ctx, query, competitionID).Scan(&next)
	if err != nil {
		return 0, fmt.Errorf("reserving registration number: %w", err)
	}
	return next, nil
}

// InsertRegistration stores a registration row. A collision on the
// registration-number constraint surfaces as ErrConflict so the caller can
// reserve a fresh number and retry.
func (r *Repository) InsertRegistration(ctx context.Context, reg domain.Registration) error {
	query := `
		INSERT INTO registrations (competition_id, team_id, player_id, shirt_number, registration_number, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
	`
	_, err := r.pool.Exec(ctx, query,
		reg.CompetitionID,
		reg.TeamID,
		reg.PlayerID,
		reg.ShirtNumber,
		reg.RegistrationNumber,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrConflict
		}
		return fmt.Errorf("inserting registration: %w", err)
	}
	return nil
}

// DeactivateRegistrations retires a player's active registrations in a
// competition. Used by swaps; the retired rows keep their numbers.
func (r *Repository) DeactivateRegistrations(ctx context.Context, competitionID, playerID string) error {
	query := `UPDATE registrations SET active = FALSE WHERE competition_id = $1 AND player_id = $2 AND active`
	_, err := r.pool.Exec(ctx, query, competitionID, playerID)
	if err != nil {
		return fmt.Errorf("deactivating registrations: %w", err)
	}
	return nil
}

// ListPlayers retrieves all players (for cache warming)
func (r *Repository) ListPlayers(ctx context.Context) ([]domain.Player, error) {
	query := `SELECT id, name FROM players`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing players: %w", err)
	}
	defer rows.Close()

	var players []domain.Player
	for rows.Next() {
		var p domain.Player
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, fmt.Errorf("scanning player: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// ListTeams retrieves all teams (for cache warming)
func (r *Repository) ListTeams(ctx context.Context) ([]domain.Team, error) {
	query := `SELECT id, name FROM teams`
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing teams: %w", err)
	}
	defer rows.Close()

	var teams []domain.Team
	for rows.Next() {
		var t domain.Team
		if err := rows.Scan(&t.ID, &t.Name); err != nil {
			return nil, fmt.Errorf("scanning team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

// GetPlayerNames resolves player display names for the given ids.
func (r *Repository) GetPlayerNames(ctx context.Context, playerIDs []string) (map[string]string, error) {
	if len(playerIDs) == 0 {
		return map[string]string{}, nil
	}
	query := `SELECT id, name FROM players WHERE id = ANY($1)`
	rows, err := r.pool.Query(ctx, query, playerIDs)
	if err != nil {
		return nil, fmt.Errorf("querying player names: %w", err)
	}
	defer rows.Close()

	names := make(map[string]string, len(playerIDs))
	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning player name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}
