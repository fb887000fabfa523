package service_test

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/league-ledger/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeStore is an in-memory stand-in for the Postgres repository. The vote
// and registration paths reproduce the storage-level uniqueness guarantees
// behind a mutex, so the concurrency tests exercise the same atomicity
// contract the SQL constraints provide.
type fakeStore struct {
	mu sync.Mutex

	competitions map[string]bool
	players      map[string]bool
	teams        map[string][]domain.Team
	matches      map[string]domain.Match
	finished     map[string][]domain.Match
	events       []domain.MatchEvent
	registered   map[string]bool

	votes       []domain.Vote
	voteUsers   map[string]bool
	voteDevices map[string]bool

	counters   map[string]int64
	regs       []domain.Registration
	regNumbers map[string]bool
	// forcedRegConflicts makes the next N InsertRegistration calls fail with
	// ErrConflict, simulating a counter reset against existing rows.
	forcedRegConflicts int

	names map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		competitions: map[string]bool{},
		players:      map[string]bool{},
		teams:        map[string][]domain.Team{},
		matches:      map[string]domain.Match{},
		finished:     map[string][]domain.Match{},
		registered:   map[string]bool{},
		voteUsers:    map[string]bool{},
		voteDevices:  map[string]bool{},
		counters:     map[string]int64{},
		regNumbers:   map[string]bool{},
		names:        map[string]string{},
	}
}

func (f *fakeStore) addMatch(m domain.Match) {
	f.matches[m.ID] = m
}

func (f *fakeStore) register(competitionID, teamID, playerID string) {
	f.registered[competitionID+"|"+teamID+"|"+playerID] = true
}

func (f *fakeStore) CompetitionExists(ctx context.Context, competitionID string) (bool, error) {
	return f.competitions[competitionID], nil
}

func (f *fakeStore) PlayerExists(ctx context.Context, playerID string) (bool, error) {
	return f.players[playerID], nil
}

func (f *fakeStore) ListCompetitions(ctx context.Context) ([]domain.Competition, error) {
	var out []domain.Competition
	for id := range f.competitions {
		out = append(out, domain.Competition{ID: id})
	}
	return out, nil
}

func (f *fakeStore) ListCompetitionTeams(ctx context.Context, competitionID string) ([]domain.Team, error) {
	return f.teams[competitionID], nil
}

func (f *fakeStore) ListFinishedMatches(ctx context.Context, competitionID string) ([]domain.Match, error) {
	return f.finished[competitionID], nil
}

func (f *fakeStore) ListCompetitionEvents(ctx context.Context, competitionID string) ([]domain.MatchEvent, error) {
	return f.events, nil
}

func (f *fakeStore) ListPlayerEvents(ctx context.Context, playerID string) ([]domain.MatchEvent, error) {
	var out []domain.MatchEvent
	for _, e := range f.events {
		if e.PlayerID == playerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetMatch(ctx context.Context, matchID string) (*domain.Match, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[matchID]
	if !ok {
		return nil, domain.ErrMatchNotFound
	}
	return &m, nil
}

func (f *fakeStore) SetVotingWindow(ctx context.Context, matchID string, open bool, deadline *time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.matches[matchID]
	if !ok {
		return domain.ErrMatchNotFound
	}
	m.VotingOpen = open
	m.VotingDeadline = deadline
	f.matches[matchID] = m
	return nil
}

func (f *fakeStore) IsPlayerRegistered(ctx context.Context, competitionID, playerID string, teamIDs ...string) (bool, error) {
	for _, teamID := range teamIDs {
		if f.registered[competitionID+"|"+teamID+"|"+playerID] {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) InsertVote(ctx context.Context, vote domain.Vote) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if vote.UserID != "" {
		key := vote.MatchID + "|" + vote.UserID
		if f.voteUsers[key] {
			return domain.ErrDuplicateVote
		}
		f.voteUsers[key] = true
	} else {
		key := vote.MatchID + "|" + vote.DeviceID
		if f.voteDevices[key] {
			return domain.ErrDuplicateVote
		}
		f.voteDevices[key] = true
	}
	f.votes = append(f.votes, vote)
	return nil
}

func (f *fakeStore) CountVotes(ctx context.Context, matchID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var n int64
	for _, v := range f.votes {
		if v.MatchID == matchID {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) VoteTallies(ctx context.Context, matchID string) ([]domain.VoteResultEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := map[string]int64{}
	firstCast := map[string]time.Time{}
	var order []string
	for _, v := range f.votes {
		if v.MatchID != matchID {
			continue
		}
		if _, seen := counts[v.CandidateID]; !seen {
			order = append(order, v.CandidateID)
			firstCast[v.CandidateID] = v.CastAt
		}
		counts[v.CandidateID]++
	}

	entries := make([]domain.VoteResultEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, domain.VoteResultEntry{PlayerID: id, Votes: counts[id]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Votes != entries[j].Votes {
			return entries[i].Votes > entries[j].Votes
		}
		return firstCast[entries[i].PlayerID].Before(firstCast[entries[j].PlayerID])
	})
	return entries, nil
}

func (f *fakeStore) NextRegistrationNumber(ctx context.Context, competitionID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counters[competitionID]++
	return f.counters[competitionID], nil
}

func (f *fakeStore) InsertRegistration(ctx context.Context, reg domain.Registration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.forcedRegConflicts > 0 {
		f.forcedRegConflicts--
		return domain.ErrConflict
	}
	key := reg.CompetitionID + "|" + reg.RegistrationNumber
	if f.regNumbers[key] {
		return domain.ErrConflict
	}
	f.regNumbers[key] = true
	f.regs = append(f.regs, reg)
	return nil
}

func (f *fakeStore) DeactivateRegistrations(ctx context.Context, competitionID, playerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.regs {
		if f.regs[i].CompetitionID == competitionID && f.regs[i].PlayerID == playerID {
			f.regs[i].Active = false
		}
	}
	return nil
}

func (f *fakeStore) InsertMatchEvent(ctx context.Context, event domain.MatchEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeStore) ListMatchEvents(ctx context.Context, matchID string) ([]domain.MatchEvent, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.MatchEvent
	for _, e := range f.events {
		if e.MatchID == matchID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) GetPlayerNames(ctx context.Context, playerIDs []string) (map[string]string, error) {
	out := map[string]string{}
	for _, id := range playerIDs {
		if name, ok := f.names[id]; ok {
			out[id] = name
		}
	}
	return out, nil
}

// fakeLimiter is a scripted rate limiter.
type fakeLimiter struct {
	mu       sync.Mutex
	allowed  bool
	err      error
	attempts int
}

func (l *fakeLimiter) AllowVoteAttempt(ctx context.Context, deviceID string, limit int, window time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.attempts++
	if l.err != nil {
		return false, l.err
	}
	return l.allowed, nil
}

// recordingTicker captures broadcast events.
type recordingTicker struct {
	mu     sync.Mutex
	events []domain.MatchEvent
}

func (t *recordingTicker) BroadcastMatchEvent(event domain.MatchEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = append(t.events, event)
}

func (t *recordingTicker) seen() []domain.MatchEvent {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.MatchEvent(nil), t.events...)
}
