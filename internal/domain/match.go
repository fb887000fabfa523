package domain

import "time"

// MatchStatus represents the lifecycle state of a match.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchFinished  MatchStatus = "finished"
	MatchCancelled MatchStatus = "cancelled"
	MatchPostponed MatchStatus = "postponed"
	MatchWalkover  MatchStatus = "walkover"
)

// Match is a fixture between two teams in a competition. Scores are nil until
// the match finishes. Only Finished matches feed standings and rankings.
type Match struct {
	ID             string      `json:"id"`
	CompetitionID  string      `json:"competition_id"`
	HomeTeamID     string      `json:"home_team_id"`
	AwayTeamID     string      `json:"away_team_id"`
	HomeScore      *int        `json:"home_score,omitempty"`
	AwayScore      *int        `json:"away_score,omitempty"`
	Status         MatchStatus `json:"status"`
	VotingOpen     bool        `json:"voting_open"`
	VotingDeadline *time.Time  `json:"voting_deadline,omitempty"`
}

// VotingOpenAt evaluates the voting window predicate at the given instant.
// The deadline closes the window implicitly; there is no stored "auto-closed"
// transition, so the stored flag alone must never be trusted.
func (m Match) VotingOpenAt(now time.Time) bool {
	if !m.VotingOpen {
		return false
	}
	if m.VotingDeadline == nil {
		return true
	}
	return now.Before(*m.VotingDeadline)
}

// Competition is a bounded tournament or league instance.
type Competition struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Season string `json:"season,omitempty"`
}

// Team is a club enrolled in one or more competitions.
type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Player is a registered footballer.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
