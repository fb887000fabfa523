package domain

import "time"

// VoterIdentity is the deduplication key for a vote. An authenticated caller
// carries a user id; an anonymous caller carries only a best-effort device
// id. The two spaces are deduplicated independently and never cross-checked:
// an authenticated user who previously voted anonymously from the same device
// is an accepted gap, not a bug to fix by merging identity spaces.
type VoterIdentity struct {
	UserID   string `json:"user_id,omitempty"`
	DeviceID string `json:"device_id"`
}

// Authenticated reports whether the identity resolved to a known user.
func (v VoterIdentity) Authenticated() bool {
	return v.UserID != ""
}

// Vote is one accepted player-of-the-match ballot. At most one vote exists
// per (match, voter identity); the storage layer enforces this atomically.
type Vote struct {
	MatchID     string    `json:"match_id"`
	CandidateID string    `json:"candidate_player_id"`
	UserID      string    `json:"user_id,omitempty"`
	DeviceID    string    `json:"device_id"`
	CastAt      time.Time `json:"cast_at"`
}

// VoteResultEntry is one candidate's live tally. Percentage is rounded to one
// decimal place.
type VoteResultEntry struct {
	PlayerID   string  `json:"player_id"`
	PlayerName string  `json:"player_name,omitempty"`
	Votes      int64   `json:"votes"`
	Percentage float64 `json:"percentage"`
}

// VotingStatus summarizes a match's voting window and current tally.
// IsOpen is always the evaluated window predicate, never the stored flag.
type VotingStatus struct {
	MatchID    string           `json:"match_id"`
	IsOpen     bool             `json:"is_open"`
	Deadline   *time.Time       `json:"deadline,omitempty"`
	TotalVotes int64            `json:"total_votes"`
	Winner     *VoteResultEntry `json:"winner,omitempty"`
}

// CastVoteRequest is the payload for casting a vote.
type CastVoteRequest struct {
	CandidatePlayerID string `json:"candidate_player_id"`
}

// OpenVotingRequest is the payload for opening a voting window.
type OpenVotingRequest struct {
	Deadline *time.Time `json:"deadline,omitempty"`
}
