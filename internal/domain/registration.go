package domain

import "time"

// Registration binds a player to a team within one competition. The
// registration number is unique per competition, assigned exactly once and
// immutable afterwards. A swap to another team retires the old row and
// assigns a fresh number to the new one.
type Registration struct {
	PlayerID           string    `json:"player_id"`
	TeamID             string    `json:"team_id"`
	CompetitionID      string    `json:"competition_id"`
	ShirtNumber        int       `json:"shirt_number"`
	RegistrationNumber string    `json:"registration_number"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
}

// RegistrationRequest is the payload for registering a player.
type RegistrationRequest struct {
	PlayerID    string `json:"player_id"`
	TeamID      string `json:"team_id"`
	ShirtNumber int    `json:"shirt_number"`
}
