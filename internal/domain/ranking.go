package domain

// Standing is one row of a competition table. It is derived on every read
// from the match log and never persisted, so it cannot drift from the log.
type Standing struct {
	TeamID       string `json:"team_id"`
	TeamName     string `json:"team_name,omitempty"`
	Played       int    `json:"played"`
	Won          int    `json:"won"`
	Drawn        int    `json:"drawn"`
	Lost         int    `json:"lost"`
	GoalsFor     int    `json:"goals_for"`
	GoalsAgainst int    `json:"goals_against"`
	Points       int    `json:"points"`
}

// GoalDifference returns goals for minus goals against.
func (s Standing) GoalDifference() int {
	return s.GoalsFor - s.GoalsAgainst
}

// ScorerEntry is one row of the top-scorers ranking.
type ScorerEntry struct {
	PlayerID   string `json:"player_id"`
	PlayerName string `json:"player_name,omitempty"`
	Goals      int    `json:"goals"`
}

// DisciplinaryEntry is one row of the player disciplinary ranking.
// PenaltyPoints = yellow*1 + (red + second yellow)*3.
type DisciplinaryEntry struct {
	PlayerID      string `json:"player_id"`
	PlayerName    string `json:"player_name,omitempty"`
	YellowCards   int    `json:"yellow_cards"`
	SecondYellows int    `json:"second_yellows"`
	RedCards      int    `json:"red_cards"`
	PenaltyPoints int    `json:"penalty_points"`
}

// FairPlayEntry is one row of the team fair-play ranking. Lower penalty
// points rank first; teams without a single card lead the table.
type FairPlayEntry struct {
	TeamID        string `json:"team_id"`
	TeamName      string `json:"team_name,omitempty"`
	YellowCards   int    `json:"yellow_cards"`
	RedCards      int    `json:"red_cards"`
	PenaltyPoints int    `json:"penalty_points"`
}

// CareerTotals aggregates a player's output across all competitions.
// Matches counts distinct matches where the player generated at least one
// event, which undercounts true appearances (a full match with no recorded
// event is invisible here). That limitation is inherited from the event log
// and deliberately left uncorrected.
type CareerTotals struct {
	PlayerID    string `json:"player_id"`
	PlayerName  string `json:"player_name,omitempty"`
	Matches     int    `json:"matches"`
	Goals       int    `json:"goals"`
	YellowCards int    `json:"yellow_cards"`
	RedCards    int    `json:"red_cards"`
}
