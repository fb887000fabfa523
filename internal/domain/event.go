package domain

import "time"

// EventType identifies a discrete in-match event. The set is closed: the
// ingest path rejects anything else.
type EventType string

const (
	EventGoal            EventType = "goal"
	EventPenaltyGoal     EventType = "penalty_goal"
	EventOwnGoal         EventType = "own_goal"
	EventYellowCard      EventType = "yellow_card"
	EventSecondYellow    EventType = "second_yellow"
	EventRedCard         EventType = "red_card"
	EventSubstitutionIn  EventType = "substitution_in"
	EventSubstitutionOut EventType = "substitution_out"
)

// ValidEventType reports whether t belongs to the closed event-type set.
func ValidEventType(t EventType) bool {
	switch t {
	case EventGoal, EventPenaltyGoal, EventOwnGoal,
		EventYellowCard, EventSecondYellow, EventRedCard,
		EventSubstitutionIn, EventSubstitutionOut:
		return true
	}
	return false
}

// MatchEvent is a single immutable record from the match event log. Events
// are owned by match management; this service only appends (ingest) and reads.
type MatchEvent struct {
	ID       int64     `json:"id,omitempty"`
	MatchID  string    `json:"match_id"`
	PlayerID string    `json:"player_id"`
	TeamID   string    `json:"team_id"`
	Type     EventType `json:"event_type"`
	Minute   int       `json:"minute"`
	Half     int       `json:"half"`
}

// IsScoringEvent reports whether the event counts toward a player's scoring
// tally. Own goals are excluded on purpose: they remain in the log for other
// rankings and audits but never credit the scorer.
func (e MatchEvent) IsScoringEvent() bool {
	return e.Type == EventGoal || e.Type == EventPenaltyGoal
}

// CardPenaltyPoints returns the disciplinary weight of the event:
// yellow = 1, red and second yellow = 3, anything else = 0.
func (e MatchEvent) CardPenaltyPoints() int {
	switch e.Type {
	case EventYellowCard:
		return 1
	case EventRedCard, EventSecondYellow:
		return 3
	}
	return 0
}

// MatchEventMessage is the wire format match management publishes to Kafka.
type MatchEventMessage struct {
	MatchID   string    `json:"match_id"`
	PlayerID  string    `json:"player_id"`
	TeamID    string    `json:"team_id"`
	EventType EventType `json:"event_type"`
	Minute    int       `json:"minute"`
	Half      int       `json:"half"`
	Timestamp time.Time `json:"timestamp"`
}
