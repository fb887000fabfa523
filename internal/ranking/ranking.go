// Package ranking derives player and team rankings from the match event log.
// Like the standings fold, every function here is a pure aggregation over an
// immutable event stream: no cached counters, nothing to drift.
package ranking

import (
	"sort"

	"github.com/league-ledger/internal/domain"
)

// TopScorers counts scoring events (goals and penalty goals, never own goals)
// per player. Output is ordered by goals descending; players with the same
// tally keep the order of their first scoring event (stable, no secondary
// key). A non-positive limit returns the full ranking.
func TopScorers(events []domain.MatchEvent, limit int) []domain.ScorerEntry {
	index := make(map[string]int)
	var order []string

	for _, e := range events {
		if !e.IsScoringEvent() {
			continue
		}
		if _, seen := index[e.PlayerID]; !seen {
			order = append(order, e.PlayerID)
		}
		index[e.PlayerID]++
	}

	entries := make([]domain.ScorerEntry, 0, len(order))
	for _, playerID := range order {
		entries = append(entries, domain.ScorerEntry{PlayerID: playerID, Goals: index[playerID]})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Goals > entries[j].Goals
	})

	return truncateScorers(entries, limit)
}

func truncateScorers(entries []domain.ScorerEntry, limit int) []domain.ScorerEntry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}

// Disciplinary ranks players by penalty points descending
// (yellow*1 + (red + second yellow)*3), tie-broken by red cards descending,
// then yellow cards descending, then stable. Players without a card do not
// appear. A non-positive limit returns the full ranking.
func Disciplinary(events []domain.MatchEvent, limit int) []domain.DisciplinaryEntry {
	index := make(map[string]*domain.DisciplinaryEntry)
	var order []string

	for _, e := range events {
		pts := e.CardPenaltyPoints()
		if pts == 0 {
			continue
		}
		entry, seen := index[e.PlayerID]
		if !seen {
			entry = &domain.DisciplinaryEntry{PlayerID: e.PlayerID}
			index[e.PlayerID] = entry
			order = append(order, e.PlayerID)
		}
		switch e.Type {
		case domain.EventYellowCard:
			entry.YellowCards++
		case domain.EventSecondYellow:
			entry.SecondYellows++
		case domain.EventRedCard:
			entry.RedCards++
		}
		entry.PenaltyPoints += pts
	}

	entries := make([]domain.DisciplinaryEntry, 0, len(order))
	for _, playerID := range order {
		entries = append(entries, *index[playerID])
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].PenaltyPoints != entries[j].PenaltyPoints {
			return entries[i].PenaltyPoints > entries[j].PenaltyPoints
		}
		if entries[i].RedCards != entries[j].RedCards {
			return entries[i].RedCards > entries[j].RedCards
		}
		return entries[i].YellowCards > entries[j].YellowCards
	})

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

// FairPlay ranks teams by penalty points ascending: the fewer the cards, the
// fairer the team. Every enrolled team appears, so teams with a clean sheet
// of cards lead the table. Equal-ranked teams keep the enrollment order.
func FairPlay(teams []domain.Team, events []domain.MatchEvent) []domain.FairPlayEntry {
	index := make(map[string]*domain.FairPlayEntry, len(teams))
	entries := make([]domain.FairPlayEntry, len(teams))
	for i, t := range teams {
		entries[i] = domain.FairPlayEntry{TeamID: t.ID, TeamName: t.Name}
		index[t.ID] = &entries[i]
	}

	for _, e := range events {
		pts := e.CardPenaltyPoints()
		if pts == 0 {
			continue
		}
		entry := index[e.TeamID]
		if entry == nil {
			continue
		}
		switch e.Type {
		case domain.EventYellowCard:
			entry.YellowCards++
		case domain.EventRedCard, domain.EventSecondYellow:
			entry.RedCards++
		}
		entry.PenaltyPoints += pts
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].PenaltyPoints < entries[j].PenaltyPoints
	})

	return entries
}

// CareerTotals sums a player's output over events from all competitions.
// Matches counts distinct matches with at least one event by the player,
// which is a known undercount of true appearances; see domain.CareerTotals.
func CareerTotals(playerID string, events []domain.MatchEvent) domain.CareerTotals {
	totals := domain.CareerTotals{PlayerID: playerID}
	matches := make(map[string]struct{})

	for _, e := range events {
		if e.PlayerID != playerID {
			continue
		}
		matches[e.MatchID] = struct{}{}
		switch e.Type {
		case domain.EventGoal, domain.EventPenaltyGoal:
			totals.Goals++
		case domain.EventYellowCard:
			totals.YellowCards++
		case domain.EventRedCard, domain.EventSecondYellow:
			totals.RedCards++
		}
	}

	totals.Matches = len(matches)
	return totals
}
