// Package standings folds finished matches into an ordered competition table.
// The fold is pure: it holds no state and is recomputed on every read, so the
// table can never drift from the match log.
package standings

import (
	"sort"

	"github.com/league-ledger/internal/domain"
)

// Points awarded per result.
const (
	pointsWin  = 3
	pointsDraw = 1
)

// Compute builds the table for one competition. Every enrolled team appears,
// including teams with no finished match yet (all-zero row). Matches that are
// not Finished, or that reference a team outside the enrollment list, never
// contribute.
//
// Ordering: points desc, wins desc, goal difference desc. Ties beyond that
// keep the enrollment order of teams (stable sort); no secondary key such as
// head-to-head or goals scored is applied.
func Compute(teams []domain.Team, matches []domain.Match) []domain.Standing {
	index := make(map[string]*domain.Standing, len(teams))
	table := make([]domain.Standing, len(teams))
	for i, t := range teams {
		table[i] = domain.Standing{TeamID: t.ID, TeamName: t.Name}
		index[t.ID] = &table[i]
	}

	for _, m := range matches {
		if m.Status != domain.MatchFinished || m.HomeScore == nil || m.AwayScore == nil {
			continue
		}
		home := index[m.HomeTeamID]
		away := index[m.AwayTeamID]
		if home == nil || away == nil {
			continue
		}

		homeScore, awayScore := *m.HomeScore, *m.AwayScore

		home.Played++
		away.Played++
		home.GoalsFor += homeScore
		home.GoalsAgainst += awayScore
		away.GoalsFor += awayScore
		away.GoalsAgainst += homeScore

		// The draw is detected once, from the score pair, and drives both
		// sides' points. Both sides must always see the same result.
		switch {
		case homeScore == awayScore:
			home.Drawn++
			away.Drawn++
			home.Points += pointsDraw
			away.Points += pointsDraw
		case homeScore > awayScore:
			home.Won++
			away.Lost++
			home.Points += pointsWin
		default:
			away.Won++
			home.Lost++
			away.Points += pointsWin
		}
	}

	sort.SliceStable(table, func(i, j int) bool {
		if table[i].Points != table[j].Points {
			return table[i].Points > table[j].Points
		}
		if table[i].Won != table[j].Won {
			return table[i].Won > table[j].Won
		}
		return table[i].GoalDifference() > table[j].GoalDifference()
	})

	return table
}
