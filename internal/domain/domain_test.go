package domain_test

import (
	"testing"
	"time"

	"github.com/league-ledger/internal/domain"
	. "github.com/smartystreets/goconvey/convey"
)

func TestValidEventType(t *testing.T) {
	Convey("Given the closed event-type set", t, func() {
		Convey("Then every known type is valid", func() {
			for _, et := range []domain.EventType{
				domain.EventGoal, domain.EventPenaltyGoal, domain.EventOwnGoal,
				domain.EventYellowCard, domain.EventSecondYellow, domain.EventRedCard,
				domain.EventSubstitutionIn, domain.EventSubstitutionOut,
			} {
				So(domain.ValidEventType(et), ShouldBeTrue)
			}
		})

		Convey("Then anything else is rejected", func() {
			So(domain.ValidEventType("corner_kick"), ShouldBeFalse)
			So(domain.ValidEventType(""), ShouldBeFalse)
		})
	})
}

func TestMatchEvent_Scoring(t *testing.T) {
	Convey("Given the scoring predicate", t, func() {
		Convey("Then goals and penalty goals count", func() {
			So(domain.MatchEvent{Type: domain.EventGoal}.IsScoringEvent(), ShouldBeTrue)
			So(domain.MatchEvent{Type: domain.EventPenaltyGoal}.IsScoringEvent(), ShouldBeTrue)
		})

		Convey("Then own goals never credit the scorer", func() {
			So(domain.MatchEvent{Type: domain.EventOwnGoal}.IsScoringEvent(), ShouldBeFalse)
		})
	})
}

func TestMatchEvent_CardPenaltyPoints(t *testing.T) {
	Convey("Given the disciplinary weights", t, func() {
		So(domain.MatchEvent{Type: domain.EventYellowCard}.CardPenaltyPoints(), ShouldEqual, 1)
		So(domain.MatchEvent{Type: domain.EventSecondYellow}.CardPenaltyPoints(), ShouldEqual, 3)
		So(domain.MatchEvent{Type: domain.EventRedCard}.CardPenaltyPoints(), ShouldEqual, 3)
		So(domain.MatchEvent{Type: domain.EventGoal}.CardPenaltyPoints(), ShouldEqual, 0)
	})
}

func TestMatch_VotingOpenAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 21, 0, 0, 0, time.UTC)

	Convey("Given the voting window predicate", t, func() {
		Convey("When the flag is off", func() {
			m := domain.Match{VotingOpen: false}

			Convey("Then the window is closed regardless of deadline", func() {
				So(m.VotingOpenAt(now), ShouldBeFalse)
			})
		})

		Convey("When the flag is on with no deadline", func() {
			m := domain.Match{VotingOpen: true}

			Convey("Then the window stays open", func() {
				So(m.VotingOpenAt(now), ShouldBeTrue)
			})
		})

		Convey("When the flag is on with a deadline", func() {
			deadline := now.Add(time.Hour)
			m := domain.Match{VotingOpen: true, VotingDeadline: &deadline}

			Convey("Then the window is open before the deadline", func() {
				So(m.VotingOpenAt(now), ShouldBeTrue)
			})

			Convey("Then the stored flag alone is never trusted past the deadline", func() {
				So(m.VotingOpenAt(deadline), ShouldBeFalse)
				So(m.VotingOpenAt(deadline.Add(time.Minute)), ShouldBeFalse)
			})
		})
	})
}

func TestVoterIdentity_Authenticated(t *testing.T) {
	Convey("Given voter identities", t, func() {
		So(domain.VoterIdentity{UserID: "u1", DeviceID: "d1"}.Authenticated(), ShouldBeTrue)
		So(domain.VoterIdentity{DeviceID: "d1"}.Authenticated(), ShouldBeFalse)
	})
}

func TestStanding_GoalDifference(t *testing.T) {
	Convey("Given a standing row", t, func() {
		s := domain.Standing{GoalsFor: 7, GoalsAgainst: 10}
		So(s.GoalDifference(), ShouldEqual, -3)
	})
}

func TestIsNotFoundError(t *testing.T) {
	Convey("Given the not-found classifier", t, func() {
		So(domain.IsNotFoundError(domain.ErrMatchNotFound), ShouldBeTrue)
		So(domain.IsNotFoundError(domain.ErrCompetitionNotFound), ShouldBeTrue)
		So(domain.IsNotFoundError(domain.ErrPlayerNotFound), ShouldBeTrue)
		So(domain.IsNotFoundError(domain.ErrDuplicateVote), ShouldBeFalse)
		So(domain.IsNotFoundError(nil), ShouldBeFalse)
	})
}
