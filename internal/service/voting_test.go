package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/league-ledger/internal/config"
	"github.com/league-ledger/internal/domain"
	"github.com/league-ledger/internal/service"
	. "github.com/smartystreets/goconvey/convey"
)

func newVotingFixture() (*fakeStore, *service.VotingService) {
	store := newFakeStore()
	store.addMatch(domain.Match{
		ID:            "match-1",
		CompetitionID: "comp-1",
		HomeTeamID:    "team-h",
		AwayTeamID:    "team-a",
		Status:        domain.MatchFinished,
		VotingOpen:    true,
	})
	store.register("comp-1", "team-h", "player-1")
	store.register("comp-1", "team-a", "player-2")
	store.names["player-1"] = "Player One"
	store.names["player-2"] = "Player Two"

	names := service.NewNames(nil, store, testLogger())
	svc := service.NewVotingService(store, nil, names, &config.VotingConfig{}, testLogger())
	return store, svc
}

func TestVotingService_CastVote(t *testing.T) {
	ctx := context.Background()

	Convey("Given a finished match with an open voting window", t, func() {
		store, svc := newVotingFixture()

		Convey("When an authenticated user votes for a home-team player", func() {
			err := svc.CastVote(ctx, "match-1", "player-1", domain.VoterIdentity{UserID: "user-1", DeviceID: "dev-1"})

			Convey("Then the vote is recorded", func() {
				So(err, ShouldBeNil)
				total, _ := store.CountVotes(ctx, "match-1")
				So(total, ShouldEqual, 1)
			})

			Convey("And a second vote by the same user is rejected", func() {
				So(err, ShouldBeNil)
				err = svc.CastVote(ctx, "match-1", "player-2", domain.VoterIdentity{UserID: "user-1", DeviceID: "dev-other"})
				So(errors.Is(err, domain.ErrDuplicateVote), ShouldBeTrue)
				total, _ := store.CountVotes(ctx, "match-1")
				So(total, ShouldEqual, 1)
			})
		})

		Convey("When an anonymous device votes twice", func() {
			err := svc.CastVote(ctx, "match-1", "player-1", domain.VoterIdentity{DeviceID: "dev-1"})
			So(err, ShouldBeNil)
			err = svc.CastVote(ctx, "match-1", "player-1", domain.VoterIdentity{DeviceID: "dev-1"})

			Convey("Then the second vote is a duplicate", func() {
				So(errors.Is(err, domain.ErrDuplicateVote), ShouldBeTrue)
			})
		})

		Convey("When a user who voted anonymously votes again authenticated from the same device", func() {
			err := svc.CastVote(ctx, "match-1", "player-1", domain.VoterIdentity{DeviceID: "dev-1"})
			So(err, ShouldBeNil)
			err = svc.CastVote(ctx, "match-1", "player-2", domain.VoterIdentity{UserID: "user-1", DeviceID: "dev-1"})

			Convey("Then both votes stand: the identity spaces are independent", func() {
				So(err, ShouldBeNil)
				total, _ := store.CountVotes(ctx, "match-1")
				So(total, ShouldEqual, 2)
			})
		})

		Convey("When the candidate is not registered to either team", func() {
			err := svc.CastVote(ctx, "match-1", "player-99", domain.VoterIdentity{DeviceID: "dev-1"})

			Convey("Then the vote is rejected and nothing is recorded", func() {
				So(errors.Is(err, domain.ErrIneligibleCandidate), ShouldBeTrue)
				total, _ := store.CountVotes(ctx, "match-1")
				So(total, ShouldEqual, 0)
			})
		})

		Convey("When the match does not exist", func() {
			err := svc.CastVote(ctx, "match-404", "player-1", domain.VoterIdentity{DeviceID: "dev-1"})

			Convey("Then a not-found error is returned", func() {
				So(errors.Is(err, domain.ErrMatchNotFound), ShouldBeTrue)
			})
		})

		Convey("When the candidate id is empty", func() {
			err := svc.CastVote(ctx, "match-1", "", domain.VoterIdentity{DeviceID: "dev-1"})

			Convey("Then the request is invalid", func() {
				So(errors.Is(err, domain.ErrInvalidRequest), ShouldBeTrue)
			})
		})
	})

	Convey("Given a match whose voting window is closed", t, func() {
		store, svc := newVotingFixture()
		So(svc.CloseVoting(ctx, "match-1"), ShouldBeNil)

		Convey("When a vote is cast", func() {
			err := svc.CastVote(ctx, "match-1", "player-1", domain.VoterIdentity{DeviceID: "dev-1"})

			Convey("Then it is rejected", func() {
				So(errors.Is(err, domain.ErrVotingClosed), ShouldBeTrue)
				total, _ := store.CountVotes(ctx, "match-1")
				So(total, ShouldEqual, 0)
			})
		})
	})

	Convey("Given an open window with an expired deadline", t, func() {
		_, svc := newVotingFixture()
		deadline := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)
		So(svc.OpenVoting(ctx, "match-1", &deadline), ShouldBeNil)
		svc.SetClock(func() time.Time { return deadline.Add(time.Minute) })

		Convey("When a vote is cast after the deadline", func() {
			err := svc.CastVote(ctx, "match-1", "player-1", domain.VoterIdentity{DeviceID: "dev-1"})

			Convey("Then the window reads as closed even though the flag is still set", func() {
				So(errors.Is(err, domain.ErrVotingClosed), ShouldBeTrue)
			})
		})

		Convey("When checking the status after the deadline", func() {
			status, err := svc.Status(ctx, "match-1")

			Convey("Then isOpen is false even though the stored flag is still set", func() {
				So(err, ShouldBeNil)
				So(status.IsOpen, ShouldBeFalse)
				So(status.Deadline, ShouldNotBeNil)
			})
		})

		Convey("When a vote is cast just before the deadline", func() {
			svc.SetClock(func() time.Time { return deadline.Add(-time.Second) })
			err := svc.CastVote(ctx, "match-1", "player-1", domain.VoterIdentity{DeviceID: "dev-1"})

			Convey("Then it is accepted", func() {
				So(err, ShouldBeNil)
			})
		})
	})

	Convey("Given a window that was closed and re-opened", t, func() {
		store, svc := newVotingFixture()
		So(svc.CastVote(ctx, "match-1", "player-1", domain.VoterIdentity{DeviceID: "dev-1"}), ShouldBeNil)
		So(svc.CloseVoting(ctx, "match-1"), ShouldBeNil)
		So(svc.OpenVoting(ctx, "match-1", nil), ShouldBeNil)

		Convey("When another identity votes after the re-open", func() {
			err := svc.CastVote(ctx, "match-1", "player-2", domain.VoterIdentity{DeviceID: "dev-2"})

			Convey("Then earlier votes remain counted alongside the new one", func() {
				So(err, ShouldBeNil)
				total, _ := store.CountVotes(ctx, "match-1")
				So(total, ShouldEqual, 2)
			})
		})
	})
}

func TestVotingService_CastVote_Concurrent(t *testing.T) {
	ctx := context.Background()

	Convey("Given many concurrent votes from one identity", t, func() {
		store, svc := newVotingFixture()

		const goroutines = 16
		errs := make([]error, goroutines)
		var wg sync.WaitGroup
		wg.Add(goroutines)
		for i := 0; i < goroutines; i++ {
			go func(i int) {
				defer wg.Done()
				errs[i] = svc.CastVote(ctx, "match-1", "player-1", domain.VoterIdentity{UserID: "user-1", DeviceID: "dev-1"})
			}(i)
		}
		wg.Wait()

		Convey("Then exactly one vote is accepted", func() {
			accepted, duplicates := 0, 0
			for _, err := range errs {
				switch {
				case err == nil:
					accepted++
				case errors.Is(err, domain.ErrDuplicateVote):
					duplicates++
				}
			}
			So(accepted, ShouldEqual, 1)
			So(duplicates, ShouldEqual, goroutines-1)

			total, _ := store.CountVotes(ctx, "match-1")
			So(total, ShouldEqual, 1)
		})
	})
}

func TestVotingService_RateLimit(t *testing.T) {
	ctx := context.Background()

	newLimitedFixture := func(limiter *fakeLimiter) (*fakeStore, *service.VotingService) {
		store := newFakeStore()
		store.addMatch(domain.Match{
			ID: "match-1", CompetitionID: "comp-1",
			HomeTeamID: "team-h", AwayTeamID: "team-a",
			VotingOpen: true,
		})
		store.register("comp-1", "team-h", "player-1")
		names := service.NewNames(nil, store, testLogger())
		cfg := &config.VotingConfig{RateLimitAttempts: 5, RateLimitWindow: time.Minute}
		return store, service.NewVotingService(store, limiter, names, cfg, testLogger())
	}

	Convey("Given a limiter that refuses the attempt", t, func() {
		limiter := &fakeLimiter{allowed: false}
		store, svc := newLimitedFixture(limiter)

		Convey("When a vote is cast", func() {
			err := svc.CastVote(ctx, "match-1", "player-1", domain.VoterIdentity{DeviceID: "dev-1"})

			Convey("Then it is rate limited before any store work", func() {
				So(errors.Is(err, domain.ErrRateLimited), ShouldBeTrue)
				So(limiter.attempts, ShouldEqual, 1)
				total, _ := store.CountVotes(ctx, "match-1")
				So(total, ShouldEqual, 0)
			})
		})
	})

	Convey("Given a limiter that errors", t, func() {
		limiter := &fakeLimiter{err: errors.New("redis down")}
		store, svc := newLimitedFixture(limiter)

		Convey("When a vote is cast", func() {
			err := svc.CastVote(ctx, "match-1", "player-1", domain.VoterIdentity{DeviceID: "dev-1"})

			Convey("Then the limiter fails open and the vote is recorded", func() {
				So(err, ShouldBeNil)
				total, _ := store.CountVotes(ctx, "match-1")
				So(total, ShouldEqual, 1)
			})
		})
	})
}

func TestVotingService_Results(t *testing.T) {
	ctx := context.Background()

	Convey("Given a match with votes for two candidates", t, func() {
		_, svc := newVotingFixture()
		So(svc.CastVote(ctx, "match-1", "player-1", domain.VoterIdentity{DeviceID: "dev-1"}), ShouldBeNil)
		So(svc.CastVote(ctx, "match-1", "player-1", domain.VoterIdentity{DeviceID: "dev-2"}), ShouldBeNil)
		So(svc.CastVote(ctx, "match-1", "player-2", domain.VoterIdentity{DeviceID: "dev-3"}), ShouldBeNil)

		Convey("When fetching the results", func() {
			results, err := svc.Results(ctx, "match-1")

			Convey("Then candidates are ordered by votes descending", func() {
				So(err, ShouldBeNil)
				So(results, ShouldHaveLength, 2)
				So(results[0].PlayerID, ShouldEqual, "player-1")
				So(results[0].Votes, ShouldEqual, 2)
				So(results[1].PlayerID, ShouldEqual, "player-2")
				So(results[1].Votes, ShouldEqual, 1)
			})

			Convey("Then percentages are rounded to one decimal", func() {
				So(err, ShouldBeNil)
				So(results[0].Percentage, ShouldEqual, 66.7)
				So(results[1].Percentage, ShouldEqual, 33.3)
			})

			Convey("Then display names are resolved", func() {
				So(err, ShouldBeNil)
				So(results[0].PlayerName, ShouldEqual, "Player One")
				So(results[1].PlayerName, ShouldEqual, "Player Two")
			})
		})

		Convey("When fetching the status", func() {
			status, err := svc.Status(ctx, "match-1")

			Convey("Then it reports the open window, total and winner", func() {
				So(err, ShouldBeNil)
				So(status.IsOpen, ShouldBeTrue)
				So(status.TotalVotes, ShouldEqual, 3)
				So(status.Winner, ShouldNotBeNil)
				So(status.Winner.PlayerID, ShouldEqual, "player-1")
			})
		})
	})

	Convey("Given a match with no votes", t, func() {
		_, svc := newVotingFixture()

		Convey("When fetching the results", func() {
			results, err := svc.Results(ctx, "match-1")

			Convey("Then the result set is empty, not a zero-percent list", func() {
				So(err, ShouldBeNil)
				So(results, ShouldNotBeNil)
				So(results, ShouldBeEmpty)
			})
		})

		Convey("When fetching the status", func() {
			status, err := svc.Status(ctx, "match-1")

			Convey("Then there is no winner", func() {
				So(err, ShouldBeNil)
				So(status.TotalVotes, ShouldEqual, 0)
				So(status.Winner, ShouldBeNil)
			})
		})
	})

	Convey("Given an unknown match", t, func() {
		_, svc := newVotingFixture()

		Convey("When fetching results or status", func() {
			_, errResults := svc.Results(ctx, "match-404")
			_, errStatus := svc.Status(ctx, "match-404")

			Convey("Then both report not found", func() {
				So(errors.Is(errResults, domain.ErrMatchNotFound), ShouldBeTrue)
				So(errors.Is(errStatus, domain.ErrMatchNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a closed window with recorded votes", t, func() {
		_, svc := newVotingFixture()
		So(svc.CastVote(ctx, "match-1", "player-1", domain.VoterIdentity{DeviceID: "dev-1"}), ShouldBeNil)
		So(svc.CloseVoting(ctx, "match-1"), ShouldBeNil)

		Convey("When fetching results and status", func() {
			results, err := svc.Results(ctx, "match-1")
			So(err, ShouldBeNil)
			status, err := svc.Status(ctx, "match-1")
			So(err, ShouldBeNil)

			Convey("Then results stay readable after close", func() {
				So(results, ShouldHaveLength, 1)
				So(status.IsOpen, ShouldBeFalse)
				So(status.TotalVotes, ShouldEqual, 1)
			})
		})
	})
}
