package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/league-ledger/internal/domain"
	"github.com/league-ledger/internal/service"
	. "github.com/smartystreets/goconvey/convey"
)

func newIngestFixture() (*fakeStore, *recordingTicker, *service.IngestService) {
	store := newFakeStore()
	store.addMatch(domain.Match{ID: "match-1", CompetitionID: "comp-1", HomeTeamID: "team-a", AwayTeamID: "team-b"})
	ticker := &recordingTicker{}
	return store, ticker, service.NewIngestService(store, ticker, testLogger())
}

func TestIngestService_Record(t *testing.T) {
	ctx := context.Background()

	Convey("Given an ingest service over a known match", t, func() {
		store, ticker, svc := newIngestFixture()
		msg := domain.MatchEventMessage{
			MatchID: "match-1", PlayerID: "player-1", TeamID: "team-a",
			EventType: domain.EventGoal, Minute: 23, Half: 1,
		}

		Convey("When recording a valid event", func() {
			err := svc.Record(ctx, msg)

			Convey("Then it is appended to the log", func() {
				So(err, ShouldBeNil)
				So(store.events, ShouldHaveLength, 1)
				So(store.events[0].Type, ShouldEqual, domain.EventGoal)
				So(store.events[0].Minute, ShouldEqual, 23)
			})

			Convey("Then it is broadcast to the ticker", func() {
				So(err, ShouldBeNil)
				So(ticker.seen(), ShouldHaveLength, 1)
				So(ticker.seen()[0].MatchID, ShouldEqual, "match-1")
			})
		})

		Convey("When the event type is outside the closed set", func() {
			msg.EventType = "corner_kick"
			err := svc.Record(ctx, msg)

			Convey("Then it is rejected and nothing is appended", func() {
				So(errors.Is(err, domain.ErrInvalidEventType), ShouldBeTrue)
				So(store.events, ShouldBeEmpty)
			})
		})

		Convey("When the match is unknown", func() {
			msg.MatchID = "match-404"
			err := svc.Record(ctx, msg)

			Convey("Then a not-found error is returned", func() {
				So(errors.Is(err, domain.ErrMatchNotFound), ShouldBeTrue)
			})
		})

		Convey("When a required field is missing", func() {
			msg.PlayerID = ""
			err := svc.Record(ctx, msg)

			Convey("Then the message is invalid", func() {
				So(errors.Is(err, domain.ErrInvalidRequest), ShouldBeTrue)
			})
		})
	})
}

func TestIngestService_MatchEvents(t *testing.T) {
	ctx := context.Background()

	Convey("Given recorded events for a match", t, func() {
		_, _, svc := newIngestFixture()
		So(svc.Record(ctx, domain.MatchEventMessage{
			MatchID: "match-1", PlayerID: "player-1", TeamID: "team-a",
			EventType: domain.EventGoal, Minute: 12,
		}), ShouldBeNil)
		So(svc.Record(ctx, domain.MatchEventMessage{
			MatchID: "match-1", PlayerID: "player-2", TeamID: "team-b",
			EventType: domain.EventYellowCard, Minute: 40,
		}), ShouldBeNil)

		Convey("When reading the match's event log", func() {
			events, err := svc.MatchEvents(ctx, "match-1")

			Convey("Then the events come back in recorded order", func() {
				So(err, ShouldBeNil)
				So(events, ShouldHaveLength, 2)
				So(events[0].Minute, ShouldEqual, 12)
				So(events[1].Minute, ShouldEqual, 40)
			})
		})

		Convey("When the match is unknown", func() {
			_, err := svc.MatchEvents(ctx, "match-404")

			Convey("Then a not-found error is returned", func() {
				So(errors.Is(err, domain.ErrMatchNotFound), ShouldBeTrue)
			})
		})
	})
}

func TestIngestService_RecordBatch(t *testing.T) {
	ctx := context.Background()

	Convey("Given a batch with one bad message in the middle", t, func() {
		store, _, svc := newIngestFixture()
		msgs := []domain.MatchEventMessage{
			{MatchID: "match-1", PlayerID: "player-1", TeamID: "team-a", EventType: domain.EventGoal},
			{MatchID: "match-1", PlayerID: "player-2", TeamID: "team-b", EventType: "throw_in"},
			{MatchID: "match-1", PlayerID: "player-3", TeamID: "team-a", EventType: domain.EventYellowCard},
		}

		Convey("When recording the batch", func() {
			err := svc.RecordBatch(ctx, msgs)

			Convey("Then the bad message is skipped, not blocking the rest", func() {
				So(err, ShouldBeNil)
				So(store.events, ShouldHaveLength, 2)
				So(store.events[0].PlayerID, ShouldEqual, "player-1")
				So(store.events[1].PlayerID, ShouldEqual, "player-3")
			})
		})
	})
}
