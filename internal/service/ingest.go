package service

import (
	"context"
	"log/slog"

	"github.com/league-ledger/internal/domain"
)

// EventStore is the append-and-read surface of the match event log.
type EventStore interface {
	GetMatch(ctx context.Context, matchID string) (*domain.Match, error)
	InsertMatchEvent(ctx context.Context, event domain.MatchEvent) error
	ListMatchEvents(ctx context.Context, matchID string) ([]domain.MatchEvent, error)
}

// Ticker receives ingested events for live fan-out. May be absent.
type Ticker interface {
	BroadcastMatchEvent(event domain.MatchEvent)
}

// IngestService appends match events published by match management to the
// event log and feeds the live ticker.
type IngestService struct {
	store  EventStore
	ticker Ticker
	logger *slog.Logger
}

// NewIngestService creates a new ingest service. ticker may be nil.
func NewIngestService(store EventStore, ticker Ticker, logger *slog.Logger) *IngestService {
	return &IngestService{
		store:  store,
		ticker: ticker,
		logger: logger,
	}
}

// Record validates and appends a single event.
func (s *IngestService) Record(ctx context.Context, msg domain.MatchEventMessage) error {
	if !domain.ValidEventType(msg.EventType) {
		return domain.ErrInvalidEventType
	}
	if msg.MatchID == "" || msg.PlayerID == "" || msg.TeamID == "" {
		return domain.ErrInvalidRequest
	}

	if _, err := s.store.GetMatch(ctx, msg.MatchID); err != nil {
		return err
	}

	event := domain.MatchEvent{
		MatchID:  msg.MatchID,
		PlayerID: msg.PlayerID,
		TeamID:   msg.TeamID,
		Type:     msg.EventType,
		Minute:   msg.Minute,
		Half:     msg.Half,
	}
	if err := s.store.InsertMatchEvent(ctx, event); err != nil {
		return err
	}

	if s.ticker != nil {
		s.ticker.BroadcastMatchEvent(event)
	}
	return nil
}

// MatchEvents returns the recorded event log for one match, in event order.
func (s *IngestService) MatchEvents(ctx context.Context, matchID string) ([]domain.MatchEvent, error) {
	if _, err := s.store.GetMatch(ctx, matchID); err != nil {
		return nil, err
	}
	return s.store.ListMatchEvents(ctx, matchID)
}

// RecordBatch appends a batch of events, continuing past individual
// failures. The event stream is append-only and replayable upstream, so a
// dropped message is logged and skipped rather than blocking the batch.
func (s *IngestService) RecordBatch(ctx context.Context, msgs []domain.MatchEventMessage) error {
	for _, msg := range msgs {
		if err := s.Record(ctx, msg); err != nil {
			s.logger.Error("failed to record match event",
				"match_id", msg.MatchID,
				"player_id", msg.PlayerID,
				"event_type", msg.EventType,
				"error", err,
			)
		}
	}
	return nil
}
