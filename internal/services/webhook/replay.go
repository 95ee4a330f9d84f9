package webhook

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"payhub/internal/domain/webhook"
)

// ReplayRequest selects stored webhooks to process again, either by id or
// by a received-at window.
type ReplayRequest struct {
	EventIDs []string   `json:"event_ids,omitempty"`
	Since    *time.Time `json:"since,omitempty"`
	Until    *time.Time `json:"until,omitempty"`
	Max      int        `json:"max,omitempty"`
}

// ReplayResponse represents the result of an event replay operation
type ReplayResponse struct {
	Replayed int `json:"replayed"`
	Skipped  int `json:"skipped"`
}

const (
	defaultReplayMax = 200
	replayCap        = 1000
)

// Replay re-applies stored events from their extracted reference and type.
// Events of other merchants and events still pending are skipped.
func (s *Service) Replay(ctx context.Context, merchantID string, req ReplayRequest) (*ReplayResponse, error) {
	var events []*webhook.Event
	if len(req.EventIDs) > 0 {
		for _, id := range req.EventIDs {
			ev, err := s.events.FindByID(ctx, id)
			if err != nil || ev.MerchantID != merchantID {
				continue
			}
			events = append(events, ev)
		}
	} else {
		max := req.Max
		switch {
		case max <= 0:
			max = defaultReplayMax
		case max > replayCap:
			max = replayCap
		}
		var err error
		events, err = s.events.FindReceivedBetween(ctx, merchantID, req.Since, req.Until, max)
		if err != nil {
			return nil, err
		}
	}

	out := &ReplayResponse{Skipped: len(req.EventIDs) - len(events)}
	if out.Skipped < 0 {
		out.Skipped = 0
	}
	for _, ev := range events {
		if err := ev.MarkForReprocessing(); err != nil {
			out.Skipped++
			continue
		}
		if err := s.process(ctx, ev); err != nil {
			log.Error().Err(err).Str("event_id", ev.ID).Msg("webhook replay failed")
			out.Skipped++
			continue
		}
		out.Replayed++
	}
	return out, nil
}
