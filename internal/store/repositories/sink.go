package repositories

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"payhub/internal/connector"
)

// EventSink persists connector events through a ConnectorEventRepository.
// Record never fails the caller: a write error is logged and dropped.
type EventSink struct {
	Events  ConnectorEventRepository
	Timeout time.Duration
}

func NewEventSink(events ConnectorEventRepository) *EventSink {
	return &EventSink{Events: events, Timeout: 5 * time.Second}
}

func (s *EventSink) Record(e *connector.Event) {
	if s == nil || e == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), s.Timeout)
	defer cancel()
	if err := s.Events.Save(ctx, e); err != nil {
		log.Error().Err(err).Str("event_id", e.ID).Str("connector", e.Connector).Msg("connector event persist failed")
	}
}
