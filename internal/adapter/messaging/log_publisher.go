package messaging

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/port"
)

// LogPublisher writes events to the log when no broker is configured.
type LogPublisher struct {
	logger zerolog.Logger
}

var _ port.EventPublisher = (*LogPublisher)(nil)

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

func (l *LogPublisher) Publish(ctx context.Context, event domain.Event) error {
	l.logger.Info().
		Str("event_id", event.ID).
		Str("type", string(event.Type)).
		Str("actor", event.Actor).
		Int64("entity_id", event.EntityID).
		Str("detail", event.Detail).
		Time("occurred_at", event.OccurredAt).
		Msg("event")
	return nil
}
