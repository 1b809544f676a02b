package backend

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/port"
)

const publishTimeout = 5 * time.Second

// EventDispatcher queues domain events and publishes them from a pool of
// workers, so a slow broker never holds up a request.
type EventDispatcher struct {
	publisher port.EventPublisher
	queue     chan domain.Event
	logger    zerolog.Logger
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup

	onPublished func(domain.Event, error)
}

func NewEventDispatcher(publisher port.EventPublisher, queueSize int, logger zerolog.Logger) *EventDispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &EventDispatcher{
		publisher: publisher,
		queue:     make(chan domain.Event, queueSize),
		logger:    logger.With().Str("component", "dispatcher").Logger(),
		now:       time.Now,
	}
}

// OnPublished registers a hook called after every publish attempt. It must be
// set before Start.
func (d *EventDispatcher) OnPublished(fn func(domain.Event, error)) {
	d.onPublished = fn
}

func (d *EventDispatcher) Start(workers int) {
	if workers <= 0 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go func(id int) {
			defer d.wg.Done()
			d.workerLoop(id)
		}(i)
	}
	d.logger.Info().Int("workers", workers).Msg("event workers started")
}

// Emit queues an event. It never blocks: when the queue is full or the
// dispatcher is closed the event is dropped and logged.
func (d *EventDispatcher) Emit(typ domain.EventType, actor string, entityID int64, detail string) {
	event := domain.Event{
		ID:         uuid.NewString(),
		Type:       typ,
		Actor:      actor,
		EntityID:   entityID,
		Detail:     detail,
		OccurredAt: d.now().UTC(),
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn().Str("type", string(typ)).Msg("dispatcher closed, event dropped")
		return
	}
	select {
	case d.queue <- event:
	default:
		d.logger.Warn().Str("type", string(typ)).Int64("entity_id", entityID).Msg("event queue full, event dropped")
	}
}

// Close stops accepting events and waits for queued ones to be published.
func (d *EventDispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	d.wg.Wait()
	d.logger.Info().Msg("event workers stopped")
}

func (d *EventDispatcher) workerLoop(id int) {
	for event := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		err := d.publisher.Publish(ctx, event)
		cancel()

		if err != nil {
			d.logger.Error().Err(err).Int("worker", id).Str("event_id", event.ID).Str("type", string(event.Type)).Msg("failed to publish event")
		}
		if d.onPublished != nil {
			d.onPublished(event, err)
		}
	}
}
