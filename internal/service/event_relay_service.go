package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/agency-listings/internal/events"
	"github.com/spec-kit/agency-listings/internal/observability"
)

// EventRelayService forwards dispatched domain events to the message broker.
type EventRelayService struct {
	dispatcher events.Dispatcher
	publisher  events.Publisher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewEventRelayService creates the service.
func NewEventRelayService(dispatcher events.Dispatcher, publisher events.Publisher, metrics *observability.Metrics, logger *zap.Logger) *EventRelayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventRelayService{
		dispatcher: dispatcher,
		publisher:  publisher,
		metrics:    metrics,
		logger:     logger,
	}
}

// RegisterHandlers subscribes the relay to every event type.
func (r *EventRelayService) RegisterHandlers() {
	if r.dispatcher == nil || r.publisher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes() {
		r.dispatcher.Subscribe(eventType, r.forward)
	}
}

func (r *EventRelayService) forward(ctx context.Context, event events.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		r.metrics.RecordEvent(string(event.Type), false)
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}
	if err := r.publisher.Publish(ctx, string(event.Type), body); err != nil {
		r.metrics.RecordEvent(string(event.Type), false)
		r.logger.Warn("event publish failed",
			zap.String("event_type", string(event.Type)),
			zap.String("aggregate_id", event.AggregateID),
			zap.Error(err))
		return err
	}
	r.metrics.RecordEvent(string(event.Type), true)
	r.logger.Debug("event published",
		zap.String("event_type", string(event.Type)),
		zap.String("aggregate_id", event.AggregateID))
	return nil
}
