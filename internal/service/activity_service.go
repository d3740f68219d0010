package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/observability"
)

// ActivityService records domain events in the log and the metrics.
type ActivityService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewActivityService creates the service.
func NewActivityService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *ActivityService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.handleTicketSaved)
	a.dispatcher.Subscribe(events.EventTicketUpdated, a.handleTicketSaved)
	a.dispatcher.Subscribe(events.EventTicketStatusChanged, a.handleTicketStatusChanged)
	a.dispatcher.Subscribe(events.EventTicketDeleted, a.handleGeneric)
	a.dispatcher.Subscribe(events.EventTemplateSaved, a.handleTemplate)
	a.dispatcher.Subscribe(events.EventTemplateDefaultChanged, a.handleTemplate)
	a.dispatcher.Subscribe(events.EventTemplateDeleted, a.handleTemplate)
}

func (a *ActivityService) handleTicketSaved(_ context.Context, event events.Event) error {
	a.count(event)
	fields := []zap.Field{
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.SubjectID),
	}
	if payload, ok := event.Payload.(events.TicketSavedPayload); ok {
		fields = append(fields,
			zap.String("status", string(payload.Status)),
			zap.Int("changes", len(payload.Changes)))
	}
	a.logger.Info("ticket saved", fields...)
	return nil
}

func (a *ActivityService) handleTicketStatusChanged(_ context.Context, event events.Event) error {
	a.count(event)
	payload, _ := event.Payload.(events.TicketStatusChangedPayload)
	a.logger.Info("ticket status changed",
		zap.String("ticket_id", event.SubjectID),
		zap.String("old_status", string(payload.OldStatus)),
		zap.String("new_status", string(payload.NewStatus)))
	return nil
}

func (a *ActivityService) handleTemplate(_ context.Context, event events.Event) error {
	a.count(event)
	payload, _ := event.Payload.(events.TemplatePayload)
	a.logger.Info("template activity",
		zap.String("event_type", string(event.Type)),
		zap.String("template_id", event.SubjectID),
		zap.String("name", payload.Name),
		zap.Int("version", payload.Version))
	return nil
}

func (a *ActivityService) handleGeneric(_ context.Context, event events.Event) error {
	a.count(event)
	a.logger.Info("activity",
		zap.String("event_type", string(event.Type)),
		zap.String("subject_id", event.SubjectID))
	return nil
}

func (a *ActivityService) count(event events.Event) {
	a.metrics.RecordOperation("event."+string(event.Type), 0)
}
