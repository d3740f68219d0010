package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/clock"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/observability"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/errorutil"
)

func publish(ctx context.Context, dispatcher events.Dispatcher, logger *zap.Logger, clk clock.Clock, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = clk.Now()
	}
	if err := dispatcher.Publish(ctx, event); err != nil {
		logger.Warn("event handler failed",
			zap.String("event_type", string(event.Type)),
			zap.String("subject_id", event.SubjectID),
			zap.Error(err))
	}
}

func observe(metrics *observability.Metrics, clk clock.Clock, op string, start time.Time, err error) {
	metrics.RecordOperation(op, clk.Now().Sub(start))
	if err != nil {
		metrics.RecordError(op, apperrors.ToDomainError(err).Code)
	}
}

// asRepositoryError keeps domain errors as they are and wraps anything else.
func asRepositoryError(op string, err error) error {
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return err
	}
	return apperrors.NewRepositoryError(op, err)
}

func notFound(resource, id string) error {
	return apperrors.NewNotFound(resource, map[string]any{"id": id})
}
