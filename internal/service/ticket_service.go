package service

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/clock"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/history"
	"github.com/spec-kit/ticket-tracker/internal/observability"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/errorutil"
)

// TicketService coordinates ticket workflows: validation, persistence, the
// audit ledger and event publication.
type TicketService struct {
	tickets    repository.TicketRepository
	templates  repository.TemplateRepository
	history    repository.HistoryRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	clock      clock.Clock
	editor     EditorConfig

	// unrecorded holds ledger entries whose append failed, retried before newer ones.
	mu         sync.Mutex
	unrecorded map[string][]domain.TicketChange
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo   repository.TicketRepository
	TemplateRepo repository.TemplateRepository
	HistoryRepo  repository.HistoryRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Clock        clock.Clock
	Editor       EditorConfig
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	s := &TicketService{
		tickets:    deps.TicketRepo,
		templates:  deps.TemplateRepo,
		history:    deps.HistoryRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		clock:      deps.Clock,
		editor:     deps.Editor,
		unrecorded: map[string][]domain.TicketChange{},
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	return s
}

// Save validates and persists ticket, then records what changed in its ledger.
// A ticket entering COMPLETED gets CompletedAt stamped; moving back to DRAFT or
// IN_PROGRESS clears it. Archiving keeps the completion time.
func (s *TicketService) Save(ctx context.Context, ticket domain.Ticket) (saved domain.Ticket, err error) {
	defer s.observe("ticket.save", s.clock.Now(), &err)

	ticket = ticket.Clone()
	ticket.Title = strings.TrimSpace(ticket.Title)
	ticket.Tags = domain.NormalizeTags(ticket.Tags)
	if ticket.Status == "" {
		ticket.Status = domain.TicketStatusDraft
	}
	if err := s.validate(ctx, ticket); err != nil {
		return domain.Ticket{}, err
	}

	var before *domain.Ticket
	if ticket.ID != "" {
		before, err = s.tickets.FindByID(ctx, ticket.ID)
		if err != nil {
			return domain.Ticket{}, asRepositoryError("find ticket", err)
		}
	}
	s.stampCompletion(&ticket, before)

	saved, err = s.tickets.Save(ctx, ticket)
	if err != nil {
		return domain.Ticket{}, asRepositoryError("save ticket", err)
	}

	changes := history.Diff(before, saved, saved.UpdatedAt)
	s.record(ctx, saved.ID, changes)
	s.publishSaved(ctx, before, saved, changes)
	return saved, nil
}

func (s *TicketService) validate(ctx context.Context, ticket domain.Ticket) error {
	details := map[string]any{}
	if ticket.Title == "" {
		details["title"] = "required"
	}
	if !ticket.Status.Valid() {
		details["status"] = "unknown status " + string(ticket.Status)
	}
	if ticket.EstimatedMinutes != nil && *ticket.EstimatedMinutes < 0 {
		details["estimatedMinutes"] = "must not be negative"
	}
	if ticket.ActualMinutes != nil && *ticket.ActualMinutes < 0 {
		details["actualMinutes"] = "must not be negative"
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid ticket", details)
	}

	if ticket.TemplateID != nil {
		ok, err := s.templates.Exists(ctx, *ticket.TemplateID)
		if err != nil {
			return asRepositoryError("find template", err)
		}
		if !ok {
			return apperrors.NewValidationError("invalid ticket", map[string]any{
				"templateId": "unknown template " + *ticket.TemplateID,
			})
		}
	}
	return nil
}

func (s *TicketService) stampCompletion(ticket *domain.Ticket, before *domain.Ticket) {
	switch ticket.Status {
	case domain.TicketStatusCompleted:
		if ticket.CompletedAt != nil {
			return
		}
		if before != nil && before.Status == domain.TicketStatusCompleted && before.CompletedAt != nil {
			at := *before.CompletedAt
			ticket.CompletedAt = &at
			return
		}
		now := s.clock.Now()
		ticket.CompletedAt = &now
	case domain.TicketStatusArchived:
	default:
		ticket.CompletedAt = nil
	}
}

// Get returns the ticket or a not-found error.
func (s *TicketService) Get(ctx context.Context, id string) (*domain.Ticket, error) {
	ticket, err := s.tickets.FindByID(ctx, id)
	if err != nil {
		return nil, asRepositoryError("find ticket", err)
	}
	if ticket == nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": id})
	}
	return ticket, nil
}

// List returns one page of tickets matching filter plus the unpaginated total.
func (s *TicketService) List(ctx context.Context, filter repository.TicketFilter) (page repository.Page[domain.Ticket], err error) {
	defer s.observe("ticket.list", s.clock.Now(), &err)
	return repository.FindPage(ctx, s.tickets, filter)
}

// Count returns how many tickets match filter, ignoring pagination.
func (s *TicketService) Count(ctx context.Context, filter repository.TicketFilter) (int, error) {
	return s.tickets.Count(ctx, filter)
}

// UpdateStatus moves the ticket to status through Save.
func (s *TicketService) UpdateStatus(ctx context.Context, id string, status domain.TicketStatus) (domain.Ticket, error) {
	ticket, err := s.Get(ctx, id)
	if err != nil {
		return domain.Ticket{}, err
	}
	ticket.Status = status
	return s.Save(ctx, *ticket)
}

// Delete removes the ticket and its ledger. It reports false when nothing was deleted.
func (s *TicketService) Delete(ctx context.Context, id string) (deleted bool, err error) {
	defer s.observe("ticket.delete", s.clock.Now(), &err)

	deleted, err = s.tickets.Delete(ctx, id)
	if err != nil {
		return false, asRepositoryError("delete ticket", err)
	}
	if !deleted {
		return false, nil
	}
	s.mu.Lock()
	delete(s.unrecorded, id)
	s.mu.Unlock()
	if err := s.history.DeleteByTicket(ctx, id); err != nil {
		return true, asRepositoryError("delete history", err)
	}
	s.publishEvent(ctx, events.Event{Type: events.EventTicketDeleted, SubjectID: id})
	return true, nil
}

// record appends changes after any entries left over from an earlier failure.
// The ticket itself is already stored, so a failed append is kept for the next
// attempt instead of failing the save.
func (s *TicketService) record(ctx context.Context, ticketID string, changes []domain.TicketChange) {
	s.mu.Lock()
	defer s.mu.Unlock()
	queue := append(s.unrecorded[ticketID], changes...)
	for i, change := range queue {
		if err := s.history.Append(ctx, change); err != nil {
			s.unrecorded[ticketID] = slices.Clone(queue[i:])
			s.metrics.RecordError("ticket.history", apperrors.CodeRepository)
			s.logger.Warn("history append failed, will retry",
				zap.String("ticket_id", ticketID),
				zap.Int("pending", len(queue)-i),
				zap.Error(err),
			)
			return
		}
	}
	delete(s.unrecorded, ticketID)
}

// History returns the ticket's audit ledger.
func (s *TicketService) History(ctx context.Context, ticketID string) (*history.Ledger, error) {
	s.record(ctx, ticketID, nil)
	ledger, err := s.history.Ledger(ctx, ticketID)
	if err != nil {
		return nil, asRepositoryError("load history", err)
	}
	return ledger, nil
}

// RecentChanges returns up to limit ledger entries, newest first.
func (s *TicketService) RecentChanges(ctx context.Context, ticketID string, limit int) ([]domain.TicketChange, error) {
	ledger, err := s.History(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	return ledger.GetLatestChanges(limit), nil
}

func (s *TicketService) publishSaved(ctx context.Context, before *domain.Ticket, saved domain.Ticket, changes []domain.TicketChange) {
	if len(changes) == 0 {
		return
	}
	eventType := events.EventTicketUpdated
	if before == nil {
		eventType = events.EventTicketCreated
	}
	s.publishEvent(ctx, events.Event{
		Type:      eventType,
		SubjectID: saved.ID,
		Timestamp: saved.UpdatedAt,
		Payload: events.TicketSavedPayload{
			Title:   saved.Title,
			Status:  saved.Status,
			Changes: changes,
		},
	})
	if before != nil && before.Status != saved.Status {
		s.publishEvent(ctx, events.Event{
			Type:      events.EventTicketStatusChanged,
			SubjectID: saved.ID,
			Timestamp: saved.UpdatedAt,
			Payload: events.TicketStatusChangedPayload{
				OldStatus: before.Status,
				NewStatus: saved.Status,
			},
		})
	}
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	publish(ctx, s.dispatcher, s.logger, s.clock, event)
}

func (s *TicketService) observe(op string, start time.Time, err *error) {
	observe(s.metrics, s.clock, op, start, *err)
}
