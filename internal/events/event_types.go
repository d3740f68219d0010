package events

import (
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated          EventType = "ticket_created"
	EventTicketUpdated          EventType = "ticket_updated"
	EventTicketStatusChanged    EventType = "ticket_status_changed"
	EventTicketDeleted          EventType = "ticket_deleted"
	EventTemplateSaved          EventType = "template_saved"
	EventTemplateDefaultChanged EventType = "template_default_changed"
	EventTemplateDeleted        EventType = "template_deleted"
)

// Event represents a domain event emitted by services. SubjectID is the ticket
// or template the event is about.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	SubjectID string    `json:"subject_id"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// TicketSavedPayload accompanies created and updated events.
type TicketSavedPayload struct {
	Title   string                `json:"title"`
	Status  domain.TicketStatus   `json:"status"`
	Changes []domain.TicketChange `json:"changes"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TemplatePayload accompanies template events.
type TemplatePayload struct {
	Name    string `json:"name"`
	Version int    `json:"version"`
}
