package domain

import "time"

// ChangeType captures what kind of change a history entry records.
type ChangeType string

const (
	ChangeTypeCreated       ChangeType = "CREATED"
	ChangeTypeUpdated       ChangeType = "UPDATED"
	ChangeTypeStatusChanged ChangeType = "STATUS_CHANGED"
	ChangeTypeCompleted     ChangeType = "COMPLETED"
	ChangeTypeArchived      ChangeType = "ARCHIVED"
)

// TicketChange is an immutable audit trail entry. Field is empty when the
// change is not tied to a single field.
type TicketChange struct {
	ID          string
	TicketID    string
	ChangeType  ChangeType
	Field       string
	OldValue    any
	NewValue    any
	Timestamp   time.Time
	Description string
}
