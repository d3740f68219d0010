package history

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// Diff derives the change records produced by saving after over before.
// A nil before means the ticket is new and yields a single CREATED entry.
// Returned entries have no ID; the history store assigns one on append.
func Diff(before *domain.Ticket, after domain.Ticket, at time.Time) []domain.TicketChange {
	if before == nil {
		return []domain.TicketChange{{
			TicketID:    after.ID,
			ChangeType:  domain.ChangeTypeCreated,
			NewValue:    string(after.Status),
			Timestamp:   at,
			Description: fmt.Sprintf("Ticket %q created", after.Title),
		}}
	}

	var changes []domain.TicketChange
	field := func(name string, oldValue, newValue any) {
		changes = append(changes, domain.TicketChange{
			TicketID:    after.ID,
			ChangeType:  domain.ChangeTypeUpdated,
			Field:       name,
			OldValue:    oldValue,
			NewValue:    newValue,
			Timestamp:   at,
			Description: fmt.Sprintf("%s changed from %s to %s", name, display(oldValue), display(newValue)),
		})
	}

	if before.Status != after.Status {
		changes = append(changes, statusChange(before.Status, after, at))
	}
	if before.Title != after.Title {
		field("title", before.Title, after.Title)
	}
	if before.Description != after.Description {
		field("description", before.Description, after.Description)
	}
	if !sameTags(before.Tags, after.Tags) {
		field("tags", slices.Clone(before.Tags), slices.Clone(after.Tags))
	}
	if !equalPtr(before.TemplateID, after.TemplateID) {
		field("templateId", deref(before.TemplateID), deref(after.TemplateID))
	}
	if !equalPtr(before.EstimatedMinutes, after.EstimatedMinutes) {
		field("estimatedMinutes", deref(before.EstimatedMinutes), deref(after.EstimatedMinutes))
	}
	if !equalPtr(before.ActualMinutes, after.ActualMinutes) {
		field("actualMinutes", deref(before.ActualMinutes), deref(after.ActualMinutes))
	}
	if !reflect.DeepEqual(before.Content, after.Content) {
		changes = append(changes, domain.TicketChange{
			TicketID:    after.ID,
			ChangeType:  domain.ChangeTypeUpdated,
			Field:       "content",
			OldValue:    before.Content,
			NewValue:    after.Content,
			Timestamp:   at,
			Description: "Template content updated",
		})
	}
	return changes
}

func statusChange(from domain.TicketStatus, after domain.Ticket, at time.Time) domain.TicketChange {
	change := domain.TicketChange{
		TicketID:   after.ID,
		ChangeType: domain.ChangeTypeStatusChanged,
		Field:      "status",
		OldValue:   string(from),
		NewValue:   string(after.Status),
		Timestamp:  at,
	}
	switch after.Status {
	case domain.TicketStatusCompleted:
		change.ChangeType = domain.ChangeTypeCompleted
		change.Description = fmt.Sprintf("Ticket %q completed", after.Title)
	case domain.TicketStatusArchived:
		change.ChangeType = domain.ChangeTypeArchived
		change.Description = fmt.Sprintf("Ticket %q archived", after.Title)
	default:
		change.Description = fmt.Sprintf("Status changed from %s to %s", from, after.Status)
	}
	return change
}

// sameTags compares tag sets; order is not significant.
func sameTags(a, b []string) bool {
	a, b = domain.NormalizeTags(a), domain.NormalizeTags(b)
	if len(a) != len(b) {
		return false
	}
	for _, tag := range a {
		if !slices.Contains(b, tag) {
			return false
		}
	}
	return true
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func deref[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}

func display(v any) string {
	switch val := v.(type) {
	case nil:
		return "none"
	case string:
		if val == "" {
			return `""`
		}
		return fmt.Sprintf("%q", val)
	case []string:
		return "[" + strings.Join(val, ", ") + "]"
	default:
		return fmt.Sprint(val)
	}
}
