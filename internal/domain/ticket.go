package domain

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusDraft      TicketStatus = "DRAFT"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusCompleted  TicketStatus = "COMPLETED"
	TicketStatusArchived   TicketStatus = "ARCHIVED"
)

// TicketStatuses lists statuses in lifecycle order.
var TicketStatuses = []TicketStatus{
	TicketStatusDraft,
	TicketStatusInProgress,
	TicketStatusCompleted,
	TicketStatusArchived,
}

// Valid reports whether s is a known status.
func (s TicketStatus) Valid() bool {
	return slices.Contains(TicketStatuses, s)
}

// Rank is the position of s in the lifecycle, -1 for unknown statuses.
func (s TicketStatus) Rank() int {
	return slices.Index(TicketStatuses, s)
}

// Ticket is the aggregate for tracked work items.
type Ticket struct {
	ID               string
	Title            string
	Description      string
	Status           TicketStatus
	TemplateID       *string
	Tags             []string
	Content          map[string]any
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
	EstimatedMinutes *int
	ActualMinutes    *int
}

// HasTag reports whether the ticket carries tag.
func (t Ticket) HasTag(tag string) bool {
	return slices.Contains(t.Tags, tag)
}

// Clone returns a copy that shares no mutable state with t.
func (t Ticket) Clone() Ticket {
	out := t
	out.Tags = slices.Clone(t.Tags)
	out.Content = maps.Clone(t.Content)
	if t.TemplateID != nil {
		id := *t.TemplateID
		out.TemplateID = &id
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		out.CompletedAt = &at
	}
	if t.EstimatedMinutes != nil {
		v := *t.EstimatedMinutes
		out.EstimatedMinutes = &v
	}
	if t.ActualMinutes != nil {
		v := *t.ActualMinutes
		out.ActualMinutes = &v
	}
	return out
}

// NormalizeTags trims tags, drops empty entries and duplicates, keeping first-seen order.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	return out
}
