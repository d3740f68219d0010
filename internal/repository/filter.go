package repository

import (
	"strings"
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/errorutil"
)

// SortField names a ticket attribute results can be ordered by.
type SortField string

const (
	SortByCreatedAt   SortField = "createdAt"
	SortByUpdatedAt   SortField = "updatedAt"
	SortByCompletedAt SortField = "completedAt"
	SortByTitle       SortField = "title"
	SortByStatus      SortField = "status"
)

// SortOrder is either ascending or descending.
type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// DateRange bounds a timestamp inclusively. Either end may be open.
type DateRange struct {
	Start *time.Time
	End   *time.Time
}

// Pagination selects a 1-indexed page.
type Pagination struct {
	Page     int
	PageSize int
}

// Sort orders results by Field. Ties are broken by ticket id ascending.
type Sort struct {
	Field SortField
	Order SortOrder
}

// DefaultSort is applied by repositories when a filter carries no Sort.
var DefaultSort = Sort{Field: SortByCreatedAt, Order: SortDesc}

// TicketFilter captures ticket search parameters. The zero value matches every ticket.
type TicketFilter struct {
	Status     *domain.TicketStatus
	TemplateID *string
	Tag        *string
	DateRange  *DateRange
	Search     string
	Pagination *Pagination
	Sort       *Sort
}

// FilterOption populates one criterion of a TicketFilter.
type FilterOption func(*TicketFilter)

// NewTicketFilter builds a filter and validates it.
func NewTicketFilter(opts ...FilterOption) (TicketFilter, error) {
	var filter TicketFilter
	for _, opt := range opts {
		opt(&filter)
	}
	if err := filter.Validate(); err != nil {
		return TicketFilter{}, err
	}
	return filter, nil
}

func WithStatus(status domain.TicketStatus) FilterOption {
	return func(f *TicketFilter) { f.Status = &status }
}

func WithTemplate(templateID string) FilterOption {
	return func(f *TicketFilter) { f.TemplateID = &templateID }
}

func WithTag(tag string) FilterOption {
	return func(f *TicketFilter) { f.Tag = &tag }
}

// WithDateRange sets inclusive bounds. A zero time leaves that end open.
func WithDateRange(start, end time.Time) FilterOption {
	return func(f *TicketFilter) {
		r := &DateRange{}
		if !start.IsZero() {
			r.Start = &start
		}
		if !end.IsZero() {
			r.End = &end
		}
		f.DateRange = r
	}
}

func WithSearch(text string) FilterOption {
	return func(f *TicketFilter) { f.Search = text }
}

func WithPage(page, pageSize int) FilterOption {
	return func(f *TicketFilter) { f.Pagination = &Pagination{Page: page, PageSize: pageSize} }
}

func WithSort(field SortField, order SortOrder) FilterOption {
	return func(f *TicketFilter) { f.Sort = &Sort{Field: field, Order: order} }
}

// Validate reports malformed criteria as a validation error.
func (f TicketFilter) Validate() error {
	if f.Status != nil && !f.Status.Valid() {
		return apperrors.NewValidationError("unknown ticket status", map[string]any{"status": *f.Status})
	}
	if f.Pagination != nil {
		if f.Pagination.Page < 1 {
			return apperrors.NewValidationError("page must be >= 1", map[string]any{"page": f.Pagination.Page})
		}
		if f.Pagination.PageSize < 1 {
			return apperrors.NewValidationError("pageSize must be >= 1", map[string]any{"page_size": f.Pagination.PageSize})
		}
	}
	if f.Sort != nil {
		switch f.Sort.Field {
		case SortByCreatedAt, SortByUpdatedAt, SortByCompletedAt, SortByTitle, SortByStatus:
		default:
			return apperrors.NewValidationError("unknown sort field", map[string]any{"field": f.Sort.Field})
		}
		if f.Sort.Order != SortAsc && f.Sort.Order != SortDesc {
			return apperrors.NewValidationError("unknown sort order", map[string]any{"order": f.Sort.Order})
		}
	}
	if r := f.DateRange; r != nil && r.Start != nil && r.End != nil && r.Start.After(*r.End) {
		return apperrors.NewValidationError("date range start is after end", map[string]any{
			"start": *r.Start,
			"end":   *r.End,
		})
	}
	return nil
}

// WithoutPaging returns a copy of f with pagination and sort removed, the shape count works on.
func (f TicketFilter) WithoutPaging() TicketFilter {
	f.Pagination = nil
	f.Sort = nil
	return f
}

// searchTerm is the lowercased search text, matched as is. Whitespace-only text
// imposes no constraint.
func (f TicketFilter) searchTerm() string {
	if strings.TrimSpace(f.Search) == "" {
		return ""
	}
	return strings.ToLower(f.Search)
}
