package analytics

import (
	"slices"
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// Summary holds headline dashboard numbers.
type Summary struct {
	Total             int `json:"total" cbor:"total"`
	Draft             int `json:"draft" cbor:"draft"`
	InProgress        int `json:"inProgress" cbor:"inProgress"`
	Completed         int `json:"completed" cbor:"completed"`
	Archived          int `json:"archived" cbor:"archived"`
	CompletedThisWeek int `json:"completedThisWeek" cbor:"completedThisWeek"`
	// CompletionRate is Completed/Total in [0,1], zero for an empty collection.
	CompletionRate float64 `json:"completionRate" cbor:"completionRate"`
	// AverageCompletionHours is the mean time from creation to completion.
	AverageCompletionHours float64 `json:"averageCompletionHours" cbor:"averageCompletionHours"`
}

// Summarize counts tickets per status and measures throughput. Weeks start on Monday.
func Summarize(tickets []domain.Ticket, now time.Time) Summary {
	s := Summary{Total: len(tickets)}
	weekStart := WeekStart(now)
	var hours float64
	var completedWithTime int
	for _, t := range tickets {
		switch t.Status {
		case domain.TicketStatusDraft:
			s.Draft++
		case domain.TicketStatusInProgress:
			s.InProgress++
		case domain.TicketStatusCompleted:
			s.Completed++
		case domain.TicketStatusArchived:
			s.Archived++
		}
		if t.CompletedAt == nil {
			continue
		}
		if t.Status == domain.TicketStatusCompleted && !t.CompletedAt.Before(weekStart) && !t.CompletedAt.After(now) {
			s.CompletedThisWeek++
		}
		if elapsed := t.CompletedAt.Sub(t.CreatedAt); elapsed >= 0 {
			hours += elapsed.Hours()
			completedWithTime++
		}
	}
	if s.Total > 0 {
		s.CompletionRate = float64(s.Completed) / float64(s.Total)
	}
	if completedWithTime > 0 {
		s.AverageCompletionHours = hours / float64(completedWithTime)
	}
	return s
}

// StandupReport lists what happened since yesterday, newest first in each list.
type StandupReport struct {
	Date               string          `json:"date"`
	CompletedYesterday []domain.Ticket `json:"completedYesterday"`
	InProgress         []domain.Ticket `json:"inProgress"`
	CreatedToday       []domain.Ticket `json:"createdToday"`
}

// Standup builds the daily standup view for now's calendar day.
func Standup(tickets []domain.Ticket, now time.Time) StandupReport {
	today := startOfDay(now)
	yesterday := today.AddDate(0, 0, -1)
	tomorrow := today.AddDate(0, 0, 1)
	report := StandupReport{
		Date:               today.Format(dayLayout),
		CompletedYesterday: []domain.Ticket{},
		InProgress:         []domain.Ticket{},
		CreatedToday:       []domain.Ticket{},
	}
	for _, t := range tickets {
		if t.CompletedAt != nil && within(*t.CompletedAt, yesterday, today) {
			report.CompletedYesterday = append(report.CompletedYesterday, t.Clone())
		}
		if t.Status == domain.TicketStatusInProgress {
			report.InProgress = append(report.InProgress, t.Clone())
		}
		if within(t.CreatedAt, today, tomorrow) {
			report.CreatedToday = append(report.CreatedToday, t.Clone())
		}
	}
	newestFirst(report.CompletedYesterday, func(t domain.Ticket) time.Time { return *t.CompletedAt })
	newestFirst(report.InProgress, func(t domain.Ticket) time.Time { return t.UpdatedAt })
	newestFirst(report.CreatedToday, func(t domain.Ticket) time.Time { return t.CreatedAt })
	return report
}

func newestFirst(tickets []domain.Ticket, at func(domain.Ticket) time.Time) {
	slices.SortStableFunc(tickets, func(a, b domain.Ticket) int {
		return at(b).Compare(at(a))
	})
}

// Snapshot is the full dashboard payload.
type Snapshot struct {
	GeneratedAt          time.Time        `json:"generatedAt" cbor:"generatedAt"`
	Days                 int              `json:"days" cbor:"days"`
	Summary              Summary          `json:"summary" cbor:"summary"`
	Productivity         []DayActivity    `json:"productivity" cbor:"productivity"`
	StatusDistribution   []CategoryCount  `json:"statusDistribution" cbor:"statusDistribution"`
	TemplateDistribution []CategoryCount  `json:"templateDistribution" cbor:"templateDistribution"`
	TagDistribution      []CategoryCount  `json:"tagDistribution" cbor:"tagDistribution"`
	AverageTimeByStatus  []StatusAverage  `json:"averageTimeByStatus" cbor:"averageTimeByStatus"`
	TimeComparison       []TimeComparison `json:"timeComparison" cbor:"timeComparison"`
}

// BuildSnapshot runs every aggregation over the same collection.
func BuildSnapshot(tickets []domain.Ticket, templates []domain.Template, days int, now time.Time) Snapshot {
	if days <= 0 {
		days = DefaultDays
	}
	return Snapshot{
		GeneratedAt:          now,
		Days:                 days,
		Summary:              Summarize(tickets, now),
		Productivity:         Productivity(tickets, days, now),
		StatusDistribution:   StatusDistribution(tickets),
		TemplateDistribution: TemplateDistribution(tickets, templates),
		TagDistribution:      TagDistribution(tickets),
		AverageTimeByStatus:  AverageTimeByStatus(tickets),
		TimeComparison:       TimeComparisonByTemplate(tickets, templates),
	}
}
