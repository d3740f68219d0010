package analytics

import (
	"slices"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// StatusAverage is the mean actual time of tickets in one status.
type StatusAverage struct {
	Status         domain.TicketStatus `json:"status" cbor:"status"`
	AverageMinutes float64             `json:"averageMinutes" cbor:"averageMinutes"`
	Samples        int                 `json:"samples" cbor:"samples"`
}

// TimeComparison contrasts estimated and actual effort for one template.
// A mean is zero when its sample count is zero.
type TimeComparison struct {
	Template         string  `json:"template" cbor:"template"`
	AverageEstimated float64 `json:"averageEstimated" cbor:"averageEstimated"`
	EstimatedSamples int     `json:"estimatedSamples" cbor:"estimatedSamples"`
	AverageActual    float64 `json:"averageActual" cbor:"averageActual"`
	ActualSamples    int     `json:"actualSamples" cbor:"actualSamples"`
}

type mean struct {
	sum float64
	n   int
}

func (m *mean) add(v *int) {
	if v == nil {
		return
	}
	m.sum += float64(*v)
	m.n++
}

func (m mean) value() float64 {
	if m.n == 0 {
		return 0
	}
	return m.sum / float64(m.n)
}

// AverageTimeByStatus averages ActualMinutes per status in lifecycle order.
// Tickets without recorded time are left out of the denominator; statuses
// with no timed ticket are omitted.
func AverageTimeByStatus(tickets []domain.Ticket) []StatusAverage {
	byStatus := make(map[domain.TicketStatus]*mean)
	for _, t := range tickets {
		if t.ActualMinutes == nil {
			continue
		}
		m, ok := byStatus[t.Status]
		if !ok {
			m = &mean{}
			byStatus[t.Status] = m
		}
		m.add(t.ActualMinutes)
	}

	out := make([]StatusAverage, 0, len(byStatus))
	for status, m := range byStatus {
		out = append(out, StatusAverage{Status: status, AverageMinutes: m.value(), Samples: m.n})
	}
	slices.SortFunc(out, func(a, b StatusAverage) int {
		return a.Status.Rank() - b.Status.Rank()
	})
	return out
}

// TimeComparisonByTemplate reports mean estimated and mean actual minutes per
// template, each over the tickets that carry that field. Templates keep the
// order they are given in; Uncategorized comes last. Buckets without any
// timed ticket are omitted.
func TimeComparisonByTemplate(tickets []domain.Ticket, templates []domain.Template) []TimeComparison {
	names := templateNames(templates)
	type bucket struct{ estimated, actual mean }
	buckets := make(map[string]*bucket)
	for _, t := range tickets {
		if t.EstimatedMinutes == nil && t.ActualMinutes == nil {
			continue
		}
		category := templateCategory(t, names)
		b, ok := buckets[category]
		if !ok {
			b = &bucket{}
			buckets[category] = b
		}
		b.estimated.add(t.EstimatedMinutes)
		b.actual.add(t.ActualMinutes)
	}

	order := make([]string, 0, len(templates)+1)
	for _, tmpl := range templates {
		if !slices.Contains(order, tmpl.Name) {
			order = append(order, tmpl.Name)
		}
	}
	order = append(order, Uncategorized)

	out := make([]TimeComparison, 0, len(buckets))
	for _, category := range order {
		b, ok := buckets[category]
		if !ok {
			continue
		}
		out = append(out, TimeComparison{
			Template:         category,
			AverageEstimated: b.estimated.value(),
			EstimatedSamples: b.estimated.n,
			AverageActual:    b.actual.value(),
			ActualSamples:    b.actual.n,
		})
	}
	return out
}
