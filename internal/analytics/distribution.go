package analytics

import (
	"cmp"
	"slices"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// Uncategorized collects tickets without a known template.
const Uncategorized = "Uncategorized"

// CategoryCount is one bucket of a distribution.
type CategoryCount struct {
	Category string `json:"category" cbor:"category"`
	Count    int    `json:"count" cbor:"count"`
}

// StatusDistribution counts tickets per status.
func StatusDistribution(tickets []domain.Ticket) []CategoryCount {
	return distribute(tickets, func(t domain.Ticket) []string {
		return []string{string(t.Status)}
	})
}

// TemplateDistribution counts tickets per template name. Tickets whose
// template is unset or unknown are counted under Uncategorized.
func TemplateDistribution(tickets []domain.Ticket, templates []domain.Template) []CategoryCount {
	names := templateNames(templates)
	return distribute(tickets, func(t domain.Ticket) []string {
		return []string{templateCategory(t, names)}
	})
}

// TagDistribution counts tickets per tag. A ticket with several tags counts once for each.
func TagDistribution(tickets []domain.Ticket) []CategoryCount {
	return distribute(tickets, func(t domain.Ticket) []string {
		return domain.NormalizeTags(t.Tags)
	})
}

// distribute groups tickets by the categories key returns. Empty buckets never
// appear. Buckets are ordered by count descending, then by name.
func distribute(tickets []domain.Ticket, key func(domain.Ticket) []string) []CategoryCount {
	counts := make(map[string]int)
	for _, t := range tickets {
		for _, category := range key(t) {
			counts[category]++
		}
	}
	out := make([]CategoryCount, 0, len(counts))
	for category, n := range counts {
		out = append(out, CategoryCount{Category: category, Count: n})
	}
	slices.SortFunc(out, func(a, b CategoryCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Category, b.Category)
	})
	return out
}

func templateNames(templates []domain.Template) map[string]string {
	names := make(map[string]string, len(templates))
	for _, tmpl := range templates {
		names[tmpl.ID] = tmpl.Name
	}
	return names
}

func templateCategory(t domain.Ticket, names map[string]string) string {
	if t.TemplateID == nil {
		return Uncategorized
	}
	if name, ok := names[*t.TemplateID]; ok && name != "" {
		return name
	}
	return Uncategorized
}
