// Package analytics aggregates ticket collections into dashboard figures.
//
// Every function is pure: it reads the tickets it is given, keeps no state
// between calls and accepts an explicit now. Calendar days are taken in
// now's location.
package analytics

import (
	"time"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// DefaultDays is the productivity window used when none is requested.
const DefaultDays = 7

const dayLayout = "2006-01-02"

// DayActivity counts tickets created and completed on one calendar day.
type DayActivity struct {
	Date      string `json:"date" cbor:"date"`
	Created   int    `json:"created" cbor:"created"`
	Completed int    `json:"completed" cbor:"completed"`
}

// Productivity returns one entry per calendar day for the last days days,
// today included, oldest first. Days without activity are reported as zero.
func Productivity(tickets []domain.Ticket, days int, now time.Time) []DayActivity {
	if days <= 0 {
		days = DefaultDays
	}
	loc := now.Location()
	today := startOfDay(now)

	out := make([]DayActivity, days)
	index := make(map[string]int, days)
	for i := range out {
		day := today.AddDate(0, 0, i-(days-1))
		key := day.Format(dayLayout)
		out[i] = DayActivity{Date: key}
		index[key] = i
	}

	for _, t := range tickets {
		if i, ok := index[t.CreatedAt.In(loc).Format(dayLayout)]; ok {
			out[i].Created++
		}
		if t.CompletedAt == nil {
			continue
		}
		if i, ok := index[t.CompletedAt.In(loc).Format(dayLayout)]; ok {
			out[i].Completed++
		}
	}
	return out
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// WeekStart returns Monday 00:00 of the week containing t.
func WeekStart(t time.Time) time.Time {
	day := startOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// within reports start <= t < end.
func within(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}
