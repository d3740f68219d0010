package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/service"
)

// seedFile is the fixture format accepted by --seed. Times are given relative
// to startup so the dashboard has recent activity to show.
type seedFile struct {
	Templates []seedTemplate `yaml:"templates"`
	Tickets   []seedTicket   `yaml:"tickets"`
}

type seedTemplate struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	Default     bool        `yaml:"default"`
	Fields      []seedField `yaml:"fields"`
}

type seedField struct {
	Name     string   `yaml:"name"`
	Label    string   `yaml:"label"`
	Type     string   `yaml:"type"`
	Required bool     `yaml:"required"`
	Options  []string `yaml:"options"`
}

type seedTicket struct {
	Title        string         `yaml:"title"`
	Description  string         `yaml:"description"`
	Status       string         `yaml:"status"`
	Template     string         `yaml:"template"`
	Tags         []string       `yaml:"tags"`
	Content      map[string]any `yaml:"content"`
	CreatedAgo   string         `yaml:"created_ago"`
	CompletedAgo string         `yaml:"completed_ago"`
	Estimated    *int           `yaml:"estimated_minutes"`
	Actual       *int           `yaml:"actual_minutes"`
}

func readSeed(path string) (*seedFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return parseSeed(raw)
}

func parseSeed(raw []byte) (*seedFile, error) {
	var seed seedFile
	if err := yaml.Unmarshal(raw, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &seed, nil
}

// toTicket resolves the template name and relative timestamps.
func (s seedTicket) toTicket(now time.Time, templateIDs map[string]string) (domain.Ticket, error) {
	ticket := domain.Ticket{
		Title:            s.Title,
		Description:      s.Description,
		Status:           domain.TicketStatus(s.Status),
		Tags:             s.Tags,
		Content:          s.Content,
		EstimatedMinutes: s.Estimated,
		ActualMinutes:    s.Actual,
	}
	if s.Template != "" {
		id, ok := templateIDs[s.Template]
		if !ok {
			return domain.Ticket{}, fmt.Errorf("ticket %q: unknown template %q", s.Title, s.Template)
		}
		ticket.TemplateID = &id
	}
	if s.CreatedAgo != "" {
		ago, err := time.ParseDuration(s.CreatedAgo)
		if err != nil {
			return domain.Ticket{}, fmt.Errorf("ticket %q: created_ago: %w", s.Title, err)
		}
		ticket.CreatedAt = now.Add(-ago)
	}
	if s.CompletedAgo != "" {
		ago, err := time.ParseDuration(s.CompletedAgo)
		if err != nil {
			return domain.Ticket{}, fmt.Errorf("ticket %q: completed_ago: %w", s.Title, err)
		}
		completed := now.Add(-ago)
		ticket.CompletedAt = &completed
	}
	return ticket, nil
}

func (s seedTemplate) toTemplate() domain.Template {
	tmpl := domain.Template{
		Name:        s.Name,
		Description: s.Description,
		IsDefault:   s.Default,
	}
	for _, f := range s.Fields {
		tmpl.Fields = append(tmpl.Fields, domain.TemplateField{
			Name:     f.Name,
			Label:    f.Label,
			Type:     domain.FieldType(f.Type),
			Required: f.Required,
			Options:  f.Options,
		})
	}
	return tmpl
}

// applySeed saves every fixture through the services so validation, history
// and events behave exactly as for interactive edits.
func applySeed(ctx context.Context, seed *seedFile, now time.Time, templates *service.TemplateService, tickets *service.TicketService) error {
	templateIDs := make(map[string]string, len(seed.Templates))
	for _, st := range seed.Templates {
		saved, err := templates.Save(ctx, st.toTemplate())
		if err != nil {
			return fmt.Errorf("seed template %q: %w", st.Name, err)
		}
		templateIDs[saved.Name] = saved.ID
	}
	for _, st := range seed.Tickets {
		ticket, err := st.toTicket(now, templateIDs)
		if err != nil {
			return err
		}
		if _, err := tickets.Save(ctx, ticket); err != nil {
			return fmt.Errorf("seed ticket %q: %w", st.Title, err)
		}
	}
	return nil
}
