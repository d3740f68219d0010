package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-tracker/internal/clock"
	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	"github.com/spec-kit/ticket-tracker/internal/observability"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/errorutil"
)

// TemplateService manages versioned templates and the default flag.
type TemplateService struct {
	templates  repository.TemplateRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
	clock      clock.Clock
}

// TemplateDependencies bundles collaborators for the template service.
type TemplateDependencies struct {
	TemplateRepo repository.TemplateRepository
	Dispatcher   events.Dispatcher
	Logger       *zap.Logger
	Metrics      *observability.Metrics
	Clock        clock.Clock
}

// NewTemplateService constructs the service.
func NewTemplateService(deps TemplateDependencies) *TemplateService {
	s := &TemplateService{
		templates:  deps.TemplateRepo,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		metrics:    deps.Metrics,
		clock:      deps.Clock,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.clock == nil {
		s.clock = clock.Real()
	}
	return s
}

// Save validates and upserts tmpl. Version defaults to 1. Clearing IsDefault on
// the current default is refused, since that would leave no default.
func (s *TemplateService) Save(ctx context.Context, tmpl domain.Template) (saved domain.Template, err error) {
	defer s.observe("template.save", s.clock.Now(), &err)

	tmpl = tmpl.Clone()
	tmpl.Name = strings.TrimSpace(tmpl.Name)
	if tmpl.Version == 0 {
		tmpl.Version = 1
	}
	if err := validateTemplate(tmpl); err != nil {
		return domain.Template{}, err
	}

	if tmpl.ID != "" && !tmpl.IsDefault {
		existing, err := s.templates.FindByID(ctx, tmpl.ID)
		if err != nil {
			return domain.Template{}, asRepositoryError("find template", err)
		}
		if existing != nil && existing.IsDefault {
			return domain.Template{}, apperrors.NewDomainRuleError("cannot unset the default template; set another default instead",
				map[string]any{"id": tmpl.ID})
		}
	}

	saved, err = s.templates.Save(ctx, tmpl)
	if err != nil {
		return domain.Template{}, asRepositoryError("save template", err)
	}
	s.publishEvent(ctx, events.EventTemplateSaved, saved)
	if saved.IsDefault {
		s.publishEvent(ctx, events.EventTemplateDefaultChanged, saved)
	}
	return saved, nil
}

func validateTemplate(tmpl domain.Template) error {
	details := map[string]any{}
	if tmpl.Name == "" {
		details["name"] = "required"
	}
	if tmpl.Version < 1 {
		details["version"] = "must be at least 1"
	}
	seen := make(map[string]struct{}, len(tmpl.Fields))
	for i, field := range tmpl.Fields {
		key := fmt.Sprintf("fields[%d]", i)
		name := strings.TrimSpace(field.Name)
		switch {
		case name == "":
			details[key] = "name required"
		case !field.Type.Valid():
			details[key] = "unknown field type " + string(field.Type)
		case field.Type == domain.FieldTypeSelect && len(field.Options) == 0:
			details[key] = "select field needs options"
		}
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			details[key] = "duplicate field name " + name
		}
		seen[name] = struct{}{}
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid template", details)
	}
	return nil
}

// NewVersion stores edited as the next version of its name. The new version
// gets a fresh id and is never the default.
func (s *TemplateService) NewVersion(ctx context.Context, edited domain.Template) (domain.Template, error) {
	name := strings.TrimSpace(edited.Name)
	latest, err := s.templates.FindByName(ctx, name)
	if err != nil {
		return domain.Template{}, asRepositoryError("find template", err)
	}
	if latest == nil {
		return domain.Template{}, apperrors.NewNotFound("template", map[string]any{"name": name})
	}
	next := edited.Clone()
	next.ID = ""
	next.Name = name
	next.Version = latest.Version + 1
	next.IsDefault = false
	next.CreatedAt = time.Time{}
	return s.Save(ctx, next)
}

// SetDefault makes id the only default template.
func (s *TemplateService) SetDefault(ctx context.Context, id string) (err error) {
	defer s.observe("template.set_default", s.clock.Now(), &err)

	ok, err := s.templates.SetAsDefault(ctx, id)
	if err != nil {
		return asRepositoryError("set default template", err)
	}
	if !ok {
		return apperrors.NewNotFound("template", map[string]any{"id": id})
	}
	tmpl, err := s.templates.FindByID(ctx, id)
	if err == nil && tmpl != nil {
		s.publishEvent(ctx, events.EventTemplateDefaultChanged, *tmpl)
	}
	return nil
}

// Default returns the default template, nil when none is set.
func (s *TemplateService) Default(ctx context.Context) (*domain.Template, error) {
	tmpl, err := s.templates.FindDefault(ctx)
	if err != nil {
		return nil, asRepositoryError("find default template", err)
	}
	return tmpl, nil
}

// Get returns the template or a not-found error.
func (s *TemplateService) Get(ctx context.Context, id string) (*domain.Template, error) {
	tmpl, err := s.templates.FindByID(ctx, id)
	if err != nil {
		return nil, asRepositoryError("find template", err)
	}
	if tmpl == nil {
		return nil, apperrors.NewNotFound("template", map[string]any{"id": id})
	}
	return tmpl, nil
}

func (s *TemplateService) List(ctx context.Context) ([]domain.Template, error) {
	templates, err := s.templates.FindAll(ctx)
	if err != nil {
		return nil, asRepositoryError("list templates", err)
	}
	return templates, nil
}

// Versions lists every version of name, oldest first.
func (s *TemplateService) Versions(ctx context.Context, name string) ([]domain.Template, error) {
	versions, err := s.templates.FindVersionsByName(ctx, name)
	if err != nil {
		return nil, asRepositoryError("list template versions", err)
	}
	return versions, nil
}

// Delete removes a template that is neither the default nor used by a ticket.
func (s *TemplateService) Delete(ctx context.Context, id string) (err error) {
	defer s.observe("template.delete", s.clock.Now(), &err)

	tmpl, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if tmpl.IsDefault {
		return apperrors.NewDomainRuleError("cannot delete the default template", map[string]any{"id": id})
	}
	used, err := s.templates.HasAssociatedTickets(ctx, id)
	if err != nil {
		return asRepositoryError("check template usage", err)
	}
	if used {
		return apperrors.NewDomainRuleError("template is used by tickets", map[string]any{"id": id})
	}
	if _, err := s.templates.Delete(ctx, id); err != nil {
		return asRepositoryError("delete template", err)
	}
	s.publishEvent(ctx, events.EventTemplateDeleted, *tmpl)
	return nil
}

func (s *TemplateService) publishEvent(ctx context.Context, eventType events.EventType, tmpl domain.Template) {
	publish(ctx, s.dispatcher, s.logger, s.clock, events.Event{
		Type:      eventType,
		SubjectID: tmpl.ID,
		Payload:   events.TemplatePayload{Name: tmpl.Name, Version: tmpl.Version},
	})
}

func (s *TemplateService) observe(op string, start time.Time, err *error) {
	observe(s.metrics, s.clock, op, start, *err)
}
