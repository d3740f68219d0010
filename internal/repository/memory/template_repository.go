package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/errorutil"
)

// ErrDuplicateVersion is the cause wrapped when (name, version) is already taken.
var ErrDuplicateVersion = errors.New("template name and version already exist")

type templateRow struct {
	seq      uint64
	template domain.Template
}

// TemplateRepository implements repository.TemplateRepository in memory.
type TemplateRepository struct {
	s *state
}

var _ repository.TemplateRepository = (*TemplateRepository)(nil)

// sorted returns clones in insertion order matching keep. Caller holds the read lock.
func (r *TemplateRepository) sorted(keep func(domain.Template) bool) []domain.Template {
	rows := make([]templateRow, 0, len(r.s.templates))
	for _, row := range r.s.templates {
		if keep == nil || keep(row.template) {
			rows = append(rows, row)
		}
	}
	slices.SortFunc(rows, func(a, b templateRow) int { return cmp.Compare(a.seq, b.seq) })
	out := make([]domain.Template, len(rows))
	for i, row := range rows {
		out[i] = row.template.Clone()
	}
	return out
}

func (r *TemplateRepository) FindAll(_ context.Context) ([]domain.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.sorted(nil), nil
}

func (r *TemplateRepository) FindByID(_ context.Context, id string) (*domain.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	row, ok := r.s.templates[id]
	if !ok {
		return nil, nil
	}
	tpl := row.template.Clone()
	return &tpl, nil
}

func (r *TemplateRepository) FindByName(ctx context.Context, name string) (*domain.Template, error) {
	versions, err := r.FindVersionsByName(ctx, name)
	if err != nil || len(versions) == 0 {
		return nil, err
	}
	latest := versions[len(versions)-1]
	return &latest, nil
}

func (r *TemplateRepository) FindDefault(_ context.Context) (*domain.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, row := range r.s.templates {
		if row.template.IsDefault {
			tpl := row.template.Clone()
			return &tpl, nil
		}
	}
	return nil, nil
}

func (r *TemplateRepository) SetAsDefault(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.templates[id]; !ok {
		return false, nil
	}
	r.moveDefault(id)
	return true, nil
}

// moveDefault flags id as the only default. Caller holds the write lock.
func (r *TemplateRepository) moveDefault(id string) {
	now := r.s.now()
	for key, row := range r.s.templates {
		want := key == id
		if row.template.IsDefault == want {
			continue
		}
		row.template.IsDefault = want
		row.template.UpdatedAt = now
		r.s.templates[key] = row
	}
}

func (r *TemplateRepository) FindByNameAndVersion(_ context.Context, name string, version int) (*domain.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, row := range r.s.templates {
		if row.template.Name == name && row.template.Version == version {
			tpl := row.template.Clone()
			return &tpl, nil
		}
	}
	return nil, nil
}

func (r *TemplateRepository) FindVersionsByName(_ context.Context, name string) ([]domain.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	versions := r.sorted(func(t domain.Template) bool { return t.Name == name })
	slices.SortStableFunc(versions, func(a, b domain.Template) int { return cmp.Compare(a.Version, b.Version) })
	return versions, nil
}

func (r *TemplateRepository) HasAssociatedTickets(_ context.Context, id string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, row := range r.s.tickets {
		if row.ticket.TemplateID != nil && *row.ticket.TemplateID == id {
			return true, nil
		}
	}
	return false, nil
}

func (r *TemplateRepository) Save(_ context.Context, template domain.Template) (domain.Template, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	template = template.Clone()
	if template.ID == "" {
		template.ID = r.s.newID()
	}
	for key, row := range r.s.templates {
		if key != template.ID && row.template.Name == template.Name && row.template.Version == template.Version {
			return domain.Template{}, apperrors.NewRepositoryError("save template",
				fmt.Errorf("%w: %s v%d", ErrDuplicateVersion, template.Name, template.Version))
		}
	}

	now := r.s.now()
	row, exists := r.s.templates[template.ID]
	if !exists {
		row.seq = r.s.next()
	}
	if template.CreatedAt.IsZero() {
		if exists {
			template.CreatedAt = row.template.CreatedAt
		} else {
			template.CreatedAt = now
		}
	}
	template.UpdatedAt = now
	row.template = template
	r.s.templates[template.ID] = row
	if template.IsDefault {
		r.moveDefault(template.ID)
	}
	return r.s.templates[template.ID].template.Clone(), nil
}

func (r *TemplateRepository) Delete(_ context.Context, id string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.templates[id]; !ok {
		return false, nil
	}
	delete(r.s.templates, id)
	return true, nil
}

func (r *TemplateRepository) Exists(_ context.Context, id string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.templates[id]
	return ok, nil
}
