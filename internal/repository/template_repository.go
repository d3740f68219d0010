package repository

import (
	"context"

	"github.com/spec-kit/ticket-tracker/internal/domain"
)

// TemplateRepository is the storage port for templates.
//
// At most one template is the default at any time. SetAsDefault, and Save of a
// template flagged IsDefault, move the flag in a single atomic step: no reader
// sees two defaults, or none, while the flag moves.
type TemplateRepository interface {
	FindAll(ctx context.Context) ([]domain.Template, error)
	FindByID(ctx context.Context, id string) (*domain.Template, error)
	// FindByName returns the highest version with that name.
	FindByName(ctx context.Context, name string) (*domain.Template, error)
	FindDefault(ctx context.Context) (*domain.Template, error)
	// SetAsDefault returns false when no template has the id.
	SetAsDefault(ctx context.Context, id string) (bool, error)
	FindByNameAndVersion(ctx context.Context, name string, version int) (*domain.Template, error)
	// FindVersionsByName returns every version of name, oldest first.
	FindVersionsByName(ctx context.Context, name string) ([]domain.Template, error)
	HasAssociatedTickets(ctx context.Context, id string) (bool, error)
	// Save upserts by id. A second template with the same (name, version) is rejected
	// with a repository error.
	Save(ctx context.Context, template domain.Template) (domain.Template, error)
	Delete(ctx context.Context, id string) (bool, error)
	Exists(ctx context.Context, id string) (bool, error)
}
