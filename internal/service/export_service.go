package service

import (
	"context"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/repository"
)

// Bundle is the raw content handed to an export collaborator. History is keyed
// by ticket id and holds each ledger in insertion order.
type Bundle struct {
	Tickets   []domain.Ticket                  `json:"tickets" yaml:"tickets"`
	Templates []domain.Template                `json:"templates" yaml:"templates"`
	History   map[string][]domain.TicketChange `json:"history" yaml:"history"`
}

// TicketWithTemplate pairs a ticket with its template for single-ticket exports.
type TicketWithTemplate struct {
	Ticket   domain.Ticket    `json:"ticket"`
	Template *domain.Template `json:"template,omitempty"`
}

// ExportService reads whole collections for export. Serialization is left to the caller.
type ExportService struct {
	tickets   repository.TicketRepository
	templates repository.TemplateRepository
	history   repository.HistoryRepository
}

// ExportDependencies bundles repositories for the export service.
type ExportDependencies struct {
	TicketRepo   repository.TicketRepository
	TemplateRepo repository.TemplateRepository
	HistoryRepo  repository.HistoryRepository
}

// NewExportService constructs the service.
func NewExportService(deps ExportDependencies) *ExportService {
	return &ExportService{
		tickets:   deps.TicketRepo,
		templates: deps.TemplateRepo,
		history:   deps.HistoryRepo,
	}
}

// Bundle collects every ticket, template and ledger.
func (s *ExportService) Bundle(ctx context.Context) (Bundle, error) {
	tickets, err := s.tickets.FindAll(ctx, repository.TicketFilter{})
	if err != nil {
		return Bundle{}, asRepositoryError("list tickets", err)
	}
	templates, err := s.templates.FindAll(ctx)
	if err != nil {
		return Bundle{}, asRepositoryError("list templates", err)
	}
	bundle := Bundle{
		Tickets:   tickets,
		Templates: templates,
		History:   make(map[string][]domain.TicketChange, len(tickets)),
	}
	for _, ticket := range tickets {
		ledger, err := s.history.Ledger(ctx, ticket.ID)
		if err != nil {
			return Bundle{}, asRepositoryError("load history", err)
		}
		bundle.History[ticket.ID] = ledger.Changes()
	}
	return bundle, nil
}

// Ticket returns one ticket with its template, if it has one that still exists.
func (s *ExportService) Ticket(ctx context.Context, id string) (TicketWithTemplate, error) {
	ticket, err := s.tickets.FindByID(ctx, id)
	if err != nil {
		return TicketWithTemplate{}, asRepositoryError("find ticket", err)
	}
	if ticket == nil {
		return TicketWithTemplate{}, notFound("ticket", id)
	}
	out := TicketWithTemplate{Ticket: *ticket}
	if ticket.TemplateID != nil {
		out.Template, err = s.templates.FindByID(ctx, *ticket.TemplateID)
		if err != nil {
			return TicketWithTemplate{}, asRepositoryError("find template", err)
		}
	}
	return out, nil
}
