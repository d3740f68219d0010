package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/events"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/errorutil"
)

func TestTemplateValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cases := map[string]domain.Template{
		"missing name":     {Name: " "},
		"negative version": {Name: "x", Version: -1},
		"duplicate field": {Name: "x", Fields: []domain.TemplateField{
			{Name: "a", Type: domain.FieldTypeText},
			{Name: "a", Type: domain.FieldTypeNumber},
		}},
		"unknown type":           {Name: "x", Fields: []domain.TemplateField{{Name: "a", Type: "rich"}}},
		"select without options": {Name: "x", Fields: []domain.TemplateField{{Name: "a", Type: domain.FieldTypeSelect}}},
	}
	for name, tmpl := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := h.templates.Save(ctx, tmpl)
			assert.True(t, apperrors.IsValidation(err), "got %v", err)
		})
	}
}

func TestTemplateVersions(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	v1 := h.saveTemplate(t, "Bug Report", true)
	assert.Equal(t, 1, v1.Version)

	edited := v1.Clone()
	edited.Fields = append(edited.Fields, domain.TemplateField{Name: "severity", Type: domain.FieldTypeSelect, Options: []string{"low", "high"}})
	v2, err := h.templates.NewVersion(ctx, edited)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.Version)
	assert.NotEqual(t, v1.ID, v2.ID)
	assert.False(t, v2.IsDefault)

	versions, err := h.templates.Versions(ctx, "Bug Report")
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, v1.ID, versions[0].ID)
	assert.Len(t, versions[1].Fields, 2)

	def, err := h.templates.Default(ctx)
	require.NoError(t, err)
	assert.Equal(t, v1.ID, def.ID)

	_, err = h.templates.NewVersion(ctx, domain.Template{Name: "Unknown"})
	assert.True(t, apperrors.IsNotFound(err))
}

func TestTemplateDuplicateVersionIsRepositoryError(t *testing.T) {
	h := newHarness(t)
	h.saveTemplate(t, "Spike", false)
	_, err := h.templates.Save(context.Background(), domain.Template{Name: "Spike", Version: 1})
	assert.True(t, apperrors.IsRepository(err))
}

func TestSetDefaultMovesFlag(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first := h.saveTemplate(t, "First", true)
	second := h.saveTemplate(t, "Second", false)
	h.resetEvents()

	require.NoError(t, h.templates.SetDefault(ctx, second.ID))
	def, err := h.templates.Default(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, def.ID)

	reloaded, err := h.templates.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.IsDefault)
	assert.Equal(t, []events.EventType{events.EventTemplateDefaultChanged}, h.eventTypes())

	assert.True(t, apperrors.IsNotFound(h.templates.SetDefault(ctx, "missing")))
}

func TestSaveRefusesToUnsetOnlyDefault(t *testing.T) {
	h := newHarness(t)
	def := h.saveTemplate(t, "Default", true)
	def.IsDefault = false
	_, err := h.templates.Save(context.Background(), def)
	assert.True(t, apperrors.IsDomainRule(err))
}

func TestTemplateDeleteRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	def := h.saveTemplate(t, "Default", true)
	used := h.saveTemplate(t, "Used", false)
	unused := h.saveTemplate(t, "Unused", false)
	h.saveTicket(t, domain.Ticket{Title: "uses template", TemplateID: &used.ID})

	assert.True(t, apperrors.IsDomainRule(h.templates.Delete(ctx, def.ID)))
	assert.True(t, apperrors.IsDomainRule(h.templates.Delete(ctx, used.ID)))
	require.NoError(t, h.templates.Delete(ctx, unused.ID))
	assert.True(t, apperrors.IsNotFound(h.templates.Delete(ctx, unused.ID)))

	all, err := h.templates.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
