// Package repositorytest holds the behavior every repository backend must show.
// A backend's tests call RunContract with a factory returning fresh, empty stores.
package repositorytest

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticket-tracker/internal/domain"
	"github.com/spec-kit/ticket-tracker/internal/repository"
	apperrors "github.com/spec-kit/ticket-tracker/pkg/errorutil"
)

// Backend is one set of stores sharing the same underlying data.
type Backend struct {
	Tickets   repository.TicketRepository
	Templates repository.TemplateRepository
	History   repository.HistoryRepository
}

// Factory returns an empty backend.
type Factory func(t *testing.T) Backend

// RunContract runs the whole contract suite.
func RunContract(t *testing.T, newBackend Factory) {
	t.Run("tickets", func(t *testing.T) { RunTicketContract(t, newBackend) })
	t.Run("templates", func(t *testing.T) { RunTemplateContract(t, newBackend) })
	t.Run("history", func(t *testing.T) { RunHistoryContract(t, newBackend) })
}

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// seedTickets stores a fixed collection and returns it keyed by id.
func seedTickets(t *testing.T, repo repository.TicketRepository) map[string]domain.Ticket {
	t.Helper()
	ctx := context.Background()
	seed := []domain.Ticket{
		{ID: "t-01", Title: "Fix login bug", Status: domain.TicketStatusInProgress, TemplateID: ptr("bug"), Tags: []string{"auth", "urgent"}, CreatedAt: base},
		{ID: "t-02", Title: "Write release notes", Description: "Cover the LOGIN changes", Status: domain.TicketStatusDraft, Tags: []string{"docs"}, CreatedAt: base.Add(time.Hour)},
		{ID: "t-03", Title: "Ship dashboard", Status: domain.TicketStatusCompleted, TemplateID: ptr("feature"), Tags: []string{"ui"}, CreatedAt: base.Add(2 * time.Hour), CompletedAt: ptr(base.Add(72 * time.Hour))},
		{ID: "t-04", Title: "Old spike", Status: domain.TicketStatusArchived, CreatedAt: base.Add(-48 * time.Hour)},
		{ID: "t-05", Title: "Refactor auth", Status: domain.TicketStatusCompleted, TemplateID: ptr("bug"), Tags: []string{"auth"}, CreatedAt: base, CompletedAt: ptr(base.Add(24 * time.Hour))},
		{ID: "t-06", Title: "Plan sprint", Status: domain.TicketStatusDraft, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "t-07", Title: "Alpha task", Status: domain.TicketStatusInProgress, Tags: []string{"urgent"}, CreatedAt: base.Add(3 * time.Hour)},
	}
	out := make(map[string]domain.Ticket, len(seed))
	for _, ticket := range seed {
		saved, err := repo.Save(ctx, ticket)
		require.NoError(t, err)
		out[saved.ID] = saved
	}
	return out
}

func ids(tickets []domain.Ticket) []string {
	out := make([]string, len(tickets))
	for i, ticket := range tickets {
		out[i] = ticket.ID
	}
	return out
}

// RunTicketContract checks TicketRepository semantics.
func RunTicketContract(t *testing.T, newBackend Factory) {
	ctx := context.Background()

	t.Run("save assigns id and upserts", func(t *testing.T) {
		repo := newBackend(t).Tickets
		created, err := repo.Save(ctx, domain.Ticket{Title: "New", Status: domain.TicketStatusDraft})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)
		assert.False(t, created.CreatedAt.IsZero())

		created.Title = "Renamed"
		updated, err := repo.Save(ctx, created)
		require.NoError(t, err)
		assert.Equal(t, created.ID, updated.ID)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)

		total, err := repo.Count(ctx, repository.TicketFilter{})
		require.NoError(t, err)
		assert.Equal(t, 1, total)

		got, err := repo.FindByID(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "Renamed", got.Title)
	})

	t.Run("absence is nil or false", func(t *testing.T) {
		repo := newBackend(t).Tickets
		got, err := repo.FindByID(ctx, "missing")
		require.NoError(t, err)
		assert.Nil(t, got)

		exists, err := repo.Exists(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, exists)

		deleted, err := repo.Delete(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, deleted)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		repo := newBackend(t).Tickets
		seedTickets(t, repo)
		deleted, err := repo.Delete(ctx, "t-01")
		require.NoError(t, err)
		assert.True(t, deleted)
		deleted, err = repo.Delete(ctx, "t-01")
		require.NoError(t, err)
		assert.False(t, deleted)
		exists, err := repo.Exists(ctx, "t-01")
		require.NoError(t, err)
		assert.False(t, exists)
	})

	t.Run("default order is createdAt descending then id", func(t *testing.T) {
		repo := newBackend(t).Tickets
		seedTickets(t, repo)
		all, err := repo.FindAll(ctx, repository.TicketFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"t-07", "t-03", "t-06", "t-02", "t-01", "t-05", "t-04"}, ids(all))
	})

	t.Run("criteria", func(t *testing.T) {
		repo := newBackend(t).Tickets
		seedTickets(t, repo)
		completed := domain.TicketStatusCompleted
		cases := []struct {
			name   string
			filter repository.TicketFilter
			want   []string
		}{
			{"empty matches all", repository.TicketFilter{}, []string{"t-07", "t-03", "t-06", "t-02", "t-01", "t-05", "t-04"}},
			{"status", repository.TicketFilter{Status: ptr(domain.TicketStatusDraft)}, []string{"t-06", "t-02"}},
			{"template", repository.TicketFilter{TemplateID: ptr("bug")}, []string{"t-01", "t-05"}},
			{"tag", repository.TicketFilter{Tag: ptr("urgent")}, []string{"t-07", "t-01"}},
			{"search title and description", repository.TicketFilter{Search: "login"}, []string{"t-02", "t-01"}},
			{"and of criteria", repository.TicketFilter{Tag: ptr("auth"), Status: &completed}, []string{"t-05"}},
			{"created range inclusive", repository.TicketFilter{DateRange: &repository.DateRange{
				Start: ptr(base), End: ptr(base.Add(time.Hour)),
			}}, []string{"t-02", "t-01", "t-05"}},
			{"completed range uses completedAt", repository.TicketFilter{Status: &completed, DateRange: &repository.DateRange{
				Start: ptr(base.Add(24 * time.Hour)), End: ptr(base.Add(48 * time.Hour)),
			}}, []string{"t-05"}},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				got, err := repo.FindAll(ctx, tc.filter)
				require.NoError(t, err)
				assert.Equal(t, tc.want, ids(got))

				total, err := repo.Count(ctx, tc.filter)
				require.NoError(t, err)
				assert.Equal(t, len(tc.want), total)
			})
		}
	})

	t.Run("count ignores pagination", func(t *testing.T) {
		repo := newBackend(t).Tickets
		seedTickets(t, repo)
		filter, err := repository.NewTicketFilter(repository.WithPage(2, 2), repository.WithSort(repository.SortByTitle, repository.SortAsc))
		require.NoError(t, err)
		total, err := repo.Count(ctx, filter)
		require.NoError(t, err)
		all, err := repo.FindAll(ctx, filter.WithoutPaging())
		require.NoError(t, err)
		assert.Equal(t, len(all), total)
		assert.Equal(t, 4, repository.TotalPages(total, 2))
	})

	t.Run("pages concatenate to the sorted result", func(t *testing.T) {
		repo := newBackend(t).Tickets
		seedTickets(t, repo)
		for _, sort := range []repository.Sort{
			{Field: repository.SortByCreatedAt, Order: repository.SortAsc},
			{Field: repository.SortByCreatedAt, Order: repository.SortDesc},
			{Field: repository.SortByCompletedAt, Order: repository.SortAsc},
			{Field: repository.SortByStatus, Order: repository.SortDesc},
			{Field: repository.SortByTitle, Order: repository.SortAsc},
		} {
			full, err := repo.FindAll(ctx, repository.TicketFilter{Sort: &sort})
			require.NoError(t, err)
			for size := 1; size <= len(full)+1; size++ {
				var joined []string
				for page := 1; page <= repository.TotalPages(len(full), size); page++ {
					chunk, err := repo.FindAll(ctx, repository.TicketFilter{
						Sort:       &sort,
						Pagination: &repository.Pagination{Page: page, PageSize: size},
					})
					require.NoError(t, err)
					joined = append(joined, ids(chunk)...)
				}
				assert.Equal(t, ids(full), joined, fmt.Sprintf("sort %v size %d", sort, size))
			}
		}
	})

	t.Run("ties break by id ascending", func(t *testing.T) {
		repo := newBackend(t).Tickets
		seedTickets(t, repo)
		got, err := repo.FindAll(ctx, repository.TicketFilter{Sort: &repository.Sort{Field: repository.SortByCreatedAt, Order: repository.SortAsc}})
		require.NoError(t, err)
		assert.Equal(t, []string{"t-04", "t-01", "t-05", "t-02", "t-03", "t-06", "t-07"}, ids(got))
	})

	t.Run("page past the end is empty", func(t *testing.T) {
		repo := newBackend(t).Tickets
		seedTickets(t, repo)
		got, err := repo.FindAll(ctx, repository.TicketFilter{Pagination: &repository.Pagination{Page: 9, PageSize: 5}})
		require.NoError(t, err)
		assert.Empty(t, got)

		got, err = repo.FindAll(ctx, repository.TicketFilter{Pagination: &repository.Pagination{Page: math.MaxInt, PageSize: 2}})
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("malformed filter is a validation error", func(t *testing.T) {
		repo := newBackend(t).Tickets
		_, err := repo.FindAll(ctx, repository.TicketFilter{Pagination: &repository.Pagination{Page: 1, PageSize: 0}})
		require.Error(t, err)
		assert.True(t, apperrors.IsValidation(err))
	})

	t.Run("find by helpers", func(t *testing.T) {
		repo := newBackend(t).Tickets
		seedTickets(t, repo)
		byStatus, err := repo.FindByStatus(ctx, domain.TicketStatusCompleted)
		require.NoError(t, err)
		assert.Equal(t, []string{"t-03", "t-05"}, ids(byStatus))
		byTemplate, err := repo.FindByTemplateID(ctx, "feature")
		require.NoError(t, err)
		assert.Equal(t, []string{"t-03"}, ids(byTemplate))
		byTag, err := repo.FindByTag(ctx, "auth")
		require.NoError(t, err)
		assert.Equal(t, []string{"t-01", "t-05"}, ids(byTag))
	})

	t.Run("returned values are detached", func(t *testing.T) {
		repo := newBackend(t).Tickets
		seedTickets(t, repo)
		got, err := repo.FindByID(ctx, "t-01")
		require.NoError(t, err)
		got.Tags[0] = "mutated"
		again, err := repo.FindByID(ctx, "t-01")
		require.NoError(t, err)
		assert.Equal(t, "auth", again.Tags[0])
	})
}

// RunTemplateContract checks TemplateRepository semantics.
func RunTemplateContract(t *testing.T, newBackend Factory) {
	ctx := context.Background()

	save := func(t *testing.T, repo repository.TemplateRepository, tpl domain.Template) domain.Template {
		t.Helper()
		saved, err := repo.Save(ctx, tpl)
		require.NoError(t, err)
		return saved
	}
	countDefaults := func(t *testing.T, repo repository.TemplateRepository) int {
		t.Helper()
		all, err := repo.FindAll(ctx)
		require.NoError(t, err)
		n := 0
		for _, tpl := range all {
			if tpl.IsDefault {
				n++
			}
		}
		return n
	}

	t.Run("set as default keeps exactly one", func(t *testing.T) {
		repo := newBackend(t).Templates
		a := save(t, repo, domain.Template{Name: "Bug", Version: 1})
		b := save(t, repo, domain.Template{Name: "Feature", Version: 1})

		ok, err := repo.SetAsDefault(ctx, a.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 1, countDefaults(t, repo))

		ok, err = repo.SetAsDefault(ctx, b.ID)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 1, countDefaults(t, repo))

		def, err := repo.FindDefault(ctx)
		require.NoError(t, err)
		require.NotNil(t, def)
		assert.Equal(t, b.ID, def.ID)
	})

	t.Run("set as default on missing id", func(t *testing.T) {
		repo := newBackend(t).Templates
		a := save(t, repo, domain.Template{Name: "Bug", Version: 1, IsDefault: true})
		ok, err := repo.SetAsDefault(ctx, "missing")
		require.NoError(t, err)
		assert.False(t, ok)
		def, err := repo.FindDefault(ctx)
		require.NoError(t, err)
		require.NotNil(t, def)
		assert.Equal(t, a.ID, def.ID)
	})

	t.Run("saving a default moves the flag", func(t *testing.T) {
		repo := newBackend(t).Templates
		save(t, repo, domain.Template{Name: "Bug", Version: 1, IsDefault: true})
		b := save(t, repo, domain.Template{Name: "Chore", Version: 1, IsDefault: true})
		assert.Equal(t, 1, countDefaults(t, repo))
		def, err := repo.FindDefault(ctx)
		require.NoError(t, err)
		assert.Equal(t, b.ID, def.ID)
	})

	t.Run("no default yet", func(t *testing.T) {
		repo := newBackend(t).Templates
		def, err := repo.FindDefault(ctx)
		require.NoError(t, err)
		assert.Nil(t, def)
	})

	t.Run("versions", func(t *testing.T) {
		repo := newBackend(t).Templates
		save(t, repo, domain.Template{Name: "Bug", Version: 2})
		save(t, repo, domain.Template{Name: "Bug", Version: 1})
		save(t, repo, domain.Template{Name: "Bug", Version: 3})
		save(t, repo, domain.Template{Name: "Feature", Version: 1})

		versions, err := repo.FindVersionsByName(ctx, "Bug")
		require.NoError(t, err)
		require.Len(t, versions, 3)
		assert.Equal(t, []int{1, 2, 3}, []int{versions[0].Version, versions[1].Version, versions[2].Version})

		latest, err := repo.FindByName(ctx, "Bug")
		require.NoError(t, err)
		require.NotNil(t, latest)
		assert.Equal(t, 3, latest.Version)

		v2, err := repo.FindByNameAndVersion(ctx, "Bug", 2)
		require.NoError(t, err)
		require.NotNil(t, v2)
		assert.Equal(t, 2, v2.Version)

		missing, err := repo.FindByNameAndVersion(ctx, "Bug", 9)
		require.NoError(t, err)
		assert.Nil(t, missing)

		none, err := repo.FindByName(ctx, "Nope")
		require.NoError(t, err)
		assert.Nil(t, none)
	})

	t.Run("duplicate name and version is a repository error", func(t *testing.T) {
		repo := newBackend(t).Templates
		first := save(t, repo, domain.Template{Name: "Bug", Version: 1})
		_, err := repo.Save(ctx, domain.Template{Name: "Bug", Version: 1})
		require.Error(t, err)
		assert.True(t, apperrors.IsRepository(err))

		first.Description = "same row may be saved again"
		_, err = repo.Save(ctx, first)
		require.NoError(t, err)
	})

	t.Run("associated tickets", func(t *testing.T) {
		backend := newBackend(t)
		tpl := save(t, backend.Templates, domain.Template{Name: "Bug", Version: 1})
		has, err := backend.Templates.HasAssociatedTickets(ctx, tpl.ID)
		require.NoError(t, err)
		assert.False(t, has)

		_, err = backend.Tickets.Save(ctx, domain.Ticket{Title: "x", Status: domain.TicketStatusDraft, TemplateID: &tpl.ID})
		require.NoError(t, err)
		has, err = backend.Templates.HasAssociatedTickets(ctx, tpl.ID)
		require.NoError(t, err)
		assert.True(t, has)
	})

	t.Run("delete", func(t *testing.T) {
		repo := newBackend(t).Templates
		tpl := save(t, repo, domain.Template{Name: "Bug", Version: 1})
		ok, err := repo.Delete(ctx, tpl.ID)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = repo.Delete(ctx, tpl.ID)
		require.NoError(t, err)
		assert.False(t, ok)
		exists, err := repo.Exists(ctx, tpl.ID)
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

// RunHistoryContract checks HistoryRepository semantics.
func RunHistoryContract(t *testing.T, newBackend Factory) {
	ctx := context.Background()

	t.Run("append keeps insertion order per ticket", func(t *testing.T) {
		repo := newBackend(t).History
		require.NoError(t, repo.Append(ctx, domain.TicketChange{TicketID: "a", ChangeType: domain.ChangeTypeCreated, Timestamp: base}))
		require.NoError(t, repo.Append(ctx, domain.TicketChange{TicketID: "b", ChangeType: domain.ChangeTypeCreated, Timestamp: base}))
		require.NoError(t, repo.Append(ctx, domain.TicketChange{TicketID: "a", ChangeType: domain.ChangeTypeUpdated, Timestamp: base.Add(-time.Minute)}))

		ledger, err := repo.Ledger(ctx, "a")
		require.NoError(t, err)
		changes := ledger.Changes()
		require.Len(t, changes, 2)
		assert.Equal(t, domain.ChangeTypeCreated, changes[0].ChangeType)
		assert.Equal(t, domain.ChangeTypeUpdated, changes[1].ChangeType)
		assert.NotEmpty(t, changes[0].ID)
		assert.NotEqual(t, changes[0].ID, changes[1].ID)
	})

	t.Run("unknown ticket has an empty ledger", func(t *testing.T) {
		repo := newBackend(t).History
		ledger, err := repo.Ledger(ctx, "nobody")
		require.NoError(t, err)
		assert.Equal(t, 0, ledger.Len())
		assert.Equal(t, "nobody", ledger.TicketID())
	})

	t.Run("delete by ticket", func(t *testing.T) {
		repo := newBackend(t).History
		require.NoError(t, repo.Append(ctx, domain.TicketChange{TicketID: "a", ChangeType: domain.ChangeTypeCreated}))
		require.NoError(t, repo.DeleteByTicket(ctx, "a"))
		ledger, err := repo.Ledger(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, 0, ledger.Len())
	})
}
