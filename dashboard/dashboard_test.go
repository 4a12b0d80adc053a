package dashboard

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SixtySecondsApp/onboarding-forms/models"
	"github.com/SixtySecondsApp/onboarding-forms/store"
	"github.com/SixtySecondsApp/onboarding-forms/wizard"
)

func TestGenerateSlug(t *testing.T) {
	re := regexp.MustCompile(`^acme-[a-z0-9]{4}$`)
	for i := 0; i < 20; i++ {
		assert.Regexp(t, re, GenerateSlug("Acme"))
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Acme":             "acme",
		"  Acme Corp Ltd ": "acme-corp-ltd",
		"O'Neil & Sons!!":  "o-neil-sons",
		"---":              "client",
		"Café 42":          "caf-42",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func sampleForms() []models.Form {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []models.Form{
		{ID: "1", ClientName: "Zeta", ClientEmail: "z@zeta.io", Slug: "zeta-aaaa", Status: models.StatusPending, Progress: 0, CreatedAt: base},
		{ID: "2", ClientName: "alpha", ClientEmail: "hi@alpha.io", Slug: "alpha-bbbb", Status: models.StatusInProgress, Progress: 50, CreatedAt: base.Add(time.Hour)},
		{ID: "3", ClientName: "Mid", ClientEmail: "mid@acme.io", Slug: "mid-cccc", Status: models.StatusCompleted, Progress: 100, CreatedAt: base.Add(2 * time.Hour)},
	}
}

func ids(forms []models.Form) []string {
	out := make([]string, len(forms))
	for i, f := range forms {
		out[i] = f.ID
	}
	return out
}

func TestQueryApply(t *testing.T) {
	forms := sampleForms()

	assert.Equal(t, []string{"3", "2", "1"}, ids(Query{}.Apply(forms)))
	assert.Equal(t, []string{"2", "3", "1"}, ids(Query{SortBy: SortClientName, Asc: true}.Apply(forms)))
	assert.Equal(t, []string{"3", "2", "1"}, ids(Query{SortBy: SortProgress}.Apply(forms)))
	assert.Equal(t, []string{"2"}, ids(Query{Status: models.StatusInProgress}.Apply(forms)))
	assert.Equal(t, []string{"3"}, ids(Query{Search: "ACME"}.Apply(forms)))
	assert.Equal(t, []string{"1"}, ids(Query{Search: "zeta-"}.Apply(forms)))
	assert.Empty(t, Query{Search: "nobody"}.Apply(forms))
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleForms())
	assert.Equal(t, Summary{Total: 3, Pending: 1, InProgress: 1, Completed: 1, AverageProgress: 50}, s)
	assert.Equal(t, Summary{}, Summarize(nil))
}

type fakeSearch struct {
	index string
	query map[string]interface{}
	docs  []map[string]interface{}
}

func (f *fakeSearch) IndexDocument(context.Context, string, string, interface{}) error { return nil }
func (f *fakeSearch) DeleteDocument(context.Context, string, string) error             { return nil }
func (f *fakeSearch) Close() error                                                     { return nil }

func (f *fakeSearch) Search(_ context.Context, index string, q map[string]interface{}) ([]map[string]interface{}, error) {
	f.index = index
	f.query = q
	return f.docs, nil
}

func newService(t *testing.T) *Service {
	t.Helper()
	st := store.New(models.NewMemoryRepository(), nil, nil, time.Minute)
	return NewService(st, nil)
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	fixed := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	form, err := svc.Create(ctx, "admin-1", "Acme", "ops@acme.io")
	require.NoError(t, err)
	assert.Regexp(t, `^acme-[a-z0-9]{4}$`, form.Slug)
	assert.Equal(t, models.StatusPending, form.Status)
	assert.Equal(t, 0, form.Progress)

	_, err = svc.Create(ctx, "admin-1", " ", "ops@acme.io")
	assert.ErrorIs(t, err, ErrInvalidInput)

	toggled, err := svc.ToggleDisabled(ctx, "admin-1", form.ID)
	require.NoError(t, err)
	assert.True(t, toggled.IsDisabled)

	protected, err := svc.SetPassword(ctx, "admin-1", form.ID, "hunter2")
	require.NoError(t, err)
	assert.True(t, protected.HasPassword())
	assert.ErrorIs(t, store.Authorize(&models.Form{Password: protected.Password}, "wrong"), store.ErrPasswordIncorrect)

	cleared, err := svc.SetPassword(ctx, "admin-1", form.ID, "")
	require.NoError(t, err)
	assert.False(t, cleared.HasPassword())

	reminded, err := svc.SendReminder(ctx, "admin-1", form.ID)
	require.NoError(t, err)
	require.NotNil(t, reminded.LastReminder)
	assert.Equal(t, fixed, *reminded.LastReminder)

	list, err := svc.List(ctx, "admin-1", Query{})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = svc.Get(ctx, "admin-2", form.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, "admin-2", form.ID), models.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, "admin-1", form.ID))
	_, err = svc.Get(ctx, "admin-1", form.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSendReminderRejectsCompletedForm(t *testing.T) {
	ctx := context.Background()
	repo := models.NewMemoryRepository()
	svc := NewService(store.New(repo, nil, nil, time.Minute), nil)

	form, err := svc.Create(ctx, "admin-1", "Done Inc", "done@example.com")
	require.NoError(t, err)
	require.NoError(t, repo.UpdateFormColumns(ctx, form.ID, map[string]interface{}{models.ColumnStatus: models.StatusCompleted}))

	_, err = svc.SendReminder(ctx, "admin-1", form.ID)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)
}

// stepDuringWrite runs a client step save right before the next column
// write reaches the repository.
type stepDuringWrite struct {
	*models.MemoryRepository
	before func()
}

func (r *stepDuringWrite) UpdateFormColumns(ctx context.Context, id string, cols map[string]interface{}) error {
	if f := r.before; f != nil {
		r.before = nil
		f()
	}
	return r.MemoryRepository.UpdateFormColumns(ctx, id, cols)
}

func TestAdminActionsKeepConcurrentStepSave(t *testing.T) {
	actions := map[string]func(*Service, context.Context, string) (*models.Form, error){
		"toggle": func(s *Service, ctx context.Context, id string) (*models.Form, error) {
			return s.ToggleDisabled(ctx, "admin-1", id)
		},
		"password": func(s *Service, ctx context.Context, id string) (*models.Form, error) {
			return s.SetPassword(ctx, "admin-1", id, "hunter2")
		},
		"reminder": func(s *Service, ctx context.Context, id string) (*models.Form, error) {
			return s.SendReminder(ctx, "admin-1", id)
		},
	}

	for name, action := range actions {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := &stepDuringWrite{MemoryRepository: models.NewMemoryRepository()}
			st := store.New(repo, nil, nil, time.Minute)
			svc := NewService(st, nil)

			form, err := svc.Create(ctx, "admin-1", "Acme", "ops@acme.io")
			require.NoError(t, err)

			repo.before = func() {
				require.NoError(t, st.SaveStep(ctx, form.ID, wizard.Update{
					Section:        "typography",
					Fields:         models.Fields{"primaryFont": "Inter"},
					CompletedSteps: []int{3},
				}))
			}

			got, err := action(svc, ctx, form.ID)
			require.NoError(t, err)
			assert.Equal(t, 17, got.Progress)

			saved, err := repo.GetFormByID(ctx, form.ID)
			require.NoError(t, err)
			assert.Equal(t, []int{3}, saved.Data.Data().CompletedSteps)
			assert.Equal(t, 17, saved.Progress)
			assert.Equal(t, models.StatusInProgress, saved.Status)
			assert.Equal(t, "Inter", saved.Data.Data().Typography["primaryFont"])
		})
	}
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	_, err := newService(t).Search(ctx, "admin-1", "acme")
	assert.ErrorIs(t, err, ErrSearchUnavailable)

	fs := &fakeSearch{docs: []map[string]interface{}{
		{"id": "f1", "client_name": "Acme", "slug": "acme-abcd", "progress": float64(50), "status": "in_progress"},
	}}
	svc := NewService(store.New(models.NewMemoryRepository(), nil, nil, time.Minute), fs)

	hits, err := svc.Search(ctx, "admin-1", "acme")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, 50, hits[0].Progress)
	assert.Equal(t, SearchIndex, fs.index)
	assert.Contains(t, fs.query, "query")
}
