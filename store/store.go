// Package store is the persistence bridge between the wizard/dashboard and
// the database. Reads go through a Redis cache; writes invalidate it and
// publish a form event. Errors are returned as-is, nothing is retried.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/SixtySecondsApp/onboarding-forms/logger"
	"github.com/SixtySecondsApp/onboarding-forms/models"
	"github.com/SixtySecondsApp/onboarding-forms/monitoring"
	"github.com/SixtySecondsApp/onboarding-forms/utils"
	"github.com/SixtySecondsApp/onboarding-forms/wizard"
)

var ErrUnknownSection = errors.New("unknown section")

type Store struct {
	repo   models.Repository
	cache  utils.RedisClient
	events Publisher
	ttl    time.Duration
}

// New builds a store. cache and events may be nil.
func New(repo models.Repository, cache utils.RedisClient, events Publisher, ttl time.Duration) *Store {
	if events == nil {
		events = nopPublisher{}
	}
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Store{repo: repo, cache: cache, events: events, ttl: ttl}
}

// cachedForm keeps the password hash, which Form hides from JSON.
type cachedForm struct {
	Form     models.Form `json:"form"`
	Password *string     `json:"password,omitempty"`
}

func formKey(id string) string    { return "form:" + id }
func slugKey(slug string) string  { return "form:slug:" + slug }
func listKey(owner string) string { return "forms:list:" + owner }

func (s *Store) Repository() models.Repository {
	return s.repo
}

func (s *Store) GetForm(ctx context.Context, id string) (*models.Form, error) {
	if f := s.cachedForm(ctx, formKey(id)); f != nil {
		return f, nil
	}

	form, err := s.repo.GetFormByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.storeForm(ctx, form)
	return form, nil
}

// GetFormByRef resolves the reference used in onboarding links, which is
// either the form id or its slug.
func (s *Store) GetFormByRef(ctx context.Context, ref string) (*models.Form, error) {
	if _, err := uuid.Parse(ref); err == nil {
		return s.GetForm(ctx, ref)
	}

	if f := s.cachedForm(ctx, slugKey(ref)); f != nil {
		return f, nil
	}

	form, err := s.repo.GetFormBySlug(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.storeForm(ctx, form)
	return form, nil
}

func (s *Store) ListForms(ctx context.Context, owner string) ([]models.Form, error) {
	if s.cache != nil {
		raw, err := s.cache.GetFromCache(ctx, listKey(owner))
		if err == nil {
			var entries []cachedForm
			if jsonErr := json.Unmarshal([]byte(raw), &entries); jsonErr == nil {
				monitoring.CacheLookups.WithLabelValues("hit").Inc()
				forms := make([]models.Form, len(entries))
				for i, e := range entries {
					forms[i] = e.Form
					forms[i].Password = e.Password
				}
				return forms, nil
			}
		}
		monitoring.CacheLookups.WithLabelValues("miss").Inc()
	}

	forms, err := s.repo.ListForms(ctx, owner)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		entries := make([]cachedForm, len(forms))
		for i, f := range forms {
			entries[i] = cachedForm{Form: f, Password: f.Password}
		}
		s.setCache(ctx, listKey(owner), entries)
	}
	return forms, nil
}

func (s *Store) CreateForm(ctx context.Context, form *models.Form) error {
	if err := s.repo.CreateForm(ctx, form); err != nil {
		return err
	}
	s.invalidate(ctx, form)
	s.publish(ctx, models.FormEvent{Event: models.EventFormCreated, FormID: form.ID, Owner: form.CreatedBy, Form: form})
	return nil
}

// UpdateColumns writes only cols, so a wizard save that lands between the
// caller's read and this write is kept. It returns the row as stored and
// publishes event, which defaults to form_updated.
func (s *Store) UpdateColumns(ctx context.Context, form *models.Form, cols map[string]interface{}, event string) (*models.Form, error) {
	if err := s.repo.UpdateFormColumns(ctx, form.ID, cols); err != nil {
		return nil, err
	}
	updated, err := s.repo.GetFormByID(ctx, form.ID)
	if err != nil {
		return nil, err
	}
	if event == "" {
		event = models.EventFormUpdated
	}
	s.invalidate(ctx, updated)
	s.publish(ctx, models.FormEvent{Event: event, FormID: updated.ID, Owner: updated.CreatedBy, Form: updated})
	return updated, nil
}

func (s *Store) DeleteForm(ctx context.Context, form *models.Form) error {
	if err := s.repo.DeleteForm(ctx, form.ID); err != nil {
		return err
	}
	s.invalidate(ctx, form)
	s.publish(ctx, models.FormEvent{Event: models.EventFormDeleted, FormID: form.ID, Owner: form.CreatedBy})
	return nil
}

// SaveStep merges one wizard section into the stored form. It reads the
// row from the database rather than the cache so the merge starts from
// the latest write.
func (s *Store) SaveStep(ctx context.Context, formID string, u wizard.Update) error {
	form, err := s.repo.GetFormByID(ctx, formID)
	if err != nil {
		return err
	}

	data := form.Data.Data().Clone()
	if !data.SetSection(u.Section, u.Fields) {
		return fmt.Errorf("%w: %s", ErrUnknownSection, u.Section)
	}
	data.CompletedSteps = wizard.NormalizeCompleted(append(data.CompletedSteps, u.CompletedSteps...))

	previous := form.Status
	form.Data = datatypes.NewJSONType(data)
	form.Progress = wizard.CalculateProgress(len(data.CompletedSteps), wizard.TotalSteps())
	form.Status = wizard.StatusFor(len(data.CompletedSteps), wizard.TotalSteps(), previous)

	event := models.EventFormUpdated
	if form.Status == models.StatusCompleted && previous != models.StatusCompleted {
		event = models.EventFormCompleted
	}

	err = s.repo.UpdateFormColumns(ctx, form.ID, map[string]interface{}{
		models.ColumnData:     form.Data,
		models.ColumnProgress: form.Progress,
		models.ColumnStatus:   form.Status,
	})
	if err != nil {
		return err
	}

	monitoring.StepsCompleted.WithLabelValues(u.Section).Inc()
	if event == models.EventFormCompleted {
		monitoring.FormsCompleted.Inc()
	}

	s.invalidate(ctx, form)
	s.publish(ctx, models.FormEvent{Event: event, FormID: form.ID, Owner: form.CreatedBy, Form: form, Step: u.Section})
	return nil
}

func (s *Store) CreateSection(ctx context.Context, formID, section string) (*models.FormSection, error) {
	idx, ok := wizard.StepIndex(section)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, section)
	}

	fs := &models.FormSection{FormID: formID, Section: wizard.Definitions[idx].ID}
	if err := s.repo.CreateSection(ctx, fs); err != nil {
		return nil, err
	}
	return fs, nil
}

// GetSection returns a shared section together with its form.
func (s *Store) GetSection(ctx context.Context, shareID string) (*models.FormSection, *models.Form, error) {
	section, err := s.repo.GetSectionByShareID(ctx, shareID)
	if err != nil {
		return nil, nil, err
	}
	form, err := s.GetForm(ctx, section.FormID)
	if err != nil {
		return nil, nil, err
	}
	return section, form, nil
}

// UpdateSection submits the answers of a shared section. A valid
// submission marks the section's step completed.
func (s *Store) UpdateSection(ctx context.Context, shareID string, fields map[string]string) (*models.Form, error) {
	section, form, err := s.GetSection(ctx, shareID)
	if err != nil {
		return nil, err
	}

	idx, ok := wizard.StepIndex(section.Section)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSection, section.Section)
	}

	c := wizard.New(form.ID, form.Data.Data(), form.Status, s)
	if err := c.GoTo(idx); err != nil {
		return nil, err
	}
	c.SetFields(fields)
	if _, err := c.Advance(ctx); err != nil {
		return nil, err
	}

	return s.repo.GetFormByID(ctx, form.ID)
}

func (s *Store) cachedForm(ctx context.Context, key string) *models.Form {
	if s.cache == nil {
		return nil
	}

	raw, err := s.cache.GetFromCache(ctx, key)
	if err != nil {
		if !errors.Is(err, utils.ErrCacheMiss) {
			logger.FromContext(ctx).Warn("form cache read failed", zap.String("key", key), zap.Error(err))
		}
		monitoring.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	}

	var entry cachedForm
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		monitoring.CacheLookups.WithLabelValues("miss").Inc()
		return nil
	}
	monitoring.CacheLookups.WithLabelValues("hit").Inc()

	entry.Form.Password = entry.Password
	return &entry.Form
}

func (s *Store) storeForm(ctx context.Context, form *models.Form) {
	if s.cache == nil {
		return
	}
	entry := cachedForm{Form: *form, Password: form.Password}
	s.setCache(ctx, formKey(form.ID), entry)
	s.setCache(ctx, slugKey(form.Slug), entry)
}

func (s *Store) setCache(ctx context.Context, key string, v interface{}) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := s.cache.SetToCache(ctx, key, string(raw), s.ttl); err != nil {
		logger.FromContext(ctx).Warn("form cache write failed", zap.String("key", key), zap.Error(err))
	}
}

// invalidate drops every cached view that could include form.
func (s *Store) invalidate(ctx context.Context, form *models.Form) {
	if s.cache == nil {
		return
	}
	keys := []string{formKey(form.ID), slugKey(form.Slug), listKey(form.CreatedBy), listKey("")}
	if err := s.cache.Delete(ctx, keys...); err != nil {
		logger.FromContext(ctx).Warn("form cache invalidation failed", zap.String("form_id", form.ID), zap.Error(err))
	}
}

func (s *Store) publish(ctx context.Context, event models.FormEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.FromContext(ctx).Error("failed to publish form event",
			zap.String("event", event.Event),
			zap.String("form_id", event.FormID),
			zap.Error(err))
	}
}
