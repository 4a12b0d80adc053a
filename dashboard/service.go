// Package dashboard implements the admin actions on onboarding forms.
// Each action is a single write through the store, which takes care of
// cache invalidation and event publishing.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/SixtySecondsApp/onboarding-forms/logger"
	"github.com/SixtySecondsApp/onboarding-forms/models"
	"github.com/SixtySecondsApp/onboarding-forms/monitoring"
	"github.com/SixtySecondsApp/onboarding-forms/store"
	"github.com/SixtySecondsApp/onboarding-forms/utils"
)

const SearchIndex = "onboarding_forms"

var (
	ErrAlreadyCompleted  = errors.New("form is already completed")
	ErrSearchUnavailable = errors.New("search is not configured")
	ErrInvalidInput      = errors.New("invalid input")
)

const slugAttempts = 5

type Service struct {
	store  *store.Store
	search utils.ElasticsearchClient
	now    func() time.Time
}

// NewService builds the dashboard service. search may be nil.
func NewService(st *store.Store, search utils.ElasticsearchClient) *Service {
	return &Service{store: st, search: search, now: time.Now}
}

func (s *Service) List(ctx context.Context, owner string, q Query) ([]models.Form, error) {
	forms, err := s.store.ListForms(ctx, owner)
	if err != nil {
		return nil, err
	}
	return q.Apply(forms), nil
}

func (s *Service) Get(ctx context.Context, owner, id string) (*models.Form, error) {
	form, err := s.store.GetForm(ctx, id)
	if err != nil {
		return nil, err
	}
	if form.CreatedBy != owner {
		return nil, models.ErrNotFound
	}
	return form, nil
}

func (s *Service) Create(ctx context.Context, owner, clientName, clientEmail string) (*models.Form, error) {
	clientName = strings.TrimSpace(clientName)
	clientEmail = strings.TrimSpace(clientEmail)
	if clientName == "" || clientEmail == "" {
		return nil, fmt.Errorf("%w: client name and email are required", ErrInvalidInput)
	}

	var err error
	for attempt := 0; attempt < slugAttempts; attempt++ {
		form := &models.Form{
			ClientName:  clientName,
			ClientEmail: clientEmail,
			Slug:        GenerateSlug(clientName),
			Status:      models.StatusPending,
			CreatedBy:   owner,
		}
		err = s.store.CreateForm(ctx, form)
		if err == nil {
			monitoring.FormsCreated.Inc()
			logger.FromContext(ctx).Info("form created",
				zap.String("form_id", form.ID),
				zap.String("slug", form.Slug))
			return form, nil
		}
		if !errors.Is(err, models.ErrDuplicate) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("could not allocate a unique slug: %w", err)
}

func (s *Service) Delete(ctx context.Context, owner, id string) error {
	form, err := s.Get(ctx, owner, id)
	if err != nil {
		return err
	}
	return s.store.DeleteForm(ctx, form)
}

func (s *Service) ToggleDisabled(ctx context.Context, owner, id string) (*models.Form, error) {
	form, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return s.store.UpdateColumns(ctx, form, map[string]interface{}{
		models.ColumnIsDisabled: !form.IsDisabled,
	}, "")
}

// SetPassword protects a form with a password; an empty password removes
// the protection.
func (s *Service) SetPassword(ctx context.Context, owner, id, password string) (*models.Form, error) {
	form, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	var value interface{}
	if password != "" {
		hash, err := store.HashPassword(password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		value = hash
	}

	return s.store.UpdateColumns(ctx, form, map[string]interface{}{
		models.ColumnPassword: value,
	}, "")
}

// SendReminder stamps last_reminder and emits a reminder event; delivery
// of the email happens downstream of the event.
func (s *Service) SendReminder(ctx context.Context, owner, id string) (*models.Form, error) {
	form, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if form.Status == models.StatusCompleted {
		return nil, ErrAlreadyCompleted
	}

	updated, err := s.store.UpdateColumns(ctx, form, map[string]interface{}{
		models.ColumnLastReminder: s.now().UTC(),
	}, models.EventFormReminder)
	if err != nil {
		return nil, err
	}
	monitoring.RemindersSent.Inc()
	return updated, nil
}

func (s *Service) CreateSection(ctx context.Context, owner, id, section string) (*models.FormSection, error) {
	form, err := s.Get(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	return s.store.CreateSection(ctx, form.ID, section)
}

// Search runs a full-text query against the search index. Hits belong to
// the owner only.
func (s *Service) Search(ctx context.Context, owner, text string) ([]SearchHit, error) {
	if s.search == nil {
		return nil, ErrSearchUnavailable
	}

	query := map[string]interface{}{
		"size": 50,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":     text,
						"fields":    []string{"client_name^2", "client_email", "slug", "business_name"},
						"fuzziness": "AUTO",
					},
				},
				"filter": map[string]interface{}{
					"term": map[string]interface{}{"created_by": owner},
				},
			},
		},
	}

	docs, err := s.search.Search(ctx, SearchIndex, query)
	if err != nil {
		return nil, err
	}

	hits := make([]SearchHit, 0, len(docs))
	for _, d := range docs {
		hits = append(hits, hitFromDocument(d))
	}
	return hits, nil
}

// SearchHit is the indexed projection of a form.
type SearchHit struct {
	ID           string `json:"id"`
	ClientName   string `json:"client_name"`
	ClientEmail  string `json:"client_email"`
	Slug         string `json:"slug"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	BusinessName string `json:"business_name,omitempty"`
	CreatedBy    string `json:"created_by"`
}

// Document builds the search document for a form.
func Document(f *models.Form) SearchHit {
	return SearchHit{
		ID:           f.ID,
		ClientName:   f.ClientName,
		ClientEmail:  f.ClientEmail,
		Slug:         f.Slug,
		Status:       string(f.Status),
		Progress:     f.Progress,
		BusinessName: f.Data.Data().BusinessDetails["businessName"],
		CreatedBy:    f.CreatedBy,
	}
}

func hitFromDocument(d map[string]interface{}) SearchHit {
	str := func(k string) string {
		v, _ := d[k].(string)
		return v
	}
	h := SearchHit{
		ID:           str("id"),
		ClientName:   str("client_name"),
		ClientEmail:  str("client_email"),
		Slug:         str("slug"),
		Status:       str("status"),
		BusinessName: str("business_name"),
		CreatedBy:    str("created_by"),
	}
	if p, ok := d["progress"].(float64); ok {
		h.Progress = int(p)
	}
	return h
}
