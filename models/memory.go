package models

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// MemoryRepository keeps everything in process memory. It backs local runs
// started with STORAGE=memory and the package tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	forms    map[string]Form
	sections map[string]FormSection
	webhooks map[string]WebhookSetting
	nextHook uint
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		forms:    make(map[string]Form),
		sections: make(map[string]FormSection),
		webhooks: make(map[string]WebhookSetting),
	}
}

func (r *MemoryRepository) CreateForm(_ context.Context, form *Form) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if form.ID == "" {
		form.ID = uuid.NewString()
	}
	for _, f := range r.forms {
		if f.Slug == form.Slug {
			return ErrDuplicate
		}
	}
	now := time.Now()
	if form.CreatedAt.IsZero() {
		form.CreatedAt = now
	}
	form.UpdatedAt = now
	r.forms[form.ID] = cloneForm(*form)
	return nil
}

func (r *MemoryRepository) GetFormByID(_ context.Context, id string) (*Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.forms[id]
	if !ok {
		return nil, ErrNotFound
	}
	f = cloneForm(f)
	return &f, nil
}

func (r *MemoryRepository) GetFormBySlug(_ context.Context, slug string) (*Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, f := range r.forms {
		if f.Slug == slug {
			f = cloneForm(f)
			return &f, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListForms(_ context.Context, createdBy string) ([]Form, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	forms := make([]Form, 0, len(r.forms))
	for _, f := range r.forms {
		if createdBy == "" || f.CreatedBy == createdBy {
			forms = append(forms, cloneForm(f))
		}
	}
	sort.Slice(forms, func(i, j int) bool {
		return forms[i].CreatedAt.After(forms[j].CreatedAt)
	})
	return forms, nil
}

func (r *MemoryRepository) UpdateFormColumns(_ context.Context, id string, cols map[string]interface{}) error {
	if err := checkColumns(cols); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, ok := r.forms[id]
	if !ok {
		return ErrNotFound
	}
	f = cloneForm(f)
	for name, v := range cols {
		if err := setColumn(&f, name, v); err != nil {
			return err
		}
	}
	f.UpdatedAt = time.Now()
	r.forms[id] = f
	return nil
}

// setColumn mirrors what the database driver accepts for each column.
func setColumn(f *Form, name string, v interface{}) error {
	switch name {
	case ColumnProgress:
		p, ok := v.(int)
		if !ok {
			break
		}
		f.Progress = p
		return nil
	case ColumnStatus:
		switch s := v.(type) {
		case FormStatus:
			f.Status = s
			return nil
		case string:
			f.Status = FormStatus(s)
			return nil
		}
	case ColumnData:
		switch d := v.(type) {
		case datatypes.JSONType[FormData]:
			f.Data = datatypes.NewJSONType(d.Data().Clone())
			return nil
		case FormData:
			f.Data = datatypes.NewJSONType(d.Clone())
			return nil
		}
	case ColumnPassword:
		switch p := v.(type) {
		case nil:
			f.Password = nil
			return nil
		case string:
			f.Password = &p
			return nil
		case *string:
			if p == nil {
				f.Password = nil
			} else {
				cp := *p
				f.Password = &cp
			}
			return nil
		}
	case ColumnIsDisabled:
		b, ok := v.(bool)
		if !ok {
			break
		}
		f.IsDisabled = b
		return nil
	case ColumnLastReminder:
		switch t := v.(type) {
		case nil:
			f.LastReminder = nil
			return nil
		case time.Time:
			f.LastReminder = &t
			return nil
		case *time.Time:
			if t == nil {
				f.LastReminder = nil
			} else {
				cp := *t
				f.LastReminder = &cp
			}
			return nil
		}
	}
	return fmt.Errorf("column %s: unsupported value %T", name, v)
}

func (r *MemoryRepository) DeleteForm(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.forms[id]; !ok {
		return ErrNotFound
	}
	delete(r.forms, id)
	for shareID, s := range r.sections {
		if s.FormID == id {
			delete(r.sections, shareID)
		}
	}
	return nil
}

func (r *MemoryRepository) CreateSection(_ context.Context, section *FormSection) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.forms[section.FormID]; !ok {
		return ErrNotFound
	}
	if section.ID == "" {
		section.ID = uuid.NewString()
	}
	if section.ShareID == "" {
		section.ShareID = uuid.NewString()
	}
	section.CreatedAt = time.Now()
	r.sections[section.ShareID] = *section
	return nil
}

func (r *MemoryRepository) GetSectionByShareID(_ context.Context, shareID string) (*FormSection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sections[shareID]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) GetWebhookSetting(_ context.Context, createdBy string) (*WebhookSetting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	w, ok := r.webhooks[createdBy]
	if !ok {
		return nil, ErrNotFound
	}
	return &w, nil
}

func (r *MemoryRepository) SaveWebhookSetting(_ context.Context, setting *WebhookSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if setting.ID == 0 {
		r.nextHook++
		setting.ID = r.nextHook
		setting.CreatedAt = time.Now()
	}
	setting.UpdatedAt = time.Now()
	r.webhooks[setting.CreatedBy] = *setting
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

func cloneForm(f Form) Form {
	f.Data = datatypes.NewJSONType(f.Data.Data().Clone())
	if f.Password != nil {
		p := *f.Password
		f.Password = &p
	}
	if f.LastReminder != nil {
		t := *f.LastReminder
		f.LastReminder = &t
	}
	return f
}
